package postgres

import "context"

// Truncate empties every table. Tests use it to start from a clean database.
func (s *PostgresStore) Truncate(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("TRUNCATE lists, users").Error
}
