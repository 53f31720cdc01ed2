package surrealtodo

import (
	"context"
	"fmt"
)

// Migrate creates the schema the configured store needs. The memory store
// has none. Running it twice is harmless.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) error {
	a.log.Info("running database migrations", "store", string(a.config.Store))
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.log.Info("migrations completed")
	return nil
}
