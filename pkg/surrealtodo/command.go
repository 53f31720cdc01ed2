package surrealtodo

import "time"

// Command represents a discrete application operation with its specific
// configuration. [Parse] produces one and [Main] dispatches it to the matching
// [App] method.
type Command interface {
	// Name returns the CLI subcommand that selects this command.
	Name() string
}

// MigrateCommand creates or updates the schema of the configured store.
// It is safe to run repeatedly.
//
// Example usage:
//
//	surrealtodo -store postgres migrate
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string {
	return "migrate"
}

// RunCommand starts the HTTP and websocket server. The listener and backends
// come from [Config]. Users are added to the directory before serving, which
// is how the in-memory store gets anyone to share with.
//
// Example usage:
//
//	surrealtodo -port 8090 -delivery broadcast run
//	surrealtodo run -user alice@example.com:alice -user bob@example.com:bob
type RunCommand struct {
	Users []*AddUserCommand
}

func (c *RunCommand) Name() string {
	return "run"
}

// AddUserCommand adds an entry to the user directory so the user can be
// found by email when a list is shared.
//
// Example usage:
//
//	surrealtodo -store sqlite adduser -email bob@example.com -name Bob
type AddUserCommand struct {
	// ID is optional. A random id is assigned when empty.
	ID          string
	Email       string
	DisplayName string
}

func (c *AddUserCommand) Name() string {
	return "adduser"
}

// TokenCommand mints a bearer token for a user with the configured secret.
// It exists for local development and scripted tests.
//
// Example usage:
//
//	SURREALTODO_JWT_SECRET=change-me surrealtodo token -user 4f1c... -ttl 1h
type TokenCommand struct {
	UserID string
	TTL    time.Duration
}

func (c *TokenCommand) Name() string {
	return "token"
}
