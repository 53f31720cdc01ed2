package surrealtodo

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Main is the main entry point for the surrealtodo application.
// It takes a context for cancellation and command line arguments, then
// executes the appropriate command. Tests call it directly without building
// the binary; cancelling ctx stops a running server gracefully.
//
// # Command Line Usage
//
//	# In-memory store, development auth
//	surrealtodo run -user alice@example.com:alice -user bob@example.com:bob
//
//	# SQLite file, broadcast delivery
//	surrealtodo -store sqlite -sqlite-path todo.db -delivery broadcast run
//
//	# Create the PostgreSQL schema, then serve from it
//	surrealtodo -store postgres migrate
//	surrealtodo -store postgres run
//
// # Environment Variables
//
//	POSTGRES_DSN            - PostgreSQL connection string
//	SURREALDB_URL           - SurrealDB endpoint (default: ws://localhost:8000/rpc)
//	SURREALDB_NS            - SurrealDB namespace (default: surrealtodo)
//	SURREALDB_DB            - SurrealDB database (default: surrealtodo)
//	SURREALDB_USER          - SurrealDB username (default: root)
//	SURREALDB_PASS          - SurrealDB password (default: root)
//	SURREALTODO_JWT_SECRET  - HMAC secret for bearer tokens; empty disables auth
func Main(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout)
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	app, err := New(config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	switch c := cmd.(type) {
	case *MigrateCommand:
		if err := app.Migrate(ctx, c); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case *RunCommand:
		if err := app.Run(ctx, c); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case *AddUserCommand:
		user, err := app.AddUser(ctx, c)
		if err != nil {
			return fmt.Errorf("adduser failed: %w", err)
		}
		fmt.Fprintln(stdout, user.ID)
	case *TokenCommand:
		token, err := app.Token(c)
		if err != nil {
			return fmt.Errorf("token failed: %w", err)
		}
		fmt.Fprintln(stdout, token)
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}

	return nil
}
