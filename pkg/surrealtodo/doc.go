// Package surrealtodo wires the collaborative list service together: storage,
// presence, the synchronization engine, the websocket hub and the HTTP API.
//
// # Getting Started
//
// The binary in cmd/surrealtodo calls [Main]. A purely in-memory server with
// no authentication is the quickest way to try it. The in-memory directory
// starts empty, so seed the users who will create and share lists:
//
//	surrealtodo run -user alice@example.com:alice -user bob@example.com:bob
//
// Persistent stores keep their directory between runs:
//
//	surrealtodo -store sqlite adduser -email alice@example.com -name Alice
//
// With a token secret configured every /api request needs a bearer token:
//
//	export SURREALTODO_JWT_SECRET=change-me
//	surrealtodo token -user <user id>
//	surrealtodo -store sqlite run
//
// Without a secret the caller is read from the X-User-ID header.
//
// # Backends
//
// The -store flag selects memory, sqlite, postgres or surrealdb. The postgres
// and surrealdb backends read their connection settings from POSTGRES_DSN and
// the SURREALDB_* variables. Run "surrealtodo migrate" once per database
// before serving.
//
// For the route table see [App.Router].
package surrealtodo
