package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/surrealtodo"
)

func main() {
	// Cancel on SIGINT/SIGTERM so a running server shuts down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := surrealtodo.Main(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
