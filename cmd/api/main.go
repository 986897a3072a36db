package main

import (
	"context"
	"log"

	"user-api/cmd/api/app"
	"user-api/cmd/api/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("application exited with error: %v", err)
	}
}

func run() error {
	ctx, stop := server.WithSignal(context.Background())
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		return err
	}

	return application.Run(ctx)
}
