package main

import (
	"context"
	"log"

	"github.com/shestoi/warungpos/internal/app"
	"github.com/shestoi/warungpos/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Log()

	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatalf("Application stopped with error: %v", err)
	}
}
