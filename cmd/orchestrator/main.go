package main

import (
	"log"

	"github.com/santosdev/order-orchestrator/config"
	"github.com/santosdev/order-orchestrator/internal/app"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	orchestratorApp, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}

	if err := orchestratorApp.Run(); err != nil {
		log.Fatalf("application exited with error: %v", err)
	}
}
