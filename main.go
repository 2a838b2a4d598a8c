package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"multas/cmd"
	"multas/internal/config"
	"multas/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Warning: Could not load configuration: %v", err)
		// Use default logger config if main config fails
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		// Initialize logger with configuration
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	applog := logger.WithComponent("main")
	applog.Debug().Msg("Starting Multas CLI")

	// Execute CLI commands
	cmd.Execute()

	applog.Debug().Msg("Multas CLI shutdown")
	os.Exit(0)
}
