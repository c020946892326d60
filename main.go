package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/vladqvarvar-create/Crossaut-fire/internal"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/provision"
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"
)

var log = logger.Get("Main")

// main is the entry point to the program. The user configuration is loaded
// from their home directory (overridable via -config), merged with any .env
// file and the process environment, and handed to the orchestrator. The
// process shuts down cleanly on SIGINT/SIGTERM.
func main() {
	_ = godotenv.Load(".env")

	configPath := flag.String("config", defaultConfigPath(), "path to the YAML configuration file")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	flag.Parse()

	if *verbose {
		logger.SetMinLoggingLevel(logger.VERBOSE.Level())
	}

	config := internal.CrossautConfig{}
	if err := config.LoadFromFile(*configPath); err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := internal.New(config).Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Crossaut stopped: %v\n", err)

		var stepErr *provision.StepError
		if errors.As(err, &stepErr) {
			os.Exit(stepErr.ExitCode())
		}

		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return "config.yaml"
	}

	return filepath.Join(home, ".config", "crossaut", "config.yaml")
}
