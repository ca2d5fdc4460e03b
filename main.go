package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"todo-notes/internal/config"
	"todo-notes/internal/logging"
	"todo-notes/internal/server"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "todo-server:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	log := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "starting todo server",
		"environment", cfg.Server.Environment,
		"store", cfg.Store.Driver,
		"cache", cfg.Cache.Enabled,
	)
	return server.Run(ctx, cfg, log)
}

// loadConfig layers defaults, the YAML file, the environment and finally
// the command-line flags.
func loadConfig(args []string) (*config.Config, error) {
	fs := pflag.NewFlagSet("todo-server", pflag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var cfg *config.Config
	var err error
	if flags.ConfigFile != "" {
		cfg, err = config.Load(flags.ConfigFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := flags.Apply(fs, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
