package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"creditflow/internal/config"
	"creditflow/internal/pkg/logger"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:          "creditctl",
		Short:        "creditctl - operator tool for the credit request pipeline",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Time allowed for connecting and running the command")

	rootCmd.AddCommand(topologyCmd(&timeout))
	rootCmd.AddCommand(evaluateCmd(&timeout))
	rootCmd.AddCommand(reconcileCmd(&timeout))
	rootCmd.AddCommand(listCmd(&timeout))
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type env struct {
	cfg *config.Config
	log *slog.Logger
	ctx context.Context
}

// setup loads configuration and a logger writing to stderr
func setup(timeout time.Duration) (*env, context.CancelFunc, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewWithWriter(cfg.Log, os.Stderr)
	slog.SetDefault(log)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return &env{cfg: cfg, log: log, ctx: ctx}, cancel, nil
}
