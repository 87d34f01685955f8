package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/taskchat/taskchat/internal/config"
	"github.com/taskchat/taskchat/internal/server"
)

var configPath string

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "taskchat",
		Short: "Conversational task management service",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var c config.Config
			var err error
			if configPath != "" {
				c, err = config.Load(configPath)
			} else {
				c = config.Default()
			}
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
			}()

			return server.Run(ctx, c)
		},
	}
	serve.Flags().StringVarP(&configPath, "config", "f", "etc/taskchat.yaml", "path to config file")

	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
