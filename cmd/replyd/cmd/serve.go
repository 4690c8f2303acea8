package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-reply/internal/runtime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the bus bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := serveLogger()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt := runtime.New(cfg, log)
		if err := rt.Start(ctx); err != nil {
			log.Error("runtime exited with error", slog.String("error", err.Error()))
			return fmt.Errorf("runtime: %w", err)
		}
		log.Info("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
