package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"staffattend/internal/app"
	"staffattend/internal/config"
	"staffattend/internal/logging"
)

var asJSON bool

var rootCmd = &cobra.Command{
	Use:   "attendctl",
	Short: "Administrative commands for the staff attendance service",
	Long: `attendctl runs maintenance and reporting tasks against the same store
the API server uses. Configuration is read from the environment and an
optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Output as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads configuration and connects the backends for one command.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	if cfg.StoreBackend == "memory" {
		log.Warn("STORE_BACKEND=memory: attendctl starts with an empty store", zap.String("hint", "point it at postgres"))
	}
	return app.New(ctx, cfg, log)
}
