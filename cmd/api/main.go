package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bizdesk/internal/config"
)

var (
	cfgDir   string
	logLevel string
	cfg      *config.Config
	rootCmd  = &cobra.Command{
		Use:   "bizdesk",
		Short: "Back office API for a small repair and retail shop",
		Long: `bizdesk serves the REST API behind the shop's back office: pricing,
work orders, tickets, tasks, quotations, invoices and customer follow-up.

Run without a subcommand to start the server.`,
		PersistentPreRunE: initConfig,
		RunE:              runServe,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "directory holding config.yaml (default: ./configs)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
}

// @title                       bizdesk API
// @version                     1.0
// @description                 Back office API: pricing, record lifecycles, quotations, invoices and customers.
// @host                        localhost:8080
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load(cfgDir)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	slog.SetDefault(config.NewLogger(loaded.Log, os.Stdout))
	cfg = loaded
	return nil
}
