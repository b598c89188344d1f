package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var expirarCmd = &cobra.Command{
	Use:   "expirar",
	Short: "Deactivate listings whose expiration date has passed",
	RunE:  runExpirar,
}

func init() {
	rootCmd.AddCommand(expirarCmd)
}

func runExpirar(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	expired, err := a.sweeper.Sweep(ctx, time.Now())
	if err != nil {
		return err
	}

	for _, l := range expired {
		fmt.Printf("  %-40s %-25s %s\n", truncate(l.Title, 40), truncate(l.Company, 25), formatDay(l.ExpiresAt))
	}
	fmt.Printf("\n%d vagas desativadas\n", len(expired))
	return nil
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
