package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/agregador/internal/notifier"
)

var notifyTo string

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test email",
	Long:  "Sends a test email using the configured mailer.",
	RunE:  runNotifyTest,
}

var notifyTypesCmd = &cobra.Command{
	Use:   "tipos",
	Short: "List the notification types",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range notifier.Types() {
			fmt.Println(t)
		}
	},
}

func init() {
	notifyTestCmd.Flags().StringVar(&notifyTo, "para", "", "recipient address")
	notifyTestCmd.MarkFlagRequired("para")
	notifyCmd.AddCommand(notifyTestCmd, notifyTypesCmd)
	rootCmd.AddCommand(notifyCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	m := setupMailer(cfg, httpClient, logger)

	if err := notifier.SendTestEmail(context.Background(), m, notifyTo); err != nil {
		logger.Error("test email failed", "error", err)
		os.Exit(1)
	}
	logger.Info("test email sent successfully", "to", notifyTo)
	return nil
}
