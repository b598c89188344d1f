package main

import (
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/agregador/internal/config"
	"github.com/amishk599/agregador/internal/notifier"
)

var (
	cfgPath   string
	debug     bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "agregador",
	Short: "Agregador de vagas de emprego em Angola",
	Long:  "Agregador collects job listings from RSS feeds, JSON APIs and web pages, deduplicates them and keeps them current.",
	// Default to `start` so that `agregador` with no args runs the daemon.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: AGREGADOR_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: text or json")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > AGREGADOR_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if path == "" {
		if env := os.Getenv("AGREGADOR_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	return newLogger(os.Stdout, dbg, logFormat)
}

func newLogger(w io.Writer, dbg bool, format string) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func setupMailer(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) notifier.Mailer {
	switch cfg.Mail.Type {
	case "resend":
		logger.Info("using resend mailer")
		return notifier.NewResendMailer(cfg.Mail.BaseURL, cfg.Mail.APIKey, cfg.Mail.From, httpClient, logger)
	default:
		return notifier.NewLogMailer(logger)
	}
}
