package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/agregador/internal/config"
	"github.com/amishk599/agregador/internal/model"
)

var fontesCmd = &cobra.Command{
	Use:   "fontes",
	Short: "Manage job sources",
}

var fontesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	RunE:  runFontesList,
}

var (
	addName     string
	addType     string
	addURL      string
	addInterval time.Duration
	addConfig   string
	addInactive bool
)

var fontesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new source",
	RunE:  runFontesAdd,
}

var fontesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create the sources declared in the config file",
	Long:  "Registers every source under `sources:` whose name is not registered yet. Existing sources are not modified.",
	RunE:  runFontesSync,
}

func init() {
	fontesAddCmd.Flags().StringVar(&addName, "nome", "", "source name")
	fontesAddCmd.Flags().StringVar(&addType, "tipo", "", "collector type: rss, api or scraper")
	fontesAddCmd.Flags().StringVar(&addURL, "url", "", "source URL")
	fontesAddCmd.Flags().DurationVar(&addInterval, "intervalo", 0, "polling interval (default: pipeline.default_interval)")
	fontesAddCmd.Flags().StringVar(&addConfig, "config-fonte", "", "collector config as JSON")
	fontesAddCmd.Flags().BoolVar(&addInactive, "inactiva", false, "register the source as inactive")
	fontesAddCmd.MarkFlagRequired("nome")
	fontesAddCmd.MarkFlagRequired("tipo")
	fontesAddCmd.MarkFlagRequired("url")

	fontesCmd.AddCommand(fontesListCmd, fontesAddCmd, fontesSyncCmd)
	rootCmd.AddCommand(fontesCmd)
}

func runFontesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, setupLogger(debug))
	if err != nil {
		return err
	}
	defer a.Close()

	sources, err := a.registry.List(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%-36s %-25s %-8s %-9s %s\n", "ID", "Nome", "Tipo", "Estado", "Próxima colecta")
	fmt.Println(strings.Repeat("─", 100))

	active := 0
	for _, s := range sources {
		status := "activa"
		if !s.Active {
			status = "inactiva"
		} else {
			active++
		}
		next := "agora"
		if s.NextDueAt != nil {
			next = s.NextDueAt.In(cfg.Pipeline.Location).Format("2006-01-02 15:04")
		}
		fmt.Printf("%-36s %-25s %-8s %-9s %s\n", s.ID, truncate(s.Name, 25), s.Type, status, next)
	}

	fmt.Printf("\nTotal: %d fontes (%d activas, %d inactivas)\n", len(sources), active, len(sources)-active)
	return nil
}

func runFontesAdd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	typ, err := model.ParseSourceType(addType)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	src, err := a.registry.Create(ctx, model.Source{
		Name:            addName,
		Type:            typ,
		URL:             addURL,
		PollingInterval: addInterval,
		Active:          !addInactive,
		Config:          json.RawMessage(addConfig),
	})
	if err != nil {
		return err
	}
	fmt.Printf("fonte registada: %s (%s)\n", src.Name, src.ID)
	return nil
}

func runFontesSync(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	seeds, err := seedSources(cfg.Sources)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.registry.Sync(ctx, seeds)
	for _, s := range created {
		fmt.Printf("  + %s (%s)\n", s.Name, s.ID)
	}
	if err != nil {
		return err
	}
	fmt.Printf("\n%d fontes criadas, %d já existiam\n", len(created), len(seeds)-len(created))
	return nil
}

func seedSources(decls []config.SourceConfig) ([]model.Source, error) {
	seeds := make([]model.Source, 0, len(decls))
	for _, d := range decls {
		typ, err := model.ParseSourceType(d.Type)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", d.Name, err)
		}
		var raw json.RawMessage
		if len(d.Settings) > 0 {
			raw, err = json.Marshal(d.Settings)
			if err != nil {
				return nil, fmt.Errorf("source %q config: %w", d.Name, err)
			}
		}
		seeds = append(seeds, model.Source{
			Name:            d.Name,
			Type:            typ,
			URL:             d.URL,
			PollingInterval: d.Interval,
			Active:          true,
			Config:          raw,
		})
	}
	return seeds, nil
}
