package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/agregador/internal/pipeline"
)

var executarSourceID string

var executarCmd = &cobra.Command{
	Use:   "executar",
	Short: "Run one aggregation pass and print the summary",
	Long:  "Collects every due source (or only --fonte, due or not), writes the listings and prints a per-source table.",
	RunE:  runExecutar,
}

func init() {
	executarCmd.Flags().StringVar(&executarSourceID, "fonte", "", "collect only this source ID")
	rootCmd.AddCommand(executarCmd)
}

func runExecutar(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	report, err := a.aggregator.Run(ctx, executarSourceID)
	printReport(report)
	return err
}

func printReport(report pipeline.Report) {
	if len(report.Results) == 0 {
		fmt.Println("\nNenhuma fonte pendente.")
		return
	}

	fmt.Printf("\n%-28s %-8s %6s %6s %6s %9s\n", "Fonte", "Estado", "Novas", "Dup", "Act", "Tempo")
	fmt.Println(strings.Repeat("─", 68))
	for _, r := range report.Results {
		fmt.Printf("%-28s %-8s %6d %6d %6d %9s\n",
			truncate(r.SourceName, 28), r.Status, r.New, r.Duplicate, r.Updated, r.Elapsed.Round(1e6))
		for _, e := range r.Errors {
			fmt.Printf("    ! %s\n", e)
		}
	}
	fmt.Printf("\nTotal: %d fontes, %d vagas novas, %d duplicadas em %s\n",
		report.Sources, report.New, report.Duplicate, report.Elapsed.Round(1e6))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
