package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/agregador/internal/config"
	"github.com/amishk599/agregador/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
	Long:  "Applies or rolls back the embedded Postgres migrations. SQLite databases create their schema on open.",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := postgresURL()
		if err != nil {
			return err
		}
		if err := store.MigrateUp(url); err != nil {
			return err
		}
		return printMigrationVersion(url)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := postgresURL()
		if err != nil {
			return err
		}
		if err := store.MigrateDown(url); err != nil {
			return err
		}
		return printMigrationVersion(url)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}

func postgresURL() (string, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return requirePostgres(cfg)
}

func requirePostgres(cfg *config.Config) (string, error) {
	if cfg.Storage.Driver != "postgres" {
		return "", fmt.Errorf("migrate requires storage.driver \"postgres\", got %q", cfg.Storage.Driver)
	}
	return cfg.Storage.DatabaseURL, nil
}

func printMigrationVersion(url string) error {
	v, dirty, err := store.MigrationVersion(url)
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Printf("schema version %d (%s)\n", v, state)
	return nil
}
