package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/agregador/internal/browse"
	"github.com/amishk599/agregador/internal/model"
)

var vagasLimit int

var vagasCmd = &cobra.Command{
	Use:   "vagas",
	Short: "Browse stored listings interactively (TUI)",
	Long:  "Shows the province picker, then a split-pane view of listings and recent collection runs.",
	RunE:  runVagas,
}

func init() {
	vagasCmd.Flags().IntVar(&vagasLimit, "limite", 500, "maximum listings to load")
	rootCmd.AddCommand(vagasCmd)
}

type browseData struct {
	listings  []model.Listing
	runs      []model.CollectionRun
	provinces []model.Province
}

func runVagas(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	data, err := browse.RunLoader("A carregar vagas", func(ctx context.Context) (browseData, error) {
		var d browseData
		var err error
		if d.listings, err = st.ListListings(ctx, vagasLimit); err != nil {
			return d, err
		}
		if d.runs, err = st.ListRuns(ctx, 100); err != nil {
			return d, err
		}
		d.provinces, err = st.ListProvinces(ctx)
		return d, err
	})
	if err != nil {
		return err
	}

	listings := data.listings
	choices := browse.ProvinceChoices(data.provinces, listings)
	if len(choices) > 2 {
		idx, err := browse.RunProvincePicker(choices)
		if err != nil {
			return err
		}
		if idx < 0 {
			return nil
		}
		listings = browse.FilterByProvince(listings, choices[idx].ID)
	}

	return browse.Run(listings, data.runs, data.provinces)
}
