package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/catalog"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/config"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
)

func newValidateCmd() *cobra.Command {
	var configPath string
	var datasetPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse the catalog dataset and report what it contains",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if datasetPath != "" {
				cfg.Dataset.Path = datasetPath
			}

			records, err := catalog.NewLoader(cfg.Dataset.Path).Load()
			if err != nil {
				return err
			}

			byType := make(map[models.ArtworkType]int)
			addressable := 0
			withImage := 0
			for i := range records {
				byType[records[i].Type]++
				if records[i].MarketAddressable() {
					addressable++
				}
				if records[i].HasDirectImage() || records[i].HasIPFSRef() {
					withImage++
				}
			}

			fmt.Printf("Records:            %d\n", len(records))
			for _, t := range []models.ArtworkType{models.TypeUnique, models.TypeEdition, models.TypeGenerative, models.TypeSeries, models.TypeUnknown} {
				if byType[t] > 0 {
					fmt.Printf("  %-17s %d\n", string(t)+":", byType[t])
				}
			}
			fmt.Printf("Market-addressable: %d\n", addressable)
			fmt.Printf("With image source:  %d\n", withImage)

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Path to the catalog dataset (.csv or .parquet)")

	return cmd
}
