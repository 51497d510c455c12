package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/catalog"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/config"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/images"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/models"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/opensea"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/resolver"
)

func newResolveCmd() *cobra.Command {
	var configPath string
	var datasetPath string
	var title string
	var proxyURL string
	var outputDir string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve display images for catalog records",
		Long: `Runs the image resolution fallback chain over the catalog (or a single
record) and prints the resolved URL per record.

The marketplace metadata source needs a running proxy; point --proxy at a
serve instance, or leave it empty to skip that source.`,
		Example: `  # Resolve every record's image
  brinkman-catalog resolve

  # Resolve one record, using a running proxy for marketplace metadata
  brinkman-catalog resolve --title "Nimbus" --proxy http://localhost:3001`,
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

			if title != "" {
				filtered := catalog.Filter{Search: title}.Apply(records)
				if len(filtered) == 0 {
					return fmt.Errorf("no record matches title %q", title)
				}
				records = filtered
			}

			var metadata resolver.MetadataFetcher
			if proxyURL != "" {
				metadata = opensea.NewClient(strings.TrimRight(proxyURL, "/"))
			}
			res := resolver.New(cfg.Resolver, metadata, nil)

			slog.Info("Resolving images", "records", len(records), "concurrency", concurrency)

			type resolution struct {
				record *models.CatalogRecord
				url    string
			}

			results := make([]resolution, len(records))
			var mu sync.Mutex

			group, ctx := errgroup.WithContext(cmd.Context())
			group.SetLimit(concurrency)
			for i := range records {
				group.Go(func() error {
					url := res.Resolve(ctx, &records[i])
					mu.Lock()
					results[i] = resolution{record: &records[i], url: url}
					mu.Unlock()
					return nil
				})
			}
			if err := group.Wait(); err != nil {
				return err
			}

			var fetcher *images.Fetcher
			if outputDir != "" {
				fetcher = images.NewFetcher()
			}

			resolved := 0
			for _, r := range results {
				if r.url != res.Placeholder() {
					resolved++
					if fetcher != nil {
						path := filepath.Join(outputDir, images.SafeFilename(r.record.Title, r.url))
						if err := fetcher.Download(cmd.Context(), r.url, path); err != nil {
							slog.Warn("Failed to download image", "title", r.record.Title, "url", r.url, "error", err)
						} else {
							slog.Info("Downloaded image", "title", r.record.Title, "path", path)
						}
					}
				}
				fmt.Printf("%-40s %s\n", r.record.Title, r.url)
			}
			slog.Info("Resolution finished", "resolved", resolved, "placeholder", len(records)-resolved)

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Path to the catalog dataset (.csv or .parquet)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Resolve only records whose title matches")
	cmd.Flags().StringVar(&proxyURL, "proxy", "", "Base URL of a running proxy for marketplace metadata")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Download resolved images into this directory")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 8, "Number of records resolved in parallel")

	return cmd
}
