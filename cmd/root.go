package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brinkman-catalog",
		Short: "Catalog viewer backend for a fixed set of NFT artworks",
		Long: `brinkman-catalog serves a filterable, sortable catalog of NFT artworks.

Artwork images are resolved through a fallback chain (direct link, marketplace
metadata, IPFS gateways, external link) and live marketplace price/event data
is fetched through a same-origin proxy.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newValidateCmd())

	return cmd
}
