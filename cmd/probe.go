package main

import (
	"fmt"

	"doujin-resolver/adapters"
	"doujin-resolver/internal/types"
	"doujin-resolver/utils"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newProbeCmd runs a single storefront search, for checking selectors against the live site
func newProbeCmd(opts *options) *cobra.Command {
	var (
		site    string
		extract bool
	)

	cmd := &cobra.Command{
		Use:   "probe <query>",
		Short: "Search one storefront and print the matched product URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts.verbose)
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			client := utils.NewHTTPClient(cfg, logger)
			defer client.Close()

			adapter, err := adapters.New(types.SiteID(site), client.NewSession(), cfg, logger)
			if err != nil {
				return err
			}

			ctx := cmdContext(cmd)
			location, err := adapter.Search(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%s search failed: %w", site, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), location)

			if !extract {
				return nil
			}
			record, err := adapter.Extract(ctx, location)
			if err != nil {
				return fmt.Errorf("%s extraction failed: %w", site, err)
			}
			if record.IsEmpty() {
				logger.Warnf("No fields extracted from %s", location)
			}
			out, err := yaml.Marshal(record)
			if err != nil {
				return fmt.Errorf("failed to marshal record: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&site, "site", string(types.SiteDLsite), "Storefront to search (dlsite, fanza, booth, toranoana, melonbooks, alicebooks)")
	cmd.Flags().BoolVar(&extract, "extract", false, "Also extract and print the product record")
	return cmd
}
