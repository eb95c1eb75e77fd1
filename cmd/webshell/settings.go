package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/webshell/internal/appconfig"
	"pkt.systems/webshell/internal/persist"
	"pkt.systems/webshell/schema"
)

func newSettingsCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or edit the persisted browser settings",
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config path (default: ~/.webshell/config.yaml)")
	cmd.AddCommand(newSettingsGetCmd(&cfgPath))
	cmd.AddCommand(newSettingsSetCmd(&cfgPath))
	return cmd
}

func newSettingsGetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the persisted settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSettingsStore(cmd, *cfgPath)
			if err != nil {
				return err
			}
			settings, err := store.Load()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(settings, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func newSettingsSetCmd(cfgPath *string) *cobra.Command {
	var homepage string
	var searchEngine string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the persisted settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if homepage == "" && searchEngine == "" {
				return fmt.Errorf("nothing to set; use --homepage or --search-engine")
			}
			store, err := openSettingsStore(cmd, *cfgPath)
			if err != nil {
				return err
			}
			settings, err := store.Load()
			if err != nil {
				return err
			}
			updated, err := applySettings(settings, homepage, searchEngine)
			if err != nil {
				return err
			}
			if err := store.Save(updated); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "homepage=%s search_engine=%s\n", updated.Homepage, updated.SearchEngine)
			return err
		},
	}
	cmd.Flags().StringVar(&homepage, "homepage", "", "homepage URL")
	cmd.Flags().StringVar(&searchEngine, "search-engine", "", "search engine template (one of the offered engines)")
	return cmd
}

func applySettings(settings schema.Settings, homepage, searchEngine string) (schema.Settings, error) {
	if homepage = strings.TrimSpace(homepage); homepage != "" {
		if !schema.IsHTTPURL(homepage) {
			return schema.Settings{}, fmt.Errorf("%w: %s", schema.ErrInvalidHomepage, homepage)
		}
		settings.Homepage = homepage
	}
	if searchEngine = strings.TrimSpace(searchEngine); searchEngine != "" {
		if !schema.IsOfferedSearchEngine(searchEngine) {
			return schema.Settings{}, fmt.Errorf("%w: %s", schema.ErrInvalidSearchEngine, searchEngine)
		}
		settings.SearchEngine = searchEngine
	}
	return schema.NormalizeSettings(settings), nil
}

func openSettingsStore(cmd *cobra.Command, cfgPath string) (*persist.Store, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return persist.NewStoreWithLogger(cfg.StateDir, pslog.Ctx(cmd.Context()))
}
