package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/moodify/internal/mood"
	"github.com/jmylchreest/moodify/internal/resolver"
)

// parseAt accepts RFC3339 timestamps and HH:MM times of the current day.
func parseAt(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("15:04", value, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want RFC3339 or HH:MM", value)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}

func newResolveCmd(state *rootState) *cobra.Command {
	var (
		site   string
		at     string
		dark   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the configuration a page would receive",
		Long: `Show the configuration a page would receive from the stored settings, taking the
site, time of day and system colour scheme into account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := parseAt(at, time.Now())
			if err != nil {
				return err
			}
			var override *bool
			if cmd.Flags().Changed("dark") {
				override = &dark
			}

			store, err := state.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			current, err := state.loadSettings(cmd.Context(), store)
			if err != nil {
				return err
			}

			catalog := mood.NewCatalog()
			catalog.SetCustomPalette(current.CustomColors.Palette())
			r := resolver.New(catalog, state.darkPreference(override), state.logger.Named("resolver"))
			cfg, ok := r.Resolve(current, site, now)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if !ok {
					return enc.Encode(map[string]bool{"apply": false})
				}
				return enc.Encode(cfg)
			}
			if !ok {
				fmt.Fprintln(out, "No styles would be applied (disabled or excluded)")
				return nil
			}

			period := "night"
			if resolver.IsDaytime(now) {
				period = "day"
			}
			table := NewTable([]string{"FIELD", "VALUE"})
			table.AddRow([]string{"mood", string(cfg.Mood)})
			table.AddRow([]string{"period", period})
			table.AddRow([]string{"saturation", strconv.Itoa(int(cfg.Saturation)) + "%"})
			table.AddRow([]string{"brightness", strconv.Itoa(int(cfg.Brightness)) + "%"})
			table.AddRow([]string{"background", cfg.Palette.Background})
			table.AddRow([]string{"text", cfg.Palette.Text})
			table.AddRow([]string{"link", cfg.Palette.Link})
			table.AddRow([]string{"accent", cfg.Palette.Accent})
			table.AddRow([]string{"textReadability", strconv.FormatBool(cfg.TextReadability)})
			table.AddRow([]string{"applyToImages", strconv.FormatBool(cfg.ApplyToImages)})
			fmt.Fprint(out, table.Render())
			return nil
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "hostname of the page")
	cmd.Flags().StringVar(&at, "at", "", "time to resolve for (RFC3339 or HH:MM, default now)")
	cmd.Flags().BoolVar(&dark, "dark", false, "force the system dark preference")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the configuration as JSON")
	return cmd
}
