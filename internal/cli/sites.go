package cli

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/moodify/internal/mood"
	"github.com/jmylchreest/moodify/internal/settings"
)

func newSitesCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Manage per-site overrides",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List site overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := state.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			current, err := state.loadSettings(cmd.Context(), store)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			status := "disabled"
			if current.SiteSpecific.Enabled {
				status = "enabled"
			}
			fmt.Fprintf(out, "Site overrides are %s\n\n", status)

			table := NewTable([]string{"SITE", "MOOD", "SATURATION", "BRIGHTNESS"})
			for _, host := range slices.Sorted(maps.Keys(current.SiteSpecific.Sites)) {
				o := current.SiteSpecific.Sites[host]
				table.AddRow([]string{host, orDash(string(o.Mood)), percentOrDash(o.Saturation), percentOrDash(o.Brightness)})
			}
			fmt.Fprint(out, table.Render())
			return nil
		},
	}

	var (
		siteMood   mood.Mood
		saturation int
		brightness int
	)
	setCmd := &cobra.Command{
		Use:   "set <host>",
		Short: "Create or replace the override for a host",
		Long: `Create or replace the override for a host. Only the flags given are stored;
the rest are inherited from the global settings. Site overrides are enabled as a side effect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override := settings.SiteOverride{Mood: siteMood}
			if cmd.Flags().Changed("saturation") {
				override.Saturation = settings.Percent(saturation).Ptr()
			}
			if cmd.Flags().Changed("brightness") {
				override.Brightness = settings.Percent(brightness).Ptr()
			}
			if override == (settings.SiteOverride{}) {
				return fmt.Errorf("nothing to set: pass --mood, --saturation or --brightness")
			}

			_, err := state.updateSettings(cmd.Context(), func(s *settings.Settings) error {
				s.SiteSpecific.Enabled = true
				s.SiteSpecific.Sites[args[0]] = override
				return nil
			})
			if err != nil {
				return err
			}
			if !state.quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved override for %s\n", args[0])
			}
			return nil
		},
	}
	setCmd.Flags().Var(&siteMood, "mood", "mood for the site")
	setCmd.Flags().IntVar(&saturation, "saturation", 0, "saturation percentage for the site")
	setCmd.Flags().IntVar(&brightness, "brightness", 0, "brightness percentage for the site")

	removeCmd := &cobra.Command{
		Use:     "remove <host>",
		Aliases: []string{"rm"},
		Short:   "Delete the override for a host",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := state.updateSettings(cmd.Context(), func(s *settings.Settings) error {
				if _, ok := s.SiteSpecific.Sites[args[0]]; !ok {
					return fmt.Errorf("no override for %s", args[0])
				}
				delete(s.SiteSpecific.Sites, args[0])
				return nil
			})
			return err
		},
	}

	cmd.AddCommand(listCmd, setCmd, removeCmd)
	return cmd
}

func newExcludeCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exclude",
		Short: "Manage hosts that are never recoloured",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List excluded hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := state.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			current, err := state.loadSettings(cmd.Context(), store)
			if err != nil {
				return err
			}
			for _, host := range current.ExcludedDomains {
				fmt.Fprintln(cmd.OutOrStdout(), host)
			}
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <host>...",
		Short: "Exclude hosts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := state.updateSettings(cmd.Context(), func(s *settings.Settings) error {
				s.ExcludedDomains = append(s.ExcludedDomains, args...)
				return nil
			})
			return err
		},
	}

	removeCmd := &cobra.Command{
		Use:     "remove <host>...",
		Aliases: []string{"rm"},
		Short:   "Stop excluding hosts",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := state.updateSettings(cmd.Context(), func(s *settings.Settings) error {
				s.ExcludedDomains = slices.DeleteFunc(s.ExcludedDomains, func(d string) bool {
					return slices.Contains(args, d)
				})
				return nil
			})
			return err
		},
	}

	cmd.AddCommand(listCmd, addCmd, removeCmd)
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func percentOrDash(p *settings.Percent) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(int(*p)) + "%"
}
