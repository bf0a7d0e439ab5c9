package cli

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/moodify/internal/mood"
	"github.com/jmylchreest/moodify/internal/settings"
)

// setter assigns one settings field from its command-line text.
type setter func(s *settings.Settings, value string) error

func boolSetter(field func(*settings.Settings) *bool) setter {
	return func(s *settings.Settings, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", value)
		}
		*field(s) = b
		return nil
	}
}

func moodSetter(field func(*settings.Settings) *mood.Mood) setter {
	return func(s *settings.Settings, value string) error {
		return field(s).Set(value)
	}
}

func percentSetter(field func(*settings.Settings) *settings.Percent) setter {
	return func(s *settings.Settings, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("expected a percentage, got %q", value)
		}
		*field(s) = settings.Percent(n)
		return nil
	}
}

func stringSetter(field func(*settings.Settings) *string) setter {
	return func(s *settings.Settings, value string) error {
		*field(s) = value
		return nil
	}
}

// settingKeys maps dotted keys, as they appear in exports, to setters.
var settingKeys = map[string]setter{
	"enabled":                      boolSetter(func(s *settings.Settings) *bool { return &s.Enabled }),
	"mood":                         moodSetter(func(s *settings.Settings) *mood.Mood { return &s.Mood }),
	"saturation":                   percentSetter(func(s *settings.Settings) *settings.Percent { return &s.Saturation }),
	"brightness":                   percentSetter(func(s *settings.Settings) *settings.Percent { return &s.Brightness }),
	"applyToImages":                boolSetter(func(s *settings.Settings) *bool { return &s.ApplyToImages }),
	"textReadability":              boolSetter(func(s *settings.Settings) *bool { return &s.TextReadability }),
	"followSystemTheme":            boolSetter(func(s *settings.Settings) *bool { return &s.FollowSystemTheme }),
	"siteSpecific.enabled":         boolSetter(func(s *settings.Settings) *bool { return &s.SiteSpecific.Enabled }),
	"timeBased.enabled":            boolSetter(func(s *settings.Settings) *bool { return &s.TimeBased.Enabled }),
	"timeBased.dayMood":            moodSetter(func(s *settings.Settings) *mood.Mood { return &s.TimeBased.DayMood }),
	"timeBased.nightMood":          moodSetter(func(s *settings.Settings) *mood.Mood { return &s.TimeBased.NightMood }),
	"customColors.enabled":         boolSetter(func(s *settings.Settings) *bool { return &s.CustomColors.Enabled }),
	"customColors.backgroundColor": stringSetter(func(s *settings.Settings) *string { return &s.CustomColors.BackgroundColor }),
	"customColors.textColor":       stringSetter(func(s *settings.Settings) *string { return &s.CustomColors.TextColor }),
	"customColors.linkColor":       stringSetter(func(s *settings.Settings) *string { return &s.CustomColors.LinkColor }),
}

func newSettingsCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change the stored settings",
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings",
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
			return settings.Encode(cmd.OutOrStdout(), current, settings.Format(format))
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", string(settings.FormatJSON), "output format (json, yaml, toml)")

	setCmd := &cobra.Command{
		Use:   "set key=value...",
		Short: "Change one or more settings",
		Long: "Change one or more settings. Keys:\n  " +
			strings.Join(slices.Sorted(maps.Keys(settingKeys)), "\n  "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := state.updateSettings(cmd.Context(), func(s *settings.Settings) error {
				for _, arg := range args {
					key, value, ok := strings.Cut(arg, "=")
					if !ok {
						return fmt.Errorf("expected key=value, got %q", arg)
					}
					set, ok := settingKeys[key]
					if !ok {
						return fmt.Errorf("unknown setting %q", key)
					}
					if err := set(s, strings.TrimSpace(value)); err != nil {
						return fmt.Errorf("%s: %w", key, err)
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			if !state.quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d setting(s)\n", len(args))
			}
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := state.updateSettings(cmd.Context(), func(s *settings.Settings) error {
				*s = settings.Defaults()
				return nil
			})
			if err != nil {
				return err
			}
			if !state.quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Settings reset to defaults")
			}
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the settings to a .json, .yaml or .toml file, optionally .xz compressed",
		Args:  cobra.ExactArgs(1),
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
			if err := settings.ExportFile(args[0], current); err != nil {
				return err
			}
			if !state.quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported settings to %s\n", args[0])
			}
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the settings with the contents of an exported file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imported, err := settings.ImportFile(args[0])
			if err != nil {
				return err
			}
			if _, err := state.updateSettings(cmd.Context(), func(s *settings.Settings) error {
				*s = imported
				return nil
			}); err != nil {
				return err
			}
			if !state.quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Imported settings from %s\n", args[0])
			}
			return nil
		},
	}

	cmd.AddCommand(showCmd, setCmd, resetCmd, exportCmd, importCmd)
	return cmd
}
