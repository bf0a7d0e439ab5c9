// Package cli provides the command-line interface for moodify.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/moodify/internal/config"
	"github.com/jmylchreest/moodify/internal/darkpref"
	"github.com/jmylchreest/moodify/internal/logging"
	"github.com/jmylchreest/moodify/internal/settings"
	"github.com/jmylchreest/moodify/internal/version"
)

// rootState carries the global flags to every subcommand.
type rootState struct {
	configPath string
	dataDir    string
	verbose    bool
	quiet      bool
	getenv     func(string) string

	cfg    config.Config
	logger hclog.Logger
}

// NewRootCmd builds the moodify command tree.
func NewRootCmd() *cobra.Command {
	state := &rootState{getenv: os.Getenv}

	cmd := &cobra.Command{
		Use:   "moodify",
		Short: "Recolour web pages to match a mood",
		Long: `Moodify recolours HTML documents with mood palettes, dark mode and
colour-vision filters while keeping text readable.

Settings are stored in a local database shared by every command; 'moodify serve'
keeps pages live and re-styles them as settings or the time of day change.`,
		Version:      version.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return state.init(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&state.quiet, "quiet", "q", false, "suppress non-error output")
	cmd.PersistentFlags().StringVar(&state.configPath, "config", "", "config path (default: $XDG_CONFIG_HOME/moodify/config.yml)")
	cmd.PersistentFlags().StringVar(&state.dataDir, "data-dir", "", "directory holding the settings database")
	cmd.SetGlobalNormalizationFunc(dashedFlags)
	cmd.SetVersionTemplate(version.String() + "\n")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}

	cmd.AddCommand(
		versionCmd,
		newSettingsCmd(state),
		newSitesCmd(state),
		newExcludeCmd(state),
		newMoodsCmd(state),
		newContrastCmd(state),
		newResolveCmd(state),
		newApplyCmd(state),
		newServeCmd(state),
	)
	return cmd
}

// dashedFlags accepts --data_dir for --data-dir.
func dashedFlags(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (s *rootState) init(cmd *cobra.Command) error {
	cfg, err := config.Load(s.configPath, s.getenv)
	if err != nil {
		return err
	}
	if s.dataDir != "" {
		cfg.DataDir = s.dataDir
	}
	s.cfg = cfg
	s.logger = logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Verbose: s.verbose,
		Quiet:   s.quiet,
		Output:  cmd.ErrOrStderr(),
	})
	s.logger.Debug("configuration loaded", "data_dir", cfg.DataDir, "color_scheme", cfg.ColorScheme)
	return nil
}

// openStore opens the settings database.
func (s *rootState) openStore() (*settings.SQLiteStore, error) {
	store, err := settings.Open(s.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	s.logger.Named("store").Debug("opened settings database", "path", store.Path())
	return store, nil
}

// loadSettings reads the stored settings, defaulting when nothing has been saved yet.
func (s *rootState) loadSettings(ctx context.Context, store settings.Store) (settings.Settings, error) {
	current, err := settings.LoadOrDefaults(ctx, store)
	if err != nil && !errors.Is(err, settings.ErrNotFound) {
		return current, err
	}
	return current, nil
}

// updateSettings applies fn to the stored settings and persists the result.
func (s *rootState) updateSettings(ctx context.Context, fn func(*settings.Settings) error) (settings.Settings, error) {
	store, err := s.openStore()
	if err != nil {
		return settings.Settings{}, err
	}
	defer store.Close()

	current, err := s.loadSettings(ctx, store)
	if err != nil {
		return current, err
	}
	if err := fn(&current); err != nil {
		return current, err
	}
	current = current.Normalize()
	if err := current.Validate(); err != nil {
		return current, err
	}
	if err := store.Save(ctx, current); err != nil {
		return current, err
	}
	return current, nil
}

// darkPreference builds the dark-mode detector chain. A forced scheme in the config or
// a non-nil override takes precedence over the desktop.
func (s *rootState) darkPreference(override *bool) *darkpref.Chain {
	chain := darkpref.NewChain(s.logger.Named("darkpref"), darkpref.NewEnv(s.getenv), darkpref.Portal{})
	switch {
	case override != nil:
		chain.Register(darkpref.Static(*override))
	case s.cfg.ColorScheme == config.SchemeDark:
		chain.Register(darkpref.Static(true))
	case s.cfg.ColorScheme == config.SchemeLight:
		chain.Register(darkpref.Static(false))
	}
	return chain
}
