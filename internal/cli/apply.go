package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/moodify/internal/dom"
	"github.com/jmylchreest/moodify/internal/messaging"
	"github.com/jmylchreest/moodify/internal/mood"
	"github.com/jmylchreest/moodify/internal/page"
)

func newApplyCmd(state *rootState) *cobra.Command {
	var (
		pageURL   string
		output    string
		darkMode  int
		filter    string
		applyMood mood.Mood
	)
	cmd := &cobra.Command{
		Use:   "apply <page.html>",
		Short: "Recolour an HTML document with the stored settings",
		Long: `Recolour an HTML document with the stored settings and write the result.
Use - to read from stdin. --dark-mode and --filter replace the mood styling.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}

			store, err := state.openStore()
			if err != nil {
				return err
			}
			current, err := state.loadSettings(cmd.Context(), store)
			store.Close()
			if err != nil {
				return err
			}
			if applyMood != "" {
				current.Mood = applyMood
			}

			catalog := mood.NewCatalog()
			catalog.SetCustomPalette(current.CustomColors.Palette())
			p, err := page.New(page.Config{
				ID:       uuid.NewString(),
				URL:      pageURL,
				Document: doc,
				Catalog:  catalog,
				Dark:     state.darkPreference(nil),
				Logger:   state.logger.Named("page"),
				Options:  state.cfg.PageOptions(),
			})
			if err != nil {
				return err
			}

			var msg messaging.Message
			switch {
			case filter != "":
				msg = messaging.Message{Action: messaging.ApplyColorFilter, Type: filter}
			case cmd.Flags().Changed("dark-mode"):
				msg = messaging.Message{Action: messaging.ApplyDarkMode, Enabled: messaging.Bool(darkMode > 0), Intensity: messaging.Int(darkMode)}
			default:
				msg = messaging.Message{Action: messaging.ApplyMood, Settings: &current}
			}
			if resp := p.Handle(cmd.Context(), msg); !resp.Success {
				return fmt.Errorf("%s: %s", msg.Action, resp.Error)
			}
			state.logger.Debug("document styled", "mode", p.State().Mode, "modified", p.State().Modified)

			rendered, err := p.Render()
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(rendered)
				return err
			}
			if err := os.WriteFile(output, rendered, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "address the document was loaded from (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&darkMode, "dark-mode", 80, "apply dark mode at this intensity instead of a mood (0 disables)")
	cmd.Flags().StringVar(&filter, "filter", "", "apply a colour filter (protanopia, deuteranopia, tritanopia, enhance)")
	cmd.Flags().Var(&applyMood, "mood", "mood to apply instead of the stored one")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func readDocument(cmd *cobra.Command, path string) (*dom.Document, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("page not found: %s", path)
			}
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	doc, err := dom.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}
