package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmylchreest/moodify/internal/colour"
	"github.com/jmylchreest/moodify/internal/mood"
)

// swatcher renders colour samples when writing to a terminal and nothing otherwise.
type swatcher struct {
	enabled bool
}

func newSwatcher(w io.Writer) swatcher {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return swatcher{}
	}
	return swatcher{enabled: term.IsTerminal(int(f.Fd()))}
}

// swatch renders hex as a two-cell block, or an empty string when colour is disabled.
func (s swatcher) swatch(hex string) string {
	if !s.enabled {
		return ""
	}
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("  ")
}

// sample renders text in the palette's colours.
func (s swatcher) sample(p mood.Palette, text string) string {
	if !s.enabled {
		return text
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color(p.Background)).
		Foreground(lipgloss.Color(p.Text)).
		Padding(0, 1).
		Render(text)
}

func newMoodsCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moods",
		Short: "Inspect mood palettes",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every mood with its palette",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := catalogFromStore(cmd, state)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sw := newSwatcher(out)
			table := NewTable([]string{"MOOD", "BACKGROUND", "TEXT", "LINK", "ACCENT", "CONTRAST"})
			for _, m := range mood.All() {
				p, err := catalog.Lookup(m)
				if err != nil {
					return err
				}
				ratio, err := colour.ContrastRatioHex(p.Background, p.Text)
				if err != nil {
					return fmt.Errorf("%s palette: %w", m, err)
				}
				table.AddRow([]string{
					sw.swatch(p.Background) + string(m),
					p.Background,
					sw.swatch(p.Text) + p.Text,
					sw.swatch(p.Link) + p.Link,
					sw.swatch(p.Accent) + p.Accent,
					fmt.Sprintf("%.2f:1", ratio),
				})
			}
			fmt.Fprint(out, table.Render())
			return nil
		},
	}

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show <mood>",
		Short: "Show one palette",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mood.Parse(args[0])
			if err != nil {
				return err
			}
			catalog, err := catalogFromStore(cmd, state)
			if err != nil {
				return err
			}
			p, err := catalog.Lookup(m)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}

			sw := newSwatcher(out)
			fmt.Fprintf(out, "%s\n\n", sw.sample(p, string(m)))
			for _, row := range [][2]string{
				{"background", p.Background},
				{"text", p.Text},
				{"link", p.Link},
				{"accent", p.Accent},
			} {
				fmt.Fprintf(out, "  %-11s %s%s\n", row[0], sw.swatch(row[1]), row[1])
			}
			for _, pair := range [][2]string{{"text", p.Text}, {"link", p.Link}} {
				ratio, err := colour.ContrastRatioHex(p.Background, pair[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %s contrast %.2f:1\n", pair[0], ratio)
			}
			return nil
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "print the palette as JSON")

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

// catalogFromStore returns a catalog whose custom slot holds the stored custom colours.
func catalogFromStore(cmd *cobra.Command, state *rootState) (*mood.Catalog, error) {
	store, err := state.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	current, err := state.loadSettings(cmd.Context(), store)
	if err != nil {
		return nil, err
	}
	catalog := mood.NewCatalog()
	catalog.SetCustomPalette(current.CustomColors.Palette())
	return catalog, nil
}

func newContrastCmd(state *rootState) *cobra.Command {
	var minContrast float64
	cmd := &cobra.Command{
		Use:   "contrast <background> <foreground>",
		Short: "Check the WCAG contrast of a colour pair",
		Long: `Check the WCAG contrast of a colour pair. Colours may be hex, rgb() or CSS names.
Exits non-zero when the pair is below the minimum, printing the replacement text colour.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("min") {
				minContrast = state.cfg.MinContrast
			}
			bg, err := parseOpaque(args[0])
			if err != nil {
				return err
			}
			fg, err := parseOpaque(args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ratio := colour.ContrastRatio(bg, fg)
			fmt.Fprintf(out, "%s on %s: %.2f:1\n", fg.Hex(), bg.Hex(), ratio)
			if ratio >= minContrast {
				fmt.Fprintf(out, "passes (minimum %.1f:1)\n", minContrast)
				return nil
			}
			readable, err := colour.ReadableTextColor(bg.Hex(), fg.Hex(), minContrast)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "fails (minimum %.1f:1), use %s\n", minContrast, readable)
			return fmt.Errorf("contrast %.2f:1 is below %.1f:1", ratio, minContrast)
		},
	}
	cmd.Flags().Float64Var(&minContrast, "min", colour.DefaultMinContrast, "minimum contrast ratio")
	return cmd
}

func parseOpaque(value string) (colour.RGB, error) {
	c, err := colour.ParseCSSColor(value)
	if err != nil {
		return colour.RGB{}, err
	}
	if c.Transparent() {
		return colour.RGB{}, fmt.Errorf("%w: %q is transparent", colour.ErrInvalidColorFormat, value)
	}
	return c.RGB, nil
}
