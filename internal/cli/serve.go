package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/moodify/internal/dom"
	"github.com/jmylchreest/moodify/internal/host"
	"github.com/jmylchreest/moodify/internal/messaging"
	"github.com/jmylchreest/moodify/internal/page"
	"github.com/jmylchreest/moodify/internal/settings"
)

// Request targets besides tab ids.
const (
	targetHost   = "host"
	targetActive = "active"
	targetTabs   = "tabs"
)

// requestTimeout bounds a single routed request.
const requestTimeout = 5 * time.Second

// serveRequest is one input line: a message plus where to deliver it.
// Requests to the tabs target manage tabs instead: open (url, path), close, activate and list.
type serveRequest struct {
	Target string `json:"target"`
	Path   string `json:"path,omitempty"`
	messaging.Message
}

// tabsResponse answers requests to the tabs target and announces tabs opened at startup.
type tabsResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
	Event   string     `json:"event,omitempty"`
	TabID   string     `json:"tabId,omitempty"`
	URL     string     `json:"url,omitempty"`
	Tabs    []host.Tab `json:"tabs,omitempty"`
}

// daemon routes JSON lines from a client to the host and pages.
type daemon struct {
	host    *host.Service
	bus     *messaging.Bus
	outDir  string
	logger  hclog.Logger
	enc     *json.Encoder
	closing atomic.Bool
}

func newServeCmd(state *rootState) *cobra.Command {
	var (
		pages  []string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep pages live and route messages to them",
		Long: `Keep pages live and route messages to them.

Each --page url=path opens a tab. Requests are read from stdin as JSON lines,
e.g. {"target":"host","action":"getSettings"} or {"target":"active","action":"getStatus"};
the target is host, active, a tab id, or tabs for tab management. One JSON response
is written to stdout per request. With --out, each tab's document is written to
<out>/<tab id>.html whenever it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return state.serve(ctx, cmd, pages, outDir)
		},
	}
	cmd.Flags().StringArrayVar(&pages, "page", nil, "open a tab from url=path (repeatable)")
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write tab documents to")
	return cmd
}

func (s *rootState) serve(ctx context.Context, cmd *cobra.Command, pages []string, outDir string) error {
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	store, err := s.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	bus := messaging.NewBus(s.logger.Named("bus"), 0)
	defer bus.Close()

	h, err := host.New(store, bus, s.darkPreference(nil), s.logger.Named("host"), host.Options{
		TickInterval: s.cfg.TickInterval,
		AutoApply:    s.cfg.AutoApply,
		Page:         s.cfg.PageOptions(),
	})
	if err != nil {
		return err
	}
	d := &daemon{host: h, bus: bus, outDir: outDir, logger: s.logger.Named("serve"), enc: json.NewEncoder(cmd.OutOrStdout())}
	defer func() {
		d.closing.Store(true)
		h.Close()
	}()

	if err := h.Init(ctx); err != nil {
		return err
	}

	if s.cfg.WatchDebounce > 0 {
		w, err := settings.Watch(store.Path(), s.cfg.WatchDebounce, s.logger.Named("watch"))
		if err != nil {
			s.logger.Warn("settings watch unavailable", "error", err)
		} else {
			defer w.Close()
			go w.Run(ctx, func() { h.StorageChanged(ctx) })
		}
	}

	for _, spec := range pages {
		u, path, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("invalid --page %q: want url=path", spec)
		}
		id, err := d.openTab(u, path)
		if err != nil {
			return err
		}
		if err := d.enc.Encode(tabsResponse{Success: true, Event: "tabOpened", TabID: id, URL: u}); err != nil {
			return err
		}
	}

	return d.run(ctx, cmd.InOrStdin())
}

// run handles input lines until EOF or cancellation.
func (d *daemon) run(ctx context.Context, in io.Reader) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(strings.TrimSpace(string(line))) == 0 {
				continue
			}
			if err := d.enc.Encode(d.handleLine(ctx, line)); err != nil {
				return err
			}
		}
	}
}

// handleLine decodes and routes one request, returning the value to write back.
func (d *daemon) handleLine(ctx context.Context, line []byte) any {
	var req serveRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return messaging.Fail(fmt.Errorf("invalid request: %w", err))
	}

	if req.Target == targetTabs {
		return d.handleTabs(req)
	}

	to := req.Target
	switch to {
	case "", targetHost:
		to = host.ID
	case targetActive:
		id, ok := d.host.ActiveTab()
		if !ok {
			return messaging.Fail(errors.New("no active tab"))
		}
		to = id
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	resp, err := d.bus.Send(ctx, to, req.Message)
	if err != nil {
		d.logger.Debug("request failed", "target", to, "action", req.Action, "error", err)
		return messaging.Fail(err)
	}
	return resp
}

func (d *daemon) handleTabs(req serveRequest) tabsResponse {
	var err error
	switch req.Action {
	case "open":
		var id string
		if id, err = d.openTab(req.URL, req.Path); err == nil {
			return tabsResponse{Success: true, TabID: id, URL: req.URL}
		}
	case "close":
		err = d.host.CloseTab(req.TabID)
	case "activate":
		err = d.host.ActivateTab(req.TabID)
	case "list":
		return tabsResponse{Success: true, Tabs: d.host.Tabs()}
	default:
		return tabsResponse{Error: messaging.ErrUnknownAction}
	}
	if err != nil {
		return tabsResponse{Error: err.Error()}
	}
	return tabsResponse{Success: true, TabID: req.TabID}
}

// openTab loads path, or an empty document when path is empty, into a new tab.
func (d *daemon) openTab(rawURL, path string) (string, error) {
	if rawURL == "" {
		return "", errors.New("tab requires a url")
	}
	var doc *dom.Document
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		if doc, err = dom.Parse(f); err != nil {
			return "", fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return d.host.OpenTab(rawURL, doc, d.persist)
}

// persist writes a tab's document to the output directory. It runs on the tab's goroutine.
func (d *daemon) persist(p *page.Page) {
	if d.outDir == "" || d.closing.Load() {
		return
	}
	rendered, err := p.Render()
	if err != nil {
		d.logger.Error("render failed", "tab", p.ID(), "error", err)
		return
	}
	path := filepath.Join(d.outDir, p.ID()+".html")
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		d.logger.Error("write failed", "tab", p.ID(), "path", path, "error", err)
	}
}
