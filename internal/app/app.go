package app

import (
	"context"
	"fmt"

	brcfg "verge/internal/config"
	"verge/internal/decision"
	"verge/internal/gateway/notifier"
	"verge/internal/logger"
	"verge/internal/monitor"
	"verge/internal/scanner"
	livehttp "verge/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// App wires the loops and the HTTP surface around one configuration.
type App struct {
	cfg      *brcfg.Config
	monitor  *monitor.Monitor
	scanner  *scanner.Scanner
	hub      *notifier.Hub
	liveHTTP *livehttp.Server
	cleanup  func()
	Summary  *StartupSummary
}

func newApp(cfg *brcfg.Config, mon *monitor.Monitor, sc *scanner.Scanner, hub *notifier.Hub, srv *livehttp.Server) *App {
	return &App{
		cfg:      cfg,
		monitor:  mon,
		scanner:  sc,
		hub:      hub,
		liveHTTP: srv,
		Summary:  newStartupSummary(cfg, srv),
	}
}

// NewApp builds the application without starting it. Close releases the
// stores.
func NewApp(cfg *brcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	app, cleanup, err := buildAppWithWire(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	app.cleanup = cleanup
	return app, nil
}

// Run blocks until ctx is cancelled or one of the components fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.monitor == nil {
		return fmt.Errorf("monitor not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return a.monitor.Run(ctx) })
	if a.scanner != nil {
		group.Go(func() error { return a.scanner.Run(ctx) })
	}
	if a.hub != nil {
		group.Go(func() error { return a.hub.Run(ctx) })
	}
	if a.liveHTTP != nil {
		group.Go(func() error {
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}
	return group.Wait()
}

// Explore runs a detached opportunity search, for the command line.
func (a *App) Explore(ctx context.Context, req decision.SearchRequest, n int) ([]decision.Opportunity, error) {
	if a == nil || a.monitor == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return a.monitor.Explore(ctx, req, n)
}

func (a *App) Close() {
	if a == nil || a.cleanup == nil {
		return
	}
	a.cleanup()
	a.cleanup = nil
}
