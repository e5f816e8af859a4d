package app

import (
	"context"
	"fmt"

	"tickagent/internal/config"
	"tickagent/internal/logger"
	"tickagent/internal/store/auditlog"
	tickhttp "tickagent/internal/transport/http/tick"

	"golang.org/x/sync/errgroup"
)

// App owns the HTTP boundary and everything behind it.
type App struct {
	cfg     *config.Config
	server  *tickhttp.Server
	audit   *auditlog.Store
	Summary *StartupSummary
}

// NewApp builds the application without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	defer closeAudit(a.audit)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Server exposes the HTTP boundary, for tests.
func (a *App) Server() *tickhttp.Server {
	if a == nil {
		return nil
	}
	return a.server
}
