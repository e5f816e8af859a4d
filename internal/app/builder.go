package app

import (
	"context"
	"fmt"
	"strings"

	"tickagent/internal/config"
	"tickagent/internal/engine"
	"tickagent/internal/logger"
	"tickagent/internal/metrics"
	"tickagent/internal/mothership"
	"tickagent/internal/recommend"
	"tickagent/internal/store"
	"tickagent/internal/store/auditlog"
	tickhttp "tickagent/internal/transport/http/tick"
)

// AppBuilder assembles the tick pipeline from config. The hook fields let
// tests swap the outbound collaborators.
type AppBuilder struct {
	cfg *config.Config

	recommenderFn func(context.Context, config.AIConfig) recommend.Recommender
	submitterFn   func(config.MothershipConfig) (mothership.Submitter, error)
	auditFn       func(string) (*auditlog.Store, error)
}

type AppBuilderOption func(*AppBuilder)

func WithRecommender(fn func(context.Context, config.AIConfig) recommend.Recommender) AppBuilderOption {
	return func(b *AppBuilder) { b.recommenderFn = fn }
}

func WithSubmitter(fn func(config.MothershipConfig) (mothership.Submitter, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.submitterFn = fn }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		recommenderFn: buildRecommender,
		submitterFn:   buildSubmitter,
		auditFn:       auditlog.Open,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildRecommender(ctx context.Context, cfg config.AIConfig) recommend.Recommender {
	return recommend.NewFromConfig(ctx, cfg)
}

func buildSubmitter(cfg config.MothershipConfig) (mothership.Submitter, error) {
	return mothership.NewClient(cfg)
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b == nil || b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	snapshot := store.NewSnapshot(cfg.Store.PositionsPath)
	history := store.NewHistory(cfg.Store.HistoryPath)

	var audit *auditlog.Store
	if path := strings.TrimSpace(cfg.Store.AuditDBPath); path != "" {
		s, err := b.auditFn(path)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		audit = s
		logger.Infof("audit log enabled at %s", path)
	}

	rec := b.recommenderFn(ctx, cfg.AI)
	sub, err := b.submitterFn(cfg.Mothership)
	if err != nil {
		closeAudit(audit)
		return nil, fmt.Errorf("build mothership client: %w", err)
	}

	m := metrics.New()
	params := engine.Params{
		Recommender: rec,
		Submitter:   sub,
		Snapshot:    snapshot,
		History:     history,
		Metrics:     m,
	}
	if audit != nil {
		params.Audit = audit
	}
	proc, err := engine.NewProcessor(params)
	if err != nil {
		closeAudit(audit)
		return nil, err
	}

	server, err := tickhttp.NewServer(tickhttp.ServerConfig{
		Addr:            cfg.App.HTTPAddr,
		APIKey:          cfg.Auth.APIKey,
		AuthHeader:      cfg.Auth.Header,
		RateLimitPerSec: cfg.HTTP.RateLimitPerSec,
		RateBurst:       cfg.HTTP.RateBurst,
		Processor:       proc,
		Snapshot:        snapshot,
		History:         history,
		Metrics:         m,
	})
	if err != nil {
		closeAudit(audit)
		return nil, fmt.Errorf("build http server: %w", err)
	}

	return &App{
		cfg:     cfg,
		server:  server,
		audit:   audit,
		Summary: newStartupSummary(cfg, rec),
	}, nil
}

func closeAudit(s *auditlog.Store) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		logger.Warnf("close audit log: %v", err)
	}
}
