package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tickagent/internal/logger"
	"tickagent/internal/metrics"
	"tickagent/internal/mothership"
	"tickagent/internal/recommend"
	"tickagent/internal/store/auditlog"
	"tickagent/internal/tick"
)

const (
	StageSnapshot  = "snapshot"
	StageHistory   = "history"
	StageSubmit    = "submit"
	StageReconcile = "reconcile"
)

// ProcessError is a tick failure after validation. Files written by earlier
// stages stay on disk.
type ProcessError struct {
	Stage string
	Err   error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

type SnapshotWriter interface {
	Replace(positions []tick.Position) error
}

type HistoryAppender interface {
	Append(entry tick.HistoryEntry) error
}

type AuditRecorder interface {
	Record(ctx context.Context, e auditlog.Entry) (string, error)
}

type Params struct {
	Recommender recommend.Recommender
	Submitter   mothership.Submitter
	Snapshot    SnapshotWriter
	History     HistoryAppender
	Audit       AuditRecorder
	Metrics     *metrics.Metrics
}

// Processor runs the tick pipeline. Ticks are serialized: the snapshot and
// history files have a single writer at any time.
type Processor struct {
	mu sync.Mutex

	recommender recommend.Recommender
	submitter   mothership.Submitter
	snapshot    SnapshotWriter
	history     HistoryAppender
	audit       AuditRecorder
	metrics     *metrics.Metrics
}

func NewProcessor(p Params) (*Processor, error) {
	switch {
	case p.Recommender == nil:
		return nil, errors.New("processor requires a recommender")
	case p.Submitter == nil:
		return nil, errors.New("processor requires a submitter")
	case p.Snapshot == nil || p.History == nil:
		return nil, errors.New("processor requires snapshot and history stores")
	}
	return &Processor{
		recommender: p.Recommender,
		submitter:   p.Submitter,
		snapshot:    p.Snapshot,
		history:     p.History,
		audit:       p.Audit,
		metrics:     p.Metrics,
	}, nil
}

func (p *Processor) Process(ctx context.Context, payload tick.Payload, tradeID string) (tick.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	entry := auditlog.Entry{TradeID: tradeID}
	res, err := p.run(ctx, payload, tradeID, &entry)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		entry.Error = err.Error()
		logger.Errorf("tick %s failed: %v", tradeID, err)
	} else {
		logger.Infof("tick %s: evaluated=%d pnl=%.4f source=%s trades=%d mothership=%d elapsed=%s",
			tradeID, res.Summary.PositionsEvaluated, res.Summary.UnrealizedPnL, entry.Source,
			len(res.Decisions), entry.MothershipStatus, time.Since(start).Round(time.Millisecond))
	}
	p.metrics.ObserveTick(outcome, time.Since(start))
	p.recordAudit(ctx, entry)
	return res, err
}

func (p *Processor) run(ctx context.Context, payload tick.Payload, tradeID string, entry *auditlog.Entry) (tick.Result, error) {
	prices := tick.PriceMap(payload.MarketSummary)
	summary := ComputeSummary(payload.Positions, prices)
	entry.PnL = summary.UnrealizedPnL
	entry.Evaluated = summary.PositionsEvaluated
	p.metrics.ObserveSummary(summary.PositionsEvaluated, summary.UnrealizedPnL)

	if err := p.snapshot.Replace(Enrich(payload.Positions, prices)); err != nil {
		return tick.Result{}, &ProcessError{Stage: StageSnapshot, Err: err}
	}

	rec := p.recommender.Recommend(recommend.WithTradeID(ctx, tradeID), payload)
	if rec.Trades == nil {
		rec.Trades = []tick.Trade{}
	}
	entry.Source = string(rec.Source)
	entry.Trades = rec.Trades
	entry.Rationale = rec.Rationale
	p.metrics.ObserveRecommendation(string(rec.Source))
	if rec.Source == recommend.SourceFallback {
		logger.Warnf("tick %s: fallback recommendation (%s)", tradeID, rec.Reason)
	}

	if err := p.history.Append(tick.HistoryEntry{AIRecommendations: rec.Trades, Rationale: rec.Rationale}); err != nil {
		return tick.Result{}, &ProcessError{Stage: StageHistory, Err: err}
	}

	resp, err := p.submitter.Submit(ctx, tradeID, rec.Trades)
	if err != nil {
		p.metrics.ObserveMothership(0)
		return tick.Result{}, &ProcessError{Stage: StageSubmit, Err: err}
	}
	p.metrics.ObserveMothership(resp.Status)
	entry.MothershipStatus = resp.Status

	if resp.OK() {
		returned, ok, err := resp.Positions()
		if err != nil {
			return tick.Result{}, &ProcessError{Stage: StageReconcile, Err: err}
		}
		if ok {
			if err := p.snapshot.Replace(Enrich(returned, prices)); err != nil {
				return tick.Result{}, &ProcessError{Stage: StageReconcile, Err: err}
			}
		}
	}

	status := resp.Status
	body := resp.Body
	if body == nil {
		body = map[string]any{}
	}
	return tick.Result{
		Summary:              summary,
		Decisions:            rec.Trades,
		MothershipResponse:   body,
		HTTPStatusMothership: &status,
	}, nil
}

func (p *Processor) recordAudit(ctx context.Context, entry auditlog.Entry) {
	if p.audit == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := p.audit.Record(actx, entry); err != nil {
		logger.Warnf("tick %s: audit record failed: %v", entry.TradeID, err)
	}
}
