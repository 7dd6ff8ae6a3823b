// Package syncservice coordinates publish runs for the HTTP API, the MCP
// server and the watcher.
package syncservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/starford/indexsync/internal/apperr"
	"github.com/starford/indexsync/internal/journal"
	"github.com/starford/indexsync/internal/models"
	"github.com/starford/indexsync/internal/publisher"
	"github.com/starford/indexsync/internal/target"
)

// Notifier receives run events. *sse.Broker implements it.
type Notifier interface {
	PublishProgress(runID, target, line string)
	PublishCompleted(result any)
	PublishFailed(target, kind string, err error)
}

// RecordSource lists the local records.
type RecordSource interface {
	Records(ctx context.Context) ([]models.Record, error)
}

// History reads the run journal.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Run, error)
}

// Outcome is the result of a publish or preview together with its progress lines.
type Outcome struct {
	Result models.Result `json:"result"`
	Lines  []string      `json:"lines"`
}

// Preview is a dry run with the identifiers it would touch.
type Preview struct {
	Outcome
	ToDelete []string `json:"to_delete"`
	ToUpsert []string `json:"to_upsert"`
}

// Service coordinates publish runs. All runs share one gate.
type Service struct {
	registry *target.Registry
	records  RecordSource
	history  History
	notifier Notifier
	gate     *publisher.Gate
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHistory enables run history queries.
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

// WithNotifier broadcasts run events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service.
func New(registry *target.Registry, records RecordSource, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		records:  records,
		gate:     &publisher.Gate{},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Busy reports whether a run is in flight.
func (s *Service) Busy() bool { return s.gate.Busy() }

// Records returns the local records that a publish would upsert.
func (s *Service) Records(ctx context.Context) ([]models.Record, error) {
	return s.records.Records(ctx)
}

// Publish runs a reconciliation against rawTarget. It fails with
// apperr.ErrConflict while another run is in flight.
func (s *Service) Publish(ctx context.Context, rawTarget string, override *models.Override, dryRun bool) (*Outcome, error) {
	return s.publish(ctx, rawTarget, override, dryRun, s.gate.Wrap)
}

// PublishQueued is Publish that waits for the run in flight to finish
// instead of failing with apperr.ErrConflict.
func (s *Service) PublishQueued(ctx context.Context, rawTarget string) (*Outcome, error) {
	return s.publish(ctx, rawTarget, nil, false, s.gate.WrapWaiting)
}

func (s *Service) publish(ctx context.Context, rawTarget string, override *models.Override, dryRun bool, guard func(target.Publisher) target.Publisher) (*Outcome, error) {
	req, p, err := s.prepare(rawTarget, guard)
	if err != nil {
		return nil, err
	}
	req.Override = override
	req.DryRun = dryRun

	out := &Outcome{}
	res, err := p.Run(ctx, req, s.collector(req, &out.Lines))
	out.Result = res
	s.finish(req, res, err)
	return out, err
}

// Preview computes the changeset for rawTarget without applying it.
func (s *Service) Preview(ctx context.Context, rawTarget string) (*Preview, error) {
	req, p, err := s.prepare(rawTarget, s.gate.Wrap)
	if err != nil {
		return nil, err
	}
	planner, ok := p.(target.Planner)
	if !ok {
		return nil, fmt.Errorf("syncservice: target %s cannot preview changes", rawTarget)
	}

	out := &Preview{ToDelete: []string{}, ToUpsert: []string{}}
	res, cs, err := planner.Plan(ctx, req, s.collector(req, &out.Lines))
	out.Result = res
	if cs.ToDelete != nil {
		out.ToDelete = cs.ToDelete
	}
	if ids := cs.UpsertIDs(); len(ids) > 0 {
		out.ToUpsert = ids
	}
	s.finish(req, res, err)
	return out, err
}

// Runs returns recent journal entries, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]journal.Run, error) {
	if s.history == nil {
		return []journal.Run{}, nil
	}
	runs, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []journal.Run{}
	}
	return runs, nil
}

func (s *Service) prepare(rawTarget string, guard func(target.Publisher) target.Publisher) (target.Request, target.Publisher, error) {
	u, err := target.Parse(rawTarget)
	if err != nil {
		return target.Request{}, nil, fmt.Errorf("%w: %w", apperr.ErrInvalidTarget, err)
	}
	p, err := s.registry.Lookup(u)
	if err != nil {
		return target.Request{}, nil, fmt.Errorf("%w: %w", apperr.ErrInvalidTarget, err)
	}
	return target.Request{RunID: uuid.NewString(), Target: u}, guard(p), nil
}

func (s *Service) collector(req target.Request, lines *[]string) target.Emitter {
	return func(line string) bool {
		*lines = append(*lines, line)
		if s.notifier != nil {
			s.notifier.PublishProgress(req.RunID, req.Target.String(), line)
		}
		return true
	}
}

func (s *Service) finish(req target.Request, res models.Result, err error) {
	if s.notifier == nil {
		return
	}
	if err != nil {
		if apperr.Kind(err) != "conflict" {
			s.notifier.PublishFailed(req.Target.String(), apperr.Kind(err), err)
		}
		return
	}
	s.notifier.PublishCompleted(res)
}
