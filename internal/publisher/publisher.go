// Package publisher reconciles the local content tree with a remote search index.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/starford/indexsync/internal/algolia"
	"github.com/starford/indexsync/internal/apperr"
	"github.com/starford/indexsync/internal/checksum"
	"github.com/starford/indexsync/internal/content"
	"github.com/starford/indexsync/internal/credentials"
	"github.com/starford/indexsync/internal/journal"
	"github.com/starford/indexsync/internal/models"
	"github.com/starford/indexsync/internal/selector"
	"github.com/starford/indexsync/internal/target"
)

// Scheme is the target scheme served by this package.
const Scheme = "algolia"

// Progress lines shown when credentials are absent.
const (
	MsgNoConnection = "Could not connect to Algolia."
	MsgNoCredHint   = "Make sure app_id and api_key are present in the algolia section of your config."
)

// Index is the remote surface one run needs.
type Index interface {
	Searcher
	Mutator
	GetSettings(ctx context.Context) (*algolia.Settings, error)
}

// Connector opens an index with resolved credentials.
type Connector func(creds models.Credentials, index string) (Index, error)

// Source is the local content tree.
type Source interface {
	content.Children
	Root() (*content.Node, error)
}

// Journal records finished runs and reports the last successful one.
type Journal interface {
	Record(ctx context.Context, r journal.Run) error
	Last(ctx context.Context, index string) (*journal.Run, error)
}

// AlgoliaConnector returns a Connector backed by the REST client.
func AlgoliaConnector(opts ...algolia.Option) Connector {
	return func(creds models.Credentials, index string) (Index, error) {
		c, err := algolia.NewClient(creds, opts...)
		if err != nil {
			return nil, err
		}
		return c.InitIndex(index), nil
	}
}

// Publisher runs reconciliations from one content tree.
type Publisher struct {
	source   Source
	creds    models.Credentials
	connect  Connector
	pageSize int
	journal  Journal
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithPageSize sets the listing page size.
func WithPageSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithJournal records every finished run.
func WithJournal(j Journal) Option {
	return func(p *Publisher) { p.journal = j }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Publisher. creds are the configured credentials; per-run
// overrides are applied on top of them.
func New(src Source, creds models.Credentials, connect Connector, opts ...Option) *Publisher {
	p := &Publisher{
		source:   src,
		creds:    creds,
		connect:  connect,
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Factory returns a target.Factory that hands out p for algolia targets.
func (p *Publisher) Factory() target.Factory {
	return func(u *url.URL) (target.Publisher, error) {
		if u.Scheme != Scheme {
			return nil, fmt.Errorf("publisher: unsupported scheme %q", u.Scheme)
		}
		return p, nil
	}
}

// Publish runs req and streams its progress lines.
func (p *Publisher) Publish(ctx context.Context, req target.Request) iter.Seq2[string, error] {
	return target.Stream(ctx, p, req)
}

// Records selects the local records without contacting the remote index.
func (p *Publisher) Records(ctx context.Context) ([]models.Record, error) {
	root, err := p.source.Root()
	if err != nil {
		return nil, fmt.Errorf("publisher: load root: %w: %w", apperr.ErrContentModel, err)
	}
	return selector.SelectRecords(ctx, p.source, root)
}

// Run performs one reconciliation. Progress lines go to emit in order.
func (p *Publisher) Run(ctx context.Context, req target.Request, emit target.Emitter) (models.Result, error) {
	res, _, err := p.execute(ctx, req, emit)
	return res, err
}

// Plan performs a dry run and also returns the computed changeset.
func (p *Publisher) Plan(ctx context.Context, req target.Request, emit target.Emitter) (models.Result, models.Changeset, error) {
	req.DryRun = true
	return p.execute(ctx, req, emit)
}

func (p *Publisher) execute(ctx context.Context, req target.Request, emit target.Emitter) (models.Result, models.Changeset, error) {
	started := p.now()
	res := models.Result{
		RunID:     req.RunID,
		Target:    req.Target.String(),
		Index:     target.IndexName(req.Target),
		DryRun:    req.DryRun,
		StartedAt: started,
	}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}
	log := p.logger.With(slog.String("run_id", res.RunID), slog.String("index", res.Index))

	cs, err := p.run(ctx, req, &res, emit)
	res.Duration = p.now().Sub(started).Round(time.Millisecond).String()

	switch {
	case err != nil:
		log.Error("publish failed", slog.String("kind", apperr.Kind(err)), slog.String("error", err.Error()))
	case res.Skipped:
		log.Warn("publish skipped: credentials missing")
	default:
		log.Info("publish finished",
			slog.Int("local", res.Local),
			slog.Int("remote", res.Remote),
			slog.Int("deleted", res.Deleted),
			slog.Int("upserted", res.Upserted),
			slog.Bool("dry_run", res.DryRun),
			slog.String("digest", res.Digest),
		)
	}
	p.record(ctx, log, res, err)
	return res, cs, err
}

func (p *Publisher) run(ctx context.Context, req target.Request, res *models.Result, emit target.Emitter) (models.Changeset, error) {
	var cs models.Changeset
	say := func(format string, args ...any) error {
		if !emit(fmt.Sprintf(format, args...)) {
			return target.ErrStopped
		}
		return nil
	}

	creds := credentials.Resolve(p.creds, req.Override)
	if !creds.Complete() {
		res.Skipped = true
		if err := say(MsgNoConnection); err != nil {
			return cs, err
		}
		return cs, say(MsgNoCredHint)
	}

	idx, err := p.connect(creds, res.Index)
	if err != nil {
		return cs, fmt.Errorf("publisher: connect: %w: %w", apperr.ErrIndexUnreachable, err)
	}
	settings, err := idx.GetSettings(ctx)
	if err != nil {
		return cs, unreachable(res.Index, err)
	}
	if err := say("Connected to index %s (app %s).", res.Index, creds.AppID); err != nil {
		return cs, err
	}

	local, err := p.Records(ctx)
	if err != nil {
		return cs, err
	}
	res.Local = len(local)
	if err := say("Selected %d local records.", res.Local); err != nil {
		return cs, err
	}

	remote, err := ListRemoteIDs(ctx, idx, p.pageSize)
	if err != nil {
		return cs, err
	}
	res.Remote = len(remote)
	if limit := settings.PaginationLimitedTo; limit > 0 && res.Remote >= limit {
		p.logger.Warn("remote listing may be truncated by paginationLimitedTo",
			slog.String("index", res.Index), slog.Int("limit", limit))
	}
	if err := say("Found %d remote records.", res.Remote); err != nil {
		return cs, err
	}

	cs = Diff(local, remote)
	res.ToDelete = len(cs.ToDelete)
	if res.Digest, err = checksum.Records(cs.ToUpsert); err != nil {
		return cs, fmt.Errorf("publisher: digest: %w: %w", apperr.ErrContentModel, err)
	}
	if err := say("Changeset: %d to delete, %d to upsert.", len(cs.ToDelete), len(cs.ToUpsert)); err != nil {
		return cs, err
	}
	if since := p.unchangedSince(ctx, res); since != "" {
		res.UnchangedSince = since
		if err := say("Index %s unchanged since run %s.", res.Index, since); err != nil {
			return cs, err
		}
	}
	if req.DryRun {
		return cs, say("Dry run: no changes applied (digest %s).", res.Digest)
	}

	counts, err := Apply(ctx, cs, idx, emit)
	res.Deleted, res.Upserted = counts.Deleted, counts.Upserted
	if err != nil {
		return cs, err
	}
	return cs, say("Published %s: %d deleted, %d upserted (digest %s).", res.Index, res.Deleted, res.Upserted, res.Digest)
}

// unreachable words a failed settings check after what the service said.
func unreachable(index string, err error) error {
	switch {
	case algolia.IsNotFound(err):
		return fmt.Errorf("publisher: index %q does not exist: %w: %w", index, apperr.ErrIndexUnreachable, err)
	case algolia.IsAuth(err):
		return fmt.Errorf("publisher: index %q: api key rejected: %w: %w", index, apperr.ErrIndexUnreachable, err)
	default:
		return fmt.Errorf("publisher: index %q: %w: %w", index, apperr.ErrIndexUnreachable, err)
	}
}

// unchangedSince returns the id of the last successful run when it uploaded
// the same payload and nothing is left to delete.
func (p *Publisher) unchangedSince(ctx context.Context, res *models.Result) string {
	if p.journal == nil || res.ToDelete > 0 {
		return ""
	}
	last, err := p.journal.Last(ctx, res.Index)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			p.logger.Warn("journal read failed", slog.String("error", err.Error()))
		}
		return ""
	}
	if last.Digest != res.Digest {
		return ""
	}
	return last.ID
}

// record writes the run to the journal. Journal failures are logged only.
func (p *Publisher) record(ctx context.Context, log *slog.Logger, res models.Result, runErr error) {
	if p.journal == nil {
		return
	}
	run := journal.Run{
		ID:         res.RunID,
		Target:     res.Target,
		Index:      res.Index,
		Status:     Status(res, runErr),
		Local:      res.Local,
		Remote:     res.Remote,
		Deleted:    res.Deleted,
		Upserted:   res.Upserted,
		Digest:     res.Digest,
		StartedAt:  res.StartedAt,
		FinishedAt: p.now(),
	}
	switch {
	case runErr != nil:
		run.Error = runErr.Error()
	case res.Skipped:
		run.Error = apperr.ErrConfigurationMissing.Error()
	}
	if err := p.journal.Record(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("journal write failed", slog.String("error", err.Error()))
	}
}

// Status maps a run outcome to its journal status.
func Status(res models.Result, err error) string {
	switch {
	case err != nil:
		return journal.StatusFailed
	case res.Skipped:
		return journal.StatusSkipped
	case res.DryRun:
		return journal.StatusDryRun
	default:
		return journal.StatusOK
	}
}
