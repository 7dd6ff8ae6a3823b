package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/indexsync/internal/apperr"
	"github.com/starford/indexsync/internal/content"
	"github.com/starford/indexsync/internal/journal"
	"github.com/starford/indexsync/internal/publisher"
	"github.com/starford/indexsync/internal/storage"
	"github.com/starford/indexsync/internal/syncservice"
	"github.com/starford/indexsync/internal/target"
)

// components is the assembled object graph shared by every command.
type components struct {
	root      string
	tree      *content.Tree
	journal   *journal.DB
	publisher *publisher.Publisher
	registry  *target.Registry
	service   *syncservice.Service
}

func build(cfg *Config, logger *slog.Logger, notifier syncservice.Notifier) (*components, error) {
	store, err := storage.NewFS(cfg.Content.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	c := &components{
		root: store.Root(),
		tree: content.NewTree(store, content.WithMarkdownFields(cfg.Content.MarkdownFields...)),
	}

	pubOpts := []publisher.Option{
		publisher.WithPageSize(cfg.Algolia.HitsPerPage),
		publisher.WithLogger(logger),
	}
	var svcOpts []syncservice.Option
	if cfg.Journal.Enabled() {
		if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
		c.journal, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("init journal: %w", err)
		}
		pubOpts = append(pubOpts, publisher.WithJournal(c.journal))
		svcOpts = append(svcOpts, syncservice.WithHistory(c.journal))
	}

	c.publisher = publisher.New(c.tree, cfg.Algolia.Credentials(),
		publisher.AlgoliaConnector(cfg.Algolia.ClientOptions()...), pubOpts...)
	c.registry = target.NewRegistry()
	c.registry.Register(publisher.Scheme, c.publisher.Factory())

	svcOpts = append(svcOpts, syncservice.WithLogger(logger))
	if notifier != nil {
		svcOpts = append(svcOpts, syncservice.WithNotifier(notifier))
	}
	c.service = syncservice.New(c.registry, c.publisher, svcOpts...)
	return c, nil
}

func (c *components) Close() error {
	if c.journal == nil {
		return nil
	}
	return c.journal.Close()
}

// request resolves raw against the registry.
func (c *components) request(raw string) (target.Publisher, *target.Request, error) {
	u, err := target.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", apperr.ErrInvalidTarget, err)
	}
	p, err := c.registry.Lookup(u)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", apperr.ErrInvalidTarget, err)
	}
	return p, &target.Request{Target: u}, nil
}

var errNoJournal = errors.New("journal is disabled (set journal.path)")
