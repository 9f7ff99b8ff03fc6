// Package app builds the long-lived services of a snapshot process from its
// configuration and owns their shutdown.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	gcsstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/feed-snapshot/internal/clock/system"
	"github.com/JakeFAU/feed-snapshot/internal/config"
	collyfetcher "github.com/JakeFAU/feed-snapshot/internal/fetcher/colly"
	"github.com/JakeFAU/feed-snapshot/internal/hash/sha256"
	"github.com/JakeFAU/feed-snapshot/internal/id/uuid"
	"github.com/JakeFAU/feed-snapshot/internal/markup"
	"github.com/JakeFAU/feed-snapshot/internal/policy/ratelimit"
	pubsubpublisher "github.com/JakeFAU/feed-snapshot/internal/publisher/pubsub"
	"github.com/JakeFAU/feed-snapshot/internal/snapshot"
	"github.com/JakeFAU/feed-snapshot/internal/storage/gcs"
	"github.com/JakeFAU/feed-snapshot/internal/storage/local"
	"github.com/JakeFAU/feed-snapshot/internal/storage/memory"
	"github.com/JakeFAU/feed-snapshot/internal/storage/postgres"
	"github.com/JakeFAU/feed-snapshot/internal/storage/rtdb"
	"github.com/JakeFAU/feed-snapshot/internal/telemetry"
)

// Ledger is a run recorder that can also list what it recorded.
type Ledger interface {
	snapshot.RunRecorder
	snapshot.RunLister
}

type pinger interface {
	Ping(ctx context.Context) error
}

// App holds the services shared by the CLI commands.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	store        snapshot.Store
	ledger       Ledger
	publisher    snapshot.Publisher
	orchestrator *snapshot.Orchestrator
	closers      []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// Option overrides a collaborator New would otherwise build from configuration.
type Option func(*overrides)

type overrides struct {
	fetcher snapshot.Fetcher
	store   snapshot.Store
}

// WithFetcher replaces the colly fetcher.
func WithFetcher(f snapshot.Fetcher) Option {
	return func(o *overrides) { o.fetcher = f }
}

// WithStore replaces the configured store backend.
func WithStore(s snapshot.Store) Option {
	return func(o *overrides) { o.store = s }
}

// New builds every service named by cfg. On error, anything already opened is
// closed before returning.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var ov overrides
	for _, opt := range opts {
		opt(&ov)
	}

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		ProjectID:   cfg.Telemetry.ProjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.addCloser("tracer", func() error { return tp.Shutdown(context.Background()) })

	a.store = ov.store
	if a.store == nil {
		if a.store, err = a.buildStore(ctx); err != nil {
			return nil, err
		}
	}
	if a.ledger, err = a.buildLedger(ctx); err != nil {
		return nil, err
	}
	if a.publisher, err = a.buildPublisher(ctx); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clk := system.NewIn(loc)

	fetcher := ov.fetcher
	if fetcher == nil {
		fetcher = collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.Feed.UserAgent,
			Timeout:   cfg.FetchTimeout(),
		})
	}
	if cfg.Feed.RatePerSecond > 0 {
		fetcher = ratelimit.Wrap(fetcher, ratelimit.New(ratelimit.Config{
			RPS:   cfg.Feed.RatePerSecond,
			Burst: cfg.Feed.RateBurst,
		}))
	}
	sections := snapshot.NewSectionFetcher(fetcher, markup.NewConverter(), snapshot.SectionFetcherConfig{
		URLTemplate: cfg.Feed.URLTemplate,
		Accept:      cfg.Feed.Accept,
	}, logger.Named("fetch"))
	aggregator := snapshot.NewAggregator(sections, cfg.Feed.MaxConcurrency, logger.Named("aggregate"))
	persistence := snapshot.NewPersistence(a.store, snapshot.PersistenceConfig{
		Collection: cfg.Store.Collection,
		ByDate:     cfg.Store.ByDate,
	}, logger.Named("persist"))

	a.orchestrator = snapshot.NewOrchestrator(
		aggregator,
		persistence,
		clk,
		uuid.New(),
		sha256.New(),
		a.publisher,
		a.ledger,
		snapshot.OrchestratorConfig{
			Sections: cfg.Feed.Sections,
			Provider: cfg.Provider,
			Topic:    cfg.PubSub.TopicName,
		},
		logger.Named("run"),
	)

	logger.Info("application services initialized",
		zap.String("store", cfg.Store.Backend),
		zap.Bool("ledger_postgres", cfg.DB.DSN != ""),
		zap.Bool("notifications", a.publisher != nil),
		zap.Int("sections", len(cfg.Feed.Sections)),
	)
	return a, nil
}

func (a *App) buildStore(ctx context.Context) (snapshot.Store, error) {
	switch a.cfg.Store.Backend {
	case config.BackendRTDB:
		store, err := rtdb.New(rtdb.Config{BaseURL: a.cfg.Store.BaseURL, Timeout: a.cfg.FetchTimeout()})
		if err != nil {
			return nil, fmt.Errorf("init rtdb store: %w", err)
		}
		return store, nil
	case config.BackendGCS:
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.addCloser("gcs", client.Close)
		store, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Store.GCSBucket, Prefix: a.cfg.Store.GCSPrefix})
		if err != nil {
			return nil, fmt.Errorf("init gcs store: %w", err)
		}
		return store, nil
	case config.BackendLocal:
		store, err := local.New(local.Config{BaseDir: a.cfg.Store.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local store: %w", err)
		}
		return store, nil
	case config.BackendMemory:
		return memory.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
	}
}

func (a *App) buildLedger(ctx context.Context) (Ledger, error) {
	if a.cfg.DB.DSN == "" {
		return memory.NewRunStore(), nil
	}
	store, err := postgres.NewRunStore(ctx, postgres.RunStoreConfig{
		DSN:      a.cfg.DB.DSN,
		Table:    a.cfg.DB.Table,
		MaxConns: int32(a.cfg.DB.MaxOpenConns), // #nosec G115 -- validated to fit
	})
	if err != nil {
		return nil, fmt.Errorf("init run ledger: %w", err)
	}
	a.addCloser("postgres", func() error { store.Close(); return nil })
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("init run ledger: %w", err)
	}
	return store, nil
}

func (a *App) buildPublisher(ctx context.Context) (snapshot.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" {
		return nil, nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("init pubsub client: %w", err)
	}
	a.addCloser("pubsub", client.Close)
	pub := pubsubpublisher.New(client)
	a.addCloser("pubsub topics", func() error { pub.Close(); return nil })
	return pub, nil
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Orchestrator returns the configured run pipeline.
func (a *App) Orchestrator() *snapshot.Orchestrator {
	return a.orchestrator
}

// Ledger returns the run ledger.
func (a *App) Ledger() Ledger {
	return a.ledger
}

// Store returns the snapshot store.
func (a *App) Store() snapshot.Store {
	return a.store
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Ready reports whether the run ledger is reachable.
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.ledger.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases services in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("error closing service", zap.String("service", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}
