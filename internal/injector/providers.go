package injector

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/wire"
	"github.com/zeusync/eca/internal/config"
	"github.com/zeusync/eca/internal/core/cluster"
	"github.com/zeusync/eca/internal/core/events/bus"
	"github.com/zeusync/eca/internal/core/models"
	"github.com/zeusync/eca/internal/core/observability/log"
	"github.com/zeusync/eca/internal/core/schema"
	"github.com/zeusync/eca/internal/core/schema/registry"
	"github.com/zeusync/eca/internal/server"
)

// WorldLock serializes model writes made by the feed server and the arbiter.
type WorldLock struct {
	sync.Mutex
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideRegistry,
	ProvideCollection,
	ProvideBus,
	ProvideMirror,
	ProvideWorldLock,
	wire.Bind(new(sync.Locker), new(*WorldLock)),
	ProvideArbiter,
	ProvideFeedServer,
	wire.Struct(new(Runtime), "*"),
)

func ProvideLogger(cfg config.Config) *log.Logger {
	return log.New(cfg.Level())
}

// ProvideRegistry returns the default registry with the schemas of cfg.SchemaFile registered.
func ProvideRegistry(cfg config.Config, logger log.Log) (*registry.Registry, error) {
	reg := registry.Default()
	if cfg.SchemaFile == "" {
		return reg, nil
	}

	doc, err := schema.LoadFile(cfg.SchemaFile)
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	schemas, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("build schemas: %w", err)
	}
	if err = reg.RegisterAll(schemas...); err != nil {
		return nil, fmt.Errorf("register schemas: %w", err)
	}
	logger.Info("Schemas registered", log.String("file", cfg.SchemaFile), log.Int("count", len(schemas)))
	return reg, nil
}

func ProvideCollection() *models.EntityCollection {
	return models.Global()
}

// ProvideBus returns a bus with a LogObserver attached, so its metrics are collected.
func ProvideBus(logger log.Log) (bus.EventBus, func()) {
	b := bus.New()
	observer := bus.NewLogObserver(logger)
	b.AddObserver(observer)
	return b, func() { b.RemoveObserver(observer) }
}

func ProvideMirror(
	cfg config.Config,
	b bus.EventBus,
	reg *registry.Registry,
	collection *models.EntityCollection,
	logger log.Log,
) (*bus.Mirror, func(), error) {
	mirror := bus.NewMirror(b, cfg.Topic, logger)
	if skipped := cfg.SkippedTypes(); len(skipped) > 0 {
		mirror.Filter(bus.SkipTypes(skipped...))
	}
	if err := mirror.WatchRegistry(reg); err != nil {
		return nil, nil, err
	}
	if err := mirror.WatchCollection(collection); err != nil {
		mirror.Close()
		return nil, nil, err
	}
	return mirror, mirror.Close, nil
}

func ProvideWorldLock() *WorldLock {
	return &WorldLock{}
}

// ProvideArbiter returns nil when arbitration is disabled.
func ProvideArbiter(
	cfg config.Config,
	collection *models.EntityCollection,
	mirror *bus.Mirror,
	world sync.Locker,
	logger log.Log,
) (*cluster.Arbiter, func()) {
	if !cfg.ArbiterEnabled {
		return nil, func() {}
	}
	arbiter := cluster.NewArbiter(collection.ID(), cluster.WithLocker(world), cluster.WithLogger(logger))
	queued := arbiter.OnQueued(mirror.Proposal)
	arbiter.Watch(collection)
	return arbiter, func() {
		queued.Cancel()
		arbiter.Close()
	}
}

func ProvideFeedServer(
	cfg config.Config,
	b bus.EventBus,
	collection *models.EntityCollection,
	reg *registry.Registry,
	world sync.Locker,
	logger log.Log,
) (*server.FeedServer, func(), error) {
	feedCfg := server.DefaultConfig()
	feedCfg.ListenAddr = cfg.ListenAddr
	feedCfg.Topic = cfg.Topic
	feedCfg.Buffer = cfg.FeedBuffer

	feed, err := server.NewFeedServer(feedCfg, b, collection, reg, server.TokenAuth{Token: cfg.FeedToken}, world, logger)
	if err != nil {
		return nil, nil, err
	}
	return feed, func() { _ = feed.Close() }, nil
}

// Runtime is the assembled daemon.
type Runtime struct {
	Config     config.Config
	Log        log.Log
	Registry   *registry.Registry
	Collection *models.EntityCollection
	Bus        bus.EventBus
	Mirror     *bus.Mirror
	Arbiter    *cluster.Arbiter
	Feed       *server.FeedServer
}

// Run serves the feed and, when enabled, commits proposals until ctx is done.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Feed.Start(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	if r.Arbiter != nil {
		interval, err := r.Config.Interval()
		if err != nil {
			_ = r.Feed.Stop(context.Background())
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Arbiter.Run(ctx, interval)
		}()
	}

	r.Log.Info("Runtime started",
		log.UUID("collection", r.Collection.ID()),
		log.Int("schemas", r.Registry.Len()),
		log.Bool("arbiter", r.Arbiter != nil))

	<-ctx.Done()
	wg.Wait()

	m := r.Bus.GetMetrics()
	r.Log.Info("Runtime stopping",
		log.Uint64("published", m.Published),
		log.Uint64("delivered", m.DeliveredHandlers),
		log.Uint64("errors", m.Errors),
		log.Uint64("filtered", m.DroppedByFilters),
		log.Uint64("feed_dropped", r.Feed.Dropped()))
	return r.Feed.Stop(context.Background())
}
