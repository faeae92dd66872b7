// Package di wires the engine's components together: backing store
// selection by DATABASE_URL scheme, the retrieval/lease/cache engines, and
// the command/query buses, grounded on the teacher's provider-function
// wiring style (one small function per dependency) rather than its
// google/wire codegen, since AMP's dependency graph is small enough to
// assemble by hand in a single NewContainer call.
package di

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"amp/application/commands"
	"amp/application/commands/bus"
	commandhandlers "amp/application/commands/handlers"
	"amp/application/queries"
	querybus "amp/application/queries/bus"
	queryhandlers "amp/application/queries/handlers"
	"amp/infrastructure/config"
	"amp/internal/cache"
	"amp/internal/embedding"
	"amp/internal/graph"
	"amp/internal/lease"
	"amp/internal/retrieval"
	"amp/internal/search/text"
	"amp/internal/search/vector"
	"amp/internal/store"
	"amp/internal/store/ddbstore"
	"amp/internal/store/filestore"
	"amp/internal/store/memstore"
	"amp/internal/store/wsstore"
	"amp/pkg/auth"
)

// Container holds every wired dependency cmd/api and cmd/lambda need to
// build a router.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Objects       store.ObjectStore
	Relationships store.RelationshipStore
	Leases        store.LeaseStore

	Embedder     embedding.Client
	Graph        *graph.Engine
	TextSearch   *text.Searcher
	VectorSearch *vector.Searcher
	Retrieval    *retrieval.Orchestrator
	LeaseMgr     *lease.Manager
	Cache        *cache.Cache

	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus

	Auth *auth.JWTValidator

	// closer is called during shutdown to release any backing-store
	// connection (file flush, websocket close, redis pool).
	closer func() error
}

// Close releases whatever resource the selected backing store or cache
// backend opened.
func (c *Container) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// NewContainer builds the full dependency graph from configuration.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := provideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("di: logger: %w", err)
	}

	objects, relationships, leases, closeStore, err := provideStores(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("di: backing store: %w", err)
	}

	embedder := embedding.NewClient(embedding.Config{
		Provider:     embedding.Provider(cfg.EmbeddingProvider),
		ServiceURL:   cfg.EmbeddingServiceURL,
		Model:        cfg.EmbeddingModel,
		MaxDimension: cfg.MaxEmbeddingDimension,
		Concurrency:  cfg.EmbeddingConcurrency,
	}, logger)

	graphEngine := graph.New(relationships)
	textSearcher := text.New(objects)
	vectorSearcher := vector.New(objects)
	orchestrator := retrieval.New(objects, textSearcher, vectorSearcher, graphEngine, embedder)
	leaseMgr := lease.NewManager(leases)

	memCache, closeCache, err := provideCache(cfg, embedder)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("di: cache: %w", err)
	}

	var validator *auth.JWTValidator
	if cfg.AuthRequired {
		validator = auth.NewJWTValidator(cfg.JWTSecret, cfg.JWTIssuer)
	}

	cmdBus := provideCommandBus(logger, objects, relationships, embedder, leaseMgr, memCache)
	qBus, err := provideQueryBus(objects, relationships, leaseMgr, memCache, orchestrator)
	if err != nil {
		closeStore()
		closeCache()
		return nil, fmt.Errorf("di: query bus: %w", err)
	}

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Objects:       objects,
		Relationships: relationships,
		Leases:        leases,
		Embedder:      embedder,
		Graph:         graphEngine,
		TextSearch:    textSearcher,
		VectorSearch:  vectorSearcher,
		Retrieval:     orchestrator,
		LeaseMgr:      leaseMgr,
		Cache:         memCache,
		CommandBus:    cmdBus,
		QueryBus:      qBus,
		Auth:          validator,
		closer: func() error {
			closeCache()
			return closeStore()
		},
	}, nil
}

// provideLogger builds the zap logger the teacher configures per environment.
func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// provideStores selects and opens the backing store named by DATABASE_URL
// (memory | file://<path> | ws://host:port | dynamodb://<table>).
func provideStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.ObjectStore, store.RelationshipStore, store.LeaseStore, func() error, error) {
	noop := func() error { return nil }

	switch {
	case cfg.DatabaseURL == "memory":
		s := memstore.New()
		return memstore.NewObjectStore(s), memstore.NewRelationshipStore(s), memstore.NewLeaseStore(s), noop, nil

	case strings.HasPrefix(cfg.DatabaseURL, "file://"):
		path := cfg.DatabaseURL[len("file://"):]
		s, err := filestore.Open(logger, path)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return filestore.NewObjectStore(s), filestore.NewRelationshipStore(s), filestore.NewLeaseStore(s), s.Close, nil

	case strings.HasPrefix(cfg.DatabaseURL, "ws://"):
		s, err := wsstore.Dial(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return wsstore.NewObjectStore(s), wsstore.NewRelationshipStore(s), wsstore.NewLeaseStore(s), s.Close, nil

	case strings.HasPrefix(cfg.DatabaseURL, "dynamodb://"):
		table := cfg.DatabaseURL[len("dynamodb://"):]
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		client := awsdynamodb.NewFromConfig(awsCfg)
		s := ddbstore.New(client, table, logger)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("ensure dynamodb schema: %w", err)
		}
		return ddbstore.NewObjectStore(s), ddbstore.NewRelationshipStore(s), ddbstore.NewLeaseStore(s), noop, nil

	default:
		return nil, nil, nil, nil, fmt.Errorf("unsupported DATABASE_URL scheme: %s", cfg.DatabaseURL)
	}
}

// provideCache wires the episodic cache, optionally backed by Redis for
// cross-process scope persistence (CACHE_BACKEND=redis).
func provideCache(cfg *config.Config, embedder embedding.Client) (*cache.Cache, func() error, error) {
	noop := func() error { return nil }
	if cfg.CacheBackend != "redis" {
		return cache.New(embedder), noop, nil
	}
	backend, err := cache.NewRedisBackend(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return cache.New(embedder, cache.WithPersistence(backend.Load, backend.Save)), backend.Close, nil
}

func provideCommandBus(logger *zap.Logger, objects store.ObjectStore, relationships store.RelationshipStore, embedder embedding.Client, leaseMgr *lease.Manager, c *cache.Cache) *bus.CommandBus {
	b := bus.NewCommandBus(logger)

	b.Register(&commands.CreateObjectCommand{}, commandhandlers.NewCreateObjectHandler(objects, embedder, logger))
	b.Register(&commands.CreateObjectBatchCommand{}, commandhandlers.NewCreateObjectBatchHandler(objects, embedder, logger))
	b.Register(&commands.UpdateObjectCommand{}, commandhandlers.NewUpdateObjectHandler(objects, embedder, logger))
	b.Register(&commands.DeleteObjectCommand{}, commandhandlers.NewDeleteObjectHandler(objects, relationships))

	b.Register(&commands.CreateRelationshipCommand{}, commandhandlers.NewCreateRelationshipHandler(relationships))
	b.Register(&commands.DeleteRelationshipCommand{}, commandhandlers.NewDeleteRelationshipHandler(relationships))

	b.Register(&commands.AcquireLeaseCommand{}, commandhandlers.NewAcquireLeaseHandler(leaseMgr))
	b.Register(&commands.RenewLeaseCommand{}, commandhandlers.NewRenewLeaseHandler(leaseMgr))
	b.Register(&commands.ReleaseLeaseCommand{}, commandhandlers.NewReleaseLeaseHandler(leaseMgr))

	b.Register(&commands.WriteCacheItemCommand{}, commandhandlers.NewWriteCacheItemHandler(c))
	b.Register(&commands.CompactCacheCommand{}, commandhandlers.NewCompactCacheHandler(c))
	b.Register(&commands.GCCacheCommand{}, commandhandlers.NewGCCacheHandler(c))

	return b
}

func provideQueryBus(objects store.ObjectStore, relationships store.RelationshipStore, leaseMgr *lease.Manager, c *cache.Cache, orchestrator *retrieval.Orchestrator) (*querybus.QueryBus, error) {
	b := querybus.NewQueryBus()

	registrations := []struct {
		sample  querybus.Query
		handler querybus.QueryHandler
	}{
		{&queries.GetObjectQuery{}, queryhandlers.NewGetObjectHandler(objects)},
		{&queries.ListObjectsQuery{}, queryhandlers.NewListObjectsHandler(objects)},
		{&queries.ListRelationshipsQuery{}, queryhandlers.NewListRelationshipsHandler(relationships)},
		{&queries.LeaseStatusQuery{}, queryhandlers.NewLeaseStatusHandler(leaseMgr)},
		{&queries.ReadCacheQuery{}, queryhandlers.NewReadCacheHandler(c)},
		{&queries.HybridQuery{}, queryhandlers.NewHybridQueryHandler(orchestrator)},
	}
	for _, r := range registrations {
		if err := b.Register(r.sample, r.handler); err != nil {
			return nil, err
		}
	}
	return b, nil
}
