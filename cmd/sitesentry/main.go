// Command sitesentry runs the goal-directed monitoring crawler: a pool of
// agent workers draining the frontier, plus an ops HTTP server for health,
// metrics, and subscription management.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/sitesentry/sitesentry/internal/agent"
	"github.com/sitesentry/sitesentry/internal/api"
	systemclock "github.com/sitesentry/sitesentry/internal/clock/system"
	"github.com/sitesentry/sitesentry/internal/config"
	"github.com/sitesentry/sitesentry/internal/delta"
	collyfetcher "github.com/sitesentry/sitesentry/internal/fetcher/colly"
	"github.com/sitesentry/sitesentry/internal/fetcher/headless"
	"github.com/sitesentry/sitesentry/internal/frontier"
	"github.com/sitesentry/sitesentry/internal/hash/sha256"
	iduuid "github.com/sitesentry/sitesentry/internal/id/uuid"
	knowledgememory "github.com/sitesentry/sitesentry/internal/knowledge/memory"
	knowledgepubsub "github.com/sitesentry/sitesentry/internal/knowledge/pubsub"
	"github.com/sitesentry/sitesentry/internal/logging"
	"github.com/sitesentry/sitesentry/internal/metrics"
	"github.com/sitesentry/sitesentry/internal/notify"
	lognotifier "github.com/sitesentry/sitesentry/internal/notify/log"
	pubsubnotifier "github.com/sitesentry/sitesentry/internal/notify/pubsub"
	genaioracle "github.com/sitesentry/sitesentry/internal/oracle/genai"
	staticoracle "github.com/sitesentry/sitesentry/internal/oracle/static"
	"github.com/sitesentry/sitesentry/internal/parser"
	"github.com/sitesentry/sitesentry/internal/policy/ratelimit"
	"github.com/sitesentry/sitesentry/internal/policy/robots"
	"github.com/sitesentry/sitesentry/internal/sentry"
	snapshotgcs "github.com/sitesentry/sitesentry/internal/snapshot/gcs"
	snapshotmemory "github.com/sitesentry/sitesentry/internal/snapshot/memory"
	storagememory "github.com/sitesentry/sitesentry/internal/storage/memory"
	storagepostgres "github.com/sitesentry/sitesentry/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, env vars apply)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "sitesentry: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()
	clock := systemclock.New()

	var (
		archive sentry.ArchiveStore
		events  sentry.EventStore
		subs    api.SubscriptionWriter
	)
	if cfg.DB.DSN != "" {
		pool, err := storagepostgres.NewPool(ctx, storagepostgres.PoolConfig{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MaxConnLifetime: time.Hour,
		})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := storagepostgres.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		pgArchive, err := storagepostgres.NewArchive(pool, clock)
		if err != nil {
			return err
		}
		pgEvents, err := storagepostgres.NewEventLog(pool)
		if err != nil {
			return err
		}
		pgSubs, err := storagepostgres.NewSubscriptions(pool)
		if err != nil {
			return err
		}
		archive, events, subs = pgArchive, pgEvents, pgSubs
		logger.Info("using postgres stores")
	} else {
		archive = storagememory.NewArchive(clock)
		events = storagememory.NewEventLog()
		subs = storagememory.NewSubscriptions()
		logger.Info("using in-memory stores")
	}

	var knowledge sentry.KnowledgeQueue
	if cfg.PubSub.ProjectID != "" {
		queue, err := knowledgepubsub.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.KnowledgeTopic)
		if err != nil {
			return fmt.Errorf("connect knowledge queue: %w", err)
		}
		defer func() { _ = queue.Close() }()
		knowledge = queue
	} else {
		knowledge = knowledgememory.New()
	}

	var snapshots sentry.SnapshotStore
	if cfg.Snapshot.Bucket != "" {
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("connect snapshot storage: %w", err)
		}
		defer func() { _ = client.Close() }()
		snapshots, err = snapshotgcs.New(client, snapshotgcs.Config{
			Bucket: cfg.Snapshot.Bucket,
			Prefix: cfg.Snapshot.Prefix,
		})
		if err != nil {
			return err
		}
	} else {
		snapshots = snapshotmemory.New()
	}

	var (
		scorer sentry.RelevanceScorer
		differ sentry.SemanticDiffer
	)
	if cfg.GenAI.Model != "" {
		oracle, err := genaioracle.New(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model)
		if err != nil {
			return fmt.Errorf("init model oracle: %w", err)
		}
		defer func() { _ = oracle.Close() }()
		scorer, differ = oracle, oracle
		logger.Info("using model-backed relevance and diff", zap.String("model", cfg.GenAI.Model))
	} else {
		scorer = staticoracle.NewScorer()
		differ = staticoracle.NewDiffer()
		logger.Info("using deterministic relevance and diff fallbacks")
	}

	var notifier sentry.Notifier
	if cfg.PubSub.ProjectID != "" {
		psNotifier, err := pubsubnotifier.New(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("init notifier: %w", err)
		}
		defer func() { _ = psNotifier.Close() }()
		notifier = psNotifier
	} else {
		notifier = lognotifier.New(logger)
	}

	budget := ratelimit.New(ratelimit.Config{
		RequestsPerInterval: cfg.Safety.RateLimits.RequestsPerInterval,
		Interval:            time.Duration(cfg.Safety.RateLimits.IntervalSeconds) * time.Second,
	})
	var robotsChecker collyfetcher.RobotsChecker
	if cfg.Safety.RespectRobots {
		robotsChecker = robots.New(robots.Config{
			UserAgent: cfg.Safety.UserAgent,
			Timeout:   cfg.FetchTimeout(),
		})
	}
	gateway := collyfetcher.New(collyfetcher.Config{
		UserAgent:      cfg.Safety.UserAgent,
		ForbiddenTypes: cfg.Safety.ForbiddenFileTypes,
		BlockedHosts:   cfg.Safety.BlockedHosts,
		Timeout:        cfg.FetchTimeout(),
	}, budget, robotsChecker)

	var (
		renderer       sentry.Fetcher
		renderDetector sentry.RenderDetector
	)
	if cfg.Headless.Enabled {
		hr, err := headless.New(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Safety.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("init headless renderer: %w", err)
		}
		defer hr.Close()
		renderer = hr
		renderDetector = headless.NewDetector(cfg.Headless.PromotionThresh)
	}

	front := frontier.New()
	for _, seed := range cfg.Mission.SeedURLs {
		front.AddURL(seed, cfg.Mission.SeedPriority)
	}

	crawlAgent := agent.New(agent.Deps{
		Frontier:       front,
		Fetcher:        gateway,
		Renderer:       renderer,
		RenderDetector: renderDetector,
		Parser:         parser.New(),
		Archive:        archive,
		Events:         events,
		Detector:       delta.New(differ, clock, logger),
		Notifications:  notify.NewOracle(subs, notifier, logger),
		Knowledge:      knowledge,
		Scorer:         scorer,
		Snapshots:      snapshots,
		Hasher:         sha256.New(),
		Logger:         logger,
	}, agent.Config{
		Mission:            sentry.Mission{Goal: cfg.Mission.Goal},
		RelevanceThreshold: cfg.Mission.RelevanceThreshold,
		IdlePoll:           cfg.IdlePoll(),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(archive, events, subs, front, iduuid.New(), logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("ops server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()

	logger.Info("starting agent workers",
		zap.Int("workers", cfg.Crawler.Concurrency),
		zap.String("goal", cfg.Mission.Goal),
		zap.Int("seeds", len(cfg.Mission.SeedURLs)),
	)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Crawler.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			crawlAgent.Run(ctx)
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops server shutdown failed", zap.Error(err))
	}
	wg.Wait()
	logger.Info("all workers stopped")
	return nil
}
