// Package main is the entry point for the Digital Galaxy server.
// Digital Galaxy is a digital product catalog with paid fulfillment and realtime chat.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/prn-tf/digital-galaxy/internal/auth"
	"github.com/prn-tf/digital-galaxy/internal/cache/memory"
	rediscache "github.com/prn-tf/digital-galaxy/internal/cache/redis"
	"github.com/prn-tf/digital-galaxy/internal/config"
	"github.com/prn-tf/digital-galaxy/internal/handler"
	"github.com/prn-tf/digital-galaxy/internal/lock"
	"github.com/prn-tf/digital-galaxy/internal/logging"
	"github.com/prn-tf/digital-galaxy/internal/metrics"
	"github.com/prn-tf/digital-galaxy/internal/realtime"
	"github.com/prn-tf/digital-galaxy/internal/repository"
	_ "github.com/prn-tf/digital-galaxy/internal/repository/postgres"
	_ "github.com/prn-tf/digital-galaxy/internal/repository/sqlite"
	"github.com/prn-tf/digital-galaxy/internal/service"
	"github.com/prn-tf/digital-galaxy/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting Digital Galaxy server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		closer.Close()
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}

// fanout bundles the components that differ between single-node and Redis deployments.
type fanout struct {
	locker    lock.Locker
	cache     repository.Cache
	publisher realtime.Publisher
	close     func()
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	store, err := repository.NewFactory(cfg.Database, logger).Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Database.Close()

	blobs, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open blob storage: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	hub := realtime.NewHub(m, logger)
	defer hub.Close()

	fan, err := newFanout(ctx, cfg, hub, m, logger)
	if err != nil {
		return err
	}
	defer fan.close()

	repos := store.Repos
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	bus := service.NewEventBus(fan.locker, fan.publisher, lock.Options{
		TTL:        cfg.Realtime.LockTTL,
		MaxRetries: cfg.Realtime.LockRetries,
		RetryDelay: cfg.Realtime.LockRetryDelay,
	}, logger)

	acquisition := service.NewAcquisitionService(repos.Product, repos.PaymentRequest, blobs, m, logger)
	api := handler.NewAPI(handler.APIConfig{
		Users:       service.NewUserService(repos.User, tokens, cfg.Auth.BcryptCost, logger),
		Catalog:     service.NewCatalogService(repos.Product, blobs, logger),
		Acquisition: acquisition,
		Moderation: service.NewModerationService(repos.User, repos.Notification, acquisition, bus, service.ModerationOptions{
			AnnounceDecisions: cfg.Moderation.AnnounceDecisions,
		}, logger),
		Chat:          service.NewChatService(repos.Chat, repos.Notification, bus, m, logger),
		MaxUploadSize: cfg.Storage.MaxUploadSize,
		Logger:        logger,
	})

	var limiter *handler.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = handler.NewRateLimiter(fan.cache, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger)
	}

	var filesDir string
	if cfg.Storage.Backend == "filesystem" {
		filesDir = cfg.Storage.DataDir
	}

	router := handler.NewRouter(handler.RouterConfig{
		API: api,
		Realtime: handler.NewRealtimeHandler(handler.RealtimeConfig{
			Feed:         realtime.NewFeed(hub, realtime.NewRepositorySnapshot(repos.Chat, repos.Notification, cfg.Realtime.SnapshotLimit)),
			PingInterval: cfg.Realtime.PingInterval,
			WriteTimeout: cfg.Realtime.WriteTimeout,
			Logger:       logger,
		}),
		Resolver:    auth.NewResolver(tokens, repos.User, logger),
		RateLimiter: limiter,
		Metrics:     m,
		Database:    store.Database,
		FilesDir:    filesDir,
		MaxBodySize: cfg.Server.MaxBodySize,
		Logger:      logger,
	})

	servers := []*http.Server{{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}}
	if m != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		servers = append(servers, &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
			Handler: mux,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		// Ends websocket streams so Shutdown does not wait on hijacked connections.
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// newFanout picks Redis-backed locks, counters and pub/sub when Redis is
// enabled and in-process equivalents otherwise.
func newFanout(ctx context.Context, cfg *config.Config, hub *realtime.Hub, m *metrics.Metrics, logger zerolog.Logger) (*fanout, error) {
	if !cfg.Redis.Enabled {
		locker := lock.NewMemoryLocker()
		cache := memory.NewCache()
		return &fanout{
			locker:    locker,
			cache:     cache,
			publisher: hub,
			close: func() {
				cache.Stop()
				locker.Close()
			},
		}, nil
	}

	client, err := rediscache.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}

	relay := realtime.NewRedisRelay(client, hub, cfg.Realtime.RedisPrefix, m, logger)
	if err := relay.Start(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return &fanout{
		locker:    lock.NewRedisLocker(client, "galaxy:lock:"),
		cache:     rediscache.NewCache(client),
		publisher: relay,
		close: func() {
			relay.Close()
			closeClient(client, logger)
		},
	}, nil
}

func closeClient(client *goredis.Client, logger zerolog.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close redis client")
	}
}
