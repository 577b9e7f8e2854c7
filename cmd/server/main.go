package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fathima-sithara/mycloud/internal/auth"
	"github.com/fathima-sithara/mycloud/internal/config"
	"github.com/fathima-sithara/mycloud/internal/database"
	"github.com/fathima-sithara/mycloud/internal/events"
	"github.com/fathima-sithara/mycloud/internal/handlers"
	"github.com/fathima-sithara/mycloud/internal/metrics"
	"github.com/fathima-sithara/mycloud/internal/middleware"
	"github.com/fathima-sithara/mycloud/internal/repository"
	"github.com/fathima-sithara/mycloud/internal/router"
	service "github.com/fathima-sithara/mycloud/internal/services"
	"github.com/fathima-sithara/mycloud/internal/storage"
	utils "github.com/fathima-sithara/mycloud/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

func main() {
	defaultPath := "config/config.yaml"
	if p := os.Getenv("MYCLOUD_CONFIG"); p != "" {
		defaultPath = p
	}
	cfgPath := flag.String("config", defaultPath, "path to config file")
	flag.Parse()

	// load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	// logger
	logger, err := utils.NewLogger(cfg.Development(), cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeDB := openRepository(ctx, cfg, logger)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("storage init: %v", err)
	}

	hub := events.NewHub()
	pub, err := openPublisher(cfg, hub)
	if err != nil {
		logger.Fatalf("events init: %v", err)
	}

	met := metrics.New()
	msvc := service.NewMediaService(repo, store, pub, service.Options{
		PresignTTL:     cfg.PresignTTL,
		PageSize:       cfg.Media.PageSize,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Metrics:        met,
		Logger:         logger,
	})

	// JWT Verifier
	verifier, err := auth.NewJWTVerifier(cfg.JWT.PublicKeyPath)
	if err != nil {
		logger.Fatalf("jwt init: %v", err)
	}

	// fiber app & routes
	app := fiber.New(fiber.Config{
		AppName:      "mycloud-media",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		// multipart framing on top of the largest accepted file
		BodyLimit: int(cfg.MaxUploadBytes) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "internal error"
			if fe, ok := err.(*fiber.Error); ok {
				code, msg = fe.Code, fe.Message
			}
			return utils.JSONError(c, code, msg)
		},
	})

	deps := router.Deps{
		Handler:  handlers.NewHandler(msvc, hub, logger),
		Service:  msvc,
		Verifier: verifier,
		Metrics:  met,
		Logger:   logger,

		CORSOrigins: cfg.App.CORSOrigins,
	}
	publicLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.PublicPerMinute, 20, logger)
	go publicLimiter.Cleanup(ctx, 5*time.Minute)
	deps.PublicLimit = publicLimiter.Handler()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		deps.UploadLimit = middleware.NewRedisRateLimiter(rdb, cfg.Redis.Prefix,
			cfg.RateLimit.UploadPerMinute, time.Minute, logger).ByUser()
	} else {
		uploadLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.UploadPerMinute, 5, logger)
		go uploadLimiter.Cleanup(ctx, 5*time.Minute)
		deps.UploadLimit = uploadLimiter.Handler()
	}
	router.RegisterRoutes(app, deps)

	// start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Infof("starting media service on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Errorf("listen failed: %v", err)
			stop()
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	logger.Info("shutdown requested")
	timeoutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(timeoutCtx); err != nil {
		logger.Warnw("http shutdown", "error", err)
	}
	if err := pub.Close(); err != nil {
		logger.Warnw("events shutdown", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	closeDB(timeoutCtx)
	logger.Info("shutdown completed")
}

func openRepository(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (service.Repository, func(context.Context)) {
	if cfg.Mongo.URI == database.MemoryURI {
		logger.Warn("using in-memory media repository, records are lost on restart")
		return repository.NewMemoryRepo(), func(context.Context) {}
	}
	mc, err := database.Connect(ctx, cfg.Mongo.URI, cfg.ConnectTimeout, logger)
	if err != nil {
		logger.Fatalf("mongo connect: %v", err)
	}
	repo := repository.NewMediaRepo(mc.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("mongo indexes: %v", err)
	}
	return repo, func(ctx context.Context) {
		if err := mc.Disconnect(ctx); err != nil {
			logger.Warnw("mongo disconnect", "error", err)
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch cfg.Storage.Driver {
	case "s3":
		store, err = storage.NewS3Store(ctx, storage.S3Options{
			Region:     cfg.AWS.Region,
			Bucket:     cfg.Storage.Bucket,
			Endpoint:   cfg.AWS.Endpoint,
			AccessKey:  cfg.AWS.AccessKey,
			SecretKey:  cfg.AWS.SecretKey,
			PublicRead: cfg.Storage.PublicRead,
		})
	case "minio":
		store, err = storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:   cfg.Minio.Endpoint,
			AccessKey:  cfg.Minio.AccessKey,
			SecretKey:  cfg.Minio.SecretKey,
			Bucket:     cfg.Storage.Bucket,
			UseSSL:     cfg.Minio.UseSSL,
			PublicRead: cfg.Storage.PublicRead,
			PublicBase: cfg.Minio.PublicBase,
		})
	case "memory":
		logger.Warn("using in-memory object store, bytes are lost on restart")
		store = storage.NewMemoryStore("")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}
	return storage.NewBreaker(store, storage.BreakerOptions{
		MaxFailures:  cfg.Storage.Breaker.MaxFailures,
		OpenFor:      cfg.BreakerOpen,
		HalfOpenReqs: cfg.Storage.Breaker.HalfOpenReqs,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnw("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}), nil
}

// openPublisher always includes the websocket hub; the broker is optional.
func openPublisher(cfg *config.Config, hub *events.Hub) (events.Publisher, error) {
	switch cfg.Events.Driver {
	case "", "none":
		return events.Multi{hub}, nil
	case "kafka":
		return events.Multi{hub, events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)}, nil
	case "nats":
		np, err := events.NewNATSPublisher(cfg.Events.NatsURL, cfg.Events.Subject)
		if err != nil {
			return nil, err
		}
		return events.Multi{hub, np}, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
	}
}
