package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/studentform/studentform/backend/go-services/handlers"
	"github.com/studentform/studentform/backend/go-services/internal/config"
	"github.com/studentform/studentform/backend/go-services/internal/kv"
	"github.com/studentform/studentform/backend/go-services/internal/query"
	"github.com/studentform/studentform/backend/go-services/internal/ratelimit"
	"github.com/studentform/studentform/backend/go-services/internal/records"
	"github.com/studentform/studentform/backend/go-services/internal/sessions"
	"github.com/studentform/studentform/backend/go-services/internal/storage"
	"github.com/studentform/studentform/backend/go-services/internal/submission"
	"github.com/studentform/studentform/backend/go-services/pkg/logger"
	"github.com/studentform/studentform/backend/go-services/pkg/metrics"
	"github.com/studentform/studentform/backend/go-services/pkg/middleware"
)

// redisPinger adapts the redis client to handlers.Pinger.
type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: backend=%s redis=%v minio=%v", cfg.Store.Backend, cfg.Redis.Host != "", cfg.MinIO.Enabled())

	ctx := context.Background()
	ready := map[string]handlers.Pinger{}

	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
		} else {
			logger.Infof("connected to Redis: %s", cfg.Redis.Addr())
		}
		ready["redis"] = redisPinger{redisClient}
		defer func() { _ = redisClient.Close() }()
	}

	store, closeStore, err := openStore(ctx, cfg, redisClient)
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.Store.Backend, err)
	}
	defer closeStore()
	if p, ok := store.(handlers.Pinger); ok {
		ready["store"] = p
	}

	// rate limit counters: process-local unless redis is requested
	var counters ratelimit.CounterStore = ratelimit.NewMemoryStore()
	if cfg.RateLimit.UseRedis {
		counters = ratelimit.NewRedisStore(redisClient, cfg.Redis.Prefix+"rl:")
		logger.Infof("rate limit counters stored in Redis")
	}
	submitLimiter := ratelimit.New("submit", counters, cfg.RateLimit.SubmitMax, cfg.RateLimit.SubmitWindow)
	loginLimiter := ratelimit.New("login", counters, cfg.RateLimit.LoginMax, cfg.RateLimit.LoginWindow)

	passwords, err := sessions.NewPasswordVerifier(cfg.Admin.Password, cfg.Admin.PasswordHash)
	if err != nil {
		logger.Fatalf("admin password: %v", err)
	}

	repo := records.NewRepository(store)
	deps := handlers.Deps{
		Submissions:  submission.NewService(submitLimiter, repo),
		Query:        query.NewService(repo, store, query.Options{CacheTTL: cfg.Query.CacheTTL, BatchSize: cfg.Query.BatchSize}),
		Sessions:     sessions.NewService(sessions.NewKVRepository(store, ""), cfg.Admin.SessionTTL),
		Passwords:    passwords,
		LoginLimiter: loginLimiter,
		Ready:        ready,

		AllowPublic:     cfg.Query.AllowPublic,
		Debug:           cfg.Server.Debug,
		CORSAllowOrigin: cfg.Server.CORSAllowOrigin,
		TrustedProxies:  cfg.Server.TrustedProxies,
	}

	if cfg.MinIO.Enabled() {
		archive, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("export archive disabled: %v", err)
		} else {
			deps.Archive = archive
			ready["minio"] = archive
		}
	}

	// Optional throttle on read endpoints (per session when logged in, otherwise per IP)
	if cfg.Throttle.Enabled {
		if cfg.RateLimit.UseRedis {
			deps.Throttle = middleware.RedisRateLimitMiddleware(redisClient, cfg.Redis.Prefix, cfg.Throttle.RPS, cfg.Throttle.Burst, time.Second)
		} else {
			deps.Throttle = middleware.RateLimitMiddleware(cfg.Throttle.RPS, cfg.Throttle.Burst)
		}
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	r, err := handlers.NewRouter(deps)
	if err != nil {
		logger.Fatalf("failed to build router: %v", err)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("starting studentform service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-stop.Done()

	logger.Infof("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// openStore connects the configured KV backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (kv.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		return kv.NewRedisStore(redisClient, cfg.Redis.Prefix), func() {}, nil

	case config.BackendMongo:
		// Retry/backoff when connecting to MongoDB to tolerate startup races
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		var err error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, err = kv.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if err == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if err != nil {
			return nil, nil, err
		}
		col := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		store, err := kv.NewMongoStore(ctx, col)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		return store, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.BackendBadger:
		db, err := kv.OpenBadger(kv.BadgerConfig{Path: cfg.Badger.Path, InMemory: cfg.Badger.InMemory, SyncWrites: true})
		if err != nil {
			return nil, nil, err
		}
		return kv.NewBadgerStore(db), func() { _ = db.Close() }, nil
	}
	logger.Warn("using in-memory store; data is lost on restart")
	return kv.NewMemoryStore(), func() {}, nil
}
