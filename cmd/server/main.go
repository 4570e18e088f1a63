package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/app"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/auth"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/credential"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/observability"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/platform/cache"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/platform/db"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/products"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/rbac"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/revocation"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/roles"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/token"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/users"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()
	if err := db.Migrate(ctx, dbpool); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	var revocations revocation.Store
	switch cfg.RevocationBackend {
	case app.RevocationMemory:
		memory := revocation.NewMemoryStore(time.Now)
		go memory.Run(ctx, time.Minute)
		revocations = memory
		logger.Warn("in-memory revocation store: logouts are not shared between instances")
	default:
		redisClient, err := cache.New(ctx, redisOpts)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		revocations = revocation.NewRedisStore(redisClient)
	}

	tokens, err := token.NewService(token.Config{
		Secret:    []byte(cfg.JWTSecret),
		Algorithm: cfg.JWTAlgorithm,
		TTL:       cfg.TokenTTL(),
	})
	if err != nil {
		logger.Error("init tokens", slog.Any("error", err))
		os.Exit(1)
	}
	hasher, err := credential.NewHasher(cfg.BcryptCost)
	if err != nil {
		logger.Error("init hasher", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	asynqOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(asynqOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(asynqOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo)
	usersRepo := users.NewRepository(dbpool)
	rulesRepo := rbac.NewRepository(dbpool)

	engine := rbac.NewEngine(rbac.NewCoalescingResolver(rulesRepo, cfg.LookupTimeout), cfg.LookupTimeout, logger)
	rbacMiddleware := rbac.Middleware{Authorizer: engine, Logger: logger, Observer: metrics}

	authenticator := auth.NewAuthenticator(auth.AuthenticatorConfig{
		Tokens:        tokens,
		Revocations:   revocations,
		Users:         usersRepo,
		Roles:         rolesService,
		Authorizer:    engine,
		LookupTimeout: cfg.LookupTimeout,
		Logger:        logger,
		Observer:      metrics,
	})
	authService := auth.NewService(auth.ServiceConfig{
		Users:         usersRepo,
		Roles:         rolesService,
		Hasher:        hasher,
		Tokens:        tokens,
		Revocations:   revocations,
		Audit:         jobClient,
		LookupTimeout: cfg.LookupTimeout,
		Logger:        logger,
	})
	authMiddleware := auth.Middleware{Authenticator: authenticator, Logger: logger}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        auth.NewHandler(logger, authService, authMiddleware, app.LoginRateLimiter(cfg.LoginRateLimit)),
		AuthMiddleware:     authMiddleware,
		RBACMiddleware:     rbacMiddleware,
		UsersHandler:       users.NewHandler(logger, users.NewService(usersRepo, hasher), rbacMiddleware, authService, jobClient),
		ProductsHandler:    products.NewHandler(logger, products.NewCatalogue(products.Stock()...), rbacMiddleware),
		AccessRulesHandler: rbac.NewHandler(logger, rbac.NewService(rulesRepo), rbacMiddleware),
		RolesHandler:       roles.NewHandler(logger, rolesService),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
		AccessLog:          !cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
