package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ammiranda/category_service/cache"
	"github.com/ammiranda/category_service/category"
	"github.com/ammiranda/category_service/config"
	"github.com/ammiranda/category_service/handlers"
	"github.com/ammiranda/category_service/internal/logger"
	"github.com/ammiranda/category_service/nestedset"
	"github.com/ammiranda/category_service/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize config provider
	cfgProvider := config.NewEnvProvider("")
	cfg, err := config.GetServiceConfig(ctx, cfgProvider)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Format:      cfg.LogFormat,
		Environment: string(cfgProvider.GetEnvironment()),
		Level:       logger.ParseLevel(cfg.LogLevel),
	})
	slog.SetDefault(log)

	if err := run(ctx, cfg, cfgProvider, log); err != nil {
		log.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.ServiceConfig, cfgProvider config.Provider, log *slog.Logger) error {
	// Initialize store
	store, err := repository.NewStore(ctx, cfg, cfgProvider)
	if err != nil {
		return err
	}
	if err := store.Initialize(ctx); err != nil {
		return err
	}
	defer store.Cleanup(context.Background())

	// Initialize cache
	forestCache, err := cache.NewProvider(ctx, cfg, cfgProvider)
	if err != nil {
		return err
	}

	tree := nestedset.New(store,
		nestedset.WithMaxRetries(cfg.MaxRetries),
		nestedset.WithLogger(log),
	)
	if report, err := tree.CountErrors(ctx); err != nil {
		return err
	} else if report.Total() > 0 {
		log.Warn("Category tree has integrity violations", "violations", report.Total(), "report", report.String())
	}

	service := category.NewService(tree, forestCache, log)

	// Initialize router
	if cfgProvider.GetEnvironment() == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestLogger(log))
	handlers.NewCategoryHandler(service, log).RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "cache", cfg.CacheDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}
