package main

import (
	"context"
	"log/slog"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"

	"github.com/ammiranda/category_service/cache"
	"github.com/ammiranda/category_service/category"
	"github.com/ammiranda/category_service/config"
	"github.com/ammiranda/category_service/internal/lambda"
	"github.com/ammiranda/category_service/internal/logger"
	"github.com/ammiranda/category_service/nestedset"
	"github.com/ammiranda/category_service/repository"
)

func main() {
	ctx := context.Background()
	log := logger.New(logger.Config{Format: "json", Level: logger.ParseLevel(os.Getenv("LOG_LEVEL"))})
	slog.SetDefault(log)

	// Secrets Manager when a secret is configured, plain environment otherwise
	var cfgProvider config.Provider = config.NewEnvProvider("")
	if os.Getenv("AWS_SECRET_NAME") != "" {
		p, err := config.NewAWSConfigProvider(ctx)
		if err != nil {
			log.Error("Failed to create config provider", "error", err)
			os.Exit(1)
		}
		cfgProvider = p
	}

	cfg, err := config.GetServiceConfig(ctx, cfgProvider)
	if err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := repository.NewStore(ctx, cfg, cfgProvider)
	if err != nil {
		log.Error("Failed to create store", "error", err)
		os.Exit(1)
	}
	if err := store.Initialize(ctx); err != nil {
		log.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}

	forestCache, err := cache.NewProvider(ctx, cfg, cfgProvider)
	if err != nil {
		log.Error("Failed to initialize cache", "error", err)
		os.Exit(1)
	}

	tree := nestedset.New(store, nestedset.WithMaxRetries(cfg.MaxRetries), nestedset.WithLogger(log))
	handler := lambda.NewHandler(category.NewService(tree, forestCache, log))

	// Start Lambda
	awslambda.Start(handler.Handle)
}
