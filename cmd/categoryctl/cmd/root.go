package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ammiranda/category_service/category"
	"github.com/ammiranda/category_service/config"
	"github.com/ammiranda/category_service/internal/logger"
	"github.com/ammiranda/category_service/nestedset"
	"github.com/ammiranda/category_service/repository"
)

var (
	storeDriver string
	sqlitePath  string
	logLevel    string

	store   repository.Store
	service *category.Service
)

var rootCmd = &cobra.Command{
	Use:   "categoryctl",
	Short: "Manage the category tree",
	Long: `categoryctl edits and inspects the category tree directly against its
store, without going through the HTTP API.

Store settings come from the environment (and a .env file) the same way the
server reads them; flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return setup(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store == nil {
			return nil
		}
		return store.Cleanup(cmd.Context())
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "store driver: memory, sqlite or postgres (default from STORE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "SQLite database file (default from SQLITE_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")
}

func setup(ctx context.Context) error {
	cfgProvider := config.NewEnvProvider("")
	cfg, err := config.GetServiceConfig(ctx, cfgProvider)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if storeDriver != "" {
		cfg.StoreDriver = storeDriver
	}
	if sqlitePath != "" {
		cfg.SQLitePath = sqlitePath
	}

	log := logger.New(logger.Config{
		Writer:      os.Stderr,
		Environment: string(cfgProvider.GetEnvironment()),
		Level:       logger.ParseLevel(logLevel),
	})

	store, err = repository.NewStore(ctx, cfg, cfgProvider)
	if err != nil {
		return err
	}
	if err := store.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	tree := nestedset.New(store,
		nestedset.WithMaxRetries(cfg.MaxRetries),
		nestedset.WithLogger(log),
	)
	service = category.NewService(tree, nil, log)
	slog.SetDefault(log)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid category id %q", s)
	}
	return id, nil
}

// optionalID turns a zero flag value into nil.
func optionalID(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
