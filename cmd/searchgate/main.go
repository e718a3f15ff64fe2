package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/config"
	"github.com/kailas-cloud/searchgate/internal/db/opensearch"
	logpkg "github.com/kailas-cloud/searchgate/internal/logger"
	"github.com/kailas-cloud/searchgate/internal/version"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	env        string
	configPath string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "searchgate",
		Short:         "HTTP gateway forwarding search queries to OpenSearch",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.env, "env", "", "environment name selecting config/<env>.yaml (default $ENV or local)")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "explicit path to a YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default command)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), flags)
			},
		},
		newQueryCmd(flags),
	)
	return root
}

// app is everything a subcommand needs after startup.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	store  *opensearch.Store
}

func (a *app) Close() {
	a.store.Close()
	_ = a.logger.Sync()
}

// bootstrap loads .env and config, builds the logger and the backend store.
// Any failure here is fatal: nothing is served with a broken configuration.
func bootstrap(ctx context.Context, flags *rootFlags) (*app, error) {
	_ = godotenv.Load() // optional .env in the working directory

	env := flags.env
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	if !cfg.OpenSearch.VerifyCertificates {
		logger.Warn("TLS certificate validation for the search backend is disabled",
			zap.String("opensearch_url", cfg.OpenSearch.URL))
	}

	store, err := opensearch.NewStore(opensearch.Config{
		URL:                cfg.OpenSearch.URL,
		Username:           cfg.OpenSearch.Username,
		Password:           cfg.OpenSearch.Password,
		InsecureSkipVerify: !cfg.OpenSearch.VerifyCertificates,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("create search backend store: %w", err)
	}

	if cfg.OpenSearch.ReadinessTimeout > 0 {
		timeout := time.Duration(cfg.OpenSearch.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			_ = logger.Sync()
			return nil, fmt.Errorf("search backend not ready: %w", err)
		}
		logger.Info("Connected to search backend")
	}

	return &app{env: env, cfg: cfg, logger: logger, store: store}, nil
}
