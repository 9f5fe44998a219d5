package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sekai02/photocat/internal/api"
	"github.com/sekai02/photocat/internal/catalog"
	"github.com/sekai02/photocat/internal/config"
	"github.com/sekai02/photocat/internal/metrics"
	"github.com/sekai02/photocat/internal/persistence"
	"github.com/sekai02/photocat/internal/storage"
)

var (
	configPath string
	ephemeral  bool
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "photocatd",
	Short: "Tagged photo catalog with a conversational front end",
	Long: `photocatd keeps a catalog of photo references tagged with authors,
tags and characters. Run "photocatd serve" for the HTTP API or use the
subcommands to edit and query the catalog directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if ephemeral {
			cfg.Storage.Backend = "memory"
		}
		if verbose {
			cfg.Log.Level = "debug"
		}

		logger, err = config.NewLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "photocat.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep the catalog in memory only")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(authorsCmd)
	rootCmd.AddCommand(listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(sc config.StorageConfig) (storage.Store, error) {
	switch sc.Backend {
	case "badger":
		return storage.NewBadgerStore(sc.BadgerDir)
	case "memory":
		return storage.NewMemStore(), nil
	case "file":
		return storage.NewFileStore(filepath.Dir(sc.Path)).Bind(persistence.RecordsKey, sc.Path), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}

// openService loads the catalog; any load failure other than a missing
// snapshot aborts startup.
func openService(ctx context.Context, reg prometheus.Registerer) (*api.Service, error) {
	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	cat, err := catalog.Open(ctx, persistence.NewSnapshotter(store, persistence.RecordsKey), logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	var collector *metrics.Collector
	if reg != nil && cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, reg, logger)
	}

	return api.NewService(cat, store, collector, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), logger), nil
}
