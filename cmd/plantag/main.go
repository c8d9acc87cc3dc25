package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/plantag/pkg/plantag"
	"github.com/cognicore/plantag/pkg/plantag/config"
	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/store"
	"github.com/cognicore/plantag/pkg/plantag/store/memstore"
	"github.com/cognicore/plantag/pkg/plantag/store/sqlite"
)

var (
	// Global flags
	verbose     bool
	registryDir string
	dbPath      string
	fromDB      bool
	workers     int

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "plantag",
	Short: "Classify plant item tags",
	Long: `plantag tokenizes freeform plant item tags against codification and
pattern registries, sorts each item into FinalImport, DbLimbo or MdbLimbo and
places it in the discipline hierarchy.

Registries are read from YAML/TOML files in --registry, or from the SQLite
database given by --db when --from-db is set.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
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
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&registryDir, "registry", "r", "configs/registry", "Directory holding the registry files")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database for registries and outcomes")
	rootCmd.PersistentFlags().BoolVar(&fromDB, "from-db", false, "Load registries from --db instead of files")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "j", 4, "Parallel workers for batch processing")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session is the engine plus what it was built from.
type session struct {
	engine *plantag.Engine
	holder *registry.Holder
	loader *config.Loader // nil when registries come from the database
	store  store.Store
}

func (s *session) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// openSession loads the registries and builds an engine. Outcomes are
// persisted when --db is set and kept in memory for the run otherwise.
func openSession(ctx context.Context) (*session, error) {
	if fromDB && dbPath == "" {
		return nil, fmt.Errorf("--from-db needs --db")
	}
	s := &session{store: memstore.New()}
	if dbPath != "" {
		st, err := sqlite.OpenSQLite(ctx, dbPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.store = st
	}

	var src registry.Source
	if fromDB {
		src = store.Source(s.store)
	} else {
		l, err := config.DirLoader(registryDir)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.loader = l
		src = l
	}

	s.holder = registry.NewHolder(nil)
	snap, err := s.holder.Reload(ctx, src)
	if err != nil {
		s.Close()
		return nil, err
	}
	logger.Info("registries loaded",
		zap.String("version", snap.Version),
		zap.Int("codes", snap.Codification.Len()),
		zap.Int("patterns", snap.Patterns.Len()))

	opts := plantag.DefaultOptions()
	opts.Registry = s.holder
	opts.Store = s.store
	opts.Logger = logger
	s.engine, err = plantag.New(opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
