// Command catalog-seed writes a books CSV into Valkey hashes so the API can
// run with catalog.source=valkey. It does not build the vector index.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/config"
	dbValkey "github.com/kailas-cloud/bookrec/internal/db/valkey"
	logpkg "github.com/kailas-cloud/bookrec/internal/logger"
	"github.com/kailas-cloud/bookrec/internal/repository/catalog"
	"github.com/kailas-cloud/bookrec/internal/version"
)

func main() {
	csvPath := flag.String("csv", "", "books CSV to seed (default: catalog.path from config)")
	prefix := flag.String("prefix", "", "hash key prefix (default: catalog.key_prefix from config)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall seed timeout")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("catalog-seed", version.String())
		return
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger, err := logpkg.NewLogger("catalog-seed", env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *csvPath == "" {
		*csvPath = cfg.Catalog.Path
	}
	if *prefix == "" {
		*prefix = cfg.Catalog.KeyPrefix
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	n, err := seed(ctx, cfg.Database, *csvPath, *prefix, logger)
	if err != nil {
		logger.Fatal("Seed failed", zap.Error(err))
	}
	logger.Info("Catalog seeded", zap.Int("books", n), zap.String("prefix", *prefix))
}

func seed(ctx context.Context, dbCfg config.DatabaseConfig, path, prefix string, logger *zap.Logger) (int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, header, err := catalog.ReadRecords(f)
	if err != nil {
		return 0, fmt.Errorf("read csv: %w", err)
	}
	logger.Info("CSV parsed", zap.Int("rows", len(records)), zap.Strings("columns", header))

	store, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    dbCfg.Addrs,
		Username: dbCfg.Username,
		Password: dbCfg.Password,
		DB:       dbCfg.DB,
	})
	if err != nil {
		return 0, fmt.Errorf("create valkey store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(dbCfg.ReadinessTimeout)*time.Second); err != nil {
		return 0, fmt.Errorf("valkey not ready: %w", err)
	}

	n, err := catalog.WriteStore(ctx, store, prefix, records)
	if err != nil {
		return n, fmt.Errorf("seed %s: %w", path, err)
	}
	return n, nil
}
