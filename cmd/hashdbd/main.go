// Command hashdbd is the server entrypoint (§6, §10.2, §10.5): it parses
// flags and an optional JSONC config file, opens the data file, bootstraps
// the keydir, and serves the wire protocol until a shutdown signal.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkvs/hashdb/config"
	"github.com/dkvs/hashdb/engine"
	"github.com/dkvs/hashdb/keydir"
	"github.com/dkvs/hashdb/pager"
	"github.com/dkvs/hashdb/server"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()

	configPath := pflag.String("config", "", "path to an optional JSONC config file")
	addr := pflag.String("addr", cfg.Addr, "listen address")
	dbPath := pflag.String("db", cfg.DBPath, "data file path")
	pageSize := pflag.Int("page-size", cfg.PageSize, "page size in bytes")
	readFrames := pflag.Int("read-frames", cfg.ReadSize, "number of read-only buffer pool frames")
	lruK := pflag.Int("lru-k", cfg.LRUK, "K parameter of the LRU-K replacer")
	pflag.Parse()

	if *configPath != "" {
		fileCfg, err := config.LoadFile(*configPath, cfg)
		if err != nil {
			return err
		}
		cfg = fileCfg
	}
	// Explicit flags always win over the config file.
	pflag.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "db":
			cfg.DBPath = *dbPath
		case "page-size":
			cfg.PageSize = *pageSize
		case "read-frames":
			cfg.ReadSize = *readFrames
		case "lru-k":
			cfg.LRUK = *lruK
		}
	})

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("hashdbd: building logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	pages, err := pager.New(pager.Config{
		Path:     cfg.DBPath,
		PageSize: cfg.PageSize,
		ReadSize: cfg.ReadSize,
		LRUK:     cfg.LRUK,
	})
	if err != nil {
		return fmt.Errorf("hashdbd: opening %s: %w", cfg.DBPath, err)
	}
	if err := pages.AcquireExclusive(); err != nil {
		return err
	}

	index := keydir.Bootstrap(pages.BootstrapPages())
	log.Infow("bootstrap complete", "keys", index.Len())

	eng := engine.New(pages, index, engine.NewWallClock(), log)
	srv := server.New(cfg.Addr, eng, pages, log)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		if err := pages.Close(); err != nil {
			log.Errorw("flush/sync on shutdown failed", "error", err)
		}
		os.Exit(0)
	}()

	return srv.Serve()
}
