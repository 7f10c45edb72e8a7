package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/lbre/imgbatch/internal/config"
	"github.com/lbre/imgbatch/internal/database"
	"github.com/lbre/imgbatch/internal/imgcodec"
	"github.com/lbre/imgbatch/internal/quota"
	"github.com/lbre/imgbatch/internal/router"
	"github.com/lbre/imgbatch/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := storage.NewFileSystem(cfg.DataDir)
	if err != nil {
		slog.Error("failed to prepare data dir", "error", err)
		os.Exit(1)
	}

	var quotaStore quota.Store
	switch {
	case cfg.RedisAddr != "":
		quotaStore = quota.NewRedisStore(cfg.RedisAddr, cfg.DailyQuota)
		slog.Info("using redis quota store", "addr", cfg.RedisAddr)
	default:
		quotaStore, err = quota.NewSQLiteStore(db.Handle(), cfg.DailyQuota)
		if err != nil {
			slog.Error("failed to prepare quota store", "error", err)
			os.Exit(1)
		}
	}

	srv := router.New(db, store, imgcodec.New(), quotaStore, cfg)

	slog.Info("starting server", "addr", cfg.ListenAddr, "data_dir", cfg.DataDir)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
