// Command homework-fetch saves every image of a homework record to a directory.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/homework-board/internal/download"
	"github.com/noah-isme/homework-board/internal/repository"
	"github.com/noah-isme/homework-board/pkg/config"
	"github.com/noah-isme/homework-board/pkg/database"
	"github.com/noah-isme/homework-board/pkg/logger"
	"github.com/noah-isme/homework-board/pkg/storage"
)

func main() {
	id := flag.String("id", "", "homework record id")
	out := flag.String("out", ".", "directory to write images to")
	delay := flag.Duration("delay", 0, "pause between images (default DOWNLOAD_ITEM_DELAY)")
	flag.Parse()

	if *id == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if *delay > 0 {
		cfg.Download.ItemDelay = *delay
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed, err := fetch(ctx, cfg, logr, *id, *out)
	if err != nil {
		logr.Fatal("fetch failed", zap.String("homework_id", *id), zap.Error(err))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func fetch(ctx context.Context, cfg *config.Config, logr *zap.Logger, id, dir string) (int, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return 0, fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	hw, err := repository.NewHomeworkRepository(db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("homework %s not found", id)
		}
		return 0, err
	}

	store, err := storage.NewLocalStore(dir, "")
	if err != nil {
		return 0, err
	}

	d := download.New(
		download.WithHTTPClient(&http.Client{Timeout: cfg.Download.Timeout}),
		download.WithDelay(cfg.Download.ItemDelay),
		download.WithLogger(logr),
	)
	result, err := d.DownloadAll(ctx, hw, download.NewDirSink(store))
	if result != nil {
		logr.Info("download finished",
			zap.String("homework_id", hw.ID),
			zap.Int("saved", len(result.Saved)),
			zap.Int("failed", len(result.Failed)),
			zap.String("dir", store.Dir()),
		)
	}
	if err != nil {
		return 0, err
	}
	return len(result.Failed), nil
}
