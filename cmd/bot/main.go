package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"concept-memory/internal/analytics"
	"concept-memory/internal/config"
	"concept-memory/internal/logger"
	"concept-memory/internal/scheduler"
	"concept-memory/internal/sessions"
	"concept-memory/internal/storage"
	"concept-memory/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("config: TELEGRAM_BOT_TOKEN is required")
	}

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codec, err := storage.CodecFor(cfg.SnapshotFormat)
	if err != nil {
		lg.Fatal("snapshot codec", zap.Error(err))
	}
	repo, closeRepo, err := openRepository(ctx, cfg, codec)
	if err != nil {
		lg.Fatal("snapshot repository", zap.Error(err))
	}
	defer closeRepo()

	var journal storage.Journal
	if cfg.JournalPath != "" {
		fj, err := storage.NewFileJournal(cfg.JournalPath)
		if err != nil {
			lg.Warn("journal disabled", zap.Error(err))
		} else {
			journal = fj
			defer func() { _ = fj.Close() }()
		}
	}

	mgr := sessions.NewManager(cfg.EngineOptions(), repo, codec, lg.Named("sessions"))

	bot, err := telegram.New(cfg.TelegramBotToken, mgr, journal, cfg.AllowedUsers, lg.Named("telegram"))
	if err != nil {
		lg.Fatal("failed to create bot", zap.Error(err))
	}

	sched := scheduler.New(lg.Named("scheduler"))
	if err := sched.AddJob(cfg.AutosaveSpec, "autosave", func(ctx context.Context) error {
		_, err := mgr.SaveAll(ctx)
		return err
	}); err != nil {
		lg.Fatal("autosave job", zap.Error(err))
	}
	if journal != nil && cfg.AdminUserID != 0 {
		if err := sched.AddJob(cfg.ReportSpec, "daily_report", func(ctx context.Context) error {
			now := time.Now().UTC()
			exs, err := journal.Since(now.Truncate(24 * time.Hour))
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}
			stats := analytics.AnalyzeDailyExchanges(exs, now)
			bot.Notify(cfg.AdminUserID, stats.GenerateReportSummary())
			return nil
		}); err != nil {
			lg.Fatal("report job", zap.Error(err))
		}
	}
	sched.Start()

	lg.Info("bot started",
		zap.String("backend", cfg.SnapshotBackend),
		zap.String("format", codec.Name()),
		zap.Int("max_size", cfg.MemoryMaxSize))
	bot.Start(ctx)

	sched.Stop()
	saveCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if n, err := mgr.SaveAll(saveCtx); err != nil {
		lg.Error("final save failed", zap.Int("saved", n), zap.Error(err))
	}
	lg.Info("bot stopped")
}

// openRepository builds the snapshot store selected by SNAPSHOT_BACKEND. The
// returned func releases its resources.
func openRepository(ctx context.Context, cfg *config.Config, codec storage.Codec) (storage.Repository, func(), error) {
	switch cfg.SnapshotBackend {
	case "file":
		repo, err := storage.NewFileRepository(filepath.Clean(cfg.SnapshotDir), codec.Ext())
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	case "redis":
		rdb, err := storage.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedisRepository(rdb, cfg.RedisPrefix, 0), func() { _ = rdb.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}
