package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/smith3v/tg-couple-bot/pkg/bot/handlers"
	"github.com/smith3v/tg-couple-bot/pkg/bot/qotd"
	"github.com/smith3v/tg-couple-bot/pkg/bot/reminders"
	"github.com/smith3v/tg-couple-bot/pkg/bot/session"
	"github.com/smith3v/tg-couple-bot/pkg/config"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/delivery"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/metrics"
	"github.com/smith3v/tg-couple-bot/pkg/movies"
	"github.com/smith3v/tg-couple-bot/pkg/queue"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func serve(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	if err := setup(configPath); err != nil {
		return err
	}
	if added, err := qotd.ImportBankFile(config.AppConfig.Scheduler.QuestionsFile); err != nil {
		logger.Error("failed to import question bank", "error", err)
	} else if added > 0 {
		logger.Info("question bank imported", "added", added)
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sessions := session.NewManager(timeutil.Now, session.DefaultTimeout)
	h := handlers.New(sessions, movies.NewClient(config.AppConfig.TMDB), nil)

	b, err := bot.New(config.AppConfig.Telegram.Token, bot.WithDefaultHandler(h.Default))
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		return err
	}
	sender := delivery.NewTelegramSender(b, metrics.Default)
	h.Sender = sender
	h.Register(b)

	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: handlers.Commands}); err != nil {
		logger.Warn("failed to publish command menu", "error", err)
	}

	window := time.Duration(config.AppConfig.Scheduler.CatchUpMinutes) * time.Minute
	engine := reminders.NewEngine(sender, metrics.Default, window)
	sweeper := queue.NewSweeper(sender, metrics.Default)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.Start(ctx)
		return nil
	})
	g.Go(func() error {
		sweeper.Run(ctx)
		return nil
	})
	g.Go(func() error {
		engine.StartPeriodicMessages(ctx)
		return nil
	})
	g.Go(func() error {
		sessions.StartSweeper(ctx)
		return nil
	})
	g.Go(func() error {
		db.StartMaintenance(ctx, db.MaintenanceInterval)
		return nil
	})
	if addr := config.AppConfig.HTTP.Addr; addr != "" {
		g.Go(func() error {
			return serveOps(ctx, addr)
		})
	}

	logger.Info("Starting bot...", "timezone", timeutil.Location().String(), "catch_up", window)
	err = g.Wait()
	sender.Close()
	logger.Info("bot stopped")
	return err
}

// serveOps runs the health and metrics listener until ctx ends.
func serveOps(ctx context.Context, addr string) error {
	var store metrics.Pinger
	if sqlDB, err := db.DB.DB(); err == nil {
		store = sqlDB
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.NewRouter(metrics.Default, store),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ops listener started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("ops listener failed", "error", err)
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop ops listener", "error", err)
		}
		return nil
	}
}
