// Package app builds the bot from configuration and runs it.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"volumebot/config"
	"volumebot/internal/asset"
	"volumebot/internal/bot"
	"volumebot/internal/bybit/stream"
	"volumebot/internal/detector"
	"volumebot/internal/health"
	"volumebot/internal/httpapi"
	"volumebot/internal/memorystore"
	"volumebot/internal/notify"
	"volumebot/internal/refresher"
	"volumebot/internal/report"
	"volumebot/internal/scheduler"
	"volumebot/internal/subscription"
	"volumebot/pkg/bybit"
	"volumebot/pkg/exchange"
	"volumebot/pkg/exchange/binance"
	"volumebot/pkg/storage"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const statsInterval = time.Minute

// Run starts the refresh, detection and health loops, the command surface
// and the optional HTTP server. It blocks until ctx is cancelled and every
// loop has returned.
func Run(ctx context.Context, cfg *config.Config, universe *asset.Universe, logger *zap.Logger) error {
	// Initialize settings storage
	db, err := storage.InitializeAndMigrate(ctx, cfg.Storage, cfg.App.Env, true)
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close DB", zap.Error(err))
		}
	}()

	client, startStream, err := newExchange(cfg, universe, logger)
	if err != nil {
		return err
	}
	logger.Info("exchange selected", zap.String("exchange", client.Name()))

	// Chat transport; without a token messages are only logged
	var (
		sender notify.Sender
		tg     *bot.Telegram
	)
	if token := cfg.TelegramToken(); token != "" {
		tg, err = bot.NewTelegram(token, "", cfg.Telegram.PollTimeout, cfg.Telegram.RequestTimeout, logger.Named("telegram"))
		if err != nil {
			return err
		}
		sender = tg
	} else {
		logger.Warn("telegram token not set, messages will only be logged")
		sender = notify.LogSender{Logger: logger.Named("outbox")}
	}

	reporter := notify.NewAdminReporter(sender, cfg.Telegram.AdminID,
		cfg.Admin.ReportInterval, cfg.Admin.ReportBurst, logger.Named("admin"))

	subs, err := subscription.NewStore(subscription.NewStorageRepository(db), universe, DefaultSubscription(cfg.Alert), logger.Named("subscription"))
	if err != nil {
		return err
	}
	if err := subs.Load(ctx); err != nil {
		return err
	}

	snapshots := memorystore.NewSnapshotStore()
	assets := universe.Assets()
	timeout := cfg.Exchange.RequestTimeout

	monitor := health.New(client, timeout, reporter, logger.Named("health"))
	handler := bot.NewHandler(subs, universe,
		report.NewBuilder(client, snapshots, timeout, reporter, logger.Named("report")),
		reporter, logger.Named("bot"))

	sched := scheduler.New(logger.Named("scheduler"))
	tasks := []struct {
		task     scheduler.Task
		interval time.Duration
	}{
		{refresher.New(client, snapshots, assets, timeout, reporter, logger.Named("refresher")), cfg.Schedule.RefreshInterval},
		{detector.New(snapshots, subs, sender, reporter, assets, timeout, logger.Named("detector")), cfg.Schedule.DetectInterval},
		{monitor, cfg.Schedule.HealthInterval},
		{statsTask(snapshots, subs, db, logger), statsInterval},
	}
	for _, t := range tasks {
		if err := sched.Add(t.task, t.interval); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	if startStream != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			startStream(ctx)
		}()
	}

	sched.Start(ctx)

	if tg != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tg.Poll(ctx, handler)
		}()
	}

	if cfg.HTTP.Enabled {
		srv := httpapi.NewServer(cfg.HTTP.Addr, snapshots, monitor, db, subs.Len, logger.Named("http"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				logger.Error("http server failed", zap.Error(err))
			}
		}()
	}

	logger.Info("volume bot started",
		zap.Int("coins", len(assets)), zap.Int("users", subs.Len()))

	<-ctx.Done()
	logger.Info("shutting down")
	sched.Wait()
	wg.Wait()
	return nil
}

// DefaultSubscription is what a new user starts with.
func DefaultSubscription(cfg config.AlertConfig) subscription.Subscription {
	return subscription.Subscription{
		Assets: lo.Map(cfg.DefaultCoins, func(c string, _ int) string {
			return asset.Normalize(c)
		}),
		Threshold: cfg.DefaultThreshold,
	}
}

// newExchange returns the configured exchange client. For bybit with the
// websocket enabled it also returns a function that runs the price stream
// until its context ends.
func newExchange(cfg *config.Config, universe *asset.Universe, logger *zap.Logger) (exchange.Client, func(context.Context), error) {
	switch cfg.Exchange.Name {
	case "binance":
		return binance.New(cfg.Exchange.Binance.APIKey, cfg.Exchange.Binance.APISecret), nil, nil

	case "bybit":
		bc := cfg.Exchange.Bybit
		rest := bybit.NewRESTClient(bc.REST.BaseURL, cfg.Exchange.RequestTimeout)
		if !bc.WS.Enabled {
			return bybit.NewExchange(rest, bc.REST.Category), nil, nil
		}

		prices := memorystore.NewPriceStore()
		ws := bybit.NewWSClient(bc.WS.URL, logger.Named("ws"))
		ws.SetMessageHandler(stream.MakeTickerHandler(logger.Named("stream"), prices))

		symbols := lo.Map(universe.Assets(), func(a string, _ int) string {
			return exchange.Symbol(a)
		})
		start := func(ctx context.Context) {
			if err := ws.Connect(bybit.TickerTopics(symbols)); err != nil {
				logger.Warn("price stream unavailable, prices come from REST", zap.Error(err))
				return
			}
			ws.Listen(ctx)
		}
		return bybit.NewExchange(rest, bc.REST.Category, bybit.WithStreamPrices(prices, bc.WS.MaxAge)), start, nil

	default:
		return nil, nil, fmt.Errorf("unsupported exchange %q", cfg.Exchange.Name)
	}
}

// statsTask periodically logs cache and user counts. Stored rows and
// in-memory users should match.
func statsTask(snapshots *memorystore.MemorySnapshotStore, subs *subscription.Store, db *storage.Client, logger *zap.Logger) scheduler.Task {
	return scheduler.TaskFunc{
		TaskName: "stats",
		Fn: func(ctx context.Context) error {
			stored, err := db.Count(ctx)
			if err != nil {
				return fmt.Errorf("count stored users: %w", err)
			}
			logger.Info("current state",
				zap.Int("snapshots", snapshots.Count()),
				zap.Int("users", subs.Len()),
				zap.Int64("stored_users", stored))
			return nil
		},
	}
}
