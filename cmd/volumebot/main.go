package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"volumebot/config"
	"volumebot/internal/app"
	"volumebot/internal/asset"
	"volumebot/logger"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "config/config.yaml", "path to the yaml config file")
	pflag.Parse()

	// viper config
	cfg := config.Load(*configPath)

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	universe, err := asset.Load(cfg.Alert.CoinsFile)
	if err != nil {
		log.Fatal("failed to load coin list", zap.Error(err))
	}
	log.Info("coin list loaded", zap.Strings("coins", universe.Assets()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// run bot
	if err := app.Run(ctx, cfg, universe, log); err != nil {
		log.Fatal("bot failed", zap.Error(err))
	}
}
