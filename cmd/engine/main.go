package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	app "github.com/tradekit/clob/internal/app/engine"
	snapshotv1 "github.com/tradekit/clob/internal/domain/snapshot/v1"
	matchpublisher "github.com/tradekit/clob/internal/usecase/match-publisher"
	"github.com/tradekit/clob/internal/usecase/matching"
	orderreader "github.com/tradekit/clob/internal/usecase/order-reader"
	"github.com/tradekit/clob/internal/usecase/snapshot"
	"github.com/tradekit/clob/pkg/config"
	"github.com/tradekit/clob/pkg/logger"
	"github.com/tradekit/clob/pkg/redis"
	"github.com/tradekit/clob/pkg/util"
)

const snapshotKey = "engine-snapshot"

var cfg *config.Config
var log *logger.Logger

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		panic(err)
	}

	log, err = logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)))
	if err != nil {
		panic(err)
	}
}

func main() {
	// One request id per engine run; every context-aware log line carries it.
	ctx, cancel := context.WithCancel(util.WithRequestID(context.Background(), ""))
	defer cancel()
	defer log.Sync()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", logger.Field{
			Key:   "signal",
			Value: sig.String(),
		})
		cancel()
	}()

	var (
		snapshotStore snapshotv1.Store
		rclient       redis.Client
	)

	switch cfg.Snapshot.Backend {
	case "pebble":
		store, err := snapshot.NewPebbleStore(cfg.Snapshot.PebblePath, log)
		if err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "open_pebble",
			})
			return
		}
		snapshotStore = store
	default:
		rclient = redis.NewClient(log, &cfg.Redis)
		if err := rclient.Connect(ctx); err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "connect_redis",
			})
			return
		}
		if err := rclient.Ping(ctx); err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "ping_redis",
			})
			return
		}
		snapshotStore = snapshot.NewRedisStore(rclient, cfg.Redis.PrefixKey+snapshotKey, log)
	}

	orderReader := orderreader.NewReader(cfg.OrderKafka, log)
	matchPublisher := matchpublisher.NewPublisher(cfg.MatchKafka, log)

	options := app.OptionsFromConfig(cfg.Snapshot)
	options.ValidateBooks = cfg.App.ValidateBooks

	engine := app.NewEngine(
		matching.NewEngine(),
		orderReader,
		snapshotStore,
		matchPublisher,
		log,
		options,
	)

	log.Info("matching engine starting", logger.Field{
		Key:   "app",
		Value: cfg.App.Name,
	}, logger.Field{
		Key:   "orderTopic",
		Value: cfg.OrderKafka.Topic,
	}, logger.Field{
		Key:   "matchTopic",
		Value: cfg.MatchKafka.Topic,
	}, logger.Field{
		Key:   "snapshotBackend",
		Value: cfg.Snapshot.Backend,
	})

	// Start consumes the order topic until the context is cancelled.
	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "start_engine",
		})
	}

	engine.Stop()

	if rclient != nil {
		if err := rclient.Disconnect(context.Background()); err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "disconnect_redis",
			})
		}
	}

	log.Info("matching engine shutdown complete")
}
