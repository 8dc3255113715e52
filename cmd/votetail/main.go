// Command votetail subscribes to the votes channel and prints every
// published vote as a JSON line on stdout.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/vncsmyrnk/voting-api/internal/adapters/pubsub/redis"
	"github.com/vncsmyrnk/voting-api/internal/config"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadBroker(os.Args[0], os.Args[1:])
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.NewClient(ctx, redis.Options{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer rdb.Close()

	votes, err := redis.NewVoteSubscriber(rdb, logger).Subscribe(ctx, cfg.Channel)
	if err != nil {
		logger.Fatal("failed to subscribe", zap.Error(err))
	}

	logger.Info("listening for votes", zap.String("channel", cfg.Channel))

	enc := json.NewEncoder(os.Stdout)
	for vote := range votes {
		if err := enc.Encode(vote); err != nil {
			logger.Error("failed to write vote", zap.Error(err))
		}
	}

	logger.Info("stopped listening for votes")
}
