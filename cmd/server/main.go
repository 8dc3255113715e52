package main

import (
	"context"
	"errors"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vncsmyrnk/voting-api/internal/adapters/handler/http"
	"github.com/vncsmyrnk/voting-api/internal/adapters/pubsub/redis"
	"github.com/vncsmyrnk/voting-api/internal/config"
	"github.com/vncsmyrnk/voting-api/internal/core/services"
	"github.com/vncsmyrnk/voting-api/internal/metrics"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:])
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	// Initialize Service
	voteService := services.NewVoteService(
		redis.NewVotePublisher(rdb),
		services.VoteServiceConfig{Channel: cfg.Channel, PublishTimeout: cfg.PublishTimeout},
		m,
		logger,
	)

	// Initialize Handlers
	voteHandler := http.NewVoteHandler(voteService, http.CookieOptions{MaxAge: cfg.CookieMaxAge, Secure: cfg.CookieSecure}, m, logger)
	healthHandler := http.NewHealthHandler(redis.NewPinger(rdb))

	server := &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           http.NewHandler(voteHandler, healthHandler, m, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("channel", cfg.Channel),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("shutdown failed", zap.Error(err))
	}
}
