package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/http/cookiejar"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	handler "github.com/vncsmyrnk/voting-api/internal/adapters/handler/http"
	"github.com/vncsmyrnk/voting-api/internal/adapters/pubsub/redis"
	"github.com/vncsmyrnk/voting-api/internal/core/services"
	"github.com/vncsmyrnk/voting-api/internal/metrics"
)

const testChannel = "votes"

type TestApp struct {
	Redis          *goredis.Client
	Server         *httptest.Server
	Client         *http.Client
	RedisContainer testcontainers.Container
}

func setupRedisContainer(ctx context.Context) (testcontainers.Container, string, error) {
	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(10*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start redis container: %w", err)
	}

	connStr, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		return nil, "", err
	}

	return redisContainer, connStr, nil
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()

	ctx := context.Background()
	redisContainer, redisURL, err := setupRedisContainer(ctx)
	require.NoError(t, err)

	opts, err := goredis.ParseURL(redisURL)
	require.NoError(t, err)
	rdb := goredis.NewClient(opts)
	require.NoError(t, rdb.Ping(ctx).Err())

	return newTestApp(t, rdb, redisContainer)
}

func newTestApp(t *testing.T, rdb *goredis.Client, container testcontainers.Container) *TestApp {
	t.Helper()

	logger := zap.NewNop()
	m := metrics.NewMetrics(prometheus.NewRegistry())

	voteSvc := services.NewVoteService(
		redis.NewVotePublisher(rdb),
		services.VoteServiceConfig{Channel: testChannel, PublishTimeout: 2 * time.Second},
		m,
		logger,
	)

	voteHandler := handler.NewVoteHandler(voteSvc, handler.CookieOptions{}, m, logger)
	healthHandler := handler.NewHealthHandler(redis.NewPinger(rdb))
	router := handler.NewHandler(voteHandler, healthHandler, m, logger)

	server := httptest.NewServer(router)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := server.Client()
	client.Jar = jar

	return &TestApp{
		Redis:          rdb,
		Server:         server,
		Client:         client,
		RedisContainer: container,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.Redis.Close()
	if app.RedisContainer == nil {
		return
	}
	if err := app.RedisContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}
