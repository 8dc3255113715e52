package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/vncsmyrnk/voting-api/internal/core/domain"
	"go.uber.org/zap"
)

func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := goredis.ParseURL(uri)
	require.NoError(t, err)

	client := goredis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	return client
}

func TestPublishAndSubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub := NewVoteSubscriber(client, zap.NewNop())
	votes, err := sub.Subscribe(ctx, "votes")
	require.NoError(t, err)

	pub := NewVotePublisher(client)
	sent := domain.Vote{ID: "8a1d6f4e-93b4-4c62-9d1e-2a3c1b7f0e55", OptionID: "A"}
	receivers, err := pub.Publish(ctx, "votes", sent)
	require.NoError(t, err)
	assert.Equal(t, int64(1), receivers)

	select {
	case got := <-votes:
		assert.Equal(t, sent, got)
	case <-ctx.Done():
		t.Fatal("timed out waiting for published vote")
	}
}

func TestPublishWireFormat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	raw := client.Subscribe(ctx, "votes")
	defer raw.Close()
	_, err := raw.Receive(ctx)
	require.NoError(t, err)

	_, err = NewVotePublisher(client).Publish(ctx, "votes", domain.Vote{ID: "id-1", OptionID: "B"})
	require.NoError(t, err)

	msg, err := raw.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"id-1","optionId":"B"}`, msg.Payload)
}

func TestSubscriberSkipsMalformedMessages(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	votes, err := NewVoteSubscriber(client, zap.NewNop()).Subscribe(ctx, "votes")
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "votes", "not json").Err())
	require.NoError(t, client.Publish(ctx, "votes", `{"id":"id-2","optionId":"C"}`).Err())

	select {
	case got := <-votes:
		assert.Equal(t, domain.Vote{ID: "id-2", OptionID: "C"}, got)
	case <-ctx.Done():
		t.Fatal("timed out waiting for published vote")
	}
}

func TestPublishFailsWhenBrokerUnavailable(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewVotePublisher(client).Publish(ctx, "votes", domain.Vote{ID: "id", OptionID: "A"})
	assert.Error(t, err)

	assert.Error(t, NewPinger(client).Ping(ctx))
}

func TestNewClientFailsFast(t *testing.T) {
	_, err := NewClient(context.Background(), Options{Host: "127.0.0.1", Port: "1"})
	assert.Error(t, err)
}
