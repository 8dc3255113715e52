package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/voting-api/internal/core/domain"
)

func subscribe(t *testing.T, app *TestApp) *goredis.PubSub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := app.Redis.Subscribe(ctx, testChannel)
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })
	return sub
}

func TestVoteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	sub := subscribe(t, app)

	// 1. First vote is accepted and published
	resp, err := app.Client.Post(app.Server.URL+"/vote", "application/json", strings.NewReader(`{"optionId":"A"}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"SUCCESS"}`, string(body))

	var cookieValue string
	for _, c := range resp.Cookies() {
		if c.Name == "vote_id" {
			cookieValue = c.Value
		}
	}
	_, err = uuid.Parse(cookieValue)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var published domain.Vote
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &published))
	assert.Equal(t, domain.Vote{ID: cookieValue, OptionID: "A"}, published)

	// 2. Same client votes again, the cookie jar sends vote_id back
	resp, err = app.Client.Post(app.Server.URL+"/vote", "application/json", strings.NewReader(`{"optionId":"B"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// 3. Nothing else reached the channel
	shortCtx, shortCancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer shortCancel()
	_, err = sub.ReceiveMessage(shortCtx)
	assert.Error(t, err)
}

func TestVoteWithExistingCookie(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	sub := subscribe(t, app)

	req, err := http.NewRequest(http.MethodPost, app.Server.URL+"/vote", strings.NewReader(`{"optionId":"B"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "vote_id", Value: "existing-id"})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, body)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = sub.ReceiveMessage(ctx)
	assert.Error(t, err)
}

func TestVoteBrokerDown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	require.NoError(t, app.RedisContainer.Terminate(context.Background()))
	app.RedisContainer = nil

	resp, err := app.Client.Post(app.Server.URL+"/vote", "application/json", strings.NewReader(`{"optionId":"A"}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	for _, c := range resp.Cookies() {
		assert.NotEqual(t, "vote_id", c.Name)
	}

	resp, err = app.Client.Get(app.Server.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
