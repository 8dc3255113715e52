package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vncsmyrnk/voting-api/internal/core/domain"
	"github.com/vncsmyrnk/voting-api/internal/core/ports"
	"go.uber.org/zap"
)

type voteSubscriber struct {
	client redis.UniversalClient
	logger *zap.Logger
}

func NewVoteSubscriber(client redis.UniversalClient, logger *zap.Logger) ports.VoteSubscriber {
	return &voteSubscriber{
		client: client,
		logger: logger,
	}
}

// Subscribe returns a channel of decoded votes. The subscription is confirmed
// before returning, and the channel is closed once ctx is done.
func (s *voteSubscriber) Subscribe(ctx context.Context, channel string) (<-chan domain.Vote, error) {
	sub := s.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %q: %w", channel, err)
	}

	votes := make(chan domain.Vote)
	go func() {
		defer close(votes)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var vote domain.Vote
				if err := json.Unmarshal([]byte(msg.Payload), &vote); err != nil {
					s.logger.Warn("skipping malformed vote message",
						zap.String("channel", msg.Channel),
						zap.Error(err),
					)
					continue
				}

				select {
				case votes <- vote:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return votes, nil
}
