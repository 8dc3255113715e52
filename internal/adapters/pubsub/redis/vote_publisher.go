package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vncsmyrnk/voting-api/internal/core/domain"
	"github.com/vncsmyrnk/voting-api/internal/core/ports"
)

type votePublisher struct {
	client redis.UniversalClient
}

func NewVotePublisher(client redis.UniversalClient) ports.VotePublisher {
	return &votePublisher{
		client: client,
	}
}

func (p *votePublisher) Publish(ctx context.Context, channel string, vote domain.Vote) (int64, error) {
	payload, err := json.Marshal(vote)
	if err != nil {
		return 0, fmt.Errorf("failed to encode vote: %w", err)
	}

	receivers, err := p.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish vote to %q: %w", channel, err)
	}
	return receivers, nil
}
