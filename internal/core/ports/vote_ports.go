package ports

import (
	"context"

	"github.com/vncsmyrnk/voting-api/internal/core/domain"
)

type VotePublisher interface {
	// Publish sends the vote to channel and reports how many subscribers received it.
	Publish(ctx context.Context, channel string, vote domain.Vote) (int64, error)
}

type VoteSubscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan domain.Vote, error)
}

type VoteService interface {
	Cast(ctx context.Context, optionID string) (domain.Vote, error)
}
