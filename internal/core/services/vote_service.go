package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/voting-api/internal/core/domain"
	"github.com/vncsmyrnk/voting-api/internal/core/ports"
	"github.com/vncsmyrnk/voting-api/internal/metrics"
	"go.uber.org/zap"
)

type VoteServiceConfig struct {
	Channel        string
	PublishTimeout time.Duration
}

type voteService struct {
	publisher ports.VotePublisher
	cfg       VoteServiceConfig
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewVoteService(publisher ports.VotePublisher, cfg VoteServiceConfig, m *metrics.Metrics, logger *zap.Logger) ports.VoteService {
	return &voteService{
		publisher: publisher,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
	}
}

func (s *voteService) Cast(ctx context.Context, optionID string) (domain.Vote, error) {
	vote := domain.Vote{
		ID:       uuid.NewString(),
		OptionID: optionID,
	}

	if s.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PublishTimeout)
		defer cancel()
	}

	start := time.Now()
	receivers, err := s.publisher.Publish(ctx, s.cfg.Channel, vote)
	s.metrics.ObservePublish(time.Since(start))
	if err != nil {
		s.metrics.PublishFailed()
		return domain.Vote{}, fmt.Errorf("%w: %w", domain.ErrPublishFailed, err)
	}

	s.metrics.VoteCast()
	s.logger.Debug("vote published",
		zap.String("vote_id", vote.ID),
		zap.String("option_id", vote.OptionID),
		zap.String("channel", s.cfg.Channel),
		zap.Int64("receivers", receivers),
	)

	return vote, nil
}
