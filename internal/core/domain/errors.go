package domain

import "errors"

var (
	ErrAlreadyVoted  = errors.New("client has already voted")
	ErrInvalidVote   = errors.New("invalid vote payload")
	ErrPublishFailed = errors.New("failed to publish vote")
)
