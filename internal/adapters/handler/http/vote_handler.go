package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/vncsmyrnk/voting-api/internal/core/domain"
	"github.com/vncsmyrnk/voting-api/internal/core/ports"
	"github.com/vncsmyrnk/voting-api/internal/metrics"
	"go.uber.org/zap"
)

const VoteCookieName = "vote_id"

type CookieOptions struct {
	MaxAge int
	Secure bool
}

type VoteHandler struct {
	service ports.VoteService
	cookie  CookieOptions
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewVoteHandler(service ports.VoteService, cookie CookieOptions, m *metrics.Metrics, logger *zap.Logger) *VoteHandler {
	return &VoteHandler{
		service: service,
		cookie:  cookie,
		metrics: m,
		logger:  logger,
	}
}

type voteResponse struct {
	Message string `json:"message"`
}

// Vote godoc
// @Summary      Casts a vote
// @Description  Publishes the vote to the votes channel and sets the vote_id cookie. Requests already carrying the cookie are rejected.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      400
// @Failure      500
// @Router       /vote [post]
func (h *VoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
	if hasVoteCookie(r) {
		h.metrics.VoteRejected(metrics.ReasonDuplicate)
		h.logger.Debug("rejecting vote",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(domain.ErrAlreadyVoted),
		)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	optionID, err := decodeVoteRequest(r.Body)
	if err != nil {
		h.metrics.VoteRejected(metrics.ReasonMalformed)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	vote, err := h.service.Cast(r.Context(), optionID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidVote) {
			h.metrics.VoteRejected(metrics.ReasonMalformed)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		h.logger.Error("vote publish failed",
			zap.String("option_id", optionID),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		http.Error(w, domain.ErrPublishFailed.Error(), http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     VoteCookieName,
		Value:    vote.ID,
		Path:     "/",
		MaxAge:   h.cookie.MaxAge,
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(voteResponse{Message: "SUCCESS"}); err != nil {
		h.logger.Warn("failed to encode vote response", zap.Error(err))
	}
}

// hasVoteCookie reports whether the request carries a vote_id cookie, whatever
// its value. Header lines are scanned directly because net/http drops cookies
// whose values it cannot parse.
func hasVoteCookie(r *http.Request) bool {
	for _, line := range r.Header.Values("Cookie") {
		for _, part := range strings.Split(line, ";") {
			name, _, _ := strings.Cut(strings.TrimSpace(part), "=")
			if strings.TrimSpace(name) == VoteCookieName {
				return true
			}
		}
	}
	return false
}

// decodeVoteRequest expects exactly one JSON object with a string "optionId"
// key. The key is matched case-sensitively and the value is returned as is.
func decodeVoteRequest(body io.Reader) (string, error) {
	if body == nil {
		return "", domain.ErrInvalidVote
	}

	dec := json.NewDecoder(body)
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return "", errors.Join(domain.ErrInvalidVote, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return "", domain.ErrInvalidVote
	}

	raw, ok := fields["optionId"]
	if !ok {
		return "", domain.ErrInvalidVote
	}
	var optionID *string
	if err := json.Unmarshal(raw, &optionID); err != nil {
		return "", errors.Join(domain.ErrInvalidVote, err)
	}
	if optionID == nil {
		return "", domain.ErrInvalidVote
	}

	return *optionID, nil
}
