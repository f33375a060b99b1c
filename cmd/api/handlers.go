package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"debate-arena/internal/domain"
	httpinfra "debate-arena/internal/infra/http"
	debateuc "debate-arena/internal/usecase/debate"
	feeduc "debate-arena/internal/usecase/feed"
	trustuc "debate-arena/internal/usecase/trust"
	voteuc "debate-arena/internal/usecase/vote"
)

type handlers struct {
	debates     *debateuc.Service
	votes       *voteuc.Service
	trust       *trustuc.Service
	feed        *feeduc.Service
	users       domain.UserRepo
	log         zerolog.Logger
	leaderboard int
	pageSize    int
}

func (h *handlers) routes(r chi.Router) {
	r.Post("/api/v1/users", h.createUser)
	r.Get("/api/v1/users/{id}/trust", h.trustBreakdown)
	r.Post("/api/v1/users/{id}/trust/recalculate", h.trustRecalculate)
	r.Get("/api/v1/users/{id}/debates", h.listDebates)
	r.Get("/api/v1/leaderboard", h.leaderboardTop)

	r.Get("/api/v1/debates/{id}", h.getDebate)
	r.Get("/api/v1/debates/{id}/turn", h.debateTurn)
	r.Get("/api/v1/debates/{id}/arguments", h.listArguments)
	r.Get("/api/v1/debates/{id}/votes", h.voteTotals)
	r.Get("/api/v1/posts/{id}", h.getPost)

	r.Group(func(protected chi.Router) {
		protected.Use(httpinfra.RequireUser)

		protected.Post("/api/v1/debates", h.createChallenge)
		protected.Post("/api/v1/debates/{id}/accept", h.acceptChallenge)
		protected.Post("/api/v1/debates/{id}/decline", h.declineChallenge)
		protected.Post("/api/v1/debates/{id}/arguments", h.submitArgument)
		protected.Post("/api/v1/debates/{id}/votes", h.castVote)

		protected.Post("/api/v1/posts", h.createPost)
		protected.Post("/api/v1/posts/{id}/factcheck", h.requestPostCheck)
		protected.Post("/api/v1/arguments/{id}/factcheck", h.requestArgumentCheck)
	})
}

// writeDomainError переводит таксономию ошибок ядра в HTTP статусы.
func (h *handlers) writeDomainError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		httpinfra.WriteError(w, http.StatusNotFound, err.Error())
	case domain.KindInvalidArgument:
		httpinfra.WriteError(w, http.StatusBadRequest, err.Error())
	case domain.KindIllegalState:
		httpinfra.WriteError(w, http.StatusConflict, err.Error())
	case domain.KindUnavailable:
		httpinfra.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error().Err(err).Msg("api: внутренняя ошибка")
		httpinfra.WriteError(w, http.StatusInternalServerError, "внутренняя ошибка")
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

type userResponse struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	TrustScore float64 `json:"trust_score"`
	Tier       string  `json:"tier"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, TrustScore: u.TrustScore, Tier: string(u.Tier())}
}

type debateResponse struct {
	ID              int64      `json:"id"`
	ChallengerID    int64      `json:"challenger_id"`
	DefenderID      int64      `json:"defender_id"`
	Topic           string     `json:"topic"`
	Status          string     `json:"status"`
	CurrentRound    int        `json:"current_round"`
	WhoseTurnID     *int64     `json:"whose_turn_id,omitempty"`
	WinnerID        *int64     `json:"winner_id,omitempty"`
	VotesChallenger int        `json:"votes_challenger"`
	VotesDefender   int        `json:"votes_defender"`
	VotesTie        int        `json:"votes_tie"`
	VotingEndsAt    *time.Time `json:"voting_ends_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toDebateResponse(d domain.Debate) debateResponse {
	return debateResponse{
		ID:              d.ID,
		ChallengerID:    d.ChallengerID,
		DefenderID:      d.DefenderID,
		Topic:           d.Topic,
		Status:          string(d.Status),
		CurrentRound:    d.CurrentRound,
		WhoseTurnID:     d.WhoseTurnID,
		WinnerID:        d.WinnerID,
		VotesChallenger: d.VotesChallenger,
		VotesDefender:   d.VotesDefender,
		VotesTie:        d.VotesTie,
		VotingEndsAt:    d.VotingEndsAt,
		CreatedAt:       d.CreatedAt,
	}
}

type argumentResponse struct {
	ID              int64     `json:"id"`
	DebateID        int64     `json:"debate_id"`
	UserID          int64     `json:"user_id"`
	RoundNumber     int       `json:"round_number"`
	Content         string    `json:"content"`
	FactCheckStatus string    `json:"fact_check_status"`
	FactCheckScore  *float64  `json:"fact_check_score,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toArgumentResponse(a domain.DebateArgument) argumentResponse {
	return argumentResponse{
		ID:              a.ID,
		DebateID:        a.DebateID,
		UserID:          a.UserID,
		RoundNumber:     a.RoundNumber,
		Content:         a.Content,
		FactCheckStatus: string(a.FactCheckStatus),
		FactCheckScore:  a.FactCheckScore,
		CreatedAt:       a.CreatedAt,
	}
}

type postResponse struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Content         string    `json:"content"`
	FactCheckStatus string    `json:"fact_check_status"`
	FactCheckScore  *float64  `json:"fact_check_score,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toPostResponse(p domain.Post) postResponse {
	return postResponse{
		ID:              p.ID,
		UserID:          p.UserID,
		Content:         p.Content,
		FactCheckStatus: string(p.FactCheckStatus),
		FactCheckScore:  p.FactCheckScore,
		CreatedAt:       p.CreatedAt,
	}
}

func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		httpinfra.WriteError(w, http.StatusBadRequest, "требуется username")
		return
	}
	user, err := h.users.CreateUser(r.Context(), req.Username)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *handlers) trustBreakdown(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	breakdown, err := h.trust.GetBreakdown(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, breakdown)
}

func (h *handlers) trustRecalculate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	user, err := h.trust.Recalculate(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *handlers) leaderboardTop(w http.ResponseWriter, r *http.Request) {
	users, err := h.trust.Leaderboard(r.Context(), h.leaderboard)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	httpinfra.WriteJSON(w, http.StatusOK, resp)
}

func (h *handlers) createChallenge(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	actorID, err := httpinfra.ActingUser(r)
	if err != nil {
		httpinfra.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var req struct {
		DefenderID int64  `json:"defender_id"`
		Topic      string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	debate, err := h.debates.CreateChallenge(r.Context(), actorID, req.DefenderID, req.Topic)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, toDebateResponse(debate))
}

func (h *handlers) getDebate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	debate, err := h.debates.GetDebate(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, toDebateResponse(debate))
}

func (h *handlers) listDebates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	debates, err := h.debates.ListForUser(r.Context(), id, h.pageSize, offset)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp := make([]debateResponse, 0, len(debates))
	for _, d := range debates {
		resp = append(resp, toDebateResponse(d))
	}
	httpinfra.WriteJSON(w, http.StatusOK, resp)
}

func (h *handlers) acceptChallenge(w http.ResponseWriter, r *http.Request) {
	h.respondToChallenge(w, r, h.debates.AcceptChallenge)
}

func (h *handlers) declineChallenge(w http.ResponseWriter, r *http.Request) {
	h.respondToChallenge(w, r, h.debates.DeclineChallenge)
}

func (h *handlers) respondToChallenge(w http.ResponseWriter, r *http.Request, respond func(ctx context.Context, debateID, userID int64) (domain.Debate, error)) {
	actorID, err := httpinfra.ActingUser(r)
	if err != nil {
		httpinfra.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	debate, err := respond(r.Context(), id, actorID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, toDebateResponse(debate))
}

func (h *handlers) submitArgument(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	actorID, err := httpinfra.ActingUser(r)
	if err != nil {
		httpinfra.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	debate, arg, err := h.debates.SubmitArgument(r.Context(), id, actorID, req.Content)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, map[string]any{
		"debate":   toDebateResponse(debate),
		"argument": toArgumentResponse(arg),
	})
}

func (h *handlers) listArguments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	debate, err := h.debates.GetDebate(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	args, err := h.debates.ArgumentsFor(r.Context(), debate.ID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp := make([]argumentResponse, 0, len(args))
	for _, a := range args {
		resp = append(resp, toArgumentResponse(a))
	}
	httpinfra.WriteJSON(w, http.StatusOK, resp)
}

func (h *handlers) debateTurn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	turn, err := h.debates.ExpectedTurnFor(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	round, err := h.debates.RoundStatusFor(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{
		"whose_turn_id":     turn,
		"round":             round.Round,
		"challenger_argued": round.ChallengerArgued,
		"defender_argued":   round.DefenderArgued,
		"round_complete":    round.Complete,
	})
}

func (h *handlers) castVote(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	actorID, err := httpinfra.ActingUser(r)
	if err != nil {
		httpinfra.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	var req struct {
		Choice string `json:"choice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	debate, err := h.votes.CastVote(r.Context(), id, actorID, domain.VoteChoice(req.Choice))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, toDebateResponse(debate))
}

func (h *handlers) voteTotals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	totals, err := h.votes.Totals(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{
		"challenger": totals.Challenger,
		"defender":   totals.Defender,
		"tie":        totals.Tie,
		"total":      totals.Total(),
	})
}

func (h *handlers) createPost(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	actorID, err := httpinfra.ActingUser(r)
	if err != nil {
		httpinfra.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	post, err := h.feed.CreatePost(r.Context(), actorID, req.Content)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, toPostResponse(post))
}

func (h *handlers) getPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	post, err := h.feed.GetPost(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, toPostResponse(post))
}

func (h *handlers) requestPostCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	job, err := h.feed.RequestPostCheck(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusAccepted, job)
}

func (h *handlers) requestArgumentCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpinfra.WriteError(w, http.StatusBadRequest, "некорректный идентификатор")
		return
	}
	job, err := h.feed.RequestArgumentCheck(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusAccepted, job)
}
