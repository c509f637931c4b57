package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"duel-tracker/internal/config"
	"duel-tracker/internal/domain"
	"duel-tracker/internal/middleware"
	"duel-tracker/internal/rating"
	"duel-tracker/internal/repository"
	"duel-tracker/internal/service"
)

// Handler is the boundary the chat-command layer talks to. It translates
// HTTP into core operations and error kinds into status codes; it holds no
// ranking logic of its own.
type Handler struct {
	duels       *service.DuelService
	players     *service.PlayerService
	maintenance *service.MaintenanceService
	snapshots   *repository.SnapshotRepository
	adminToken  string
	logger      zerolog.Logger
}

func New(
	duels *service.DuelService,
	players *service.PlayerService,
	maintenance *service.MaintenanceService,
	snapshots *repository.SnapshotRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		duels:       duels,
		players:     players,
		maintenance: maintenance,
		snapshots:   snapshots,
		adminToken:  cfg.AdminToken,
		logger:      logger,
	}
}

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID(h.logger))

	r.Get("/health", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/duels", h.resolveDuel)
		r.Get("/players/{id}/rating", h.getRating)
		r.Get("/players/{id}/history", h.getHistory)
		r.Get("/players/{id}/rating-history", h.getRatingHistory)
		r.Get("/leaderboard", h.getLeaderboard)
		r.Get("/tiers", h.getTiers)
		r.Get("/snapshots/{month}", h.getSnapshot)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminOnly(h.adminToken, h.logger))

			r.Post("/duels/force", h.forceDuel)
			r.Post("/duels/{id}/flag", h.flagDuel)
			r.Delete("/duels/{id}/flag", h.unflagDuel)
			r.Put("/players/{id}/rating", h.setRating)
			r.Post("/players/{id}/rating/adjust", h.adjustRating)
			r.Post("/players/{id}/rating/reset", h.resetRating)
			r.Post("/maintenance/monthly", h.runMonthly)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: "ok"})
}

// An absent margin means 1; an explicit value, zero included, is passed
// through so the service can reject non-positive margins.
func marginOrDefault(m *int) int {
	if m == nil {
		return 1
	}
	return *m
}

type resolveDuelRequest struct {
	Challenger string   `json:"challenger"`
	Opponents  []string `json:"opponents"`
	Outcome    string   `json:"outcome"`
	Margin     *int     `json:"margin"`
}

func (h *Handler) resolveDuel(w http.ResponseWriter, r *http.Request) {
	var req resolveDuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrValidation)
		return
	}

	result, err := h.duels.Resolve(r.Context(), req.Challenger, req.Opponents, req.Outcome, marginOrDefault(req.Margin))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: result})
}

type forceDuelRequest struct {
	Winner  string `json:"winner"`
	Loser   string `json:"loser"`
	Outcome string `json:"outcome"`
	Margin  *int   `json:"margin"`
}

func (h *Handler) forceDuel(w http.ResponseWriter, r *http.Request) {
	var req forceDuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrValidation)
		return
	}

	result, err := h.duels.ForceResolve(r.Context(), req.Winner, req.Loser, req.Outcome, marginOrDefault(req.Margin))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: result})
}

func (h *Handler) getRating(w http.ResponseWriter, r *http.Request) {
	p, err := h.players.Rating(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: p})
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	duels, err := h.players.History(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: duels})
}

func (h *Handler) getRatingHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	changes, err := h.players.RatingHistory(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: changes})
}

func (h *Handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("top"))
	standings, err := h.players.Leaderboard(r.Context(), n)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: standings})
}

func (h *Handler) getTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: rating.Tiers()})
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	entries, err := h.snapshots.TopForMonth(r.Context(), chi.URLParam(r, "month"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: entries})
}

func (h *Handler) flagDuel(w http.ResponseWriter, r *http.Request) {
	h.setDuelFlag(w, r, true)
}

func (h *Handler) unflagDuel(w http.ResponseWriter, r *http.Request) {
	h.setDuelFlag(w, r, false)
}

func (h *Handler) setDuelFlag(w http.ResponseWriter, r *http.Request, flagged bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, domain.ErrValidation)
		return
	}

	if flagged {
		err = h.players.FlagDuel(r.Context(), id)
	} else {
		err = h.players.UnflagDuel(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

type setRatingRequest struct {
	Rating int `json:"rating"`
}

func (h *Handler) setRating(w http.ResponseWriter, r *http.Request) {
	var req setRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrValidation)
		return
	}

	p, err := h.players.SetRating(r.Context(), chi.URLParam(r, "id"), req.Rating)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: p})
}

type adjustRatingRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) adjustRating(w http.ResponseWriter, r *http.Request) {
	var req adjustRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrValidation)
		return
	}

	p, err := h.players.AdjustRating(r.Context(), chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: p})
}

func (h *Handler) resetRating(w http.ResponseWriter, r *http.Request) {
	p, err := h.players.ResetRating(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: p})
}

func (h *Handler) runMonthly(w http.ResponseWriter, r *http.Request) {
	ran, err := h.maintenance.RunMonthly(r.Context(), true)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]bool{"ran": ran}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrRematchTooSoon):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= 500 {
		h.logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, apiResponse{Success: false, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
