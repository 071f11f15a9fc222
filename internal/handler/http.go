package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arcade-highscores/internal/domain"
	"github.com/arcade-highscores/internal/service"
	"github.com/arcade-highscores/internal/websocket"
)

var errInternal = errors.New("internal server error")

// Handler provides HTTP handlers for the high-score API
type Handler struct {
	service *service.LedgerService
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.LedgerService, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	r.MethodNotAllowed(h.methodNotAllowed)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Score operations
		r.Post("/scores", h.SubmitScore)
		r.Get("/scores", h.GetScores)
		r.Get("/scores/recent", h.GetRecentScores)

		// Game catalog
		r.Route("/games", func(r chi.Router) {
			r.Get("/", h.ListGames)

			r.Route("/{gameSlug}", func(r chi.Router) {
				r.Get("/", h.GetGame)
				r.Get("/scores", h.GetGameScores)
				r.Get("/stats", h.GetGameStats)
			})
		})

		// Cross-game views
		r.Get("/players/top", h.GetTopPlayers)
		r.Get("/stats", h.GetTotals)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers; preflight requests get 204
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// methodNotAllowed writes the JSON 405 payload
func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// SubmitScore handles score submission
func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	var input domain.SubmissionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid JSON data"))
		return
	}

	result, err := h.service.SubmitScore(r.Context(), input)
	if err != nil {
		cause := err
		var subErr *domain.SubmissionError
		if errors.As(err, &subErr) {
			cause = subErr.Cause
		}

		switch {
		case domain.IsValidationError(cause), errors.Is(cause, domain.ErrForeignKeyViolation):
			h.writeError(w, http.StatusBadRequest, cause)
		default:
			h.logger.Error("failed to submit score", "error", err)
			h.writeError(w, http.StatusInternalServerError, errInternal)
		}
		return
	}

	h.writeSuccess(w, result)
}

// GetScores returns a paginated score listing, optionally filtered by game
func (h *Handler) GetScores(w http.ResponseWriter, r *http.Request) {
	gameSlug := r.URL.Query().Get("game")
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	h.respondScores(w, r, gameSlug, limit, offset)
}

// GetGameScores returns a paginated score listing for one game
func (h *Handler) GetGameScores(w http.ResponseWriter, r *http.Request) {
	gameSlug := chi.URLParam(r, "gameSlug")
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	h.respondScores(w, r, gameSlug, limit, offset)
}

func (h *Handler) respondScores(w http.ResponseWriter, r *http.Request, gameSlug string, limit, offset int) {
	page, err := h.service.GetScores(r.Context(), gameSlug, limit, offset)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownGame) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.logger.Error("failed to get scores", "error", err)
		h.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	h.writeSuccess(w, page)
}

// GetRecentScores returns the recent-submissions feed
func (h *Handler) GetRecentScores(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)

	scores, err := h.service.RecentScores(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to get recent scores", "error", err)
		h.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	h.writeSuccess(w, scores)
}

// ListGames returns the catalog with per-game aggregates
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.Games(r.Context())
	if err != nil {
		h.logger.Error("failed to list games", "error", err)
		h.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	h.writeSuccess(w, games)
}

// GetGame returns a catalog entry with its score statistics
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameSlug := chi.URLParam(r, "gameSlug")

	game, ok := h.service.Game(gameSlug)
	if !ok {
		h.writeError(w, http.StatusBadRequest, domain.ErrUnknownGame)
		return
	}

	stats, err := h.service.GameStats(r.Context(), gameSlug)
	if err != nil {
		h.logger.Error("failed to get game stats", "error", err)
		h.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	h.writeSuccess(w, map[string]interface{}{
		"game":  game,
		"stats": stats,
	})
}

// GetGameStats returns score statistics for a game
func (h *Handler) GetGameStats(w http.ResponseWriter, r *http.Request) {
	gameSlug := chi.URLParam(r, "gameSlug")

	stats, err := h.service.GameStats(r.Context(), gameSlug)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownGame) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.logger.Error("failed to get game stats", "error", err)
		h.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	h.writeSuccess(w, stats)
}

// GetTopPlayers returns the best score per player across games
func (h *Handler) GetTopPlayers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)

	standings, err := h.service.TopPlayers(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to get top players", "error", err)
		h.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	h.writeSuccess(w, standings)
}

// GetTotals returns ledger-wide score and player counts
func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.GlobalTotals(r.Context())
	if err != nil {
		h.logger.Error("failed to get totals", "error", err)
		h.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	h.writeSuccess(w, totals)
}

// queryInt parses an integer query parameter, falling back to def
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
