package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/choreloop/internal/auth"
	"github.com/dukerupert/choreloop/internal/profile"
	"github.com/dukerupert/choreloop/internal/task"
)

type PointsHandler struct {
	engine   *task.Engine
	sessions *Sessions
	logger   *slog.Logger
}

func NewPointsHandler(engine *task.Engine, sessions *Sessions, logger *slog.Logger) *PointsHandler {
	return &PointsHandler{engine: engine, sessions: sessions, logger: logger}
}

// Leaderboard lists every household member with their current points.
func (h *PointsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	u, err := h.sessions.user(r)
	if err != nil {
		writeError(w, h.logger, "get account", err)
		return
	}

	board, err := h.engine.Leaderboard(u.ID, profile.Profiles(u))
	if err != nil {
		writeError(w, h.logger, "leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *PointsHandler) ForOwner(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.PathValue("owner"))
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner is required"})
		return
	}

	points, err := h.engine.Points(auth.UserID(r.Context()), owner)
	if err != nil {
		writeError(w, h.logger, "points", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owner": owner, "points": points})
}
