package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreloop/internal/model"
	"github.com/dukerupert/choreloop/internal/profile"
	ws "github.com/dukerupert/choreloop/internal/websocket"
)

type ProfileHandler struct {
	sessions *Sessions
	logger   *slog.Logger
}

func NewProfileHandler(sessions *Sessions, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{sessions: sessions, logger: logger}
}

type profileResponse struct {
	EffectiveOwner string   `json:"effective_owner"`
	Profiles       []string `json:"profiles"`
}

func (h *ProfileHandler) current(w http.ResponseWriter, r *http.Request, res *profile.Resolver) {
	owner, err := res.EffectiveOwner()
	if err != nil {
		writeError(w, h.logger, "resolve profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{EffectiveOwner: owner, Profiles: res.Profiles()})
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, res, err := h.sessions.resolve(r)
	if err != nil {
		writeError(w, h.logger, "load session", err)
		return
	}
	h.current(w, r, res)
}

type selectProfileRequest struct {
	Name string `json:"name"`
}

func (h *ProfileHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, res, err := h.sessions.resolve(r)
	if err != nil {
		writeError(w, h.logger, "load session", err)
		return
	}
	if err := res.SetEffectiveOwner(req.Name); err != nil {
		writeError(w, h.logger, "select profile", err)
		return
	}
	h.current(w, r, res)
}

// Options lists the owners a task can be created with.
func (h *ProfileHandler) Options(w http.ResponseWriter, r *http.Request) {
	u, err := h.sessions.user(r)
	if err != nil {
		writeError(w, h.logger, "get account", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"options": profile.OwnerOptions(u)})
}

func accountChanged(u *model.User) ws.Message {
	return ws.NewMessage("account", "updated", u.ID, map[string]any{"profiles": profile.Profiles(u)})
}
