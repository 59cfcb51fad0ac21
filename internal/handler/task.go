package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreloop/internal/auth"
	"github.com/dukerupert/choreloop/internal/model"
	"github.com/dukerupert/choreloop/internal/profile"
	"github.com/dukerupert/choreloop/internal/task"
	ws "github.com/dukerupert/choreloop/internal/websocket"
)

type TaskHandler struct {
	engine   *task.Engine
	sessions *Sessions
	hub      *ws.Hub
	logger   *slog.Logger
}

func NewTaskHandler(engine *task.Engine, sessions *Sessions, hub *ws.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{engine: engine, sessions: sessions, hub: hub, logger: logger}
}

// taskView adds the owner a task is shown under for the active profile.
type taskView struct {
	model.Task
	State        string `json:"state"`
	DisplayOwner string `json:"display_owner"`
}

func views(tasks []model.Task, effective string) []taskView {
	out := make([]taskView, len(tasks))
	for i, t := range tasks {
		out[i] = taskView{Task: t, State: t.State().Kind.String(), DisplayOwner: task.DisplayOwner(t, effective)}
	}
	return out
}

// List serves ?view=visible (default), pending, completed or all.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := auth.UserID(r.Context())

	_, res, err := h.sessions.resolve(r)
	if err != nil {
		writeError(w, h.logger, "load session", err)
		return
	}
	effective, err := res.EffectiveOwner()
	if err != nil {
		writeError(w, h.logger, "resolve profile", err)
		return
	}

	switch view := r.URL.Query().Get("view"); view {
	case "", "visible":
		tasks, err := h.engine.Visible(principal, effective)
		if err != nil {
			writeError(w, h.logger, "list visible tasks", err)
			return
		}
		writeJSON(w, http.StatusOK, views(tasks, effective))
	case "pending":
		tasks, err := h.engine.Pending(principal, effective)
		if err != nil {
			writeError(w, h.logger, "list pending tasks", err)
			return
		}
		writeJSON(w, http.StatusOK, views(tasks, effective))
	case "completed":
		groups, err := h.engine.CompletedByOwner(principal, effective)
		if err != nil {
			writeError(w, h.logger, "list completed tasks", err)
			return
		}
		writeJSON(w, http.StatusOK, groups)
	case "all":
		tasks, err := h.engine.List(principal)
		if err != nil {
			writeError(w, h.logger, "list tasks", err)
			return
		}
		writeJSON(w, http.StatusOK, views(tasks, effective))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown view " + view})
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.TaskInput
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.sessions.user(r)
	if err != nil {
		writeError(w, h.logger, "get account", err)
		return
	}

	principal := u.ID
	t, err := h.engine.Create(principal, profile.AssignableOwners(u), req)
	if err != nil {
		writeError(w, h.logger, "create task", err)
		return
	}

	h.hub.Broadcast(principal, ws.NewMessage("task", "created", t.ID, nil))
	writeJSON(w, http.StatusCreated, t)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.TaskFields
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.sessions.user(r)
	if err != nil {
		writeError(w, h.logger, "get account", err)
		return
	}

	principal := u.ID
	t, err := h.engine.Update(principal, profile.AssignableOwners(u), r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, "update task", err)
		return
	}

	h.hub.Broadcast(principal, ws.NewMessage("task", "updated", t.ID, nil))
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := auth.UserID(r.Context())
	id := r.PathValue("id")

	if err := h.engine.Delete(principal, id); err != nil {
		writeError(w, h.logger, "delete task", err)
		return
	}

	h.hub.Broadcast(principal, ws.NewMessage("task", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	principal := auth.UserID(r.Context())

	_, res, err := h.sessions.resolve(r)
	if err != nil {
		writeError(w, h.logger, "load session", err)
		return
	}

	t, err := h.engine.Complete(principal, res, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "complete task", err)
		return
	}

	h.hub.Broadcast(principal, ws.NewMessage("task", "completed", t.ID, map[string]any{
		"owner":  t.Owner,
		"points": t.Points,
	}))
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Reset(w http.ResponseWriter, r *http.Request) {
	principal := auth.UserID(r.Context())

	t, err := h.engine.Reset(principal, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "reset task", err)
		return
	}

	h.hub.Broadcast(principal, ws.NewMessage("task", "reset", t.ID, nil))
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	principal := auth.UserID(r.Context())

	ids, err := h.engine.ResetAll(principal)
	if len(ids) > 0 {
		h.hub.Broadcast(principal, ws.NewMessage("task", "reset", "", map[string]any{"count": len(ids)}))
	}
	if err != nil {
		writeError(w, h.logger, "reset all tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"reset": ids})
}
