package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreloop/internal/archive"
	"github.com/dukerupert/choreloop/internal/auth"
	"github.com/dukerupert/choreloop/internal/export"
	ws "github.com/dukerupert/choreloop/internal/websocket"
)

type HistoryHandler struct {
	archiver *archive.Archiver
	exporter *export.Exporter
	hub      *ws.Hub
	logger   *slog.Logger
}

func NewHistoryHandler(archiver *archive.Archiver, exporter *export.Exporter, hub *ws.Hub, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{archiver: archiver, exporter: exporter, hub: hub, logger: logger}
}

// ExportStatus reports the outcome of the last copy to object storage.
func (h *HistoryHandler) ExportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.exporter.Status())
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.archiver.List(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, "list history", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// StartCycle archives completed tasks and returns them to the pool.
func (h *HistoryHandler) StartCycle(w http.ResponseWriter, r *http.Request) {
	principal := auth.UserID(r.Context())

	rec, err := h.archiver.StartNewCycle(r.Context(), principal)
	if err != nil {
		writeError(w, h.logger, "start new cycle", err)
		return
	}

	h.hub.Broadcast(principal, ws.NewMessage("history", "created", rec.ID, nil))
	h.hub.Broadcast(principal, ws.NewMessage("task", "reset", "", nil))
	writeJSON(w, http.StatusCreated, rec)
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h *HistoryHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	principal := auth.UserID(r.Context())
	rec, err := h.archiver.SetNote(r.Context(), principal, r.PathValue("id"), req.Note)
	if err != nil {
		writeError(w, h.logger, "set note", err)
		return
	}

	h.hub.Broadcast(principal, ws.NewMessage("history", "updated", rec.ID, nil))
	writeJSON(w, http.StatusOK, rec)
}

func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := auth.UserID(r.Context())
	id := r.PathValue("id")

	if err := h.archiver.DeleteRecord(r.Context(), principal, id); err != nil {
		writeError(w, h.logger, "delete history record", err)
		return
	}

	h.hub.Broadcast(principal, ws.NewMessage("history", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
