package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreloop/internal/apperror"
	"github.com/dukerupert/choreloop/internal/archive"
	"github.com/dukerupert/choreloop/internal/task"
)

// errUnknownAccount means a valid token names an account that no longer exists.
var errUnknownAccount = errors.New("account no longer exists")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return false
	}
	return true
}

// writeError maps an operation error onto a JSON response. Server-side
// failures are logged here, at the boundary.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	var bulk *task.BulkResetError
	if errors.As(err, &bulk) {
		logger.Error(op, "error", err, "failed", bulk.Failed)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  "some tasks could not be reset",
			"failed": bulk.Failed,
			"reset":  bulk.Reset,
		})
		return
	}

	var pending *archive.ResetPendingError
	if errors.As(err, &pending) {
		logger.Error(op, "error", err, "record_id", pending.RecordID)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":     "history saved but tasks were not reset, try again",
			"record_id": pending.RecordID,
		})
		return
	}

	if errors.Is(err, errUnknownAccount) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	status, msg := apperror.Status(err)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error(op, "error", err)
	case apperror.IsValidation(err):
		logger.Debug(op+" rejected", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
