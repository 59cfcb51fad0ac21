// Package archive closes a chore cycle: it snapshots completed work into a
// history record and returns those tasks to the shared pool.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/choreloop/internal/apperror"
	"github.com/dukerupert/choreloop/internal/model"
	"github.com/dukerupert/choreloop/internal/sanitize"
)

const maxNoteLength = 2000

// TaskSource is the task persistence the archiver drains.
type TaskSource interface {
	List(userID string) ([]model.Task, error)
	ResetBatch(ids []string) error
}

// RecordStore persists history records. store.HistoryStore satisfies it.
type RecordStore interface {
	Create(userID string, date time.Time, tasksByOwner map[string][]string, pointsByOwner map[string]int, taskIDs []string) (*model.HistoryRecord, error)
	GetByID(id string) (*model.HistoryRecord, error)
	List(userID string) ([]model.HistoryRecord, error)
	ListResetPending(userID string) ([]model.HistoryRecord, error)
	MarkReset(id string) error
	SetNote(id, note string) (*model.HistoryRecord, error)
	Delete(id string) (bool, error)
}

// Sink receives a copy of each finished record.
type Sink interface {
	Export(ctx context.Context, r *model.HistoryRecord) error
	Delete(ctx context.Context, userID, recordID string) error
}

// ResetPendingError means the record was saved but its tasks were not
// reset. The next StartNewCycle or ResumePending retries the same tasks.
type ResetPendingError struct {
	RecordID string
	Err      error
}

func (e *ResetPendingError) Error() string {
	return fmt.Sprintf("history record %s saved but task reset failed: %v", e.RecordID, e.Err)
}

func (e *ResetPendingError) Unwrap() error {
	return e.Err
}

type Archiver struct {
	tasks   TaskSource
	records RecordStore
	sink    Sink
	logger  *slog.Logger
	now     func() time.Time
}

// New builds an Archiver. sink may be nil.
func New(tasks TaskSource, records RecordStore, sink Sink, logger *slog.Logger) *Archiver {
	return &Archiver{tasks: tasks, records: records, sink: sink, logger: logger, now: time.Now}
}

// StartNewCycle records every completed task of the principal, grouped by
// owner, then resets them. A cycle with nothing completed still produces an
// (empty) record. When an earlier cycle was left half done, finishing it is
// the whole call and that record is returned instead of a new one.
func (a *Archiver) StartNewCycle(ctx context.Context, principal string) (*model.HistoryRecord, error) {
	resumed, err := a.ResumePending(ctx, principal)
	if err != nil {
		return nil, err
	}
	if resumed != nil {
		return resumed, nil
	}

	tasks, err := a.tasks.List(principal)
	if err != nil {
		return nil, apperror.Unavailable("list tasks", err)
	}

	tasksByOwner := make(map[string][]string)
	pointsByOwner := make(map[string]int)
	ids := []string{}
	for _, t := range tasks {
		st := t.State()
		if st.Kind != model.StateCompleted {
			continue
		}
		tasksByOwner[st.Name] = append(tasksByOwner[st.Name], t.Description)
		pointsByOwner[st.Name] += t.Points
		ids = append(ids, t.ID)
	}

	rec, err := a.records.Create(principal, a.now().UTC(), tasksByOwner, pointsByOwner, ids)
	if err != nil {
		return nil, apperror.Unavailable("create history record", err)
	}

	if err := a.finish(rec, ids); err != nil {
		return nil, err
	}
	a.logger.Info("cycle archived", "record_id", rec.ID, "tasks", len(ids), "owners", len(tasksByOwner))

	if a.sink != nil {
		if err := a.sink.Export(ctx, rec); err != nil {
			a.logger.Warn("export history record", "record_id", rec.ID, "error", err)
		}
	}
	return rec, nil
}

func (a *Archiver) finish(rec *model.HistoryRecord, ids []string) error {
	if err := a.tasks.ResetBatch(ids); err != nil {
		a.logger.Error("reset archived tasks", "record_id", rec.ID, "error", err)
		return &ResetPendingError{RecordID: rec.ID, Err: err}
	}
	if err := a.records.MarkReset(rec.ID); err != nil {
		a.logger.Error("mark record reset", "record_id", rec.ID, "error", err)
		return &ResetPendingError{RecordID: rec.ID, Err: err}
	}
	rec.ResetPending = false
	return nil
}

// ResumePending retries the reset of earlier records whose tasks were never
// reset and returns the newest record it finished, or nil when nothing was
// pending. Only tasks still completed from before the record was taken are
// touched, so work done since then is kept.
func (a *Archiver) ResumePending(ctx context.Context, principal string) (*model.HistoryRecord, error) {
	pending, err := a.records.ListResetPending(principal)
	if err != nil {
		return nil, apperror.Unavailable("list pending resets", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	tasks, err := a.tasks.List(principal)
	if err != nil {
		return nil, apperror.Unavailable("list tasks", err)
	}
	byID := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var newest *model.HistoryRecord
	for i := range pending {
		rec := &pending[i]
		ids := make([]string, 0, len(rec.TaskIDs))
		for _, id := range rec.TaskIDs {
			t, ok := byID[id]
			if !ok || t.State().Kind != model.StateCompleted {
				continue
			}
			if t.CompletedAt != nil && t.CompletedAt.After(rec.Date) {
				continue
			}
			ids = append(ids, id)
		}
		if err := a.finish(rec, ids); err != nil {
			return nil, err
		}
		a.logger.Info("resumed pending reset", "record_id", rec.ID, "tasks", len(ids))
		if a.sink != nil {
			if err := a.sink.Export(ctx, rec); err != nil {
				a.logger.Warn("export history record", "record_id", rec.ID, "error", err)
			}
		}
		if newest == nil || rec.Date.After(newest.Date) {
			newest = rec
		}
	}
	return newest, nil
}

// List returns the principal's records, newest first.
func (a *Archiver) List(principal string) ([]model.HistoryRecord, error) {
	records, err := a.records.List(principal)
	if err != nil {
		return nil, apperror.Unavailable("list history", err)
	}
	if records == nil {
		records = []model.HistoryRecord{}
	}
	return records, nil
}

func (a *Archiver) Get(principal, id string) (*model.HistoryRecord, error) {
	rec, err := a.records.GetByID(id)
	if err != nil {
		return nil, apperror.Unavailable("get history record", err)
	}
	if rec == nil || rec.UserID != principal {
		return nil, apperror.ErrNotFound
	}
	return rec, nil
}

// DeleteRecord removes a record permanently, including its exported copy.
func (a *Archiver) DeleteRecord(ctx context.Context, principal, id string) error {
	if _, err := a.Get(principal, id); err != nil {
		return err
	}
	deleted, err := a.records.Delete(id)
	if err != nil {
		return apperror.Unavailable("delete history record", err)
	}
	if !deleted {
		return apperror.ErrNotFound
	}
	a.logger.Info("history record deleted", "record_id", id)

	if a.sink != nil {
		if err := a.sink.Delete(ctx, principal, id); err != nil {
			a.logger.Warn("delete exported record", "record_id", id, "error", err)
		}
	}
	return nil
}

// SetNote replaces the free-text note. Markup is stripped.
func (a *Archiver) SetNote(ctx context.Context, principal, id, text string) (*model.HistoryRecord, error) {
	note := sanitize.Text(text)
	if utf8.RuneCountInString(note) > maxNoteLength {
		return nil, apperror.Invalid("note", fmt.Sprintf("must be at most %d characters", maxNoteLength))
	}
	if _, err := a.Get(principal, id); err != nil {
		return nil, err
	}

	rec, err := a.records.SetNote(id, note)
	if err != nil {
		return nil, apperror.Unavailable("set note", err)
	}
	if rec == nil {
		return nil, apperror.ErrNotFound
	}

	if a.sink != nil && !rec.ResetPending {
		if err := a.sink.Export(ctx, rec); err != nil {
			a.logger.Warn("export history record", "record_id", rec.ID, "error", err)
		}
	}
	return rec, nil
}
