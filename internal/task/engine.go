// Package task implements the ownership state machine for household tasks:
// who can see a task, who may claim it, and how it returns to the shared pool.
package task

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/choreloop/internal/apperror"
	"github.com/dukerupert/choreloop/internal/model"
)

// Repository is the persistence the engine needs. store.TaskStore satisfies it.
type Repository interface {
	List(userID string) ([]model.Task, error)
	GetByID(id string) (*model.Task, error)
	Create(userID string, in model.TaskInput) (*model.Task, error)
	// UpdateFields returns nil when the task is missing or when f.Owner would
	// change the owner of a task that is completed.
	UpdateFields(id string, f model.TaskFields) (*model.Task, error)
	Delete(id string) (bool, error)
	Complete(id, owner string, at time.Time) (bool, error)
	Reset(id string) (bool, error)
	ResetBatch(ids []string) error
}

// OwnerSource yields the profile active for the current session.
type OwnerSource interface {
	EffectiveOwner() (string, error)
}

var errOwnerLocked = apperror.Invalid("owner", "completed tasks keep their owner; reset the task instead")

// BulkResetError lists the tasks a reset-all could not return to the pool.
type BulkResetError struct {
	Failed []string
	Reset  []string
}

func (e *BulkResetError) Error() string {
	return fmt.Sprintf("reset failed for %d of %d tasks", len(e.Failed), len(e.Failed)+len(e.Reset))
}

type Engine struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(repo Repository, logger *slog.Logger) *Engine {
	return &Engine{repo: repo, logger: logger, now: time.Now}
}

func (e *Engine) List(principal string) ([]model.Task, error) {
	tasks, err := e.repo.List(principal)
	if err != nil {
		return nil, apperror.Unavailable("list tasks", err)
	}
	return tasks, nil
}

// Get returns the principal's task or ErrNotFound.
func (e *Engine) Get(principal, id string) (*model.Task, error) {
	t, err := e.repo.GetByID(id)
	if err != nil {
		return nil, apperror.Unavailable("get task", err)
	}
	if t == nil || t.UserID != principal {
		return nil, apperror.ErrNotFound
	}
	return t, nil
}

func (e *Engine) Visible(principal, effective string) ([]model.Task, error) {
	tasks, err := e.List(principal)
	if err != nil {
		return nil, err
	}
	return FilterVisible(tasks, principal, effective), nil
}

func (e *Engine) Pending(principal, effective string) ([]model.Task, error) {
	visible, err := e.Visible(principal, effective)
	if err != nil {
		return nil, err
	}
	return PendingTasks(visible), nil
}

func (e *Engine) CompletedByOwner(principal, effective string) ([]OwnerGroup, error) {
	visible, err := e.Visible(principal, effective)
	if err != nil {
		return nil, err
	}
	return GroupCompleted(visible), nil
}

// checkOwner accepts the shared sentinel or one of owners.
func checkOwner(owner string, owners []string) error {
	if model.IsSharedOwner(owner) || slices.Contains(owners, owner) {
		return nil
	}
	return apperror.Invalid("owner", "must be global or a household member")
}

func validateInput(in model.TaskInput, owners []string) (model.TaskInput, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.Owner = model.NormalizeOwner(strings.TrimSpace(in.Owner))
	if err := checkOwner(in.Owner, owners); err != nil {
		return in, err
	}
	if in.Description == "" {
		return in, apperror.Invalid("description", "is required")
	}
	if in.Points < 0 {
		return in, apperror.Invalid("points", "must not be negative")
	}
	if in.Periodicity < 1 {
		return in, apperror.Invalid("periodicity", "must be at least 1 day")
	}
	return in, nil
}

// Create adds a task. owners lists the names a task may be assigned to
// besides the shared pool.
func (e *Engine) Create(principal string, owners []string, in model.TaskInput) (*model.Task, error) {
	in, err := validateInput(in, owners)
	if err != nil {
		return nil, err
	}
	t, err := e.repo.Create(principal, in)
	if err != nil {
		return nil, apperror.Unavailable("create task", err)
	}
	e.logger.Info("task created", "task_id", t.ID, "owner", t.Owner)
	return t, nil
}

// Update merges the given fields. The owner of a completed task is fixed;
// it changes only through Reset and a new Complete.
func (e *Engine) Update(principal string, owners []string, id string, f model.TaskFields) (*model.Task, error) {
	existing, err := e.Get(principal, id)
	if err != nil {
		return nil, err
	}

	if f.Description != nil {
		d := strings.TrimSpace(*f.Description)
		if d == "" {
			return nil, apperror.Invalid("description", "is required")
		}
		f.Description = &d
	}
	if f.Points != nil && *f.Points < 0 {
		return nil, apperror.Invalid("points", "must not be negative")
	}
	if f.Periodicity != nil && *f.Periodicity < 1 {
		return nil, apperror.Invalid("periodicity", "must be at least 1 day")
	}
	if f.Owner != nil {
		o := model.NormalizeOwner(strings.TrimSpace(*f.Owner))
		if o != existing.Owner {
			if existing.Completed {
				return nil, errOwnerLocked
			}
			if err := checkOwner(o, owners); err != nil {
				return nil, err
			}
		}
		f.Owner = &o
	}

	t, err := e.repo.UpdateFields(id, f)
	if err != nil {
		return nil, apperror.Unavailable("update task", err)
	}
	if t == nil {
		// Missing, or completed by another device since it was read.
		if _, err := e.Get(principal, id); err != nil {
			return nil, err
		}
		return nil, errOwnerLocked
	}
	return t, nil
}

// Delete removes the task. A task that is already gone reports ErrNotFound.
func (e *Engine) Delete(principal, id string) error {
	if _, err := e.Get(principal, id); err != nil {
		return err
	}
	deleted, err := e.repo.Delete(id)
	if err != nil {
		return apperror.Unavailable("delete task", err)
	}
	if !deleted {
		return apperror.ErrNotFound
	}
	e.logger.Info("task deleted", "task_id", id)
	return nil
}

// Complete claims a task for the active profile. Nothing is read or written
// until a profile is selected.
func (e *Engine) Complete(principal string, owners OwnerSource, id string) (*model.Task, error) {
	effective, err := owners.EffectiveOwner()
	if err != nil {
		return nil, apperror.Unavailable("resolve profile", err)
	}
	if model.IsSharedOwner(effective) {
		return nil, apperror.Invalid("", "select a profile first")
	}

	t, err := e.Get(principal, id)
	if err != nil {
		return nil, err
	}

	switch t.State().Kind {
	case model.StateCompleted:
		return nil, apperror.ErrConflict
	case model.StateUnassigned, model.StateAssigned:
	}

	won, err := e.repo.Complete(id, effective, e.now().UTC())
	if err != nil {
		return nil, apperror.Unavailable("complete task", err)
	}
	if !won {
		// Either another device completed it first or it was deleted.
		if _, err := e.Get(principal, id); err != nil {
			return nil, err
		}
		return nil, apperror.ErrConflict
	}

	e.logger.Info("task completed", "task_id", id, "owner", effective, "points", t.Points)
	return e.Get(principal, id)
}

// needsReset reports whether t differs from an unclaimed pending task.
func needsReset(t model.Task) bool {
	switch t.State().Kind {
	case model.StateUnassigned:
		return t.Completed || t.Owner != model.SharedOwner
	case model.StateAssigned, model.StateCompleted:
		return true
	}
	return true
}

// Reset returns a task to the shared pool. Resetting a task that is already
// pending and shared writes nothing.
func (e *Engine) Reset(principal, id string) (*model.Task, error) {
	t, err := e.Get(principal, id)
	if err != nil {
		return nil, err
	}
	if !needsReset(*t) {
		return t, nil
	}

	ok, err := e.repo.Reset(id)
	if err != nil {
		return nil, apperror.Unavailable("reset task", err)
	}
	if !ok {
		return nil, apperror.ErrNotFound
	}
	e.logger.Info("task reset", "task_id", id, "previous_owner", t.Owner)
	return e.Get(principal, id)
}

// ResetAll returns every claimed task of the principal to the pool in one
// batch. If the batch fails each task is retried on its own and the ids
// that still fail are reported in a *BulkResetError.
func (e *Engine) ResetAll(principal string) ([]string, error) {
	tasks, err := e.List(principal)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if needsReset(t) {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return ids, nil
	}

	batchErr := e.repo.ResetBatch(ids)
	if batchErr == nil {
		e.logger.Info("tasks reset", "count", len(ids))
		return ids, nil
	}
	e.logger.Warn("batch reset failed, retrying individually", "count", len(ids), "error", batchErr)

	bulk := &BulkResetError{Failed: []string{}, Reset: []string{}}
	for _, id := range ids {
		ok, err := e.repo.Reset(id)
		switch {
		case err != nil:
			e.logger.Error("reset task", "task_id", id, "error", err)
			bulk.Failed = append(bulk.Failed, id)
		case ok:
			bulk.Reset = append(bulk.Reset, id)
		}
	}
	if len(bulk.Failed) > 0 {
		return bulk.Reset, bulk
	}
	return bulk.Reset, nil
}

// Points is the owner's read-time total across the principal's tasks.
func (e *Engine) Points(principal, owner string) (int, error) {
	tasks, err := e.List(principal)
	if err != nil {
		return 0, err
	}
	return PointsFor(tasks, owner), nil
}

func (e *Engine) Leaderboard(principal string, profiles []string) ([]model.Score, error) {
	tasks, err := e.List(principal)
	if err != nil {
		return nil, err
	}
	return Leaderboard(tasks, profiles), nil
}
