package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/choreloop/internal/model"
	"github.com/google/uuid"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var completed int
	var completedAt sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Description, &t.Points, &t.Periodicity,
		&t.Owner, &completed, &completedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}

const taskCols = `id, user_id, description, points, periodicity, owner, completed, completed_at, created_at, updated_at`

func (s *TaskStore) queryTasks(query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Create(userID string, in model.TaskInput) (*model.Task, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO tasks (id, user_id, description, points, periodicity, owner, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id, userID, in.Description, in.Points, in.Periodicity, model.NormalizeOwner(in.Owner), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// List returns every task belonging to the principal, oldest first.
func (s *TaskStore) List(userID string) ([]model.Task, error) {
	tasks, err := s.queryTasks(
		`SELECT `+taskCols+` FROM tasks WHERE user_id = ? ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListAll scans the whole collection.
func (s *TaskStore) ListAll() ([]model.Task, error) {
	tasks, err := s.queryTasks(`SELECT ` + taskCols + ` FROM tasks ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list all tasks: %w", err)
	}
	return tasks, nil
}

// UpdateFields merges the non-nil fields into the task. It returns nil when
// the task does not exist or when it is completed and f.Owner names someone
// else.
func (s *TaskStore) UpdateFields(id string, f model.TaskFields) (*model.Task, error) {
	var sets []string
	var args []any
	if f.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *f.Description)
	}
	if f.Points != nil {
		sets = append(sets, "points = ?")
		args = append(args, *f.Points)
	}
	if f.Periodicity != nil {
		sets = append(sets, "periodicity = ?")
		args = append(args, *f.Periodicity)
	}
	where := `WHERE id = ?`
	var whereArgs []any
	if f.Owner != nil {
		owner := model.NormalizeOwner(*f.Owner)
		sets = append(sets, "owner = ?")
		args = append(args, owner)
		// A completed task never changes hands here.
		where += ` AND (completed = 0 OR owner = ?)`
		whereArgs = append(whereArgs, owner)
	}
	if len(sets) == 0 {
		return s.GetByID(id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)
	args = append(args, whereArgs...)

	result, err := s.db.Exec(`UPDATE tasks SET `+strings.Join(sets, ", ")+` `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

// Delete removes the task. Deleting a missing task is not an error; the
// returned bool reports whether a row was removed.
func (s *TaskStore) Delete(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Complete marks a pending task done by owner. Both columns change in one
// statement, guarded by completed = 0; false means another writer got there
// first or the task is gone.
func (s *TaskStore) Complete(id, owner string, at time.Time) (bool, error) {
	at = at.UTC()
	result, err := s.db.Exec(
		`UPDATE tasks SET completed = 1, owner = ?, completed_at = ?, updated_at = ? WHERE id = ? AND completed = 0`,
		owner, at, at, id,
	)
	if err != nil {
		return false, fmt.Errorf("complete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

const resetSQL = `UPDATE tasks SET completed = 0, owner = '` + model.SharedOwner + `', completed_at = NULL, updated_at = ? WHERE id = ?`

// Reset puts a task back to pending and unassigned. The bool is false when
// the task does not exist.
func (s *TaskStore) Reset(id string) (bool, error) {
	result, err := s.db.Exec(resetSQL, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("reset task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// ResetBatch resets every id in one transaction. Either all rows change or
// none do. Ids that no longer exist are skipped.
func (s *TaskStore) ResetBatch(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(resetSQL)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, id := range ids {
		if _, err := stmt.Exec(now, id); err != nil {
			return fmt.Errorf("reset task %s: %w", id, err)
		}
	}

	return tx.Commit()
}
