package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/choreloop/internal/model"
	"github.com/google/uuid"
)

type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func scanHistory(scanner interface{ Scan(...any) error }) (*model.HistoryRecord, error) {
	var r model.HistoryRecord
	var tasksByOwner, pointsByOwner, taskIDs string
	var resetPending int

	err := scanner.Scan(
		&r.ID, &r.UserID, &r.Date, &tasksByOwner, &pointsByOwner,
		&taskIDs, &resetPending, &r.Note,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tasksByOwner), &r.TasksByOwner); err != nil {
		return nil, fmt.Errorf("decode tasks_by_owner: %w", err)
	}
	if err := json.Unmarshal([]byte(pointsByOwner), &r.PointsByOwner); err != nil {
		return nil, fmt.Errorf("decode points_by_owner: %w", err)
	}
	if err := json.Unmarshal([]byte(taskIDs), &r.TaskIDs); err != nil {
		return nil, fmt.Errorf("decode task_ids: %w", err)
	}
	r.ResetPending = resetPending != 0
	return &r, nil
}

const historyCols = `id, user_id, date, tasks_by_owner, points_by_owner, task_ids, reset_pending, note`

// Create stores a new record with its reset still pending.
func (s *HistoryStore) Create(userID string, date time.Time, tasksByOwner map[string][]string, pointsByOwner map[string]int, taskIDs []string) (*model.HistoryRecord, error) {
	if tasksByOwner == nil {
		tasksByOwner = map[string][]string{}
	}
	if pointsByOwner == nil {
		pointsByOwner = map[string]int{}
	}
	if taskIDs == nil {
		taskIDs = []string{}
	}

	tbo, err := json.Marshal(tasksByOwner)
	if err != nil {
		return nil, fmt.Errorf("encode tasks_by_owner: %w", err)
	}
	pbo, err := json.Marshal(pointsByOwner)
	if err != nil {
		return nil, fmt.Errorf("encode points_by_owner: %w", err)
	}
	ids, err := json.Marshal(taskIDs)
	if err != nil {
		return nil, fmt.Errorf("encode task_ids: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO history (id, user_id, date, tasks_by_owner, points_by_owner, task_ids, reset_pending) VALUES (?, ?, ?, ?, ?, ?, 1)`,
		id, userID, date.UTC(), string(tbo), string(pbo), string(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}
	return s.GetByID(id)
}

func (s *HistoryStore) GetByID(id string) (*model.HistoryRecord, error) {
	row := s.db.QueryRow(`SELECT `+historyCols+` FROM history WHERE id = ?`, id)
	r, err := scanHistory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return r, nil
}

func (s *HistoryStore) listWhere(where string, args ...any) ([]model.HistoryRecord, error) {
	rows, err := s.db.Query(`SELECT `+historyCols+` FROM history WHERE `+where+` ORDER BY date DESC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.HistoryRecord
	for rows.Next() {
		r, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// List returns the principal's records, newest first.
func (s *HistoryStore) List(userID string) ([]model.HistoryRecord, error) {
	records, err := s.listWhere(`user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}

// ListResetPending returns records whose task reset never finished.
func (s *HistoryStore) ListResetPending(userID string) ([]model.HistoryRecord, error) {
	records, err := s.listWhere(`user_id = ? AND reset_pending = 1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list pending resets: %w", err)
	}
	return records, nil
}

func (s *HistoryStore) MarkReset(id string) error {
	_, err := s.db.Exec(`UPDATE history SET reset_pending = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark reset: %w", err)
	}
	return nil
}

// SetNote replaces the note. It returns nil when the record does not exist.
func (s *HistoryStore) SetNote(id, note string) (*model.HistoryRecord, error) {
	result, err := s.db.Exec(`UPDATE history SET note = ? WHERE id = ?`, note, id)
	if err != nil {
		return nil, fmt.Errorf("set note: %w", err)
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

func (s *HistoryStore) Delete(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
