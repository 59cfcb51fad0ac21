package model

import "time"

type HistoryRecord struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	Date          time.Time           `json:"date"`
	TasksByOwner  map[string][]string `json:"tasks_by_owner"`
	PointsByOwner map[string]int      `json:"points_by_owner"`
	Note          string              `json:"note"`
	TaskIDs       []string            `json:"-"`
	ResetPending  bool                `json:"reset_pending"`
}
