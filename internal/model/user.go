package model

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Birthdate    *string   `json:"birthdate"`
	SubUsers     []string  `json:"sub_users"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Score is one row of the points leaderboard.
type Score struct {
	Owner  string `json:"owner"`
	Points int    `json:"points"`
	Tasks  int    `json:"tasks"`
}
