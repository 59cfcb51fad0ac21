package model

import "time"

type ShoppingItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Completed bool      `json:"completed"`
	Essential bool      `json:"essential"`
	CreatedAt time.Time `json:"created_at"`
}
