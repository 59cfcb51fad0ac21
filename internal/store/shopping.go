package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/choreloop/internal/model"
	"github.com/google/uuid"
)

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

func scanShoppingItem(scanner interface{ Scan(...any) error }) (*model.ShoppingItem, error) {
	var item model.ShoppingItem
	var completed, essential int

	err := scanner.Scan(&item.ID, &item.UserID, &item.Name, &completed, &essential, &item.CreatedAt)
	if err != nil {
		return nil, err
	}

	item.Completed = completed != 0
	item.Essential = essential != 0
	return &item, nil
}

const shoppingCols = `id, user_id, name, completed, essential, created_at`

func (s *ShoppingStore) Create(userID, name string) (*model.ShoppingItem, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO shopping_items (id, user_id, name) VALUES (?, ?, ?)`,
		id, userID, name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert shopping item: %w", err)
	}
	return s.GetByID(id)
}

func (s *ShoppingStore) GetByID(id string) (*model.ShoppingItem, error) {
	row := s.db.QueryRow(`SELECT `+shoppingCols+` FROM shopping_items WHERE id = ?`, id)
	item, err := scanShoppingItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping item: %w", err)
	}
	return item, nil
}

// List returns the principal's items: open before completed, essentials
// first within each group.
func (s *ShoppingStore) List(userID string) ([]model.ShoppingItem, error) {
	rows, err := s.db.Query(
		`SELECT `+shoppingCols+` FROM shopping_items WHERE user_id = ?
		 ORDER BY completed ASC, essential DESC, created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingItem
	for rows.Next() {
		item, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *ShoppingStore) toggle(id, column string) (*model.ShoppingItem, error) {
	result, err := s.db.Exec(`UPDATE shopping_items SET `+column+` = 1 - `+column+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("toggle %s: %w", column, err)
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

func (s *ShoppingStore) ToggleCompleted(id string) (*model.ShoppingItem, error) {
	return s.toggle(id, "completed")
}

func (s *ShoppingStore) ToggleEssential(id string) (*model.ShoppingItem, error) {
	return s.toggle(id, "essential")
}

func (s *ShoppingStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM shopping_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	return nil
}

// ClearCompleted removes completed items that are not marked essential.
func (s *ShoppingStore) ClearCompleted(userID string) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM shopping_items WHERE user_id = ? AND completed = 1 AND essential = 0`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
