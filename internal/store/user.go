package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/choreloop/internal/model"
	"github.com/google/uuid"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var birthdate sql.NullString
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &birthdate, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if birthdate.Valid {
		u.Birthdate = &birthdate.String
	}
	return &u, nil
}

const userCols = `id, email, name, password_hash, birthdate, created_at, updated_at`

func (s *UserStore) Create(email, name, passwordHash string, birthdate *string) (*model.User, error) {
	var bd sql.NullString
	if birthdate != nil {
		bd = sql.NullString{String: *birthdate, Valid: true}
	}

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, name, password_hash, birthdate) VALUES (?, ?, ?, ?, ?)`,
		id, strings.ToLower(email), name, passwordHash, bd,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) get(where string, arg any) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	subUsers, err := s.ListSubUsers(u.ID)
	if err != nil {
		return nil, err
	}
	u.SubUsers = subUsers
	return u, nil
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	u, err := s.get(`id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	u, err := s.get(`email = ?`, strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) Update(id, name string, birthdate *string) (*model.User, error) {
	var bd sql.NullString
	if birthdate != nil {
		bd = sql.NullString{String: *birthdate, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE users SET name = ?, birthdate = ?, updated_at = ? WHERE id = ?`,
		name, bd, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *UserStore) ListSubUsers(userID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM sub_users WHERE user_id = ? ORDER BY sort_order ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sub users: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan sub user: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SetSubUsers replaces the ordered list of household members.
func (s *UserStore) SetSubUsers(userID string, names []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sub_users WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear sub users: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO sub_users (user_id, name, sort_order) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, name := range names {
		if _, err := stmt.Exec(userID, name, i); err != nil {
			return fmt.Errorf("insert sub user %q: %w", name, err)
		}
	}

	return tx.Commit()
}
