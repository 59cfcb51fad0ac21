// Package account handles sign-up, sign-in and the household member list
// of an account.
package account

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dukerupert/choreloop/internal/apperror"
	"github.com/dukerupert/choreloop/internal/auth"
	"github.com/dukerupert/choreloop/internal/model"
	"github.com/dukerupert/choreloop/internal/sanitize"
)

const (
	maxNameLength = 60
	maxSubUsers   = 20
)

// Store is the account persistence. store.UserStore satisfies it.
type Store interface {
	Create(email, name, passwordHash string, birthdate *string) (*model.User, error)
	GetByID(id string) (*model.User, error)
	GetByEmail(email string) (*model.User, error)
	Update(id, name string, birthdate *string) (*model.User, error)
	SetSubUsers(userID string, names []string) error
}

// Registration is the sign-up form.
type Registration struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName string  `json:"displayName"`
	Birthdate   *string `json:"birthdate"`
}

type Service struct {
	users Store
}

func NewService(users Store) *Service {
	return &Service{users: users}
}

func cleanName(field, name string) (string, error) {
	name = sanitize.Text(name)
	if name == "" {
		return "", apperror.Invalid(field, "is required")
	}
	if len([]rune(name)) > maxNameLength {
		return "", apperror.Invalid(field, fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	if model.IsSharedOwner(name) {
		return "", apperror.Invalid(field, fmt.Sprintf("%q is reserved", model.SharedOwner))
	}
	return name, nil
}

func cleanBirthdate(birthdate *string) (*string, error) {
	if birthdate == nil {
		return nil, nil
	}
	bd := strings.TrimSpace(*birthdate)
	if bd == "" {
		return nil, nil
	}
	if _, err := time.Parse(time.DateOnly, bd); err != nil {
		return nil, apperror.Invalid("birthdate", "must be YYYY-MM-DD")
	}
	return &bd, nil
}

// Register creates an account and returns it.
func (s *Service) Register(reg Registration) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	if email == "" {
		return nil, apperror.Invalid("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.Invalid("email", "is not a valid address")
	}
	if len(reg.Password) < auth.MinPasswordLength {
		return nil, apperror.Invalid("password", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
	}
	name, err := cleanName("displayName", reg.DisplayName)
	if err != nil {
		return nil, err
	}
	birthdate, err := cleanBirthdate(reg.Birthdate)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, apperror.Unavailable("look up account", err)
	}
	if existing != nil {
		return nil, apperror.ErrEmailTaken
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(email, name, hash, birthdate)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, apperror.ErrEmailTaken
		}
		return nil, apperror.Unavailable("create account", err)
	}
	return u, nil
}

// Authenticate returns the account for valid credentials, or nil.
func (s *Service) Authenticate(email, password string) (*model.User, error) {
	u, err := s.users.GetByEmail(strings.TrimSpace(email))
	if err != nil {
		return nil, apperror.Unavailable("look up account", err)
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, nil
	}
	return u, nil
}

func (s *Service) Get(id string) (*model.User, error) {
	u, err := s.users.GetByID(id)
	if err != nil {
		return nil, apperror.Unavailable("get account", err)
	}
	if u == nil {
		return nil, apperror.ErrNotFound
	}
	return u, nil
}

// UpdateProfile changes the display name and birthdate.
func (s *Service) UpdateProfile(id, name string, birthdate *string) (*model.User, error) {
	name, err := cleanName("name", name)
	if err != nil {
		return nil, err
	}
	bd, err := cleanBirthdate(birthdate)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Update(id, name, bd)
	if err != nil {
		return nil, apperror.Unavailable("update account", err)
	}
	if u == nil {
		return nil, apperror.ErrNotFound
	}
	return u, nil
}

// SetSubUsers saves the ordered household member list. Blank and repeated
// names are dropped.
func (s *Service) SetSubUsers(id string, names []string) (*model.User, error) {
	seen := make(map[string]bool)
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		name, err := cleanName("sub_users", n)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		cleaned = append(cleaned, name)
	}
	if len(cleaned) > maxSubUsers {
		return nil, apperror.Invalid("sub_users", fmt.Sprintf("at most %d household members", maxSubUsers))
	}

	if err := s.users.SetSubUsers(id, cleaned); err != nil {
		return nil, apperror.Unavailable("save household members", err)
	}
	return s.Get(id)
}
