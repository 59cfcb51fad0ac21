package handler

import (
	"errors"
	"net/http"

	"github.com/dukerupert/choreloop/internal/account"
	"github.com/dukerupert/choreloop/internal/apperror"
	"github.com/dukerupert/choreloop/internal/auth"
	"github.com/dukerupert/choreloop/internal/model"
	"github.com/dukerupert/choreloop/internal/profile"
	ws "github.com/dukerupert/choreloop/internal/websocket"
)

// Sessions builds the per-request view of who is signed in and which
// household member is active on the device.
type Sessions struct {
	accounts   *account.Service
	selections profile.Store
	hub        *ws.Hub
}

func NewSessions(accounts *account.Service, selections profile.Store, hub *ws.Hub) *Sessions {
	return &Sessions{accounts: accounts, selections: selections, hub: hub}
}

func (s *Sessions) user(r *http.Request) (*model.User, error) {
	u, err := s.accounts.Get(auth.UserID(r.Context()))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, errUnknownAccount
	}
	return u, err
}

func (s *Sessions) resolve(r *http.Request) (*model.User, *profile.Resolver, error) {
	u, err := s.user(r)
	if err != nil {
		return nil, nil, err
	}
	notify := func(userID, owner string) {
		s.hub.Broadcast(userID, ws.NewMessage("profile", "selected", "", map[string]any{"owner": owner}))
	}
	return u, profile.NewResolver(s.selections, auth.SessionID(r.Context()), u, notify), nil
}
