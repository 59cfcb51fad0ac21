// Package profile tracks which household member is active on a signed-in
// device.
package profile

import (
	"strings"

	"github.com/dukerupert/choreloop/internal/apperror"
	"github.com/dukerupert/choreloop/internal/model"
)

// Store persists one selection per session. store.ProfileStore satisfies it.
type Store interface {
	GetSelection(sessionID string) (string, error)
	SetSelection(sessionID, userID, owner string) error
	ClearSelection(sessionID string) error
}

// Notifier is told when a session switches profile.
type Notifier func(userID, owner string)

// Resolver is the profile state of a single session. Build one per request.
type Resolver struct {
	store     Store
	sessionID string
	userID    string
	profiles  []string
	notify    Notifier
}

func NewResolver(store Store, sessionID string, user *model.User, notify Notifier) *Resolver {
	return &Resolver{
		store:     store,
		sessionID: sessionID,
		userID:    user.ID,
		profiles:  Profiles(user),
		notify:    notify,
	}
}

// Profiles lists the household members of an account: the display name
// first, then the sub-users in their saved order. Blanks, duplicates and
// the shared sentinel are dropped.
func Profiles(user *model.User) []string {
	seen := make(map[string]bool)
	out := []string{}
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || model.IsSharedOwner(name) || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	add(user.Name)
	for _, s := range user.SubUsers {
		add(s)
	}
	return out
}

// OwnerOptions is the owner picker for task forms.
func OwnerOptions(user *model.User) []string {
	return append([]string{model.SharedOwner}, Profiles(user)...)
}

// AssignableOwners is every concrete owner a task of user may carry: the
// household members and the account id itself.
func AssignableOwners(user *model.User) []string {
	return append(Profiles(user), user.ID)
}

func (r *Resolver) Profiles() []string {
	return r.profiles
}

func (r *Resolver) known(name string) bool {
	for _, p := range r.profiles {
		if p == name {
			return true
		}
	}
	return false
}

// EffectiveOwner returns the selected profile, or the shared sentinel when
// nothing is selected or the selection no longer names a household member.
func (r *Resolver) EffectiveOwner() (string, error) {
	name, err := r.store.GetSelection(r.sessionID)
	if err != nil {
		return "", err
	}
	if name == "" || !r.known(name) {
		return model.SharedOwner, nil
	}
	return name, nil
}

// SetEffectiveOwner switches the session's profile. Selecting the sentinel
// clears the selection.
func (r *Resolver) SetEffectiveOwner(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.Invalid("name", "is required")
	}

	if model.IsSharedOwner(name) {
		if err := r.store.ClearSelection(r.sessionID); err != nil {
			return apperror.Unavailable("clear profile", err)
		}
	} else {
		if !r.known(name) {
			return apperror.Invalid("name", "is not a household member")
		}
		if err := r.store.SetSelection(r.sessionID, r.userID, name); err != nil {
			return apperror.Unavailable("select profile", err)
		}
	}

	if r.notify != nil {
		r.notify(r.userID, model.NormalizeOwner(name))
	}
	return nil
}
