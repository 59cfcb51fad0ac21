package model

import "time"

// SharedOwner marks a task that no household member has claimed yet.
const SharedOwner = "global"

type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Periodicity int        `json:"periodicity"`
	Owner       string     `json:"owner"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskInput holds the fields accepted when creating a task.
type TaskInput struct {
	Description string `json:"description"`
	Points      int    `json:"points"`
	Periodicity int    `json:"periodicity"`
	Owner       string `json:"owner"`
}

// TaskFields is a partial update; nil fields are left untouched.
type TaskFields struct {
	Description *string `json:"description"`
	Points      *int    `json:"points"`
	Periodicity *int    `json:"periodicity"`
	Owner       *string `json:"owner"`
}

// StateKind enumerates the three task states.
type StateKind int

const (
	StateUnassigned StateKind = iota
	StateAssigned
	StateCompleted
)

func (k StateKind) String() string {
	switch k {
	case StateUnassigned:
		return "unassigned"
	case StateAssigned:
		return "assigned"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// TaskState is the tagged form of a task's owner/completed pair.
// Name is empty for StateUnassigned.
type TaskState struct {
	Kind StateKind
	Name string
}

// IsSharedOwner reports whether owner means "not claimed". The empty string
// left behind by older resets counts as shared.
func IsSharedOwner(owner string) bool {
	return owner == "" || owner == SharedOwner
}

// NormalizeOwner maps every shared spelling to SharedOwner.
func NormalizeOwner(owner string) string {
	if IsSharedOwner(owner) {
		return SharedOwner
	}
	return owner
}

func (t Task) IsShared() bool {
	return IsSharedOwner(t.Owner)
}

// State derives the tagged state. A completed task with a shared owner
// cannot be produced by the engine; it is reported as unassigned so it
// becomes claimable again.
func (t Task) State() TaskState {
	switch {
	case t.IsShared():
		return TaskState{Kind: StateUnassigned}
	case t.Completed:
		return TaskState{Kind: StateCompleted, Name: t.Owner}
	default:
		return TaskState{Kind: StateAssigned, Name: t.Owner}
	}
}
