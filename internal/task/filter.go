package task

import (
	"sort"

	"github.com/dukerupert/choreloop/internal/model"
)

// OwnerGroup is one owner's completed tasks, in creation order.
type OwnerGroup struct {
	Owner string       `json:"owner"`
	Tasks []model.Task `json:"tasks"`
}

// IsVisible reports whether a task shows up for the principal while the
// given profile is active.
func IsVisible(t model.Task, principal, effective string) bool {
	switch t.State().Kind {
	case model.StateUnassigned:
		return true
	case model.StateAssigned, model.StateCompleted:
		return t.Owner == principal || (!model.IsSharedOwner(effective) && t.Owner == effective)
	}
	return false
}

// FilterVisible keeps the tasks visible to principal under effective.
func FilterVisible(tasks []model.Task, principal, effective string) []model.Task {
	visible := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if IsVisible(t, principal, effective) {
			visible = append(visible, t)
		}
	}
	return visible
}

// PendingTasks keeps the tasks nobody has claimed yet.
func PendingTasks(tasks []model.Task) []model.Task {
	pending := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.State().Kind == model.StateUnassigned && !t.Completed {
			pending = append(pending, t)
		}
	}
	return pending
}

// GroupCompleted groups completed tasks by their owner. Owners are sorted;
// tasks keep their input order.
func GroupCompleted(tasks []model.Task) []OwnerGroup {
	byOwner := make(map[string][]model.Task)
	for _, t := range tasks {
		st := t.State()
		if st.Kind != model.StateCompleted {
			continue
		}
		byOwner[st.Name] = append(byOwner[st.Name], t)
	}

	owners := make([]string, 0, len(byOwner))
	for owner := range byOwner {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	groups := make([]OwnerGroup, 0, len(owners))
	for _, owner := range owners {
		groups = append(groups, OwnerGroup{Owner: owner, Tasks: byOwner[owner]})
	}
	return groups
}

// DisplayOwner is the owner a task is shown under. A shared task is shown
// as the active profile when one is selected; the stored owner is untouched.
func DisplayOwner(t model.Task, effective string) string {
	if t.IsShared() && !model.IsSharedOwner(effective) {
		return effective
	}
	return model.NormalizeOwner(t.Owner)
}
