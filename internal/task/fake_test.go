package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/choreloop/internal/model"
)

var errStore = errors.New("store offline")

type fakeRepo struct {
	tasks  map[string]*model.Task
	order  []string
	nextID int

	reads  int
	writes int

	failBatch error
	failReset map[string]error
	// stealOnComplete simulates another device winning the race.
	stealOnComplete string
	// completeOnUpdate completes the task just before an update lands.
	completeOnUpdate string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tasks: map[string]*model.Task{}, failReset: map[string]error{}}
}

func (r *fakeRepo) add(userID, desc string, points int, owner string, completed bool) *model.Task {
	r.nextID++
	t := &model.Task{
		ID:          fmt.Sprintf("t%d", r.nextID),
		UserID:      userID,
		Description: desc,
		Points:      points,
		Periodicity: 1,
		Owner:       owner,
		Completed:   completed,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, r.nextID, 0, time.UTC),
	}
	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)
	return t
}

func (r *fakeRepo) List(userID string) ([]model.Task, error) {
	r.reads++
	var out []model.Task
	for _, id := range r.order {
		if t, ok := r.tasks[id]; ok && t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetByID(id string) (*model.Task, error) {
	r.reads++
	t, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRepo) Create(userID string, in model.TaskInput) (*model.Task, error) {
	r.writes++
	t := r.add(userID, in.Description, in.Points, model.NormalizeOwner(in.Owner), false)
	t.Periodicity = in.Periodicity
	cp := *t
	return &cp, nil
}

func (r *fakeRepo) UpdateFields(id string, f model.TaskFields) (*model.Task, error) {
	r.writes++
	t, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	if r.completeOnUpdate != "" {
		t.Completed = true
		t.Owner = r.completeOnUpdate
	}
	if f.Owner != nil && t.Completed && *f.Owner != t.Owner {
		return nil, nil
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Points != nil {
		t.Points = *f.Points
	}
	if f.Periodicity != nil {
		t.Periodicity = *f.Periodicity
	}
	if f.Owner != nil {
		t.Owner = *f.Owner
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRepo) Delete(id string) (bool, error) {
	r.writes++
	if _, ok := r.tasks[id]; !ok {
		return false, nil
	}
	delete(r.tasks, id)
	return true, nil
}

func (r *fakeRepo) Complete(id, owner string, at time.Time) (bool, error) {
	r.writes++
	t, ok := r.tasks[id]
	if !ok {
		return false, nil
	}
	if r.stealOnComplete != "" {
		t.Completed = true
		t.Owner = r.stealOnComplete
	}
	if t.Completed {
		return false, nil
	}
	t.Completed = true
	t.Owner = owner
	t.CompletedAt = &at
	return true, nil
}

func (r *fakeRepo) Reset(id string) (bool, error) {
	r.writes++
	if err := r.failReset[id]; err != nil {
		return false, err
	}
	t, ok := r.tasks[id]
	if !ok {
		return false, nil
	}
	t.Completed = false
	t.Owner = model.SharedOwner
	t.CompletedAt = nil
	return true, nil
}

func (r *fakeRepo) ResetBatch(ids []string) error {
	r.writes++
	if r.failBatch != nil {
		return r.failBatch
	}
	for _, id := range ids {
		if t, ok := r.tasks[id]; ok {
			t.Completed = false
			t.Owner = model.SharedOwner
			t.CompletedAt = nil
		}
	}
	return nil
}

type fixedOwner struct {
	name string
	err  error
}

func (f fixedOwner) EffectiveOwner() (string, error) {
	return f.name, f.err
}
