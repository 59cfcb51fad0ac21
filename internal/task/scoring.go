package task

import (
	"sort"

	"github.com/dukerupert/choreloop/internal/model"
)

// PointsFor sums the points of the tasks owner has completed.
func PointsFor(tasks []model.Task, owner string) int {
	total := 0
	for _, t := range tasks {
		st := t.State()
		if st.Kind == model.StateCompleted && st.Name == owner {
			total += t.Points
		}
	}
	return total
}

// PointsByOwner folds every completed task into a per-owner total.
func PointsByOwner(tasks []model.Task) map[string]int {
	totals := make(map[string]int)
	for _, t := range tasks {
		st := t.State()
		if st.Kind == model.StateCompleted {
			totals[st.Name] += t.Points
		}
	}
	return totals
}

// Leaderboard ranks owners by points, highest first, ties by name. Every
// profile appears even with zero points; owners that are no longer
// profiles still appear if they hold completed tasks.
func Leaderboard(tasks []model.Task, profiles []string) []model.Score {
	scores := make(map[string]*model.Score)
	for _, p := range profiles {
		if model.IsSharedOwner(p) {
			continue
		}
		scores[p] = &model.Score{Owner: p}
	}
	for _, t := range tasks {
		st := t.State()
		if st.Kind != model.StateCompleted {
			continue
		}
		s, ok := scores[st.Name]
		if !ok {
			s = &model.Score{Owner: st.Name}
			scores[st.Name] = s
		}
		s.Points += t.Points
		s.Tasks++
	}

	board := make([]model.Score, 0, len(scores))
	for _, s := range scores {
		board = append(board, *s)
	}
	sort.Slice(board, func(i, j int) bool {
		if board[i].Points != board[j].Points {
			return board[i].Points > board[j].Points
		}
		return board[i].Owner < board[j].Owner
	})
	return board
}
