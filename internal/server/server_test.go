package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/choreloop/internal/auth"
	"github.com/dukerupert/choreloop/internal/database"
	"github.com/dukerupert/choreloop/internal/model"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(db, Options{Issuer: auth.NewIssuer("test-secret-0123456789", time.Hour)}, slog.Default())
	return srv.Router()
}

// do sends a JSON request and decodes the response body into out when given.
func do(t *testing.T, h http.Handler, method, path, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if out != nil && rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rr.Body.String(), err)
		}
	}
	return rr.Code
}

func signUp(t *testing.T, h http.Handler, email, name string) string {
	t.Helper()
	reg := map[string]any{"email": email, "password": "hunter22", "displayName": name}
	if code := do(t, h, "POST", "/api/users", "", reg, nil); code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", code)
	}

	var login struct {
		Token string `json:"token"`
	}
	creds := map[string]string{"email": email, "password": "hunter22"}
	if code := do(t, h, "POST", "/api/login", "", creds, &login); code != http.StatusOK {
		t.Fatalf("login status = %d, want 200", code)
	}
	if login.Token == "" {
		t.Fatal("expected token in login response")
	}
	return login.Token
}

func TestHealth(t *testing.T) {
	h := setupServer(t)
	var body map[string]string
	if code := do(t, h, "GET", "/health", "", nil, &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	h := setupServer(t)
	for _, path := range []string{"/api/tasks", "/api/me", "/api/history", "/api/points"} {
		if code := do(t, h, "GET", path, "", nil, nil); code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", path, code)
		}
	}
	if code := do(t, h, "GET", "/api/tasks", "not-a-token", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", code)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := setupServer(t)
	signUp(t, h, "alex@example.com", "Alex")

	reg := map[string]any{"email": "Alex@Example.com", "password": "hunter22", "displayName": "Other"}
	if code := do(t, h, "POST", "/api/users", "", reg, nil); code != http.StatusConflict {
		t.Errorf("status = %d, want 409", code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h := setupServer(t)
	signUp(t, h, "alex@example.com", "Alex")

	creds := map[string]string{"email": "alex@example.com", "password": "wrong-password"}
	if code := do(t, h, "POST", "/api/login", "", creds, nil); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
}

func TestChoreCycle(t *testing.T) {
	h := setupServer(t)
	token := signUp(t, h, "alex@example.com", "Alex")

	if code := do(t, h, "PUT", "/api/me/sub-users", token, map[string][]string{"sub_users": {"Sam"}}, nil); code != http.StatusOK {
		t.Fatalf("set sub-users status = %d", code)
	}

	var created model.Task
	in := map[string]any{"description": "Dishes", "points": 5, "periodicity": 1, "owner": "global"}
	if code := do(t, h, "POST", "/api/tasks", token, in, &created); code != http.StatusCreated {
		t.Fatalf("create task status = %d, want 201", code)
	}

	// No profile selected yet.
	if code := do(t, h, "POST", "/api/tasks/"+created.ID+"/complete", token, nil, nil); code != http.StatusBadRequest {
		t.Fatalf("complete without profile status = %d, want 400", code)
	}

	var prof struct {
		EffectiveOwner string   `json:"effective_owner"`
		Profiles       []string `json:"profiles"`
	}
	if code := do(t, h, "PUT", "/api/profile", token, map[string]string{"name": "Sam"}, &prof); code != http.StatusOK {
		t.Fatalf("select profile status = %d", code)
	}
	if prof.EffectiveOwner != "Sam" {
		t.Fatalf("effective owner = %q, want Sam", prof.EffectiveOwner)
	}
	if len(prof.Profiles) != 2 || prof.Profiles[0] != "Alex" {
		t.Errorf("profiles = %v, want [Alex Sam]", prof.Profiles)
	}

	var done model.Task
	if code := do(t, h, "POST", "/api/tasks/"+created.ID+"/complete", token, nil, &done); code != http.StatusOK {
		t.Fatalf("complete status = %d, want 200", code)
	}
	if !done.Completed || done.Owner != "Sam" {
		t.Errorf("completed task = %+v", done)
	}
	if code := do(t, h, "POST", "/api/tasks/"+created.ID+"/complete", token, nil, nil); code != http.StatusConflict {
		t.Errorf("second complete status = %d, want 409", code)
	}

	var pts struct {
		Points int `json:"points"`
	}
	do(t, h, "GET", "/api/points/Sam", token, nil, &pts)
	if pts.Points != 5 {
		t.Errorf("Sam points = %d, want 5", pts.Points)
	}

	var board []model.Score
	do(t, h, "GET", "/api/points", token, nil, &board)
	if len(board) != 2 || board[0].Owner != "Sam" || board[0].Points != 5 {
		t.Errorf("leaderboard = %+v", board)
	}

	var rec model.HistoryRecord
	if code := do(t, h, "POST", "/api/history/cycle", token, nil, &rec); code != http.StatusCreated {
		t.Fatalf("start cycle status = %d, want 201", code)
	}
	if got := rec.TasksByOwner["Sam"]; len(got) != 1 || got[0] != "Dishes" {
		t.Errorf("tasks_by_owner[Sam] = %v", got)
	}
	if rec.PointsByOwner["Sam"] != 5 {
		t.Errorf("points_by_owner[Sam] = %d, want 5", rec.PointsByOwner["Sam"])
	}

	do(t, h, "GET", "/api/points/Sam", token, nil, &pts)
	if pts.Points != 0 {
		t.Errorf("Sam points after cycle = %d, want 0", pts.Points)
	}

	var pending []struct {
		ID           string `json:"id"`
		DisplayOwner string `json:"display_owner"`
	}
	do(t, h, "GET", "/api/tasks?view=pending", token, nil, &pending)
	if len(pending) != 1 || pending[0].ID != created.ID {
		t.Errorf("pending after cycle = %+v", pending)
	}

	var history []model.HistoryRecord
	do(t, h, "GET", "/api/history", token, nil, &history)
	if len(history) != 1 {
		t.Fatalf("history len = %d, want 1", len(history))
	}

	var noted model.HistoryRecord
	if code := do(t, h, "PUT", "/api/history/"+rec.ID+"/note", token, map[string]string{"note": "<b>good week</b>"}, &noted); code != http.StatusOK {
		t.Fatalf("set note status = %d", code)
	}
	if noted.Note != "good week" {
		t.Errorf("note = %q, want markup stripped", noted.Note)
	}

	if code := do(t, h, "DELETE", "/api/history/"+rec.ID, token, nil, nil); code != http.StatusNoContent {
		t.Errorf("delete history status = %d, want 204", code)
	}
	if code := do(t, h, "DELETE", "/api/history/"+rec.ID, token, nil, nil); code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", code)
	}
}

func TestTasksScopedToAccount(t *testing.T) {
	h := setupServer(t)
	alex := signUp(t, h, "alex@example.com", "Alex")
	jo := signUp(t, h, "jo@example.com", "Jo")

	var created model.Task
	in := map[string]any{"description": "Laundry", "points": 2, "periodicity": 7, "owner": "global"}
	do(t, h, "POST", "/api/tasks", alex, in, &created)

	var tasks []model.Task
	do(t, h, "GET", "/api/tasks?view=all", jo, nil, &tasks)
	if len(tasks) != 0 {
		t.Errorf("other account sees %d tasks, want 0", len(tasks))
	}
	if code := do(t, h, "DELETE", "/api/tasks/"+created.ID, jo, nil, nil); code != http.StatusNotFound {
		t.Errorf("cross-account delete status = %d, want 404", code)
	}
}

func TestUnknownTaskView(t *testing.T) {
	h := setupServer(t)
	token := signUp(t, h, "alex@example.com", "Alex")
	if code := do(t, h, "GET", "/api/tasks?view=bogus", token, nil, nil); code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestShoppingList(t *testing.T) {
	h := setupServer(t)
	alex := signUp(t, h, "alex@example.com", "Alex")
	jo := signUp(t, h, "jo@example.com", "Jo")

	var milk, eggs model.ShoppingItem
	if code := do(t, h, "POST", "/api/shopping-items", alex, map[string]string{"name": " Milk "}, &milk); code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", code)
	}
	if milk.Name != "Milk" {
		t.Errorf("name = %q, want trimmed", milk.Name)
	}
	do(t, h, "POST", "/api/shopping-items", alex, map[string]string{"name": "Eggs"}, &eggs)

	if code := do(t, h, "POST", "/api/shopping-items", alex, map[string]string{"name": "<i></i>"}, nil); code != http.StatusBadRequest {
		t.Errorf("empty name status = %d, want 400", code)
	}
	if code := do(t, h, "DELETE", "/api/shopping-items/"+milk.ID, jo, nil, nil); code != http.StatusNotFound {
		t.Errorf("cross-account delete status = %d, want 404", code)
	}

	do(t, h, "POST", "/api/shopping-items/"+milk.ID+"/complete", alex, nil, nil)
	do(t, h, "POST", "/api/shopping-items/"+eggs.ID+"/complete", alex, nil, nil)
	do(t, h, "POST", "/api/shopping-items/"+eggs.ID+"/essential", alex, nil, nil)

	var cleared map[string]int64
	if code := do(t, h, "DELETE", "/api/shopping-items/completed", alex, nil, &cleared); code != http.StatusOK {
		t.Fatalf("clear status = %d", code)
	}
	if cleared["cleared"] != 1 {
		t.Errorf("cleared = %d, want 1", cleared["cleared"])
	}

	var items []model.ShoppingItem
	do(t, h, "GET", "/api/shopping-items", alex, nil, &items)
	if len(items) != 1 || items[0].ID != eggs.ID {
		t.Errorf("remaining items = %+v, want only the essential one", items)
	}
}

func TestTaskOwnerRestrictedToHousehold(t *testing.T) {
	h := setupServer(t)
	token := signUp(t, h, "alex@example.com", "Alex")
	do(t, h, "PUT", "/api/me/sub-users", token, map[string][]string{"sub_users": {"Sam"}}, nil)

	bad := map[string]any{"description": "Dishes", "points": 10, "periodicity": 1, "owner": "Nobody"}
	if code := do(t, h, "POST", "/api/tasks", token, bad, nil); code != http.StatusBadRequest {
		t.Errorf("create with unknown owner status = %d, want 400", code)
	}

	var created model.Task
	in := map[string]any{"description": "Dishes", "points": 10, "periodicity": 1, "owner": "Sam"}
	if code := do(t, h, "POST", "/api/tasks", token, in, &created); code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", code)
	}

	do(t, h, "PUT", "/api/profile", token, map[string]string{"name": "Sam"}, nil)
	if code := do(t, h, "POST", "/api/tasks/"+created.ID+"/complete", token, nil, nil); code != http.StatusOK {
		t.Fatalf("complete status = %d", code)
	}

	for _, owner := range []string{"Alex", "Mallory", "global"} {
		if code := do(t, h, "PUT", "/api/tasks/"+created.ID, token, map[string]string{"owner": owner}, nil); code != http.StatusBadRequest {
			t.Errorf("reassign completed task to %q status = %d, want 400", owner, code)
		}
	}

	var pts struct {
		Points int `json:"points"`
	}
	do(t, h, "GET", "/api/points/Sam", token, nil, &pts)
	if pts.Points != 10 {
		t.Errorf("Sam points = %d, want 10", pts.Points)
	}
}

func TestExportStatusDisabledByDefault(t *testing.T) {
	h := setupServer(t)
	token := signUp(t, h, "alex@example.com", "Alex")

	var st struct {
		State string `json:"state"`
	}
	if code := do(t, h, "GET", "/api/history/export-status", token, nil, &st); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if st.State != "disabled" {
		t.Errorf("state = %q, want disabled", st.State)
	}
}
