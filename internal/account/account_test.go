package account

import (
	"errors"
	"testing"

	"github.com/dukerupert/choreloop/internal/apperror"
	"github.com/dukerupert/choreloop/internal/database"
	"github.com/dukerupert/choreloop/internal/store"
)

func setupAccountTest(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(store.NewUserStore(db))
}

func strPtr(s string) *string { return &s }

func TestRegisterAndAuthenticate(t *testing.T) {
	s := setupAccountTest(t)

	u, err := s.Register(Registration{Email: " Alice@Example.com ", Password: "secret1", DisplayName: "Alice", Birthdate: strPtr("1990-01-31")})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q", u.Email)
	}
	if u.PasswordHash == "secret1" {
		t.Error("password stored in clear")
	}

	got, err := s.Authenticate("alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("authenticate = %+v, want %s", got, u.ID)
	}

	bad, err := s.Authenticate("alice@example.com", "wrong")
	if err != nil || bad != nil {
		t.Errorf("wrong password = (%v, %v), want (nil, nil)", bad, err)
	}
	unknown, err := s.Authenticate("bob@example.com", "secret1")
	if err != nil || unknown != nil {
		t.Errorf("unknown email = (%v, %v), want (nil, nil)", unknown, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := setupAccountTest(t)

	tests := []struct {
		name  string
		reg   Registration
		field string
	}{
		{"missing email", Registration{Password: "secret1", DisplayName: "A"}, "email"},
		{"bad email", Registration{Email: "nope", Password: "secret1", DisplayName: "A"}, "email"},
		{"short password", Registration{Email: "a@b.co", Password: "123", DisplayName: "A"}, "password"},
		{"missing name", Registration{Email: "a@b.co", Password: "secret1", DisplayName: "  "}, "displayName"},
		{"reserved name", Registration{Email: "a@b.co", Password: "secret1", DisplayName: "global"}, "displayName"},
		{"bad birthdate", Registration{Email: "a@b.co", Password: "secret1", DisplayName: "A", Birthdate: strPtr("31/01/1990")}, "birthdate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(tt.reg)
			var ve *apperror.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s := setupAccountTest(t)
	reg := Registration{Email: "a@b.co", Password: "secret1", DisplayName: "A"}

	if _, err := s.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.Register(reg); !errors.Is(err, apperror.ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestSetSubUsers(t *testing.T) {
	s := setupAccountTest(t)
	u, _ := s.Register(Registration{Email: "a@b.co", Password: "secret1", DisplayName: "Alice"})

	got, err := s.SetSubUsers(u.ID, []string{"Bob", "", "<b>Carol</b>", "Bob"})
	if err != nil {
		t.Fatalf("set sub users: %v", err)
	}
	want := []string{"Bob", "Carol"}
	if len(got.SubUsers) != len(want) {
		t.Fatalf("sub users = %v, want %v", got.SubUsers, want)
	}
	for i := range want {
		if got.SubUsers[i] != want[i] {
			t.Errorf("sub users[%d] = %q, want %q", i, got.SubUsers[i], want[i])
		}
	}

	if _, err := s.SetSubUsers(u.ID, []string{"global"}); !apperror.IsValidation(err) {
		t.Errorf("reserved name err = %v, want ValidationError", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	s := setupAccountTest(t)
	u, _ := s.Register(Registration{Email: "a@b.co", Password: "secret1", DisplayName: "Alice"})

	got, err := s.UpdateProfile(u.ID, "Ally", strPtr("2001-02-03"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Ally" || got.Birthdate == nil || *got.Birthdate != "2001-02-03" {
		t.Errorf("user = %+v", got)
	}

	if _, err := s.UpdateProfile(u.ID, "", nil); !apperror.IsValidation(err) {
		t.Errorf("blank name err = %v, want ValidationError", err)
	}
}
