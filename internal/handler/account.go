package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/choreloop/internal/account"
	"github.com/dukerupert/choreloop/internal/auth"
)

type AccountHandler struct {
	accounts     *account.Service
	sessions     *Sessions
	issuer       *auth.Issuer
	secureCookie bool
	logger       *slog.Logger
}

func NewAccountHandler(accounts *account.Service, sessions *Sessions, issuer *auth.Issuer, secureCookie bool, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts:     accounts,
		sessions:     sessions,
		issuer:       issuer,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// Register creates an account: {email, password, displayName, birthdate} -> {uid}.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req account.Registration
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.accounts.Register(req)
	if err != nil {
		writeError(w, h.logger, "register account", err)
		return
	}

	h.logger.Info("account created", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"uid": u.ID})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.accounts.Authenticate(req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, "authenticate", err)
		return
	}
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
		return
	}

	token, claims, err := h.issuer.Issue(u.ID, u.Email)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.issuer.TTL() / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookie || r.TLS != nil,
	})

	h.logger.Info("signed in", "user_id", u.ID, "session_id", claims.SessionID)
	writeJSON(w, http.StatusOK, map[string]any{
		"uid":        u.ID,
		"token":      token,
		"expires_at": claims.ExpiresAt.Time,
	})
}

// Logout forgets the device's profile choice and clears the cookie.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := auth.SessionID(r.Context()); sid != "" {
		if err := h.sessions.selections.ClearSelection(sid); err != nil {
			h.logger.Warn("clear profile selection", "session_id", sid, "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.sessions.user(r)
	if err != nil {
		writeError(w, h.logger, "get account", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type updateMeRequest struct {
	Name      string  `json:"name"`
	Birthdate *string `json:"birthdate"`
}

func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.accounts.UpdateProfile(auth.UserID(r.Context()), req.Name, req.Birthdate)
	if err != nil {
		writeError(w, h.logger, "update account", err)
		return
	}
	h.sessions.hub.Broadcast(u.ID, accountChanged(u))
	writeJSON(w, http.StatusOK, u)
}

type subUsersRequest struct {
	SubUsers []string `json:"sub_users"`
}

func (h *AccountHandler) SetSubUsers(w http.ResponseWriter, r *http.Request) {
	var req subUsersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.accounts.SetSubUsers(auth.UserID(r.Context()), req.SubUsers)
	if err != nil {
		writeError(w, h.logger, "save household members", err)
		return
	}
	h.sessions.hub.Broadcast(u.ID, accountChanged(u))
	writeJSON(w, http.StatusOK, u)
}
