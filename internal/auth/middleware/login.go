package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (users.User, error)
}

type Registrar interface {
	Create(ctx context.Context, nu users.NewUser) (users.User, error)
}

type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        users.User `json:"user"`
}

func (a *AuthService) respondWithToken(w http.ResponseWriter, status int, u users.User) {
	tok, exp, err := a.IssueJWT(u.ID, u.Role)
	if err != nil {
		log.Printf("[auth] issue token: %v", err)
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}
	writeJSON(w, status, tokenResponse{AccessToken: tok, TokenType: "Bearer", ExpiresAt: exp, User: u})
}

// POST /auth/login  { "email": "...", "password": "..." }
func LoginHandler(a *AuthService, authn Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}
		u, err := authn.Authenticate(r.Context(), req.Email, req.Password)
		if errors.Is(err, users.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			log.Printf("[auth] login: %v", err)
			writeError(w, http.StatusInternalServerError, "login failed")
			return
		}
		log.Printf("[auth] login user=%d role=%s", u.ID, u.Role)
		a.respondWithToken(w, http.StatusOK, u)
	}
}

// POST /auth/register  { "email", "password", "name" }
// Self-registration always creates a student.
func RegisterHandler(a *AuthService, reg Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Name     string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		u, err := reg.Create(r.Context(), users.NewUser{
			Email: req.Email, Name: req.Name, Password: req.Password, Role: rbac.RoleStudent,
		})
		switch {
		case errors.Is(err, users.ErrInvalidUser):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, users.ErrEmailTaken):
			writeError(w, http.StatusConflict, "user already exists")
			return
		case err != nil:
			log.Printf("[auth] register: %v", err)
			writeError(w, http.StatusInternalServerError, "register failed")
			return
		}
		log.Printf("[auth] registered user=%d", u.ID)
		a.respondWithToken(w, http.StatusCreated, u)
	}
}

// GET /auth/session returns the stored profile of the caller.
func SessionHandler(lookup UserLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := rbac.ActorFromContext(r.Context())
		if actor == nil {
			writeError(w, http.StatusUnauthorized, rbac.ErrUnauthenticated.Error())
			return
		}
		u, err := lookup.FindByID(r.Context(), actor.ID)
		if errors.Is(err, users.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "session lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": u})
	}
}

type PasswordChanger interface {
	ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error
}

// POST /auth/password  { "old_password", "new_password" }
func ChangePasswordHandler(store PasswordChanger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := rbac.ActorFromContext(r.Context())
		if actor == nil {
			writeError(w, http.StatusUnauthorized, rbac.ErrUnauthenticated.Error())
			return
		}
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		err := store.ChangePassword(r.Context(), actor.ID, req.OldPassword, req.NewPassword)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, users.ErrInvalidUser):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, users.ErrWrongPassword):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, users.ErrUserNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			log.Printf("[auth] change password user=%d: %v", actor.ID, err)
			writeError(w, http.StatusInternalServerError, "change password failed")
		}
	}
}
