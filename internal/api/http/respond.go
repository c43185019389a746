package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

// ErrorResponse is the body of every non-2xx reply. Missing lists the
// unanswered question ids of an incomplete submission.
type ErrorResponse struct {
	Error   string  `json:"error"`
	Missing []int64 `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeError maps core errors to status codes. Store failures are logged
// and reported without driver detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var incomplete *quiz.IncompleteSubmissionError
	switch {
	case errors.As(err, &incomplete):
		missing := make([]int64, len(incomplete.Missing))
		for i, id := range incomplete.Missing {
			missing[i] = int64(id)
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: incomplete.Error(), Missing: missing})
	case errors.Is(err, rbac.ErrUnauthenticated):
		jsonError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, rbac.ErrUnauthorized):
		jsonError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, quiz.ErrQuizNotFound),
		errors.Is(err, quiz.ErrAttemptNotFound),
		errors.Is(err, users.ErrUserNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, quiz.ErrQuizEmpty):
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, quiz.ErrInvalidQuiz),
		errors.Is(err, quiz.ErrInvalidSubmission),
		errors.Is(err, users.ErrInvalidUser):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrLastAdmin), errors.Is(err, users.ErrEmailTaken):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[http] %s %s: %v", r.Method, r.URL.Path, err)
		jsonError(w, http.StatusInternalServerError, "")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return false
	}
	return true
}

// idParam reads a positive integer URL parameter.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

func parseInt64Default(s string, def int64) int64 {
	if s == "" {
		return def
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil && v >= 0 {
		return v
	}
	return def
}
