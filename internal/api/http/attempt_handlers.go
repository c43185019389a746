package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// POST /attempts  { "quiz_id": 1, "answers": { "11": "B" }, "duration": 4 }
// Each submission creates a new attempt.
func SubmitAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quiz.Submission
		if !decodeJSON(w, r, &in) {
			return
		}
		a, err := svc.SubmitAttempt(r.Context(), rbac.ActorFromContext(r.Context()), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// GET /attempts?quiz_id=&user_id=&limit=50&offset=0
// Students only ever see their own attempts; user_id is ignored for them.
func ListAttemptsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.ListAttempts(r.Context(), rbac.ActorFromContext(r.Context()), quiz.AttemptListOpts{
			QuizID: parseInt64Default(q.Get("quiz_id"), 0),
			UserID: parseInt64Default(q.Get("user_id"), 0),
			Limit:  parseIntDefault(q.Get("limit"), 50),
			Offset: parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "attemptID")
		if !ok {
			return
		}
		a, err := svc.GetAttempt(r.Context(), rbac.ActorFromContext(r.Context()), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /reports/students
func StudentReportHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.StudentReport(r.Context(), rbac.ActorFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
