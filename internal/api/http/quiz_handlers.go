package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// GET /quizzes?limit=50&offset=0
func ListQuizzesHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.ListQuizzes(r.Context(), rbac.ActorFromContext(r.Context()), quiz.QuizListOpts{
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

// GET /quizzes/{quizID}
// Students get the questions without correct answers.
func GetQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		v, err := svc.GetQuizForTaking(r.Context(), rbac.ActorFromContext(r.Context()), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// GET /quizzes/{quizID}/key
func GetQuizKeyHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		q, err := svc.GetQuizWithAnswerKey(r.Context(), rbac.ActorFromContext(r.Context()), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// POST /quizzes
func CreateQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quiz.Quiz
		if !decodeJSON(w, r, &in) {
			return
		}
		in.ID = 0
		out, err := svc.PutQuiz(r.Context(), rbac.ActorFromContext(r.Context()), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// PUT /quizzes/{quizID}
// The body replaces title, threshold and questions. Questions that carry an
// existing id keep it.
func UpdateQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		var in quiz.Quiz
		if !decodeJSON(w, r, &in) {
			return
		}
		in.ID = id
		out, err := svc.PutQuiz(r.Context(), rbac.ActorFromContext(r.Context()), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DELETE /quizzes/{quizID}
func DeleteQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		if err := svc.DeleteQuiz(r.Context(), rbac.ActorFromContext(r.Context()), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
