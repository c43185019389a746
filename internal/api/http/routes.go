package http

import (
	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

type Deps struct {
	Quizzes *quiz.Service
	Users   *users.Store
	Auth    *auth.AuthService
	Events  *syncx.EventRepo
	DB      Pinger

	// EnableLocalAuth mounts password login and self-registration.
	EnableLocalAuth bool
	// AllowClaimRole keeps the token role when the user lookup fails.
	AllowClaimRole bool
}

// Mount registers every route on r. Cross-cutting middleware (logging,
// CORS, timeouts) is the caller's business.
func Mount(r chi.Router, d Deps) {
	r.Get("/healthz", HealthzHandler)
	r.Get("/readyz", ReadyzHandler(d.DB))

	if d.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Users))
		r.Post("/auth/register", auth.RegisterHandler(d.Auth, d.Users))
	}

	// Protected API (JWT → stored role → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		pr.Use(auth.AttachRoleFromDB(d.Users, d.AllowClaimRole))

		pr.Get("/auth/session", auth.SessionHandler(d.Users))
		pr.Post("/auth/password", auth.ChangePasswordHandler(d.Users))

		pr.Get("/quizzes", ListQuizzesHandler(d.Quizzes))
		pr.Get("/quizzes/{quizID}", GetQuizHandler(d.Quizzes))
		pr.Get("/quizzes/{quizID}/key", GetQuizKeyHandler(d.Quizzes))
		pr.Post("/quizzes", CreateQuizHandler(d.Quizzes))
		pr.Put("/quizzes/{quizID}", UpdateQuizHandler(d.Quizzes))
		pr.Delete("/quizzes/{quizID}", DeleteQuizHandler(d.Quizzes))

		pr.Post("/attempts", SubmitAttemptHandler(d.Quizzes))
		pr.Get("/attempts", ListAttemptsHandler(d.Quizzes))
		pr.Get("/attempts/{attemptID}", GetAttemptHandler(d.Quizzes))

		pr.Get("/reports/students", StudentReportHandler(d.Quizzes))

		pr.Group(func(ar chi.Router) {
			ar.Use(rbac.Require(rbac.PermUserManage))
			ar.Get("/users", ListUsersHandler(d.Users))
			ar.Post("/users/import", ImportUsersHandler(d.Users))
			ar.Put("/users/{userID}/role", UpdateUserRoleHandler(d.Users))
		})
		pr.Group(func(ar chi.Router) {
			ar.Use(rbac.Require(rbac.PermAttemptViewAll))
			ar.Get("/events", ListEventsHandler(d.Events))
		})
	})
}
