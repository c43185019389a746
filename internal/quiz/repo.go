package quiz

import "context"

// Catalog supplies quiz definitions, answer key included.
type Catalog interface {
	GetQuiz(ctx context.Context, id int64) (Quiz, error)
}

// AttemptWriter persists new attempts. InsertAttempt assigns ID and must
// write the row atomically.
type AttemptWriter interface {
	InsertAttempt(ctx context.Context, a Attempt) (Attempt, error)
}

type QuizListOpts struct {
	// AttemptsOf limits AttemptCount to one user; 0 counts every attempt.
	AttemptsOf int64
	Limit      int
	Offset     int
}

type AttemptListOpts struct {
	QuizID int64 // filter by quiz
	UserID int64 // filter by student
	Limit  int
	Offset int
}

type Store interface {
	Catalog
	AttemptWriter

	ListQuizzes(ctx context.Context, opts QuizListOpts) ([]QuizSummary, error)
	// PutQuiz inserts when q.ID is 0, otherwise replaces title, threshold and
	// questions. Questions keep their IDs when the draft carries them.
	PutQuiz(ctx context.Context, q Quiz) (Quiz, error)
	DeleteQuiz(ctx context.Context, id int64) error

	GetAttempt(ctx context.Context, id int64) (Attempt, error)
	// ListAttempts returns newest first.
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)

	StudentStats(ctx context.Context) ([]StudentStat, error)
}
