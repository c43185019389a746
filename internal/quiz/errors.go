package quiz

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrQuizEmpty            = errors.New("quiz has no questions")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrIncompleteSubmission = errors.New("incomplete submission")
	ErrInvalidQuiz          = errors.New("invalid quiz")
	ErrInvalidSubmission    = errors.New("invalid submission")
)

// IncompleteSubmissionError names the unanswered questions.
type IncompleteSubmissionError struct {
	Missing []QuestionID
	// FirstText is the text of the first unanswered question, for messages.
	FirstText string
}

func (e *IncompleteSubmissionError) Error() string {
	if e.FirstText != "" {
		return fmt.Sprintf("missing answer for question: %s", e.FirstText)
	}
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = fmt.Sprint(int64(id))
	}
	return "missing answers for questions: " + strings.Join(ids, ",")
}

func (e *IncompleteSubmissionError) Is(target error) bool { return target == ErrIncompleteSubmission }

// PersistenceError wraps a store failure. The underlying driver error is
// reachable with errors.Unwrap / errors.As.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
