package quiz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Submission is the caller-facing shape of submitAttempt.
type Submission struct {
	QuizID   int64   `json:"quiz_id" validate:"required,gt=0"`
	Answers  Answers `json:"answers" validate:"required"`
	Duration int     `json:"duration" validate:"gte=0"`
}

// ValidateSubmission rejects malformed submissions. Completeness against the
// quiz is checked later by the ledger.
func ValidateSubmission(s Submission) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSubmission, describe(err))
	}
	return nil
}

// ValidateQuiz checks an authored quiz: title, 0-100 threshold, at least one
// question, each with text, options and in-range correct indices.
func ValidateQuiz(q Quiz) error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidQuiz, describe(err))
	}
	for i, qq := range q.Questions {
		if qq.Type == TrueFalse && (len(qq.Options) != 2 || qq.Options[0] != "True" || qq.Options[1] != "False") {
			return fmt.Errorf("%w: question %d: true/false options must be True, False", ErrInvalidQuiz, i+1)
		}
		seen := make(map[int]bool, len(qq.CorrectAnswers))
		for _, idx := range qq.CorrectAnswers {
			if idx < 0 || idx >= len(qq.Options) {
				return fmt.Errorf("%w: question %d: correct answer %d out of range", ErrInvalidQuiz, i+1, idx)
			}
			if seen[idx] {
				return fmt.Errorf("%w: question %d: correct answer %d repeated", ErrInvalidQuiz, i+1, idx)
			}
			seen[idx] = true
		}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		parts = append(parts, fmt.Sprintf("%s failed %q", ns, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
