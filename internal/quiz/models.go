package quiz

import (
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// QuestionID identifies a question; answer maps are keyed by it.
type QuestionID int64

// Selection is the text of the option a student picked.
type Selection string

// Answers maps each question to the selected option text.
type Answers map[QuestionID]Selection

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
)

type Question struct {
	ID             QuestionID   `json:"id"`
	Type           QuestionType `json:"type" validate:"required,oneof=multiple_choice true_false"`
	Text           string       `json:"text" validate:"required"`
	Options        []string     `json:"options" validate:"required,min=2,dive,required"`
	CorrectAnswers []int        `json:"correct_answers,omitempty" validate:"required,min=1"`
}

type Quiz struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title" validate:"required,max=200"`
	Description     string     `json:"description"`
	PassingCriteria int        `json:"passing_criteria" validate:"gte=0,lte=100"`
	Questions       []Question `json:"questions" validate:"required,min=1,dive"`
	CreatedBy       int64      `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Attempt is one immutable submission. Score and Passed are fixed at
// submission time and never recomputed from a later-edited quiz.
type Attempt struct {
	ID         int64              `json:"id"`
	QuizID     int64              `json:"quiz_id"`
	UserID     int64              `json:"user_id"`
	Score      int                `json:"score"` // correct answers
	Total      int                `json:"total"` // questions at submission time
	Passed     bool               `json:"passed"`
	Answers    Answers            `json:"answers"`
	Selections map[QuestionID]int `json:"selections"` // resolved option index, -1 unmatched
	Duration   int                `json:"duration"`   // minutes
	CreatedAt  time.Time          `json:"created_at"`

	Quiz *Quiz `json:"quiz,omitempty"`
}

func (a Attempt) OwnerID() int64 { return a.UserID }

// gradingView adapts the quiz to the scoring engine's minimal question view.
func (q Quiz) gradingView() []grading.Q {
	out := make([]grading.Q, len(q.Questions))
	for i, qq := range q.Questions {
		out[i] = grading.Q{
			ID:      int64(qq.ID),
			Text:    qq.Text,
			Options: qq.Options,
			Correct: qq.CorrectAnswers,
		}
	}
	return out
}

func (a Answers) raw() map[int64]string {
	out := make(map[int64]string, len(a))
	for k, v := range a {
		out[int64(k)] = string(v)
	}
	return out
}

// QuizSummary is a catalog row without questions.
type QuizSummary struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	PassingCriteria int       `json:"passing_criteria"`
	QuestionCount   int       `json:"question_count"`
	AttemptCount    int       `json:"attempt_count"` // all attempts for admins, own for students
	CreatedBy       int64     `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// QuestionView is a question as shown while taking a quiz.
type QuestionView struct {
	ID             QuestionID   `json:"id"`
	Type           QuestionType `json:"type"`
	Text           string       `json:"text"`
	Options        []string     `json:"options"`
	CorrectAnswers []int        `json:"correct_answers,omitempty"`
}

// QuizView omits correct answers unless the viewer may read the answer key.
type QuizView struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	PassingCriteria int            `json:"passing_criteria"`
	Questions       []QuestionView `json:"questions"`
}

func newQuizView(q Quiz, withKey bool) QuizView {
	v := QuizView{
		ID:              q.ID,
		Title:           q.Title,
		Description:     q.Description,
		PassingCriteria: q.PassingCriteria,
		Questions:       make([]QuestionView, len(q.Questions)),
	}
	for i, qq := range q.Questions {
		qv := QuestionView{ID: qq.ID, Type: qq.Type, Text: qq.Text, Options: append([]string(nil), qq.Options...)}
		if withKey {
			qv.CorrectAnswers = append([]int(nil), qq.CorrectAnswers...)
		}
		v.Questions[i] = qv
	}
	return v
}

type StudentStat struct {
	UserID       int64      `json:"user_id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	TotalQuizzes int        `json:"total_quizzes"` // attempts taken
	AverageScore int        `json:"average_score"` // rounded mean of correct counts
	PassedCount  int        `json:"passed_count"`
	Status       string     `json:"status"` // Active | Inactive
	LastAttempt  *time.Time `json:"last_attempt,omitempty"`
}
