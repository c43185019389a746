package quiz

import (
	"context"
	"log"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// EventSink is told about every recorded attempt. Failures are logged and do
// not affect the submission; the attempt row is the source of truth.
type EventSink interface {
	AttemptRecorded(ctx context.Context, a Attempt) error
}

// Ledger records one attempt per successful submission. It never mutates
// quizzes and does not deduplicate retries: two identical calls create two
// attempts.
type Ledger struct {
	catalog Catalog
	writer  AttemptWriter
	events  EventSink
	now     func() time.Time
}

func NewLedger(catalog Catalog, writer AttemptWriter, events EventSink) *Ledger {
	return &Ledger{catalog: catalog, writer: writer, events: events, now: time.Now}
}

// Record validates, scores and persists a submission. Validation failures
// (ErrQuizNotFound, ErrQuizEmpty, *IncompleteSubmissionError) happen before
// any write. The returned attempt carries the quiz it was scored against.
func (l *Ledger) Record(ctx context.Context, quizID, userID int64, answers Answers, duration int) (Attempt, error) {
	q, err := l.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if len(q.Questions) == 0 {
		return Attempt{}, ErrQuizEmpty
	}

	questions := q.gradingView()
	raw := answers.raw()
	if missing := grading.Missing(questions, raw); len(missing) > 0 {
		e := &IncompleteSubmissionError{FirstText: missing[0].Text}
		for _, m := range missing {
			e.Missing = append(e.Missing, QuestionID(m.ID))
		}
		return Attempt{}, e
	}

	res := grading.Score(questions, q.PassingCriteria, raw)

	if duration < 0 {
		duration = 0
	}
	stored := make(Answers, len(answers))
	for k, v := range answers {
		stored[k] = v
	}
	sel := make(map[QuestionID]int, len(res.Selections))
	for k, v := range res.Selections {
		sel[QuestionID(k)] = v
	}

	a, err := l.writer.InsertAttempt(ctx, Attempt{
		QuizID:     q.ID,
		UserID:     userID,
		Score:      res.Correct,
		Total:      res.Total,
		Passed:     res.Passed,
		Answers:    stored,
		Selections: sel,
		Duration:   duration,
		CreatedAt:  l.now(),
	})
	if err != nil {
		return Attempt{}, err
	}
	log.Printf("[quiz] attempt recorded id=%d quiz=%d user=%d score=%d/%d passed=%v",
		a.ID, a.QuizID, a.UserID, a.Score, a.Total, a.Passed)

	if l.events != nil {
		if err := l.events.AttemptRecorded(ctx, a); err != nil {
			log.Printf("[quiz] attempt %d event not emitted: %v", a.ID, err)
		}
	}

	a.Quiz = &q
	return a, nil
}
