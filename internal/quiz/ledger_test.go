package quiz

import (
	"context"
	"errors"
	"testing"
)

/* ---------------- in-memory fakes ---------------- */

type fakeCatalog struct {
	quizzes map[int64]Quiz
	err     error
}

func (c *fakeCatalog) GetQuiz(_ context.Context, id int64) (Quiz, error) {
	if c.err != nil {
		return Quiz{}, c.err
	}
	q, ok := c.quizzes[id]
	if !ok {
		return Quiz{}, ErrQuizNotFound
	}
	return q, nil
}

type fakeWriter struct {
	rows []Attempt
	err  error
}

func (w *fakeWriter) InsertAttempt(_ context.Context, a Attempt) (Attempt, error) {
	if w.err != nil {
		return Attempt{}, w.err
	}
	a.ID = int64(len(w.rows) + 1)
	w.rows = append(w.rows, a)
	return a, nil
}

type fakeSink struct {
	got []Attempt
	err error
}

func (s *fakeSink) AttemptRecorded(_ context.Context, a Attempt) error {
	s.got = append(s.got, a)
	return s.err
}

func scenarioQuiz() Quiz {
	return Quiz{
		ID:              1,
		Title:           "Scenario",
		PassingCriteria: 50,
		Questions: []Question{
			{ID: 11, Type: MultipleChoice, Text: "Q1", Options: []string{"A", "B", "C"}, CorrectAnswers: []int{1}},
			{ID: 12, Type: TrueFalse, Text: "Q2", Options: []string{"True", "False"}, CorrectAnswers: []int{0}},
		},
	}
}

func newTestLedger(quizzes ...Quiz) (*Ledger, *fakeWriter, *fakeSink) {
	cat := &fakeCatalog{quizzes: map[int64]Quiz{}}
	for _, q := range quizzes {
		cat.quizzes[q.ID] = q
	}
	w := &fakeWriter{}
	sink := &fakeSink{}
	return NewLedger(cat, w, sink), w, sink
}

/* ---------------- tests ---------------- */

func TestLedgerRecordScenario(t *testing.T) {
	l, w, sink := newTestLedger(scenarioQuiz())
	ctx := context.Background()

	a, err := l.Record(ctx, 1, 5, Answers{11: "B", 12: "False"}, 3)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if a.Score != 1 || a.Total != 2 || !a.Passed {
		t.Fatalf("got score=%d total=%d passed=%v", a.Score, a.Total, a.Passed)
	}
	if a.UserID != 5 || a.QuizID != 1 || a.Duration != 3 {
		t.Fatalf("unexpected attempt %+v", a)
	}
	if a.Quiz == nil || a.Quiz.ID != 1 {
		t.Fatal("attempt should carry its quiz")
	}
	if a.Selections[11] != 1 || a.Selections[12] != 1 {
		t.Fatalf("selections = %v", a.Selections)
	}
	if a.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}

	b, err := l.Record(ctx, 1, 5, Answers{11: "A", 12: "False"}, 0)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if b.Score != 0 || b.Passed {
		t.Fatalf("second attempt score=%d passed=%v", b.Score, b.Passed)
	}
	if len(w.rows) != 2 || len(sink.got) != 2 {
		t.Fatalf("rows=%d events=%d", len(w.rows), len(sink.got))
	}
}

func TestLedgerIsNotIdempotent(t *testing.T) {
	l, w, _ := newTestLedger(scenarioQuiz())
	ans := Answers{11: "B", 12: "True"}
	a1, err := l.Record(context.Background(), 1, 5, ans, 0)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := l.Record(context.Background(), 1, 5, ans, 0)
	if err != nil {
		t.Fatal(err)
	}
	if a1.ID == a2.ID || len(w.rows) != 2 {
		t.Fatalf("identical submissions must produce distinct attempts: %d %d", a1.ID, a2.ID)
	}
}

func TestLedgerRejectsBeforeWriting(t *testing.T) {
	empty := Quiz{ID: 2, Title: "Empty", PassingCriteria: 0}
	l, w, sink := newTestLedger(scenarioQuiz(), empty)
	ctx := context.Background()

	tests := []struct {
		name    string
		quizID  int64
		answers Answers
		want    error
	}{
		{"unknown quiz", 99, Answers{11: "B"}, ErrQuizNotFound},
		{"empty quiz", 2, Answers{}, ErrQuizEmpty},
		{"missing one answer", 1, Answers{11: "B"}, ErrIncompleteSubmission},
		{"empty answer text", 1, Answers{11: "B", 12: ""}, ErrIncompleteSubmission},
		{"nil answers", 1, nil, ErrIncompleteSubmission},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Record(ctx, tc.quizID, 5, tc.answers, 0)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if len(w.rows) != 0 || len(sink.got) != 0 {
		t.Fatalf("rejected submissions wrote %d rows / %d events", len(w.rows), len(sink.got))
	}
}

func TestLedgerIncompleteIdentifiesQuestion(t *testing.T) {
	l, _, _ := newTestLedger(scenarioQuiz())
	_, err := l.Record(context.Background(), 1, 5, Answers{12: "True"}, 0)
	var inc *IncompleteSubmissionError
	if !errors.As(err, &inc) {
		t.Fatalf("err = %v, want *IncompleteSubmissionError", err)
	}
	if len(inc.Missing) != 1 || inc.Missing[0] != 11 {
		t.Fatalf("missing = %v", inc.Missing)
	}
	if inc.Error() != "missing answer for question: Q1" {
		t.Fatalf("message = %q", inc.Error())
	}
}

func TestLedgerUnmatchedTextScoresIncorrect(t *testing.T) {
	l, _, _ := newTestLedger(scenarioQuiz())
	a, err := l.Record(context.Background(), 1, 5, Answers{11: "Z", 12: "True"}, 0)
	if err != nil {
		t.Fatalf("unmatched text must not fail: %v", err)
	}
	if a.Score != 1 || a.Selections[11] != -1 {
		t.Fatalf("score=%d selections=%v", a.Score, a.Selections)
	}
}

func TestLedgerPropagatesPersistenceFailure(t *testing.T) {
	cat := &fakeCatalog{quizzes: map[int64]Quiz{1: scenarioQuiz()}}
	driverErr := errors.New("disk full")
	w := &fakeWriter{err: &PersistenceError{Op: "insert attempt", Err: driverErr}}
	sink := &fakeSink{}
	l := NewLedger(cat, w, sink)

	_, err := l.Record(context.Background(), 1, 5, Answers{11: "B", 12: "True"}, 0)
	var pe *PersistenceError
	if !errors.As(err, &pe) || !errors.Is(err, driverErr) {
		t.Fatalf("err = %v", err)
	}
	if len(sink.got) != 0 {
		t.Fatal("no event on failed write")
	}

	cat.err = &PersistenceError{Op: "get quiz", Err: driverErr}
	if _, err := l.Record(context.Background(), 1, 5, Answers{11: "B", 12: "True"}, 0); !errors.Is(err, driverErr) {
		t.Fatalf("catalog failure err = %v", err)
	}
}

func TestLedgerEventFailureDoesNotFailSubmission(t *testing.T) {
	cat := &fakeCatalog{quizzes: map[int64]Quiz{1: scenarioQuiz()}}
	w := &fakeWriter{}
	l := NewLedger(cat, w, &fakeSink{err: errors.New("queue down")})
	if _, err := l.Record(context.Background(), 1, 5, Answers{11: "B", 12: "True"}, 0); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(w.rows) != 1 {
		t.Fatal("attempt should be recorded")
	}
}

func TestLedgerDoesNotAliasCallerAnswers(t *testing.T) {
	l, w, _ := newTestLedger(scenarioQuiz())
	ans := Answers{11: "B", 12: "True"}
	if _, err := l.Record(context.Background(), 1, 5, ans, -4); err != nil {
		t.Fatal(err)
	}
	ans[11] = "C"
	if w.rows[0].Answers[11] != "B" {
		t.Fatal("stored answers changed after caller mutation")
	}
	if w.rows[0].Duration != 0 {
		t.Fatalf("negative duration stored as %d", w.rows[0].Duration)
	}
}
