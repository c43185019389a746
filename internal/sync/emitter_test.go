package syncx_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

type fakePublisher struct {
	queue string
	msgs  [][]byte
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, queueName string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.queue = queueName
	p.msgs = append(p.msgs, body)
	return nil
}

func TestEmitterAppendsAndPublishes(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:emitter_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbh.Close()

	repo := syncx.NewEventRepo(dbh)
	pub := &fakePublisher{}
	em := syncx.NewEmitter(repo, pub, "quiz.attempts", "site-a")

	a := quiz.Attempt{ID: 42, QuizID: 7, UserID: 5, Score: 1, Total: 2, Passed: true,
		Answers: quiz.Answers{1: "B"}, CreatedAt: time.Unix(1700000000, 0).UTC()}
	if err := em.AttemptRecorded(ctx, a); err != nil {
		t.Fatalf("AttemptRecorded: %v", err)
	}

	events, err := repo.Since(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Type != syncx.TypeAttemptSubmitted || ev.Key != "42" || ev.SiteID != "site-a" || ev.ID == "" {
		t.Fatalf("unexpected event %+v", ev)
	}

	if pub.queue != "quiz.attempts" || len(pub.msgs) != 1 {
		t.Fatalf("published to %q %d msgs", pub.queue, len(pub.msgs))
	}
	var payload syncx.AttemptSubmitted
	if err := json.Unmarshal(pub.msgs[0], &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.AttemptID != 42 || !payload.Passed || payload.EventID != ev.ID {
		t.Fatalf("payload = %+v", payload)
	}
	if string(pub.msgs[0]) != ev.DataJSON {
		t.Fatal("log and queue payloads differ")
	}
}

func TestEmitterReportsPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	em := syncx.NewEmitter(nil, pub, "q", "local")
	err := em.AttemptRecorded(context.Background(), quiz.Attempt{ID: 1, CreatedAt: time.Now()})
	if err == nil || err.Error() != "broker down" {
		t.Fatalf("err = %v", err)
	}
}
