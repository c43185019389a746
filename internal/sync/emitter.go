package syncx

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

const TypeAttemptSubmitted = "AttemptSubmitted"

// Publisher sends a message body to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// AttemptSubmitted is the payload of the event. Answers are not included.
type AttemptSubmitted struct {
	EventID   string    `json:"event_id"`
	SiteID    string    `json:"site_id"`
	AttemptID int64     `json:"attempt_id"`
	QuizID    int64     `json:"quiz_id"`
	UserID    int64     `json:"user_id"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	Passed    bool      `json:"passed"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}

// Emitter appends attempt events to the event log and, when a publisher is
// configured, forwards them to a queue. It satisfies quiz.EventSink.
type Emitter struct {
	repo   *EventRepo
	pub    Publisher
	queue  string
	siteID string
}

func NewEmitter(repo *EventRepo, pub Publisher, queue, siteID string) *Emitter {
	return &Emitter{repo: repo, pub: pub, queue: queue, siteID: siteID}
}

func (e *Emitter) AttemptRecorded(ctx context.Context, a quiz.Attempt) error {
	ev := AttemptSubmitted{
		EventID:   uuid.NewString(),
		SiteID:    e.siteID,
		AttemptID: a.ID,
		QuizID:    a.QuizID,
		UserID:    a.UserID,
		Score:     a.Score,
		Total:     a.Total,
		Passed:    a.Passed,
		Duration:  a.Duration,
		CreatedAt: a.CreatedAt,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	var errs []error
	if e.repo != nil {
		if err := e.repo.Append(ctx, Event{
			ID:        ev.EventID,
			SiteID:    e.siteID,
			Type:      TypeAttemptSubmitted,
			Key:       strconv.FormatInt(a.ID, 10),
			DataJSON:  string(body),
			CreatedAt: a.CreatedAt.Unix(),
		}); err != nil {
			errs = append(errs, err)
		}
	}
	if e.pub != nil {
		if err := e.pub.Publish(ctx, e.queue, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ quiz.EventSink = (*Emitter)(nil)
