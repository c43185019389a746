package quiz

import (
	"context"
	"log"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// Service is the boundary every transport calls into. The actor is always
// passed explicitly; nothing is read from ambient request state.
type Service struct {
	store  Store
	ledger *Ledger
	policy rbac.Policy
}

func NewService(store Store, events EventSink, policy rbac.Policy) *Service {
	return &Service{
		store:  store,
		ledger: NewLedger(store, store, events),
		policy: policy,
	}
}

// SubmitAttempt scores and records a submission for the actor.
func (s *Service) SubmitAttempt(ctx context.Context, actor *rbac.Actor, sub Submission) (Attempt, error) {
	if err := s.policy.Require(actor, rbac.PermAttemptCreate); err != nil {
		return Attempt{}, err
	}
	if err := ValidateSubmission(sub); err != nil {
		return Attempt{}, err
	}
	return s.ledger.Record(ctx, sub.QuizID, actor.ID, sub.Answers, sub.Duration)
}

// GetAttempt returns an attempt with the quiz it belongs to. Only the
// ownership field is inspected before the policy decision.
func (s *Service) GetAttempt(ctx context.Context, actor *rbac.Actor, id int64) (Attempt, error) {
	if actor == nil {
		return Attempt{}, rbac.ErrUnauthenticated
	}
	a, err := s.store.GetAttempt(ctx, id)
	if err != nil {
		return Attempt{}, err
	}
	ok, err := s.policy.CanRead(actor, a)
	if err != nil {
		return Attempt{}, err
	}
	if !ok {
		return Attempt{}, rbac.ErrUnauthorized
	}
	q, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	a.Quiz = &q
	return a, nil
}

// ListAttempts: administrators may filter freely, anyone else only sees
// their own attempts whatever filter they pass.
func (s *Service) ListAttempts(ctx context.Context, actor *rbac.Actor, opts AttemptListOpts) ([]Attempt, error) {
	if actor == nil {
		return nil, rbac.ErrUnauthenticated
	}
	all, err := s.policy.Allowed(actor, rbac.PermAttemptViewAll)
	if err != nil {
		return nil, err
	}
	if !all {
		if err := s.policy.Require(actor, rbac.PermAttemptViewOwn); err != nil {
			return nil, err
		}
		opts.UserID = actor.ID
	}
	return s.store.ListAttempts(ctx, opts)
}

// GetQuizForTaking returns the quiz without its answer key unless the actor
// may read the key. Quizzes without questions cannot be taken.
func (s *Service) GetQuizForTaking(ctx context.Context, actor *rbac.Actor, id int64) (QuizView, error) {
	if err := s.policy.Require(actor, rbac.PermQuizTake); err != nil {
		return QuizView{}, err
	}
	q, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return QuizView{}, err
	}
	withKey, err := s.policy.CanReadQuizWithAnswerKey(actor, q)
	if err != nil {
		return QuizView{}, err
	}
	if len(q.Questions) == 0 && !withKey {
		return QuizView{}, ErrQuizEmpty
	}
	return newQuizView(q, withKey), nil
}

// GetQuizWithAnswerKey returns the full quiz definition.
func (s *Service) GetQuizWithAnswerKey(ctx context.Context, actor *rbac.Actor, id int64) (Quiz, error) {
	if actor == nil {
		return Quiz{}, rbac.ErrUnauthenticated
	}
	q, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	ok, err := s.policy.CanReadQuizWithAnswerKey(actor, q)
	if err != nil {
		return Quiz{}, err
	}
	if !ok {
		return Quiz{}, rbac.ErrUnauthorized
	}
	return q, nil
}

// ListQuizzes returns catalog summaries. Attempt counts cover every attempt
// for administrators and only the actor's own otherwise.
func (s *Service) ListQuizzes(ctx context.Context, actor *rbac.Actor, opts QuizListOpts) ([]QuizSummary, error) {
	if err := s.policy.Require(actor, rbac.PermQuizTake); err != nil {
		return nil, err
	}
	all, _ := s.policy.Allowed(actor, rbac.PermAttemptViewAll)
	opts.AttemptsOf = 0
	if !all {
		opts.AttemptsOf = actor.ID
	}
	return s.store.ListQuizzes(ctx, opts)
}

// PutQuiz creates (ID 0) or replaces a quiz. Past attempts keep the score
// they were recorded with.
func (s *Service) PutQuiz(ctx context.Context, actor *rbac.Actor, q Quiz) (Quiz, error) {
	if err := s.requireManage(actor); err != nil {
		return Quiz{}, err
	}
	if err := ValidateQuiz(q); err != nil {
		return Quiz{}, err
	}
	if q.ID == 0 {
		q.CreatedBy = actor.ID
	}
	out, err := s.store.PutQuiz(ctx, q)
	if err != nil {
		return Quiz{}, err
	}
	log.Printf("[quiz] quiz saved id=%d questions=%d by=%d", out.ID, len(out.Questions), actor.ID)
	return out, nil
}

func (s *Service) DeleteQuiz(ctx context.Context, actor *rbac.Actor, id int64) error {
	if err := s.requireManage(actor); err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	log.Printf("[quiz] quiz deleted id=%d by=%d", id, actor.ID)
	return nil
}

// StudentReport aggregates attempts per student for administrators.
func (s *Service) StudentReport(ctx context.Context, actor *rbac.Actor) ([]StudentStat, error) {
	if err := s.policy.Require(actor, rbac.PermReportView); err != nil {
		return nil, err
	}
	return s.store.StudentStats(ctx)
}

func (s *Service) requireManage(actor *rbac.Actor) error {
	ok, err := s.policy.CanManageQuiz(actor)
	if err != nil {
		return err
	}
	if !ok {
		return rbac.ErrUnauthorized
	}
	return nil
}
