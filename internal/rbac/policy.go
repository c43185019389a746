package rbac

import "errors"

var (
	// ErrUnauthenticated means no valid identity was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized means the identity is valid but lacks the capability.
	ErrUnauthorized = errors.New("unauthorized")
)

// Actor is the caller identity produced by the identity provider and passed
// explicitly into every core operation.
type Actor struct {
	ID   int64
	Role Role
}

func (a *Actor) IsAdmin() bool { return a != nil && a.Role == RoleAdmin }

// Owned is implemented by records that belong to a single user.
type Owned interface {
	OwnerID() int64
}

// Policy answers access questions for a well-formed actor. Every method
// returns ErrUnauthenticated for a nil actor and never errors otherwise.
type Policy struct {
	checker *Checker
}

func NewPolicy(c *Checker) Policy {
	if c == nil {
		c = NewChecker(nil)
	}
	return Policy{checker: c}
}

// Allowed reports whether the actor's role grants perm.
func (p Policy) Allowed(a *Actor, perm string) (bool, error) {
	if a == nil {
		return false, ErrUnauthenticated
	}
	return p.checker.Has(a.Role, perm), nil
}

// CanRead: administrators read every attempt, everyone else only their own.
func (p Policy) CanRead(a *Actor, rec Owned) (bool, error) {
	if a == nil {
		return false, ErrUnauthenticated
	}
	if p.checker.Has(a.Role, PermAttemptViewAll) {
		return true, nil
	}
	return p.checker.Has(a.Role, PermAttemptViewOwn) && a.ID == rec.OwnerID(), nil
}

// CanReadQuizWithAnswerKey is role-based; authoring a quiz grants nothing extra.
func (p Policy) CanReadQuizWithAnswerKey(a *Actor, _ any) (bool, error) {
	return p.Allowed(a, PermQuizViewKey)
}

func (p Policy) CanManageQuiz(a *Actor) (bool, error) {
	return p.Allowed(a, PermQuizManage)
}

// Require is the error-returning form of Allowed.
func (p Policy) Require(a *Actor, perm string) error {
	ok, err := p.Allowed(a, perm)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}
