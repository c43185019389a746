package rbac

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type owned int64

func (o owned) OwnerID() int64 { return int64(o) }

func TestCanRead(t *testing.T) {
	p := NewPolicy(nil)
	attempt := owned(5)

	tests := []struct {
		name  string
		actor *Actor
		want  bool
	}{
		{"owner student", &Actor{ID: 5, Role: RoleStudent}, true},
		{"other student", &Actor{ID: 6, Role: RoleStudent}, false},
		{"admin any id", &Actor{ID: 999, Role: RoleAdmin}, true},
		{"admin same id", &Actor{ID: 5, Role: RoleAdmin}, true},
		{"unknown role even as owner", &Actor{ID: 5, Role: Role("guest")}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.CanRead(tc.actor, attempt)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("CanRead = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNilActorIsUnauthenticated(t *testing.T) {
	p := NewPolicy(nil)
	if _, err := p.CanRead(nil, owned(1)); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("CanRead(nil) err = %v", err)
	}
	if _, err := p.CanManageQuiz(nil); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("CanManageQuiz(nil) err = %v", err)
	}
	if _, err := p.CanReadQuizWithAnswerKey(nil, nil); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("CanReadQuizWithAnswerKey(nil) err = %v", err)
	}
	if err := p.Require(nil, PermQuizTake); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Require(nil) err = %v", err)
	}
}

func TestManageAndAnswerKeyAreAdminOnly(t *testing.T) {
	p := NewPolicy(nil)
	admin := &Actor{ID: 1, Role: RoleAdmin}
	student := &Actor{ID: 2, Role: RoleStudent}

	if ok, _ := p.CanManageQuiz(admin); !ok {
		t.Fatal("admin should manage quizzes")
	}
	if ok, _ := p.CanManageQuiz(student); ok {
		t.Fatal("student must not manage quizzes")
	}
	if ok, _ := p.CanReadQuizWithAnswerKey(admin, nil); !ok {
		t.Fatal("admin should read answer key")
	}
	if ok, _ := p.CanReadQuizWithAnswerKey(student, nil); ok {
		t.Fatal("student must not read answer key")
	}
	if err := p.Require(student, PermReportView); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Require(student, report) = %v", err)
	}
	if err := p.Require(student, PermAttemptCreate); err != nil {
		t.Fatalf("student should create attempts: %v", err)
	}
}

func TestCheckerWildcardPrefix(t *testing.T) {
	c := NewChecker(map[Role][]string{"grader": {"attempt:*"}})
	if !c.Has("grader", PermAttemptViewAll) {
		t.Fatal("prefix wildcard should match")
	}
	if c.Has("grader", PermQuizManage) {
		t.Fatal("prefix wildcard should not leak")
	}
}

func TestRequireMiddleware(t *testing.T) {
	h := Require(PermQuizManage)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		actor *Actor
		code  int
	}{
		{nil, http.StatusUnauthorized},
		{&Actor{ID: 2, Role: RoleStudent}, http.StatusForbidden},
		{&Actor{ID: 1, Role: RoleAdmin}, http.StatusNoContent},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/quizzes", nil)
		if c.actor != nil {
			req = req.WithContext(WithActor(req.Context(), c.actor))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != c.code {
			t.Fatalf("actor %+v: code = %d, want %d", c.actor, rec.Code, c.code)
		}
	}
}
