package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

func init() { HashCost = bcrypt.MinCost }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:users_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return NewStore(dbh)
}

func mustCreate(t *testing.T, s *Store, email string, role rbac.Role) User {
	t.Helper()
	u, err := s.Create(context.Background(), NewUser{Email: email, Password: "secret1", Role: role})
	if err != nil {
		t.Fatalf("Create(%s): %v", email, err)
	}
	return u
}

func TestCreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := mustCreate(t, s, " Ana@Example.com ", rbac.RoleStudent)
	if u.ID == 0 || u.Email != "ana@example.com" {
		t.Fatalf("created = %+v", u)
	}
	if _, err := s.Create(ctx, NewUser{Email: "ana@example.com", Password: "another", Role: rbac.RoleStudent}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate err = %v", err)
	}

	got, err := s.Authenticate(ctx, "ANA@example.com", "secret1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID || got.Role != rbac.RoleStudent {
		t.Fatalf("authenticated = %+v", got)
	}
	if _, err := s.Authenticate(ctx, "ana@example.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := s.Authenticate(ctx, "ghost@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	s := newTestStore(t)
	tests := []NewUser{
		{Email: "not-an-email", Password: "secret1", Role: rbac.RoleStudent},
		{Email: "a@example.com", Password: "123", Role: rbac.RoleStudent},
		{Email: "a@example.com", Password: "secret1", Role: "instructor"},
		{Password: "secret1", Role: rbac.RoleStudent},
	}
	for i, nu := range tests {
		if _, err := s.Create(context.Background(), nu); !errors.Is(err, ErrInvalidUser) {
			t.Errorf("case %d: err = %v, want ErrInvalidUser", i, err)
		}
	}
}

func TestSetRoleGuardsLastAdmin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	root := mustCreate(t, s, "root@example.com", rbac.RoleAdmin)
	stu := mustCreate(t, s, "stu@example.com", rbac.RoleStudent)

	if err := s.SetRole(ctx, root.ID, rbac.RoleStudent); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("demote last admin err = %v", err)
	}
	if err := s.SetRole(ctx, stu.ID, rbac.RoleAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := s.SetRole(ctx, root.ID, rbac.RoleStudent); err != nil {
		t.Fatalf("demote with another admin: %v", err)
	}
	if err := s.SetRole(ctx, 999, rbac.RoleAdmin); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user err = %v", err)
	}
	if err := s.SetRole(ctx, stu.ID, "owner"); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("bad role err = %v", err)
	}

	admins, err := s.List(ctx, rbac.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if len(admins) != 1 || admins[0].ID != stu.ID {
		t.Fatalf("admins = %+v", admins)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := mustCreate(t, s, "ana@example.com", rbac.RoleStudent)

	if err := s.ChangePassword(ctx, u.ID, "wrong", "newsecret"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("wrong old err = %v", err)
	}
	if err := s.ChangePassword(ctx, u.ID, "secret1", "x"); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("short new err = %v", err)
	}
	if err := s.ChangePassword(ctx, u.ID, "secret1", "newsecret"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := s.Authenticate(ctx, "ana@example.com", "newsecret"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustCreate(t, s, "ana@example.com", rbac.RoleStudent)

	csvIn := "email,name,role,password\nana@example.com,Ana,student,\nben@example.com,Ben,,benpass\n"
	rows, err := ParseImport(strings.NewReader(csvIn))
	if err != nil {
		t.Fatal(err)
	}
	ins, upd, err := s.Import(ctx, rows)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if ins != 1 || upd != 1 {
		t.Fatalf("inserted=%d updated=%d", ins, upd)
	}
	ana, _ := s.FindByEmail(ctx, "ana@example.com")
	if ana.Name != "Ana" {
		t.Fatalf("ana name = %q", ana.Name)
	}
	if _, err := s.Authenticate(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal("existing password should be kept")
	}
	ben, err := s.Authenticate(ctx, "ben@example.com", "benpass")
	if err != nil || ben.Role != rbac.RoleStudent {
		t.Fatalf("ben = %+v, %v", ben, err)
	}

	jsonIn := ` [{"email":"cy@example.com","role":"student"}]`
	rows, err = ParseImport(strings.NewReader(jsonIn))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Import(ctx, rows); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("new user without password err = %v", err)
	}
	if _, err := s.FindByEmail(ctx, "cy@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("failed import left a row: %v", err)
	}
}

func TestImportCannotDemoteLastAdmin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustCreate(t, s, "boss@example.com", rbac.RoleAdmin)

	_, _, err := s.Import(ctx, []ImportRow{
		{Email: "new@example.com", Role: rbac.RoleStudent, Password: "newpass"},
		{Email: "boss@example.com", Name: "Boss", Role: rbac.RoleStudent},
	})
	if !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("demote last admin via import err = %v", err)
	}
	admins, err := s.List(ctx, rbac.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if len(admins) != 1 || admins[0].Email != "boss@example.com" {
		t.Fatalf("admins = %+v", admins)
	}
	if _, err := s.FindByEmail(ctx, "new@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("rejected import left a row: %v", err)
	}

	// Promoting someone in the same batch makes the demotion legal.
	ins, upd, err := s.Import(ctx, []ImportRow{
		{Email: "deputy@example.com", Role: rbac.RoleAdmin, Password: "deppass"},
		{Email: "boss@example.com", Role: rbac.RoleStudent},
	})
	if err != nil || ins != 1 || upd != 1 {
		t.Fatalf("handover: ins=%d upd=%d err=%v", ins, upd, err)
	}
	boss, _ := s.FindByEmail(ctx, "boss@example.com")
	if boss.Role != rbac.RoleStudent {
		t.Fatalf("boss role = %q", boss.Role)
	}
}

func TestImportValidatesRows(t *testing.T) {
	s := newTestStore(t)
	tests := []struct {
		name string
		row  ImportRow
	}{
		{"bad email", ImportRow{Email: "not-an-email", Password: "secret1"}},
		{"long email", ImportRow{Email: strings.Repeat("a", 250) + "@example.com", Password: "secret1"}},
		{"short password", ImportRow{Email: "a@example.com", Password: "x"}},
		{"long password", ImportRow{Email: "a@example.com", Password: strings.Repeat("p", 73)}},
		{"bad role", ImportRow{Email: "a@example.com", Role: "owner", Password: "secret1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := s.Import(context.Background(), []ImportRow{tt.row}); !errors.Is(err, ErrInvalidUser) {
				t.Fatalf("err = %v, want ErrInvalidUser", err)
			}
		})
	}
}

func TestParseImportRejectsMissingColumns(t *testing.T) {
	if _, err := ParseImport(strings.NewReader("name\nAna\n")); err == nil {
		t.Fatal("expected error for csv without email column")
	}
}

