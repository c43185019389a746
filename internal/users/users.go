package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("incorrect old password")
	ErrLastAdmin          = errors.New("cannot demote the last admin")
	ErrInvalidUser        = errors.New("invalid user")
)

// HashCost is the bcrypt cost used for new password hashes.
var HashCost = 12

var validate = validator.New()

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         rbac.Role `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u User) Actor() *rbac.Actor { return &rbac.Actor{ID: u.ID, Role: u.Role} }

type NewUser struct {
	Email    string    `json:"email" validate:"required,email,max=254"`
	Name     string    `json:"name" validate:"max=100"`
	Password string    `json:"password" validate:"required,min=6,max=72"`
	Role     rbac.Role `json:"role" validate:"required,oneof=admin student"`
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store { return &Store{db: db, now: time.Now} }

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), HashCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Create registers a user with a bcrypt-hashed password.
func (s *Store) Create(ctx context.Context, nu NewUser) (User, error) {
	nu.Email = normalizeEmail(nu.Email)
	nu.Name = strings.TrimSpace(nu.Name)
	if err := validate.Struct(nu); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	hash, err := hashPassword(nu.Password)
	if err != nil {
		return User{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=$1`, nu.Email).Scan(new(int))
	switch {
	case err == nil:
		return User{}, ErrEmailTaken
	case !errors.Is(err, sql.ErrNoRows):
		return User{}, err
	}

	u := User{Email: nu.Email, Name: nu.Name, Role: nu.Role, PasswordHash: hash, CreatedAt: s.now().UTC().Truncate(time.Second)}
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO users (email,name,password_hash,role,created_at) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		u.Email, u.Name, u.PasswordHash, string(u.Role), u.CreatedAt.Unix()).Scan(&u.ID); err != nil {
		return User{}, err
	}
	if err := tx.Commit(); err != nil {
		return User{}, err
	}
	return u, nil
}

const userCols = `id,email,name,password_hash,role,created_at`

func scanUser(sc interface{ Scan(...any) error }) (User, error) {
	var u User
	var role string
	var created int64
	if err := sc.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	u.Role = rbac.Role(role)
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

func (s *Store) FindByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, normalizeEmail(email)))
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// List returns users ordered by email, optionally limited to one role.
func (s *Store) List(ctx context.Context, role rbac.Role) ([]User, error) {
	var rows *sql.Rows
	var err error
	if role == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY email`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users WHERE role=$1 ORDER BY email`, string(role))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetRole changes a user's role, refusing to demote the last administrator.
func (s *Store) SetRole(ctx context.Context, id int64, role rbac.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: role %q", ErrInvalidUser, role)
	}
	tx, err := s.db.BeginTx(ctx, roleTxOptions)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var cur string
	err = tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, id).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if err := setRoleTx(ctx, tx, id, rbac.Role(cur), role); err != nil {
		return err
	}
	return tx.Commit()
}

// roleTxOptions keeps concurrent demotions of different admins from both
// passing the admin count.
var roleTxOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}

// setRoleTx moves user id from cur to next. Demoting an admin is a single
// conditional UPDATE that matches nothing when they are the only admin left.
func setRoleTx(ctx context.Context, tx *sql.Tx, id int64, cur, next rbac.Role) error {
	if cur == next {
		return nil
	}
	if cur != rbac.RoleAdmin || next == rbac.RoleAdmin {
		_, err := tx.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, string(next), id)
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET role=$1 WHERE id=$2 AND role=$3 AND (SELECT COUNT(1) FROM users WHERE role=$3) > 1`,
		string(next), id, string(rbac.RoleAdmin))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLastAdmin
	}
	return nil
}

// ChangePassword replaces the hash after verifying the old password.
func (s *Store) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	if len(newPassword) < 6 || len(newPassword) > 72 {
		return fmt.Errorf("%w: new password must be 6 to 72 characters", ErrInvalidUser)
	}
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return ErrWrongPassword
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, id)
	return err
}
