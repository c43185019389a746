package users

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// ImportRow is one record of a bulk user import. Password may be empty for
// existing users, in which case their hash is kept.
type ImportRow struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     rbac.Role `json:"role"`
	Password string    `json:"password,omitempty"`
}

// ParseImport reads either a JSON array or a CSV file with an
// email,name,role[,password] header.
func ParseImport(r io.Reader) ([]ImportRow, error) {
	br := bufio.NewReader(r)
	for {
		b, err := br.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
		if b[0] == ' ' || b[0] == '\n' || b[0] == '\r' || b[0] == '\t' {
			_, _ = br.ReadByte()
			continue
		}
		if b[0] == '[' {
			var rows []ImportRow
			if err := json.NewDecoder(br).Decode(&rows); err != nil {
				return nil, fmt.Errorf("bad json: %w", err)
			}
			return rows, nil
		}
		return parseCSV(br)
	}
}

func parseCSV(r io.Reader) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("bad csv: %w", err)
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"email", "role"} {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("bad csv: missing column: " + k)
		}
	}
	col := func(rec []string, name string) string {
		if i, ok := idx[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	var rows []ImportRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bad csv: %w", err)
		}
		rows = append(rows, ImportRow{
			Email:    col(rec, "email"),
			Name:     col(rec, "name"),
			Role:     rbac.Role(strings.ToLower(col(rec, "role"))),
			Password: col(rec, "password"),
		})
	}
	return rows, nil
}

// Import upserts rows by email in one transaction. New users need a password.
func (s *Store) Import(ctx context.Context, rows []ImportRow) (inserted, updated int, err error) {
	tx, err := s.db.BeginTx(ctx, roleTxOptions)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	now := s.now().Unix()
	for i, r := range rows {
		email := normalizeEmail(r.Email)
		if email == "" {
			return inserted, updated, fmt.Errorf("%w: row %d: email required", ErrInvalidUser, i+1)
		}
		if err = validate.Var(email, "email,max=254"); err != nil {
			return inserted, updated, fmt.Errorf("%w: row %d: invalid email %q", ErrInvalidUser, i+1, email)
		}
		if r.Role == "" {
			r.Role = rbac.RoleStudent
		}
		if !r.Role.Valid() {
			return inserted, updated, fmt.Errorf("%w: row %d: invalid role %q", ErrInvalidUser, i+1, r.Role)
		}
		var hash string
		if r.Password != "" {
			if len(r.Password) < 6 || len(r.Password) > 72 {
				return inserted, updated, fmt.Errorf("%w: row %d: password must be 6 to 72 characters", ErrInvalidUser, i+1)
			}
			if hash, err = hashPassword(r.Password); err != nil {
				return inserted, updated, err
			}
		}

		var (
			id  int64
			cur string
		)
		err = tx.QueryRowContext(ctx, `SELECT id, role FROM users WHERE email=$1`, email).Scan(&id, &cur)
		switch {
		case err == nil:
			if err = setRoleTx(ctx, tx, id, rbac.Role(cur), r.Role); err != nil {
				return inserted, updated, fmt.Errorf("row %d: %w", i+1, err)
			}
			if hash != "" {
				_, err = tx.ExecContext(ctx, `UPDATE users SET name=$1, password_hash=$2 WHERE id=$3`, r.Name, hash, id)
			} else {
				_, err = tx.ExecContext(ctx, `UPDATE users SET name=$1 WHERE id=$2`, r.Name, id)
			}
			if err != nil {
				return inserted, updated, err
			}
			updated++
		case errors.Is(err, sql.ErrNoRows):
			if hash == "" {
				return inserted, updated, fmt.Errorf("%w: password required for new user %s", ErrInvalidUser, email)
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO users (email,name,password_hash,role,created_at) VALUES ($1,$2,$3,$4,$5)`,
				email, r.Name, hash, string(r.Role), now); err != nil {
				return inserted, updated, err
			}
			inserted++
		default:
			return inserted, updated, err
		}
	}
	return inserted, updated, nil
}
