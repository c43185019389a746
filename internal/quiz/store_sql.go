package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, now: time.Now}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) GetQuiz(ctx context.Context, id int64) (Quiz, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,description,passing_criteria,created_by,created_at,updated_at FROM quizzes WHERE id=$1`, id)
	var q Quiz
	var created, updated int64
	if err := row.Scan(&q.ID, &q.Title, &q.Description, &q.PassingCriteria, &q.CreatedBy, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, persistErr("get quiz", err)
	}
	q.CreatedAt = unixTime(created)
	q.UpdatedAt = unixTime(updated)

	qs, err := loadQuestions(ctx, s.db, id)
	if err != nil {
		return Quiz{}, persistErr("load questions", err)
	}
	q.Questions = qs
	return q, nil
}

func loadQuestions(ctx context.Context, db queryer, quizID int64) ([]Question, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id,type,text,options_json,correct_json FROM questions WHERE quiz_id=$1 ORDER BY position, id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Question{}
	for rows.Next() {
		var q Question
		var typ, opts, correct string
		if err := rows.Scan(&q.ID, &typ, &q.Text, &opts, &correct); err != nil {
			return nil, err
		}
		q.Type = QuestionType(typ)
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("question %d options: %w", q.ID, err)
		}
		if err := json.Unmarshal([]byte(correct), &q.CorrectAnswers); err != nil {
			return nil, fmt.Errorf("question %d correct answers: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts QuizListOpts) ([]QuizSummary, error) {
	limit, offset := pageBounds(opts.Limit, opts.Offset)
	var args []any
	attemptFilter := ""
	if opts.AttemptsOf > 0 {
		args = append(args, opts.AttemptsOf)
		attemptFilter = " AND a.user_id = $1"
	}
	query := `SELECT q.id, q.title, q.description, q.passing_criteria, q.created_by, q.created_at,
  (SELECT COUNT(*) FROM questions qq WHERE qq.quiz_id = q.id),
  (SELECT COUNT(*) FROM attempts a WHERE a.quiz_id = q.id` + attemptFilter + `)
FROM quizzes q
ORDER BY q.created_at DESC, q.id DESC` + fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list quizzes", err)
	}
	defer rows.Close()

	out := []QuizSummary{}
	for rows.Next() {
		var qs QuizSummary
		var created int64
		if err := rows.Scan(&qs.ID, &qs.Title, &qs.Description, &qs.PassingCriteria, &qs.CreatedBy, &created,
			&qs.QuestionCount, &qs.AttemptCount); err != nil {
			return nil, persistErr("list quizzes", err)
		}
		qs.CreatedAt = unixTime(created)
		out = append(out, qs)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list quizzes", err)
	}
	return out, nil
}

func (s *SQLStore) PutQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Quiz{}, persistErr("put quiz", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()
	if q.ID == 0 {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO quizzes (title,description,passing_criteria,created_by,created_at,updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			q.Title, q.Description, q.PassingCriteria, q.CreatedBy, now, now).Scan(&q.ID)
		if err != nil {
			return Quiz{}, persistErr("insert quiz", err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE quizzes SET title=$1, description=$2, passing_criteria=$3, updated_at=$4 WHERE id=$5`,
			q.Title, q.Description, q.PassingCriteria, now, q.ID)
		if err != nil {
			return Quiz{}, persistErr("update quiz", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return Quiz{}, ErrQuizNotFound
		}
	}

	existing, err := questionIDs(ctx, tx, q.ID)
	if err != nil {
		return Quiz{}, persistErr("load question ids", err)
	}
	keep := make(map[QuestionID]bool, len(q.Questions))
	for i, qq := range q.Questions {
		opts, _ := json.Marshal(qq.Options)
		correct, _ := json.Marshal(qq.CorrectAnswers)
		if qq.ID != 0 && existing[qq.ID] {
			_, err := tx.ExecContext(ctx,
				`UPDATE questions SET position=$1, type=$2, text=$3, options_json=$4, correct_json=$5 WHERE id=$6`,
				i, string(qq.Type), qq.Text, string(opts), string(correct), qq.ID)
			if err != nil {
				return Quiz{}, persistErr("update question", err)
			}
			keep[qq.ID] = true
			continue
		}
		var id QuestionID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO questions (quiz_id,position,type,text,options_json,correct_json)
			 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			q.ID, i, string(qq.Type), qq.Text, string(opts), string(correct)).Scan(&id)
		if err != nil {
			return Quiz{}, persistErr("insert question", err)
		}
		keep[id] = true
	}
	for id := range existing {
		if keep[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id); err != nil {
			return Quiz{}, persistErr("delete question", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Quiz{}, persistErr("put quiz", err)
	}
	return s.GetQuiz(ctx, q.ID)
}

func questionIDs(ctx context.Context, db queryer, quizID int64) (map[QuestionID]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM questions WHERE quiz_id=$1`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[QuestionID]bool{}
	for rows.Next() {
		var id QuestionID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// DeleteQuiz removes the quiz with its questions and attempts.
func (s *SQLStore) DeleteQuiz(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("delete quiz", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM attempts WHERE quiz_id=$1`,
		`DELETE FROM questions WHERE quiz_id=$1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return persistErr("delete quiz", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return persistErr("delete quiz", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrQuizNotFound
	}
	return persistErr("delete quiz", tx.Commit())
}

func (s *SQLStore) InsertAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	if a.Answers == nil {
		a.Answers = Answers{}
	}
	if a.Selections == nil {
		a.Selections = map[QuestionID]int{}
	}
	ans, err := json.Marshal(a.Answers)
	if err != nil {
		return Attempt{}, err
	}
	sel, err := json.Marshal(a.Selections)
	if err != nil {
		return Attempt{}, err
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO attempts (quiz_id,user_id,score,total,passed,answers_json,selections_json,duration,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		a.QuizID, a.UserID, a.Score, a.Total, a.Passed, string(ans), string(sel), a.Duration, created.Unix()).Scan(&a.ID)
	if err != nil {
		return Attempt{}, persistErr("insert attempt", err)
	}
	a.CreatedAt = unixTime(created.Unix())
	return a, nil
}

const attemptColumns = `id,quiz_id,user_id,score,total,passed,answers_json,selections_json,duration,created_at`

func scanAttempt(sc scanner) (Attempt, error) {
	var a Attempt
	var ans, sel string
	var created int64
	if err := sc.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.Total, &a.Passed, &ans, &sel, &a.Duration, &created); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(ans), &a.Answers); err != nil {
		return Attempt{}, fmt.Errorf("attempt %d answers: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(sel), &a.Selections); err != nil {
		return Attempt{}, fmt.Errorf("attempt %d selections: %w", a.ID, err)
	}
	a.CreatedAt = unixTime(created)
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id int64) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, persistErr("get attempt", err)
	}
	return a, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	var where []string
	var args []any
	if opts.QuizID > 0 {
		args = append(args, opts.QuizID)
		where = append(where, fmt.Sprintf("quiz_id=$%d", len(args)))
	}
	if opts.UserID > 0 {
		args = append(args, opts.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	query := `SELECT ` + attemptColumns + ` FROM attempts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := pageBounds(opts.Limit, opts.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list attempts", err)
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, persistErr("list attempts", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list attempts", err)
	}
	return out, nil
}

func (s *SQLStore) StudentStats(ctx context.Context) ([]StudentStat, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT u.id, u.email, u.name, COUNT(a.id),
  COALESCE(SUM(a.score), 0),
  COALESCE(SUM(CASE WHEN a.passed THEN 1 ELSE 0 END), 0),
  MAX(a.created_at)
FROM users u LEFT JOIN attempts a ON a.user_id = u.id
WHERE u.role = 'student'
GROUP BY u.id, u.email, u.name, u.created_at
ORDER BY u.created_at DESC, u.id DESC`)
	if err != nil {
		return nil, persistErr("student stats", err)
	}
	defer rows.Close()

	out := []StudentStat{}
	for rows.Next() {
		var st StudentStat
		var count, sum, passed int64
		var last sql.NullInt64
		if err := rows.Scan(&st.UserID, &st.Email, &st.Name, &count, &sum, &passed, &last); err != nil {
			return nil, persistErr("student stats", err)
		}
		st.TotalQuizzes = int(count)
		st.PassedCount = int(passed)
		st.Status = "Inactive"
		if count > 0 {
			st.AverageScore = int(math.Round(float64(sum) / float64(count)))
			st.Status = "Active"
		}
		if last.Valid {
			t := unixTime(last.Int64)
			st.LastAttempt = &t
		}
		if st.Name == "" {
			st.Name, _, _ = strings.Cut(st.Email, "@")
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("student stats", err)
	}
	return out, nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func unixTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }
