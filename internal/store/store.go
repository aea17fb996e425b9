package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresmejia3/signspell/internal/types"
	"github.com/andresmejia3/signspell/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// QuizTypes are the stat categories every profile starts with.
var QuizTypes = []string{"Total", "Multiple Choice", "Matching", "Spelling"}

// ErrUserExists is returned by AddUser for a taken username.
var ErrUserExists = errors.New("user already exists")

// DefaultQuestions is the spelling quiz seed set.
var DefaultQuestions = []types.SpellingQuestion{
	{Prompt: "Spell Cat", Answer: "CAT"},
	{Prompt: "Spell Dog", Answer: "DOG"},
	{Prompt: "Spell BIRD", Answer: "BIRD"},
	{Prompt: "Spell Cow", Answer: "COW"},
	{Prompt: "Spell Goat", Answer: "GOAT"},
	{Prompt: "Spell Dad", Answer: "DAD"},
	{Prompt: "Spell Mom", Answer: "MOM"},
	{Prompt: "Spell Door", Answer: "DOOR"},
	{Prompt: "Spell Eat", Answer: "EAT"},
	{Prompt: "Spell Nose", Answer: "NOSE"},
}

// Store manages the PostgreSQL connection for profiles, stats and quiz questions.
type Store struct {
	conn *pgx.Conn
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the necessary tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS user_stats (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
			quiz_type TEXT NOT NULL,
			correct INT NOT NULL DEFAULT 0,
			total INT NOT NULL DEFAULT 0,
			UNIQUE (username, quiz_type)
		);
		CREATE TABLE IF NOT EXISTS spelling_quiz (
			id SERIAL PRIMARY KEY,
			prompt TEXT NOT NULL UNIQUE,
			answer TEXT NOT NULL
		);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// SeedQuestions inserts the given prompts, skipping any that already exist.
func (s *Store) SeedQuestions(ctx context.Context, questions []types.SpellingQuestion) error {
	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(`INSERT INTO spelling_quiz (prompt, answer) VALUES ($1, $2) ON CONFLICT (prompt) DO NOTHING`, q.Prompt, q.Answer)
	}
	return s.conn.SendBatch(ctx, batch).Close()
}

// Questions returns the spelling quiz in insertion order.
func (s *Store) Questions(ctx context.Context) ([]types.SpellingQuestion, error) {
	rows, err := s.conn.Query(ctx, `SELECT id, prompt, answer FROM spelling_quiz ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.SpellingQuestion
	for rows.Next() {
		var q types.SpellingQuestion
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Answer); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// AddUser creates a profile with a zeroed stats row per quiz type.
func (s *Store) AddUser(ctx context.Context, username, password string) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `INSERT INTO users (username, password_hash) VALUES ($1, $2)`, username, utils.HashPassword(password))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return err
	}
	if err := insertStatRows(ctx, tx, username); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// EnsureUser creates a password-less profile if it is missing. Used for the default guest.
func (s *Store) EnsureUser(ctx context.Context, username string) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO users (username, password_hash) VALUES ($1, '') ON CONFLICT (username) DO NOTHING`, username); err != nil {
		return err
	}
	if err := insertStatRows(ctx, tx, username); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertStatRows(ctx context.Context, tx pgx.Tx, username string) error {
	for _, quizType := range QuizTypes {
		_, err := tx.Exec(ctx, `
			INSERT INTO user_stats (username, quiz_type) VALUES ($1, $2)
			ON CONFLICT (username, quiz_type) DO NOTHING
		`, username, quizType)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteUser removes a profile and, by cascade, its stats. Returns false if it did not exist.
func (s *Store) DeleteUser(ctx context.Context, username string) (bool, error) {
	tag, err := s.conn.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListUsers returns every profile ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]types.UserSummary, error) {
	rows, err := s.conn.Query(ctx, `SELECT username, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.UserSummary
	for rows.Next() {
		var u types.UserSummary
		if err := rows.Scan(&u.Username, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ValidateUser reports whether the password matches the stored hash.
func (s *Store) ValidateUser(ctx context.Context, username, password string) (bool, error) {
	var hash string
	err := s.conn.QueryRow(ctx, `SELECT password_hash FROM users WHERE username = $1`, username).Scan(&hash)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return hash == utils.HashPassword(password), nil
}

// UpdateStats adds the deltas to a user's counters for quizType, creating the row if needed.
func (s *Store) UpdateStats(ctx context.Context, username, quizType string, correctDelta, totalDelta int) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO user_stats (username, quiz_type, correct, total)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username, quiz_type) DO UPDATE
		SET correct = user_stats.correct + EXCLUDED.correct, total = user_stats.total + EXCLUDED.total
	`, username, quizType, correctDelta, totalDelta)
	return err
}

// ReadStats returns a user's counters, one record per quiz type.
func (s *Store) ReadStats(ctx context.Context, username string) ([]types.StatRecord, error) {
	rows, err := s.conn.Query(ctx, `SELECT quiz_type, correct, total FROM user_stats WHERE username = $1 ORDER BY id`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.StatRecord
	for rows.Next() {
		var r types.StatRecord
		if err := rows.Scan(&r.QuizType, &r.Correct, &r.Total); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResetStats zeroes every counter of a user.
func (s *Store) ResetStats(ctx context.Context, username string) error {
	_, err := s.conn.Exec(ctx, `UPDATE user_stats SET correct = 0, total = 0 WHERE username = $1`, username)
	return err
}

// OverallStats sums the "Total" counters of every user.
func (s *Store) OverallStats(ctx context.Context) (types.StatRecord, error) {
	r := types.StatRecord{QuizType: "Total"}
	err := s.conn.QueryRow(ctx, `
		SELECT COALESCE(SUM(correct), 0), COALESCE(SUM(total), 0)
		FROM user_stats WHERE quiz_type = 'Total'
	`).Scan(&r.Correct, &r.Total)
	return r, err
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS user_stats CASCADE;
		DROP TABLE IF EXISTS users CASCADE;
		DROP TABLE IF EXISTS spelling_quiz CASCADE;
	`)
	return err
}
