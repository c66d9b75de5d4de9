package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/traitsurvey/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath. ":memory:" keeps all
// survey state in process memory.
func New(dbPath string) (*Store, error) {
	dsn := dbPath
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps an in-memory database shared by all callers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS survey_sessions (
		id TEXT PRIMARY KEY,
		respondent TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'in_progress',
		started_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS answers (
		session_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		domain TEXT NOT NULL DEFAULT '',
		facet INTEGER NOT NULL DEFAULT 0,
		answered_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, item_id),
		FOREIGN KEY (session_id) REFERENCES survey_sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS summaries (
		session_id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		strengths TEXT NOT NULL DEFAULT '[]',
		support TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES survey_sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'teacher',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS survey_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSession starts a new survey session.
func (s *Store) CreateSession(respondent string) (model.SurveySession, error) {
	sess := model.SurveySession{
		ID:         uuid.New().String(),
		Respondent: strings.TrimSpace(respondent),
		Status:     model.StatusInProgress,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO survey_sessions (id, respondent, status, started_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Respondent, sess.Status, sess.StartedAt,
	)
	if err != nil {
		return model.SurveySession{}, err
	}
	return sess, nil
}

// GetSession returns a session by ID. It returns sql.ErrNoRows when the
// session does not exist.
func (s *Store) GetSession(id string) (model.SurveySession, error) {
	var sess model.SurveySession
	err := s.db.QueryRow(
		`SELECT id, respondent, status, started_at, completed_at FROM survey_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Respondent, &sess.Status, &sess.StartedAt, &sess.CompletedAt)
	return sess, err
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]model.SurveySession, error) {
	return s.querySessions(`SELECT id, respondent, status, started_at, completed_at
		FROM survey_sessions ORDER BY started_at DESC, id`)
}

// ListCompletedSessions returns completed sessions, newest first.
func (s *Store) ListCompletedSessions() ([]model.SurveySession, error) {
	return s.querySessions(`SELECT id, respondent, status, started_at, completed_at
		FROM survey_sessions WHERE status = 'completed' ORDER BY completed_at DESC, id`)
}

func (s *Store) querySessions(query string, args ...any) ([]model.SurveySession, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.SurveySession
	for rows.Next() {
		var sess model.SurveySession
		if err := rows.Scan(&sess.ID, &sess.Respondent, &sess.Status, &sess.StartedAt, &sess.CompletedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CompleteSession marks a session as completed.
func (s *Store) CompleteSession(id string) error {
	res, err := s.db.Exec(
		`UPDATE survey_sessions SET status = ?, completed_at = ? WHERE id = ?`,
		model.StatusCompleted, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteSession removes a session and its answers.
func (s *Store) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM survey_sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RecordAnswer stores an answer, replacing any earlier answer to the same
// item in the session.
func (s *Store) RecordAnswer(sessionID string, a model.Answer) error {
	_, err := s.db.Exec(
		`INSERT INTO answers (session_id, item_id, score, domain, facet, answered_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, item_id) DO UPDATE SET
		   score = excluded.score,
		   domain = excluded.domain,
		   facet = excluded.facet,
		   answered_at = excluded.answered_at`,
		sessionID, a.ItemID, a.Score, a.Category, a.SubCategory, time.Now().UTC(),
	)
	return err
}

// Answers returns the session's answers in the order they were first given.
func (s *Store) Answers(sessionID string) ([]model.Answer, error) {
	rows, err := s.db.Query(
		`SELECT item_id, score, domain, facet FROM answers WHERE session_id = ? ORDER BY rowid`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ItemID, &a.Score, &a.Category, &a.SubCategory); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ResetAnswers discards every answer and the stored summary of a session
// and reopens it.
func (s *Store) ResetAnswers(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM answers WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM summaries WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	res, err := tx.Exec(
		`UPDATE survey_sessions SET status = ?, completed_at = NULL WHERE id = ?`,
		model.StatusInProgress, sessionID,
	)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
