package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/traitsurvey/internal/model"
)

// SaveSummary stores the narrative summary of a session, replacing an
// earlier one.
func (s *Store) SaveSummary(sessionID string, sum model.Summary) error {
	strengths, err := json.Marshal(nonNil(sum.Strengths))
	if err != nil {
		return fmt.Errorf("marshal strengths: %w", err)
	}
	support, err := json.Marshal(nonNil(sum.Support))
	if err != nil {
		return fmt.Errorf("marshal support: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO summaries (session_id, text, strengths, support, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   text = excluded.text,
		   strengths = excluded.strengths,
		   support = excluded.support,
		   created_at = excluded.created_at`,
		sessionID, sum.Text, string(strengths), string(support), time.Now().UTC(),
	)
	return err
}

// GetSummary returns the stored summary of a session. It returns
// sql.ErrNoRows when none was generated.
func (s *Store) GetSummary(sessionID string) (model.Summary, error) {
	var (
		sum                model.Summary
		strengths, support string
	)
	err := s.db.QueryRow(
		`SELECT text, strengths, support FROM summaries WHERE session_id = ?`, sessionID,
	).Scan(&sum.Text, &strengths, &support)
	if err != nil {
		return model.Summary{}, err
	}
	if err := json.Unmarshal([]byte(strengths), &sum.Strengths); err != nil {
		return model.Summary{}, fmt.Errorf("unmarshal strengths: %w", err)
	}
	if err := json.Unmarshal([]byte(support), &sum.Support); err != nil {
		return model.Summary{}, fmt.Errorf("unmarshal support: %w", err)
	}
	return sum, nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
