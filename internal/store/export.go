package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/traitsurvey/internal/catalog"
	"github.com/pavelanni/traitsurvey/internal/model"
	"github.com/pavelanni/traitsurvey/internal/scoring"
)

// ExportSessions builds export-ready results for every completed session,
// scoring each against cat.
func (s *Store) ExportSessions(cat *catalog.Catalog) (model.SurveyExport, error) {
	sessions, err := s.ListCompletedSessions()
	if err != nil {
		return model.SurveyExport{}, fmt.Errorf("list sessions: %w", err)
	}
	hash, err := s.CatalogHash()
	if err != nil {
		return model.SurveyExport{}, fmt.Errorf("read catalog hash: %w", err)
	}

	export := model.SurveyExport{
		ExportedAt:  time.Now().UTC(),
		CatalogHash: hash,
		NumItems:    cat.Len(),
		Results:     []model.SessionResult{},
	}
	for _, sess := range sessions {
		answers, err := s.Answers(sess.ID)
		if err != nil {
			return model.SurveyExport{}, fmt.Errorf("answers for session %s: %w", sess.ID, err)
		}
		if answers == nil {
			answers = []model.Answer{}
		}
		export.Results = append(export.Results, model.SessionResult{
			SessionID:   sess.ID,
			Respondent:  sess.Respondent,
			Status:      sess.Status,
			StartedAt:   sess.StartedAt,
			CompletedAt: sess.CompletedAt,
			Answers:     answers,
			Scores:      scoring.Compute(cat, answers),
		})
	}
	return export, nil
}
