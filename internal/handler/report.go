package handler

import (
	"bytes"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pavelanni/traitsurvey/internal/handler/views"
	"github.com/pavelanni/traitsurvey/internal/model"
	"github.com/pavelanni/traitsurvey/internal/report"
	"github.com/pavelanni/traitsurvey/internal/scoring"
)

const pdfFilename = "assessment-results.pdf"

// completedScores loads a session and scores it. Sessions still in progress
// are sent back to their first open item.
func (h *Handler) completedScores(w http.ResponseWriter, r *http.Request) (model.SurveySession, []model.CategoryScore, bool) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return sess, nil, false
	}
	answers, err := h.store.Answers(sess.ID)
	if err != nil {
		slog.Error("failed to get answers", "session_id", sess.ID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return sess, nil, false
	}
	if sess.Status != model.StatusCompleted {
		n := h.catalog.Len()
		if _, _, firstOpen := h.progress(answers); firstOpen >= 0 {
			n = firstOpen + 1
		}
		http.Redirect(w, r, h.questionPath(sess.ID, n), http.StatusSeeOther)
		return sess, nil, false
	}
	return sess, scoring.Compute(h.catalog, answers), true
}

// storedSummary returns the saved narrative for a session, or nil.
func (h *Handler) storedSummary(sessionID string) *model.Summary {
	sum, err := h.store.GetSummary(sessionID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("failed to get summary", "session_id", sessionID, "error", err)
		}
		return nil
	}
	return &sum
}

func (h *Handler) renderReport(w http.ResponseWriter, r *http.Request, data views.ReportData) {
	data.SummaryEnabled = h.config.SummaryEnabled
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.ReportPage(data).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, scores, ok := h.completedScores(w, r)
	if !ok {
		return
	}
	h.renderReport(w, r, views.ReportData{
		Session: sess,
		Scores:  scores,
		Summary: h.storedSummary(sess.ID),
	})
}

func (h *Handler) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	sess, scores, ok := h.completedScores(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	err := report.WritePDF(&buf, report.Report{
		Title:       "Assessment results",
		Respondent:  sess.Respondent,
		GeneratedAt: time.Now(),
		Scores:      scores,
		Summary:     h.storedSummary(sess.ID),
	})
	if err != nil {
		slog.Error("failed to render PDF", "session_id", sess.ID, "error", err)
		http.Error(w, "failed to render PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pdfFilename+`"`)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write PDF", "error", err)
	}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if h.summarizer == nil {
		http.NotFound(w, r)
		return
	}
	sess, scores, ok := h.completedScores(w, r)
	if !ok {
		return
	}

	data := views.ReportData{Session: sess, Scores: scores}
	summary, err := h.summarizer.Summarize(r.Context(), sess.Respondent, scores)
	if err != nil {
		slog.Error("summary failed", "session_id", sess.ID, "error", err)
		data.SummaryError = true
	} else {
		if err := h.store.SaveSummary(sess.ID, *summary); err != nil {
			slog.Error("failed to save summary", "session_id", sess.ID, "error", err)
		}
		data.Summary = summary
	}
	h.renderReport(w, r, data)
}
