package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/traitsurvey/internal/catalog"
	"github.com/pavelanni/traitsurvey/internal/handler/views"
	"github.com/pavelanni/traitsurvey/internal/llm"
	"github.com/pavelanni/traitsurvey/internal/model"
	"github.com/pavelanni/traitsurvey/internal/store"
)

// Summarizer writes a narrative summary of a scored report.
type Summarizer interface {
	Summarize(ctx context.Context, respondent string, scores []model.CategoryScore) (*model.Summary, error)
}

var _ Summarizer = (*llm.Client)(nil)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store      *store.Store
	catalog    *catalog.Catalog
	summarizer Summarizer
	config     model.SurveyConfig
}

// New creates a new Handler. summarizer may be nil, which disables
// narrative summaries.
func New(s *store.Store, cat *catalog.Catalog, summarizer Summarizer, cfg model.SurveyConfig) (*Handler, error) {
	if s == nil || cat == nil {
		return nil, errors.New("handler needs a store and a catalog")
	}
	cfg.SummaryEnabled = summarizer != nil
	return &Handler{store: s, catalog: cat, summarizer: summarizer, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.csrfMiddleware)
	r.Use(h.loadUser)

	r.Get("/", h.handleIndex)
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Route("/survey", func(r chi.Router) {
		r.Post("/start", h.handleStart)
		r.Get("/{sessionID}/q/{n}", h.handleQuestionPage)
		r.Post("/{sessionID}/q/{n}", h.handleAnswer)
		r.Post("/{sessionID}/submit", h.handleSubmit)
		r.Get("/{sessionID}/report", h.handleReport)
		r.Get("/{sessionID}/report.pdf", h.handleReportPDF)
		r.Post("/{sessionID}/summary", h.handleSummary)
		r.Post("/{sessionID}/reset", h.handleReset)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/history", h.handleHistory)
		r.Get("/history/export", h.handleExport)
		r.Post("/history/{sessionID}/delete", h.handleDeleteSession)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/admin/users", h.handleAdminUsersPage)
			r.Post("/admin/users", h.handleCreateUser)
			r.Post("/admin/users/{userID}/toggle", h.handleToggleUserActive)
		})
	})
}

// BasePathMiddleware stores the configured URL prefix in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) questionPath(sessionID string, n int) string {
	return h.path(fmt.Sprintf("/survey/%s/q/%d", sessionID, n))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.IndexPage(h.catalog.Len()).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.CreateSession(r.FormValue("respondent"))
	if err != nil {
		slog.Error("failed to create session", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("survey started", "session_id", sess.ID)
	http.Redirect(w, r, h.questionPath(sess.ID, 1), http.StatusSeeOther)
}

// loadSession fetches the session named in the URL, answering 404 when it
// does not exist.
func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (model.SurveySession, bool) {
	sess, err := h.store.GetSession(chi.URLParam(r, "sessionID"))
	if errors.Is(err, sql.ErrNoRows) {
		http.NotFound(w, r)
		return sess, false
	}
	if err != nil {
		slog.Error("failed to get session", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return sess, false
	}
	return sess, true
}

// itemNumber parses the 1-based item position from the URL.
func (h *Handler) itemNumber(w http.ResponseWriter, r *http.Request) (model.Item, int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		http.Error(w, "invalid question number", http.StatusBadRequest)
		return model.Item{}, 0, false
	}
	item, ok := h.catalog.ItemAt(n - 1)
	if !ok {
		http.NotFound(w, r)
		return model.Item{}, 0, false
	}
	return item, n, true
}

// progress counts answers to items of the current catalog and returns the
// 0-based index of the first unanswered item, or -1.
func (h *Handler) progress(answers []model.Answer) (model.SessionProgress, map[string]int, int) {
	byItem := make(map[string]int, len(answers))
	for _, a := range answers {
		if h.catalog.ItemIndex(a.ItemID) >= 0 {
			byItem[a.ItemID] = a.Score
		}
	}
	firstOpen := -1
	for i, it := range h.catalog.Items() {
		if _, ok := byItem[it.ID]; !ok {
			firstOpen = i
			break
		}
	}
	return model.SessionProgress{Answered: len(byItem), Total: h.catalog.Len()}, byItem, firstOpen
}

func (h *Handler) handleQuestionPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if sess.Status == model.StatusCompleted {
		http.Redirect(w, r, h.path("/survey/"+sess.ID+"/report"), http.StatusSeeOther)
		return
	}
	item, n, ok := h.itemNumber(w, r)
	if !ok {
		return
	}

	answers, err := h.store.Answers(sess.ID)
	if err != nil {
		slog.Error("failed to get answers", "session_id", sess.ID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	prog, byItem, _ := h.progress(answers)

	data := views.QuestionData{
		SessionID:  sess.ID,
		Respondent: sess.Respondent,
		Number:     n,
		Total:      prog.Total,
		Item:       item,
		Choices:    h.catalog.Choices().For(item.Polarity),
		Current:    byItem[item.ID],
		Progress:   prog,
		First:      n == 1,
		Last:       n == prog.Total,
		Incomplete: r.URL.Query().Get("incomplete") == "1",
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.QuestionPage(data).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if sess.Status != model.StatusInProgress {
		http.Error(w, "survey already submitted", http.StatusConflict)
		return
	}
	item, n, ok := h.itemNumber(w, r)
	if !ok {
		return
	}

	score, err := strconv.Atoi(r.FormValue("score"))
	if err != nil {
		http.Error(w, "invalid score", http.StatusBadRequest)
		return
	}
	answer, err := h.catalog.NewAnswer(item.ID, score)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.RecordAnswer(sess.ID, answer); err != nil {
		slog.Error("failed to record answer", "session_id", sess.ID, "item_id", item.ID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Debug("answer recorded", "session_id", sess.ID, "item_id", item.ID, "score", score)

	next := n
	if n < h.catalog.Len() {
		next = n + 1
	}
	http.Redirect(w, r, h.questionPath(sess.ID, next), http.StatusSeeOther)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	reportPath := h.path("/survey/" + sess.ID + "/report")
	if sess.Status == model.StatusCompleted {
		http.Redirect(w, r, reportPath, http.StatusSeeOther)
		return
	}

	answers, err := h.store.Answers(sess.ID)
	if err != nil {
		slog.Error("failed to get answers", "session_id", sess.ID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if _, _, firstOpen := h.progress(answers); firstOpen >= 0 {
		http.Redirect(w, r, h.questionPath(sess.ID, firstOpen+1)+"?incomplete=1", http.StatusSeeOther)
		return
	}

	if err := h.store.CompleteSession(sess.ID); err != nil {
		slog.Error("failed to complete session", "session_id", sess.ID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("survey completed", "session_id", sess.ID)
	http.Redirect(w, r, reportPath, http.StatusSeeOther)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	err := h.store.ResetAnswers(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to reset session", "session_id", id, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("survey reset", "session_id", id)
	http.Redirect(w, r, h.questionPath(id, 1), http.StatusSeeOther)
}
