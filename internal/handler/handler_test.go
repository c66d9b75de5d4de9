package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/traitsurvey/internal/catalog"
	appI18n "github.com/pavelanni/traitsurvey/internal/i18n"
	"github.com/pavelanni/traitsurvey/internal/model"
	"github.com/pavelanni/traitsurvey/internal/store"
)

const testCatalog = `
choices:
  plus:
    - {text: "Rarely", score: 1, color: 1}
    - {text: "Sometimes", score: 3, color: 3}
    - {text: "Often", score: 5, color: 5}
  minus:
    - {text: "Rarely", score: 5, color: 1}
    - {text: "Sometimes", score: 3, color: 3}
    - {text: "Often", score: 1, color: 5}
categories:
  - id: A
    name: Friendly
    description: Gets along with others
    observation_guide: {low: keeps apart, neutral: mixed, high: very warm}
    facets:
      - {index: 1, name: Sharing, description: shares toys}
items:
  - {id: a1, text: Shares toys with others, keyed: plus, domain: A, facet: 1}
  - {id: a2, text: Grabs toys from others, keyed: minus, domain: A, facet: 1}
`

type fakeSummarizer struct {
	summary *model.Summary
	err     error
}

func (f fakeSummarizer) Summarize(context.Context, string, []model.CategoryScore) (*model.Summary, error) {
	return f.summary, f.err
}

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	store  *store.Store
	base   string
}

func newTestEnv(t *testing.T, basePath string, summarizer Summarizer) *testEnv {
	t.Helper()
	require.NoError(t, appI18n.Init("en"))

	cat, err := catalog.Load(strings.NewReader(testCatalog))
	require.NoError(t, err)
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h, err := New(st, cat, summarizer, model.SurveyConfig{BasePath: basePath})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(appI18n.Middleware())
	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{srv: srv, client: client, store: st, base: basePath}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + e.base + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) csrfToken(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(e.srv.URL + e.base + "/")
	require.NoError(t, err)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	// No token yet: any GET issues one.
	e.get(t, "/")
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	t.Fatal("no csrf cookie issued")
	return ""
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", e.csrfToken(t))
	resp, err := e.client.PostForm(e.srv.URL+e.base+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) startSurvey(t *testing.T, respondent string) string {
	t.Helper()
	resp, _ := e.post(t, "/survey/start", url.Values{"respondent": {respondent}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc := resp.Header.Get("Location")
	prefix := e.base + "/survey/"
	require.True(t, strings.HasPrefix(loc, prefix), loc)
	require.True(t, strings.HasSuffix(loc, "/q/1"), loc)
	return strings.TrimSuffix(strings.TrimPrefix(loc, prefix), "/q/1")
}

func TestSurveyFlow(t *testing.T) {
	env := newTestEnv(t, "", nil)

	resp, body := env.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "consists of 2 questions")

	id := env.startSurvey(t, "Mia")

	resp, body = env.get(t, "/survey/"+id+"/q/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Shares toys with others")
	assert.Contains(t, body, "Question 1 of 2")

	resp, _ = env.post(t, "/survey/"+id+"/q/1", url.Values{"score": {"5"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/survey/"+id+"/q/2", resp.Header.Get("Location"))

	resp, _ = env.post(t, "/survey/"+id+"/submit", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/survey/"+id+"/q/2?incomplete=1", resp.Header.Get("Location"))

	resp, body = env.get(t, "/survey/"+id+"/q/2?incomplete=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Please answer all 2 questions. You have answered 1.")

	// The last item stays on itself.
	resp, _ = env.post(t, "/survey/"+id+"/q/2", url.Values{"score": {"5"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/survey/"+id+"/q/2", resp.Header.Get("Location"))

	// Answering again replaces the earlier value.
	resp, _ = env.post(t, "/survey/"+id+"/q/2", url.Values{"score": {"1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = env.post(t, "/survey/"+id+"/submit", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/survey/"+id+"/report", resp.Header.Get("Location"))

	resp, body = env.get(t, "/survey/"+id+"/report")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Results for Mia")
	assert.Contains(t, body, "Overall Score: 6 / 8 (75%)")
	assert.Contains(t, body, "mixed")
	assert.NotContains(t, body, "/"+id+"/summary")

	resp, body = env.get(t, "/survey/"+id+"/report.pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "assessment-results.pdf")
	assert.True(t, strings.HasPrefix(body, "%PDF"))

	// Completed sessions accept no more answers.
	resp, _ = env.post(t, "/survey/"+id+"/q/1", url.Values{"score": {"1"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.post(t, "/survey/"+id+"/summary", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.post(t, "/survey/"+id+"/reset", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/survey/"+id+"/q/1", resp.Header.Get("Location"))

	resp, _ = env.get(t, "/survey/"+id+"/report")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/survey/"+id+"/q/1", resp.Header.Get("Location"))
}

func TestAnswerValidation(t *testing.T) {
	env := newTestEnv(t, "", nil)
	id := env.startSurvey(t, "")

	tests := []struct {
		name string
		path string
		form url.Values
		want int
	}{
		{"not offered", "/survey/" + id + "/q/1", url.Values{"score": {"2"}}, http.StatusBadRequest},
		{"not a number", "/survey/" + id + "/q/1", url.Values{"score": {"lots"}}, http.StatusBadRequest},
		{"item out of range", "/survey/" + id + "/q/3", url.Values{"score": {"1"}}, http.StatusNotFound},
		{"bad item number", "/survey/" + id + "/q/x", url.Values{"score": {"1"}}, http.StatusBadRequest},
		{"unknown session", "/survey/nope/q/1", url.Values{"score": {"1"}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.post(t, tt.path, tt.form)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	resp, _ := env.get(t, "/survey/nope/report")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.post(t, "/survey/nope/reset", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCSRFRejectsMissingToken(t *testing.T) {
	env := newTestEnv(t, "", nil)
	env.get(t, "/")

	resp, err := env.client.PostForm(env.srv.URL+"/survey/start", url.Values{"respondent": {"x"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = env.client.PostForm(env.srv.URL+"/survey/start", url.Values{"csrf_token": {"forged"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func createUser(t *testing.T, st *store.Store, username, password string, role model.UserRole) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = st.CreateUser(model.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	})
	require.NoError(t, err)
}

func TestHistoryRequiresLogin(t *testing.T) {
	env := newTestEnv(t, "", nil)
	createUser(t, env.store, "ms.lee", "secret", model.UserRoleTeacher)

	id := env.startSurvey(t, "Noah")
	for _, n := range []string{"1", "2"} {
		resp, _ := env.post(t, "/survey/"+id+"/q/"+n, url.Values{"score": {"3"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	}
	resp, _ := env.post(t, "/survey/"+id+"/submit", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = env.get(t, "/history")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, body := env.post(t, "/login", url.Values{"username": {"ms.lee"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password.")

	resp, _ = env.post(t, "/login", url.Values{"username": {"ms.lee"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/history", resp.Header.Get("Location"))

	resp, body = env.get(t, "/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Noah")
	assert.Contains(t, body, "/survey/"+id+"/report")

	resp, body = env.get(t, "/history/export")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var export model.SurveyExport
	require.NoError(t, json.NewDecoder(bytes.NewBufferString(body)).Decode(&export))
	require.Len(t, export.Results, 1)
	assert.Equal(t, "Noah", export.Results[0].Respondent)
	assert.Equal(t, 2, export.NumItems)
	require.Len(t, export.Results[0].Scores, 1)
	assert.Equal(t, 6, export.Results[0].Scores[0].Score)

	resp, _ = env.get(t, "/admin/users")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.post(t, "/history/"+id+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = env.get(t, "/survey/"+id+"/report")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.post(t, "/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = env.get(t, "/history")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestAdminUsers(t *testing.T) {
	env := newTestEnv(t, "", nil)
	createUser(t, env.store, "admin", "pw", model.UserRoleAdmin)

	resp, _ := env.post(t, "/login", url.Values{"username": {"admin"}, "password": {"pw"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = env.post(t, "/admin/users", url.Values{
		"username": {"mr.kim"}, "password": {"pw2"}, "role": {"teacher"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/users?created=1", resp.Header.Get("Location"))

	resp, body := env.get(t, "/admin/users?created=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "mr.kim")
	assert.Contains(t, body, "Account created.")

	resp, _ = env.post(t, "/admin/users", url.Values{"username": {"x"}, "password": {"y"}, "role": {"root"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	kim, err := env.store.GetUserByUsername("mr.kim")
	require.NoError(t, err)
	require.NotNil(t, kim)
	resp, _ = env.post(t, "/admin/users/"+strconv.FormatInt(kim.ID, 10)+"/toggle", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	kim, err = env.store.GetUserByUsername("mr.kim")
	require.NoError(t, err)
	assert.False(t, kim.Active)

	admin, err := env.store.GetUserByUsername("admin")
	require.NoError(t, err)
	resp, _ = env.post(t, "/admin/users/"+strconv.FormatInt(admin.ID, 10)+"/toggle", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name       string
		summarizer fakeSummarizer
		want       string
	}{
		{
			name:       "written",
			summarizer: fakeSummarizer{summary: &model.Summary{Text: "Kind and generous.", Strengths: []string{"sharing"}}},
			want:       "Kind and generous.",
		},
		{
			name:       "failed",
			summarizer: fakeSummarizer{err: errors.New("timeout")},
			want:       "could not be generated",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "", tt.summarizer)
			id := env.startSurvey(t, "")
			for _, n := range []string{"1", "2"} {
				resp, _ := env.post(t, "/survey/"+id+"/q/"+n, url.Values{"score": {"5"}})
				require.Equal(t, http.StatusSeeOther, resp.StatusCode)
			}
			resp, _ := env.post(t, "/survey/"+id+"/submit", nil)
			require.Equal(t, http.StatusSeeOther, resp.StatusCode)

			_, body := env.get(t, "/survey/"+id+"/report")
			assert.Contains(t, body, "/survey/"+id+"/summary")

			resp, body = env.post(t, "/survey/"+id+"/summary", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, tt.want)
		})
	}
}

func TestBasePath(t *testing.T) {
	env := newTestEnv(t, "/kg", nil)

	resp, body := env.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/kg/survey/start"`)

	id := env.startSurvey(t, "")
	resp, _ = env.post(t, "/survey/"+id+"/q/1", url.Values{"score": {"1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/kg/survey/"+id+"/q/2", resp.Header.Get("Location"))
}

func TestSummaryIsKept(t *testing.T) {
	env := newTestEnv(t, "", fakeSummarizer{summary: &model.Summary{
		Text: "Kind and generous.", Strengths: []string{"sharing"}, Support: []string{"turn taking"},
	}})
	id := env.startSurvey(t, "Маша")
	for _, n := range []string{"1", "2"} {
		resp, _ := env.post(t, "/survey/"+id+"/q/"+n, url.Values{"score": {"3"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	}
	resp, _ := env.post(t, "/survey/"+id+"/submit", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, err := env.store.GetSummary(id)
	require.ErrorIs(t, err, sql.ErrNoRows)

	resp, _ = env.post(t, "/survey/"+id+"/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := env.store.GetSummary(id)
	require.NoError(t, err)
	assert.Equal(t, "Kind and generous.", stored.Text)
	assert.Equal(t, []string{"turn taking"}, stored.Support)

	// A plain report visit shows the saved narrative without asking again.
	_, body := env.get(t, "/survey/"+id+"/report")
	assert.Contains(t, body, "Kind and generous.")

	resp, body = env.get(t, "/survey/"+id+"/report.pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "%PDF"))

	resp, _ = env.post(t, "/survey/"+id+"/reset", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, err = env.store.GetSummary(id)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
