package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	require.NoError(t, Init("en"))
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	assert.Equal(t, "Assessment Results", T(ctx, "ResultsTitle"))
	assert.Equal(t, "Start Assessment", T(ctx, "StartAssessment"))
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	assert.Equal(t, "Результаты оценки", T(ctx, "ResultsTitle"))
}

func TestFallbackToDefault(t *testing.T) {
	ctx := initLang(t, "de")

	assert.Equal(t, "Next", T(ctx, "Next"))
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	assert.Equal(t,
		"This assessment consists of 1 question. Please make sure you have time to complete it thoughtfully.",
		Tp(ctx, "ItemCount", 1))
	assert.Equal(t,
		"This assessment consists of 60 questions. Please make sure you have time to complete it thoughtfully.",
		Tp(ctx, "ItemCount", 60))
}

func TestRussianPlural(t *testing.T) {
	ctx := initLang(t, "ru")

	tests := []struct {
		count int
		want  string
	}{
		{1, "Анкета содержит 1 вопрос. Выделите достаточно времени, чтобы ответить вдумчиво."},
		{3, "Анкета содержит 3 вопроса. Выделите достаточно времени, чтобы ответить вдумчиво."},
		{60, "Анкета содержит 60 вопросов. Выделите достаточно времени, чтобы ответить вдумчиво."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tp(ctx, "ItemCount", tt.count), "count %d", tt.count)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "OverallScore", map[string]any{"Score": 30, "Max": 48})
	assert.Equal(t, "Overall Score: 30 / 48", got)
}

func TestBand(t *testing.T) {
	ctx := initLang(t, "en")

	for band, want := range map[string]string{"low": "Low", "neutral": "Neutral", "high": "High", "": ""} {
		assert.Equal(t, want, Band(ctx, band), "band %q", band)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	assert.Equal(t, "NonExistentKey", T(ctx, "NonExistentKey"))
}

func TestLanguages(t *testing.T) {
	initLang(t, "en")

	assert.ElementsMatch(t, []string{"en", "ru"}, Languages())
}

func TestMiddlewarePicksLanguage(t *testing.T) {
	require.NoError(t, Init("en"))

	var got string
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "Next")
	}))

	tests := []struct {
		name   string
		url    string
		accept string
		want   string
	}{
		{"default", "/", "", "Next"},
		{"accept header", "/", "ru-RU,ru;q=0.9,en;q=0.5", "Далее"},
		{"query wins", "/?lang=en", "ru", "Next"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}
