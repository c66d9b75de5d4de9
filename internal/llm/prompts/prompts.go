package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/traitsurvey/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var respondentTagRegex = regexp.MustCompile(`(?i)</?\s*(respondent|system-instructions)\b[^>]*>`)

const maxRespondentRunes = 80

// Variant selects how long and detailed the written summary is.
type Variant string

const (
	VariantBrief    Variant = "brief"
	VariantStandard Variant = "standard"
	VariantDetailed Variant = "detailed"
)

var variants = []Variant{VariantBrief, VariantStandard, VariantDetailed}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Variant]*template.Template
)

// IsValidVariant checks if a variant name is known.
func IsValidVariant(v string) bool {
	for _, known := range variants {
		if string(known) == v {
			return true
		}
	}
	return false
}

// SummaryData is the template input for a summary prompt.
type SummaryData struct {
	Respondent string
	Scores     []model.CategoryScore
}

func load() error {
	loadOnce.Do(func() {
		templates = make(map[Variant]*template.Template, len(variants))
		funcs := template.FuncMap{
			"percent": func(s model.CategoryScore) int { return s.Percent() },
			"oneline": func(s string) string { return strings.Join(strings.Fields(s), " ") },
		}
		for _, v := range variants {
			name := "templates/summary_" + string(v) + ".tmpl"
			content, err := templateFS.ReadFile(name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New(string(v)).Funcs(funcs).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			templates[v] = tmpl
		}
	})
	return loadErr
}

// BuildSummaryPrompt renders the system prompt asking for a narrative
// summary of scores.
func BuildSummaryPrompt(variant Variant, respondent string, scores []model.CategoryScore) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	tmpl, ok := templates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, SummaryData{
		Respondent: sanitizeRespondent(respondent),
		Scores:     scores,
	}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitizeRespondent strips markup that could be mistaken for prompt
// structure and bounds the length of the free-text label.
func sanitizeRespondent(s string) string {
	s = respondentTagRegex.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "the child"
	}
	if utf8.RuneCountInString(s) > maxRespondentRunes {
		s = string([]rune(s)[:maxRespondentRunes])
	}
	return s
}
