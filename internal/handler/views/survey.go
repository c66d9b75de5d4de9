package views

import (
	"context"
	"strconv"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/traitsurvey/internal/i18n"
	"github.com/pavelanni/traitsurvey/internal/model"
)

// QuestionData is the input of a single item page.
type QuestionData struct {
	SessionID  string
	Respondent string
	Number     int // 1-based position in the catalog
	Total      int
	Item       model.Item
	Choices    []model.Choice
	Current    int // 0 when the item has no answer yet
	Progress   model.SessionProgress
	First      bool
	Last       bool
	Incomplete bool
}

var considerKeys = []string{
	"ConsiderEmergent",
	"ConsiderObservation",
	"ConsiderLabeling",
	"ConsiderFluidity",
	"ConsiderStrengths",
}

// IndexPage renders the intro page.
func IndexPage(itemCount int) templ.Component {
	return page(component(func(ctx context.Context, m *markup) {
		m.raw("<div class=\"card\">\n<h1>")
		m.text(appI18n.T(ctx, "WelcomeTitle"))
		m.raw("</h1>\n<p>")
		m.text(appI18n.T(ctx, "IntroText"))
		m.raw("</p>\n<p>")
		m.text(appI18n.Tp(ctx, "ItemCount", itemCount))
		m.raw("</p>\n</div>\n<div class=\"card\">\n<h2>")
		m.text(appI18n.T(ctx, "ConsiderTitle"))
		m.raw("</h2>\n<ul>\n")
		for _, key := range considerKeys {
			m.raw("<li>")
			m.text(appI18n.T(ctx, key))
			m.raw("</li>\n")
		}
		m.raw("</ul>\n</div>\n<form class=\"card\" method=\"post\"")
		m.url("action", Path(ctx, "/survey/start"))
		m.raw(">")
		csrfField(ctx, m)
		m.raw("\n<label for=\"respondent\">")
		m.text(appI18n.T(ctx, "RespondentLabel"))
		m.raw("</label><br>\n<input id=\"respondent\" name=\"respondent\" maxlength=\"80\" autocomplete=\"off\">\n<button class=\"btn\" type=\"submit\">")
		m.text(appI18n.T(ctx, "StartAssessment"))
		m.raw("</button>\n</form>\n")
	}))
}

// QuestionPage renders one questionnaire item.
func QuestionPage(d QuestionData) templ.Component {
	return page(component(func(ctx context.Context, m *markup) {
		itemPath := func(n int) string { return Path(ctx, "/survey/", d.SessionID, "/q/", n) }

		m.raw("<div class=\"card\">\n<p>")
		m.text(appI18n.Td(ctx, "QuestionNofM", map[string]any{"N": d.Number, "Total": d.Total}))
		m.raw("</p>\n")
		progressBar(m, d.Progress.Percent())
		m.raw("<p><small>")
		m.text(appI18n.Td(ctx, "ProgressCompleted", map[string]any{
			"Percent":  d.Progress.Percent(),
			"Answered": d.Progress.Answered,
			"Total":    d.Progress.Total,
		}))
		m.raw("</small></p>\n</div>\n")

		if d.Incomplete {
			m.raw("<p class=\"notice\">")
			m.text(appI18n.Td(ctx, "AnswerAllNotice", map[string]any{"Total": d.Progress.Total, "Answered": d.Progress.Answered}))
			m.raw("</p>\n")
		}

		m.raw("<form class=\"card\" method=\"post\"")
		m.url("action", itemPath(d.Number))
		m.raw(">")
		csrfField(ctx, m)
		m.raw("\n<h2 id=\"item-text\">")
		m.text(d.Item.Text)
		m.raw("</h2>\n<div class=\"choices\" role=\"radiogroup\" aria-labelledby=\"item-text\">\n")
		for _, c := range d.Choices {
			class := "btn choice tone-" + strconv.Itoa(c.Tone)
			selected := c.Value == d.Current
			if selected {
				class += " selected"
			}
			m.raw("<button")
			m.attr("class", class)
			m.raw(` type="submit" name="score"`)
			m.attr("value", strconv.Itoa(c.Value))
			if selected {
				m.raw(` aria-pressed="true"`)
			}
			m.raw(">")
			m.text(c.Label)
			m.raw("</button>\n")
		}
		m.raw("</div>\n</form>\n<div class=\"card\">\n")

		if !d.First {
			m.raw("<a class=\"btn secondary\"")
			m.url("href", itemPath(d.Number-1))
			m.raw(">")
			m.text(appI18n.T(ctx, "Previous"))
			m.raw("</a>\n")
		}
		if !d.Last {
			m.raw("<a class=\"btn secondary\"")
			m.url("href", itemPath(d.Number+1))
			m.raw(">")
			m.text(appI18n.T(ctx, "Next"))
			m.raw("</a>\n")
		}
		if d.Progress.Complete() {
			postButton(ctx, m, Path(ctx, "/survey/", d.SessionID, "/submit"), "btn", appI18n.T(ctx, "Submit"), true)
		}
		m.raw("</div>\n")
	}))
}

func progressBar(m *markup, pct int) {
	m.raw("<div class=\"progress\"><div")
	m.attr("style", "width: "+strconv.Itoa(barWidth(pct))+"%")
	m.raw("></div></div>\n")
}
