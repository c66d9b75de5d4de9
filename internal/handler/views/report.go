package views

import (
	"context"
	"strconv"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/traitsurvey/internal/i18n"
	"github.com/pavelanni/traitsurvey/internal/model"
)

// ReportData is the input of the results page.
type ReportData struct {
	Session        model.SurveySession
	Scores         []model.CategoryScore
	Summary        *model.Summary
	SummaryEnabled bool
	SummaryError   bool
}

// Chart geometry in SVG user units.
const (
	chartRow    = 24
	chartLabelW = 140
	chartBarW   = 320
	chartBarH   = 14
)

// ReportPage renders the scored report.
func ReportPage(d ReportData) templ.Component {
	return page(component(func(ctx context.Context, m *markup) {
		m.raw("<div class=\"card\">\n<h1>")
		m.text(appI18n.T(ctx, "ResultsTitle"))
		m.raw("</h1>\n")
		if d.Session.Respondent != "" {
			m.raw("<p><strong>")
			m.text(appI18n.Td(ctx, "ResultsFor", map[string]any{"Name": d.Session.Respondent}))
			m.raw("</strong></p>\n")
		}
		m.raw("<p>")
		m.text(appI18n.T(ctx, "ResultsIntro"))
		m.raw("</p>\n</div>\n")

		m.render(ctx, traitChart(d.Scores))

		if d.Summary != nil {
			summaryCard(ctx, m, *d.Summary)
		} else if d.SummaryError {
			m.raw("<p class=\"notice error\">")
			m.text(appI18n.T(ctx, "SummaryError"))
			m.raw("</p>\n")
		}

		for _, cs := range d.Scores {
			categoryCard(ctx, m, cs)
		}

		m.raw("<div class=\"card\">\n<h3>")
		m.text(appI18n.T(ctx, "DisclaimerTitle"))
		m.raw("</h3>\n<p><small>")
		m.text(appI18n.T(ctx, "DisclaimerText"))
		m.raw("</small></p>\n</div>\n<div class=\"card\">\n<a class=\"btn\"")
		m.url("href", Path(ctx, "/survey/", d.Session.ID, "/report.pdf"))
		m.raw(">")
		m.text(appI18n.T(ctx, "DownloadPDF"))
		m.raw("</a>\n")
		if d.SummaryEnabled {
			postButton(ctx, m, Path(ctx, "/survey/", d.Session.ID, "/summary"), "btn secondary", appI18n.T(ctx, "GenerateSummary"), true)
		}
		postButton(ctx, m, Path(ctx, "/survey/", d.Session.ID, "/reset"), "btn secondary", appI18n.T(ctx, "Retake"), true)
		m.raw("</div>\n")
	}))
}

// traitChart draws one horizontal bar per category.
func traitChart(scores []model.CategoryScore) templ.Component {
	return component(func(ctx context.Context, m *markup) {
		title := appI18n.T(ctx, "TraitOverview")
		m.raw("<div class=\"card\">\n<h2>")
		m.text(title)
		m.raw("</h2>\n<svg role=\"img\" width=\"100%\"")
		m.attr("viewBox", "0 0 520 "+strconv.Itoa(len(scores)*chartRow))
		m.attr("aria-label", title)
		m.raw(">\n")
		for i, s := range scores {
			textY := strconv.Itoa(i*chartRow + 15)
			barY := strconv.Itoa(i*chartRow + 4)
			m.raw(`<text x="0" y="`, textY, `" font-size="13">`)
			m.text(s.Name)
			m.raw("</text>\n")
			m.raw(`<rect x="`, strconv.Itoa(chartLabelW), `" y="`, barY, `" width="`, strconv.Itoa(chartBarW),
				`" height="`, strconv.Itoa(chartBarH), `" fill="#eee"></rect>`, "\n")
			m.raw("<rect")
			m.attr("class", "fill-"+string(s.Band))
			m.raw(` x="`, strconv.Itoa(chartLabelW), `" y="`, barY, `" width="`,
				strconv.Itoa(barWidth(s.Percent())*chartBarW/100), `" height="`, strconv.Itoa(chartBarH), `"></rect>`, "\n")
			m.raw(`<text x="468" y="`, textY, `" font-size="12">`)
			m.num(s.Percent())
			m.raw("%</text>\n")
		}
		m.raw("</svg>\n</div>\n")
	})
}

func summaryCard(ctx context.Context, m *markup, s model.Summary) {
	m.raw("<div class=\"card\">\n<h2>")
	m.text(appI18n.T(ctx, "SummaryTitle"))
	m.raw("</h2>\n<p>")
	m.text(s.Text)
	m.raw("</p>\n")
	list(ctx, m, "Strengths", s.Strengths)
	list(ctx, m, "SupportIdeas", s.Support)
	m.raw("</div>\n")
}

// list writes a headed bullet list, or nothing when items is empty.
func list(ctx context.Context, m *markup, headingID string, items []string) {
	if len(items) == 0 {
		return
	}
	m.raw("<h3>")
	m.text(appI18n.T(ctx, headingID))
	m.raw("</h3><ul>")
	for _, it := range items {
		m.raw("<li>")
		m.text(it)
		m.raw("</li>")
	}
	m.raw("</ul>\n")
}

func categoryCard(ctx context.Context, m *markup, cs model.CategoryScore) {
	bandClass := "band-" + string(cs.Band)

	m.raw("<div class=\"card\">\n<h2>")
	m.text(cs.Name)
	m.raw(" <small")
	m.attr("class", bandClass)
	m.raw(">")
	m.text(appI18n.Band(ctx, string(cs.Band)))
	m.raw("</small></h2>\n<p>")
	m.text(appI18n.Td(ctx, "OverallScore", map[string]any{"Score": cs.Score, "Max": cs.MaxScore}))
	m.raw(" (")
	m.num(cs.Percent())
	m.raw("%)</p>\n")
	progressBar(m, cs.Percent())

	m.raw("<h3>")
	m.text(appI18n.T(ctx, "WhatItMeans"))
	m.raw("</h3>\n<p>")
	m.text(cs.Description)
	m.raw("</p>\n<h3>")
	m.text(appI18n.T(ctx, "Interpretation"))
	m.raw("</h3>\n<p")
	m.attr("class", bandClass)
	m.raw(">")
	m.text(cs.Interpretation)
	m.raw("</p>\n<details>\n<summary>")
	m.text(appI18n.T(ctx, "ObservationGuide"))
	m.raw("</summary>\n<ul>\n")
	for _, b := range []model.Band{model.BandLow, model.BandNeutral, model.BandHigh} {
		m.raw("<li><strong>")
		m.text(appI18n.Band(ctx, string(b)))
		m.raw(":</strong> ")
		m.text(cs.Guide.For(b))
		m.raw("</li>\n")
	}
	m.raw("</ul>\n</details>\n")

	if len(cs.SubScores) > 0 {
		m.raw("<h3>")
		m.text(appI18n.T(ctx, "FacetsTitle"))
		m.raw("</h3>\n<ul>\n")
		for _, sub := range cs.SubScores {
			m.raw("<li><strong>")
			m.text(sub.Name)
			m.raw("</strong>: ")
			m.text(sub.Description)
			m.raw(" <small>")
			m.text(appI18n.Td(ctx, "FacetScore", map[string]any{"Score": sub.Score, "Max": sub.MaxScore}))
			m.raw("</small></li>\n")
		}
		m.raw("</ul>\n")
	}
	m.raw("</div>\n")
}
