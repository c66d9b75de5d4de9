// Package views renders the HTML pages of the survey as templ components.
package views

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/traitsurvey/internal/i18n"
	"github.com/pavelanni/traitsurvey/internal/model"
)

// markup writes HTML and keeps the first write error.
type markup struct {
	w   io.Writer
	err error
}

func (m *markup) raw(parts ...string) {
	for _, s := range parts {
		if m.err != nil {
			return
		}
		_, m.err = io.WriteString(m.w, s)
	}
}

func (m *markup) text(s string) {
	m.raw(templ.EscapeString(s))
}

func (m *markup) num(n int) {
	m.raw(strconv.Itoa(n))
}

func (m *markup) attr(name, value string) {
	m.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (m *markup) url(name, u string) {
	m.attr(name, string(templ.URL(u)))
}

func (m *markup) render(ctx context.Context, c templ.Component) {
	if m.err == nil {
		m.err = c.Render(ctx, m.w)
	}
}

// component adapts a markup writer func to templ.Component.
func component(fn func(ctx context.Context, m *markup)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := &markup{w: w}
		fn(ctx, m)
		return m.err
	})
}

// page wraps body in the site layout.
func page(body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return layout().Render(templ.WithChildren(ctx, body), w)
	})
}

const styles = `
body { font-family: system-ui, sans-serif; margin: 0; color: #222; background: #f7f7f9; }
header { background: #4a5ba8; color: #fff; padding: .75rem 1.5rem; display: flex; align-items: center; gap: 1rem; }
header a, header button { color: #fff; text-decoration: none; background: none; border: 0; font: inherit; cursor: pointer; }
header .spacer { flex: 1; }
main { max-width: 52rem; margin: 1.5rem auto; padding: 0 1rem; }
.card { background: #fff; border-radius: .5rem; padding: 1.25rem; margin-bottom: 1rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
.btn { display: inline-block; padding: .5rem 1rem; border-radius: .35rem; border: 1px solid #4a5ba8; background: #4a5ba8; color: #fff; cursor: pointer; text-decoration: none; font: inherit; }
.btn.secondary { background: #fff; color: #4a5ba8; }
.choices { display: grid; gap: .5rem; }
.choice { text-align: left; background: #fff; color: #222; border: 2px solid #ccd; }
.choice.selected { border-color: #4a5ba8; background: #e8ebf8; }
.tone-1 { border-left: .5rem solid #e74c3c; } .tone-2 { border-left: .5rem solid #e67e22; }
.tone-3 { border-left: .5rem solid #f1c40f; } .tone-4 { border-left: .5rem solid #7dcea0; }
.tone-5 { border-left: .5rem solid #27ae60; }
.progress { background: #e3e3e8; border-radius: .25rem; height: .5rem; }
.progress > div { background: #4a5ba8; height: 100%; border-radius: .25rem; }
.band-low { color: #d35400; } .band-neutral { color: #2e86c1; } .band-high { color: #1e8449; }
.fill-low { fill: #e67e22; } .fill-neutral { fill: #3498db; } .fill-high { fill: #27ae60; }
.notice { background: #fff4d6; padding: .75rem; border-radius: .35rem; }
.error { color: #c0392b; }
table { width: 100%; border-collapse: collapse; }
th, td { text-align: left; padding: .4rem; border-bottom: 1px solid #eee; }
`

func layout() templ.Component {
	return component(func(ctx context.Context, m *markup) {
		children := templ.GetChildren(ctx)
		ctx = templ.ClearChildren(ctx)

		m.raw("<!DOCTYPE html>\n<html")
		m.attr("lang", appI18n.T(ctx, "LangCode"))
		m.raw(">\n<head>\n<meta charset=\"utf-8\">\n",
			"<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n<title>")
		m.text(appI18n.T(ctx, "AppTitle"))
		m.raw("</title>\n<style>", styles, "</style>\n</head>\n<body>\n<header>\n<a")
		m.url("href", Path(ctx, "/"))
		m.raw("><strong>")
		m.text(appI18n.T(ctx, "AppTitle"))
		m.raw("</strong></a>\n<span class=\"spacer\"></span>\n")

		if u := model.UserFromContext(ctx); u != nil {
			m.raw("<a")
			m.url("href", Path(ctx, "/history"))
			m.raw(">")
			m.text(appI18n.T(ctx, "NavHistory"))
			m.raw("</a>\n")
			if isAdmin(u) {
				m.raw("<a")
				m.url("href", Path(ctx, "/admin/users"))
				m.raw(">")
				m.text(appI18n.T(ctx, "NavAdmin"))
				m.raw("</a>\n")
			}
			postButton(ctx, m, Path(ctx, "/logout"), "", appI18n.T(ctx, "Logout")+" ("+u.DisplayName+")", true)
		} else {
			m.raw("<a")
			m.url("href", Path(ctx, "/login"))
			m.raw(">")
			m.text(appI18n.T(ctx, "Login"))
			m.raw("</a>\n")
		}

		m.raw("</header>\n<main>\n")
		m.render(ctx, children)
		m.raw("\n</main>\n</body>\n</html>\n")
	})
}

func csrfField(ctx context.Context, m *markup) {
	m.raw(`<input type="hidden" name="csrf_token"`)
	m.attr("value", model.CSRFTokenFromContext(ctx))
	m.raw(">")
}

// postButton writes a one-button form that posts to action.
func postButton(ctx context.Context, m *markup, action, class, label string, inline bool) {
	m.raw("<form method=\"post\"")
	m.url("action", action)
	if inline {
		m.raw(` style="display:inline"`)
	}
	m.raw(">")
	csrfField(ctx, m)
	m.raw("<button")
	if class != "" {
		m.attr("class", class)
	}
	m.raw(` type="submit">`)
	m.text(label)
	m.raw("</button></form>\n")
}

// Path joins parts under the request's base path.
func Path(ctx context.Context, parts ...any) string {
	var sb strings.Builder
	sb.WriteString(model.BasePathFromContext(ctx))
	for _, p := range parts {
		fmt.Fprint(&sb, p)
	}
	return sb.String()
}

func isAdmin(u *model.User) bool {
	return u != nil && u.Role == model.UserRoleAdmin
}

// barWidth clamps a percentage for drawing; scores may exceed the maximum.
func barWidth(pct int) int {
	return min(max(pct, 0), 100)
}

func fmtTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
