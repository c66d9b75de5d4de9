package views

import (
	"context"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/traitsurvey/internal/i18n"
	"github.com/pavelanni/traitsurvey/internal/model"
)

// LoginPage renders the login form with an optional error message.
func LoginPage(errMsg string) templ.Component {
	return page(component(func(ctx context.Context, m *markup) {
		m.raw("<form class=\"card\" method=\"post\"")
		m.url("action", Path(ctx, "/login"))
		m.raw(">")
		csrfField(ctx, m)
		m.raw("\n<h1>")
		m.text(appI18n.T(ctx, "Login"))
		m.raw("</h1>\n")
		if errMsg != "" {
			m.raw("<p class=\"error\">")
			m.text(errMsg)
			m.raw("</p>\n")
		}
		field(ctx, m, "username", "Username", `autocomplete="username" required`)
		field(ctx, m, "password", "Password", `type="password" autocomplete="current-password" required`)
		m.raw("<button class=\"btn\" type=\"submit\">")
		m.text(appI18n.T(ctx, "Login"))
		m.raw("</button>\n</form>\n")
	}))
}

// field writes a labelled input. extra is trusted attribute markup.
func field(ctx context.Context, m *markup, name, labelID, extra string) {
	m.raw("<p><label")
	m.attr("for", name)
	m.raw(">")
	m.text(appI18n.T(ctx, labelID))
	m.raw("</label><br><input")
	m.attr("id", name)
	m.attr("name", name)
	if extra != "" {
		m.raw(" ", extra)
	}
	m.raw("></p>\n")
}

// HistoryPage lists survey sessions, newest first.
func HistoryPage(sessions []model.SurveySession) templ.Component {
	return page(component(func(ctx context.Context, m *markup) {
		m.raw("<div class=\"card\">\n<h1>")
		m.text(appI18n.T(ctx, "HistoryTitle"))
		m.raw("</h1>\n")
		if len(sessions) == 0 {
			m.raw("<p>")
			m.text(appI18n.T(ctx, "NoHistory"))
			m.raw("</p>\n")
		} else {
			tableHead(ctx, m, "ColRespondent", "ColStarted", "ColCompleted", "", "")
			for _, s := range sessions {
				historyRow(ctx, m, s)
			}
			m.raw("</tbody>\n</table>\n")
		}
		m.raw("<p><a class=\"btn secondary\"")
		m.url("href", Path(ctx, "/history/export"))
		m.raw(">")
		m.text(appI18n.T(ctx, "ExportJSON"))
		m.raw("</a></p>\n</div>\n")
	}))
}

func historyRow(ctx context.Context, m *markup, s model.SurveySession) {
	m.raw("<tr>\n<td>")
	if s.Respondent != "" {
		m.text(s.Respondent)
	} else {
		m.text(appI18n.T(ctx, "Unnamed"))
	}
	m.raw("</td>\n<td>")
	m.text(fmtTime(s.StartedAt))
	m.raw("</td>\n<td>")
	if s.CompletedAt != nil {
		m.text(fmtTime(*s.CompletedAt))
	} else {
		m.text(appI18n.T(ctx, "InProgress"))
	}
	m.raw("</td>\n<td><a")
	if s.Status == model.StatusCompleted {
		m.url("href", Path(ctx, "/survey/", s.ID, "/report"))
		m.raw(">")
		m.text(appI18n.T(ctx, "ViewReport"))
	} else {
		m.url("href", Path(ctx, "/survey/", s.ID, "/q/1"))
		m.raw(">")
		m.text(appI18n.T(ctx, "Continue"))
	}
	m.raw("</a></td>\n<td>")
	postButton(ctx, m, Path(ctx, "/history/", s.ID, "/delete"), "btn secondary", appI18n.T(ctx, "Delete"), false)
	m.raw("</td>\n</tr>\n")
}

// tableHead opens a table and writes its header row. Empty IDs give empty
// cells.
func tableHead(ctx context.Context, m *markup, columnIDs ...string) {
	m.raw("<table>\n<thead><tr>")
	for _, id := range columnIDs {
		m.raw("<th>")
		if id != "" {
			m.text(appI18n.T(ctx, id))
		}
		m.raw("</th>")
	}
	m.raw("</tr></thead>\n<tbody>\n")
}

// AdminUsersPage lists teacher accounts.
func AdminUsersPage(users []model.User, msg string) templ.Component {
	return page(component(func(ctx context.Context, m *markup) {
		m.raw("<div class=\"card\">\n<h1>")
		m.text(appI18n.T(ctx, "AdminUsersTitle"))
		m.raw("</h1>\n")
		if msg != "" {
			m.raw("<p class=\"notice\">")
			m.text(msg)
			m.raw("</p>\n")
		}
		tableHead(ctx, m, "Username", "DisplayName", "Role", "ColStatus", "")
		for _, u := range users {
			userRow(ctx, m, u)
		}
		m.raw("</tbody>\n</table>\n</div>\n")

		m.raw("<form class=\"card\" method=\"post\"")
		m.url("action", Path(ctx, "/admin/users"))
		m.raw(">")
		csrfField(ctx, m)
		m.raw("\n<h2>")
		m.text(appI18n.T(ctx, "CreateUser"))
		m.raw("</h2>\n")
		field(ctx, m, "username", "Username", "required")
		field(ctx, m, "display_name", "DisplayName", "")
		field(ctx, m, "password", "Password", `type="password" required`)
		m.raw("<p><label for=\"role\">")
		m.text(appI18n.T(ctx, "Role"))
		m.raw("</label><br>\n<select id=\"role\" name=\"role\">\n")
		for _, role := range []model.UserRole{model.UserRoleTeacher, model.UserRoleAdmin} {
			m.raw("<option")
			m.attr("value", string(role))
			m.raw(">")
			m.text(roleLabel(ctx, role))
			m.raw("</option>\n")
		}
		m.raw("</select></p>\n<button class=\"btn\" type=\"submit\">")
		m.text(appI18n.T(ctx, "CreateUser"))
		m.raw("</button>\n</form>\n")
	}))
}

func userRow(ctx context.Context, m *markup, u model.User) {
	status, action := "Inactive", "Activate"
	if u.Active {
		status, action = "Active", "Deactivate"
	}
	m.raw("<tr>\n<td>")
	m.text(u.Username)
	m.raw("</td>\n<td>")
	m.text(u.DisplayName)
	m.raw("</td>\n<td>")
	m.text(roleLabel(ctx, u.Role))
	m.raw("</td>\n<td>")
	m.text(appI18n.T(ctx, status))
	m.raw("</td>\n<td>")
	postButton(ctx, m, Path(ctx, "/admin/users/", u.ID, "/toggle"), "btn secondary", appI18n.T(ctx, action), false)
	m.raw("</td>\n</tr>\n")
}

func roleLabel(ctx context.Context, role model.UserRole) string {
	if role == model.UserRoleAdmin {
		return appI18n.T(ctx, "RoleAdmin")
	}
	return appI18n.T(ctx, "RoleTeacher")
}
