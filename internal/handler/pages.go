// Package handler contains the HTTP handlers for shiptrack.
//
// WHAT IS A HANDLER?
// An HTTP handler is anything that implements http.Handler, or more commonly
// a func(http.ResponseWriter, *http.Request) (http.HandlerFunc). Chi accepts
// these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, body, cookies)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers do NOT contain business logic; they are the glue between HTTP
// and the services.
package handler

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/sakif/shiptrack/internal/auth"
	"github.com/sakif/shiptrack/internal/model"
	"github.com/sakif/shiptrack/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "login", "onboarding", "dashboard", "leaderboard"}

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// pageData is what every page template receives. User is nil for visitors.
type pageData struct {
	Title   string
	User    *model.User
	Entries []model.LeaderboardEntry
	Error   string
}

// PageHandler renders the server-side pages.
//
// TEMPLATE COMPOSITION:
// Every page is parsed together with base.html. base.html defines the layout
// with a {{template "content" .}} placeholder and each page file defines
// "content". Each page gets its own *template.Template so the "content"
// definitions do not collide.
//
// Templates are embedded in the binary and parsed once at startup.
type PageHandler struct {
	pages  map[string]*template.Template
	users  *service.UserService
	logger *slog.Logger
}

// NewPageHandler parses the embedded templates.
func NewPageHandler(users *service.UserService, logger *slog.Logger) (*PageHandler, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/base.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &PageHandler{pages: pages, users: users, logger: logger}, nil
}

// HandleHome serves the landing page.
//
// HTTP: GET /
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, "home", pageData{Title: "Ship: build in public", User: h.currentUser(r)})
}

// HandleLogin serves the login page. Signed-in users go straight to the
// dashboard.
//
// HTTP: GET /login
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if user := h.currentUser(r); user != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, "login", pageData{Title: "Log in · Ship", Error: r.URL.Query().Get("error")})
}

// HandleOnboarding serves the onboarding form.
//
// HTTP: GET /onboarding
func (h *PageHandler) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.render(w, "onboarding", pageData{Title: "Onboarding · Ship", User: user})
}

// HandleDashboard shows the signed-in user's stats. Users who have not
// onboarded yet are sent to the onboarding form.
//
// HTTP: GET /dashboard
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	switch {
	case user == nil:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	case !user.IsOnboarded:
		http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
		return
	}
	h.render(w, "dashboard", pageData{Title: "Dashboard · Ship", User: user})
}

// HandleLeaderboard renders the public leaderboard.
//
// HTTP: GET /leaderboard
func (h *PageHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.users.Leaderboard(r.Context(), 50)
	if err != nil {
		h.logger.Error("leaderboard page: query failed", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.render(w, "leaderboard", pageData{Title: "Leaderboard · Ship", User: h.currentUser(r), Entries: entries})
}

// currentUser loads the session user, or nil. Pages are mounted behind
// auth.OptionalAuth, so a missing or stale session just means "visitor".
func (h *PageHandler) currentUser(r *http.Request) *model.User {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	user, err := h.users.GetMe(r.Context(), userID)
	if err != nil {
		h.logger.Debug("page: session user not found", slog.String("userID", userID))
		return nil
	}
	return user
}

func (h *PageHandler) render(w http.ResponseWriter, page string, data pageData) {
	// Set content type header BEFORE writing the body
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages[page].ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
