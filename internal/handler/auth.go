package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/shiptrack/internal/auth"
	"github.com/sakif/shiptrack/internal/service"
)

const (
	stateCookie    = "oauth_state"
	verifierCookie = "oauth_verifier"
	oauthCookieTTL = 10 * time.Minute
)

// OAuthProvider is the part of *auth.TwitterProvider the handler uses.
type OAuthProvider interface {
	AuthURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*auth.TwitterUser, error)
}

// AuthHandler manages the X OAuth login flow and session cookies.
//
// HANDLER RESPONSIBILITIES:
//   - HandleTwitterLogin    → redirect the browser to X's consent page
//   - HandleTwitterCallback → receive the code, exchange it, issue a session
//   - HandleLogout          → clear the session cookie
//
// DEPENDENCY CHAIN:
//   - provider OAuthProvider         → performs the PKCE code exchange
//   - auth     *service.AuthService  → upserts the user and issues the JWT
type AuthHandler struct {
	provider     OAuthProvider
	auth         *service.AuthService
	sessionTTL   time.Duration
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookie should be true
// whenever the site is served over HTTPS.
func NewAuthHandler(
	provider OAuthProvider,
	authSvc *service.AuthService,
	sessionTTL time.Duration,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider:     provider,
		auth:         authSvc,
		sessionTTL:   sessionTTL,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// HandleTwitterLogin redirects the user to X's authorization page.
//
// HTTP: GET /auth/twitter/login
//
// CSRF + PKCE:
// A random state and a PKCE code verifier are stored in short-lived
// HttpOnly cookies. The callback checks the state and sends the verifier
// with the code exchange; X rejects the exchange if it does not match the
// challenge sent here.
func (h *AuthHandler) HandleTwitterLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	verifier := auth.NewVerifier()

	h.setTempCookie(w, stateCookie, state)
	h.setTempCookie(w, verifierCookie, verifier)

	http.Redirect(w, r, h.provider.AuthURL(state, verifier), http.StatusTemporaryRedirect)
}

// HandleTwitterCallback completes the OAuth login flow.
//
// HTTP: GET /auth/twitter/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code + verifier for an X profile
//  3. Upsert the user and issue a JWT (AuthService)
//  4. Store the JWT in an HttpOnly cookie
//  5. Redirect to onboarding for new users, the dashboard otherwise
func (h *AuthHandler) HandleTwitterCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != state.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	verifier, err := r.Cookie(verifierCookie)
	if err != nil || verifier.Value == "" {
		h.logger.Warn("auth callback: missing PKCE verifier cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Both cookies are single-use.
	h.clearCookie(w, stateCookie)
	h.clearCookie(w, verifierCookie)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/login?error=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for the X profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}
	xUser, err := h.provider.Exchange(r.Context(), code, verifier.Value)
	if err != nil {
		h.logger.Error("auth callback: X exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	// --- Step 3: Upsert + token ---
	result, err := h.auth.LoginOrRegisterTwitter(r.Context(), xUser)
	if err != nil {
		h.logger.Error("auth callback: login failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// --- Step 4: Session cookie ---
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	// --- Step 5: Redirect ---
	dest := "/dashboard"
	if !result.User.IsOnboarded {
		dest = "/onboarding"
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/auth/logout
//
// Sessions are stateless JWTs, so logging out only deletes the cookie. The
// token itself stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, auth.SessionCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) setTempCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(oauthCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
