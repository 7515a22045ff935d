package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/shiptrack/internal/apperror"
	"github.com/sakif/shiptrack/internal/auth"
	"github.com/sakif/shiptrack/internal/service"
)

// UserHandler serves the signed-in user's profile, onboarding and the
// public leaderboard.
//
// Every /api/users and /api/onboarding route sits behind auth.RequireAuth,
// so the user id always comes from the session, never from the request.
type UserHandler struct {
	users        *service.UserService
	secureCookie bool
	logger       *slog.Logger
}

func NewUserHandler(users *service.UserService, secureCookie bool, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, secureCookie: secureCookie, logger: logger}
}

// HandleGetMe returns the current user.
//
// HTTP: GET /api/users/me
func (h *UserHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.users.GetMe(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateMe applies a partial profile update.
//
// HTTP: PUT /api/users/me
// REQUEST BODY: any of {"name", "email", "projectDescription", "commitmentLevel"}
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.UpdateProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateMe(r.Context(), userID, in)
	if err != nil {
		h.logUnexpected("update profile", userID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDeleteMe deletes the account and ends the session.
//
// HTTP: DELETE /api/users/me
func (h *UserHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.users.DeleteMe(r.Context(), userID); err != nil {
		h.logUnexpected("delete account", userID, err)
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// HandleOnboardingStatus reports whether onboarding is complete.
//
// HTTP: GET /api/onboarding/status
// RESPONSE: {"isOnboarded": true}
func (h *UserHandler) HandleOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	status, err := h.users.OnboardingStatus(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleOnboard completes onboarding.
//
// HTTP: POST /api/onboarding
// REQUEST BODY: {"projectDescription": "...", "commitmentLevel": "serious", "email": "..."}
func (h *UserHandler) HandleOnboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.OnboardInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Onboard(r.Context(), userID, in)
	if err != nil {
		h.logUnexpected("onboard", userID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleLeaderboard lists the top users by total ships.
//
// HTTP: GET /api/leaderboard?limit=10
func (h *UserHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, apperror.ValidationFailed("limit", "limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.users.Leaderboard(r.Context(), limit)
	if err != nil {
		h.logUnexpected("leaderboard", "", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// logUnexpected logs errors that are not client mistakes.
func (h *UserHandler) logUnexpected(op, userID string, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return
	}
	h.logger.Error("request failed",
		slog.String("op", op),
		slog.String("userID", userID),
		slog.String("error", err.Error()),
	)
}
