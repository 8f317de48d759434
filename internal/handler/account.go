package handler

import (
	"log/slog"
	"net/http"

	"storefront/internal/model"
)

// handleRegister adds a user to the registry. It does not log the user in.
// POST /auth/register
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	_, id, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var user model.User
	if err := decodeJSON(r, &user); err != nil {
		h.writeError(w, err)
		return
	}

	created, err := h.commerce.Register(r.Context(), id.Tab, user)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Never echo the password back.
	created.Password = ""
	h.writeJSON(w, http.StatusCreated, registerResponse{User: *created, Redirect: model.RedirectLogin})
}

type registerResponse struct {
	User     model.User `json:"user"`
	Redirect string     `json:"redirect"`
}

// handleLogin starts a session for the calling profile.
// POST /auth/login
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var creds model.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		h.writeError(w, err)
		return
	}

	result, err := sh.Login(r.Context(), creds)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "login",
		slog.String("profile", sh.Profile()),
		slog.String("role", string(result.Session.Role)),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// handleLogout ends the session and clears per-profile shopping state.
// POST /auth/logout
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := sh.Logout(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, redirectResponse{Redirect: model.RedirectLogin})
}

type redirectResponse struct {
	Redirect string `json:"redirect"`
}

// handleGetProfile returns the current session.
// GET /profile
func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	session, err := sh.Session(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if session == nil {
		h.writeError(w, model.NewLoginRequiredError())
		return
	}

	h.writeJSON(w, http.StatusOK, sessionResponse{Session: *session, DisplayName: session.DisplayName()})
}

type sessionResponse struct {
	Session     model.Session `json:"session"`
	DisplayName string        `json:"display_name"`
}

// handleUpdateProfile replaces the session's profile fields.
// PUT /profile
func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	sh, _, err := h.shopper(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var update model.ProfileUpdate
	if err := decodeJSON(r, &update); err != nil {
		h.writeError(w, err)
		return
	}

	session, err := sh.UpdateProfile(r.Context(), update)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, sessionResponse{Session: *session, DisplayName: session.DisplayName()})
}
