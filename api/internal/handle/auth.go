package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"drawcal/api/internal/auth"
	"drawcal/api/internal/store"
)

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password"`
}

type userView struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (h *Handle) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewState()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to initiate Google login: "+err.Error())
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int((5 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *Handle) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := r.Cookie(auth.StateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		writeDetail(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: auth.StateCookie, Path: "/auth/google", MaxAge: -1, HttpOnly: true})

	if e := q.Get("error"); e != "" {
		writeDetail(w, http.StatusBadRequest, "Google login was cancelled: "+e)
		return
	}

	info, err := h.google.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		h.logger.Error("google callback", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Failed to complete Google login: "+err.Error())
		return
	}
	token, err := h.auth.CompleteGoogleLogin(r.Context(), info)
	if err != nil {
		h.logger.Error("google callback", zap.String("email", info.Email), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Failed to complete Google login: "+err.Error())
		return
	}
	http.Redirect(w, r, h.frontendURL+"/auth/callback?token="+url.QueryEscape(token), http.StatusTemporaryRedirect)
}

func (h *Handle) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	if msg, ok := h.check(req); !ok {
		writeDetail(w, http.StatusUnprocessableEntity, msg)
		return
	}

	token, u, err := h.auth.PasswordlessLogin(r.Context(), req.Username)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrLoginDisabled):
		writeDetail(w, http.StatusForbidden, "Password login is disabled")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeDetail(w, http.StatusUnauthorized, "Invalid username or password")
		return
	default:
		writeDetail(w, http.StatusInternalServerError, "Login failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    userView{Username: u.Email, Name: u.Name, Role: u.Role},
	})
}

func (h *Handle) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	u, err := h.auth.Verify(r.Context(), claims)
	if err != nil {
		h.sessionError(w, err, "Token verification failed: ")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    userView{Email: u.Email, Name: u.Name, Role: u.Role},
	})
}

func (h *Handle) SessionCheck(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	u, err := h.auth.CheckSession(r.Context(), claims, auth.TokenFrom(r.Context()))
	if err != nil {
		h.sessionError(w, err, "Session check failed: ")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    userView{Username: u.Email, Name: u.Name, Role: u.Role},
	})
}

func (h *Handle) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if err := h.auth.Logout(r.Context(), claims); err != nil {
		writeDetail(w, http.StatusInternalServerError, "Logout failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully"})
}

func (h *Handle) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	u, err := h.auth.Profile(r.Context(), claims)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrUserNotFound):
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	default:
		writeDetail(w, http.StatusInternalServerError, "Failed to fetch user profile: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profileView(u))
}

func profileView(u store.User) map[string]any {
	out := map[string]any{"email": u.Email, "name": u.Name, "role": u.Role, "createdAt": nil}
	if !u.CreatedAt.IsZero() {
		out["createdAt"] = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func (h *Handle) sessionError(w http.ResponseWriter, err error, prefix string) {
	switch {
	case errors.Is(err, auth.ErrSessionInvalid):
		writeDetail(w, http.StatusUnauthorized, "Session expired or invalid")
	case errors.Is(err, auth.ErrUserNotFound):
		writeDetail(w, http.StatusUnauthorized, "User not found")
	default:
		h.logger.Error("session lookup", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, prefix+err.Error())
	}
}
