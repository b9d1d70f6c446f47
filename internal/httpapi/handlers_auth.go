package httpapi

import (
	"net/http"
	"strings"

	"planloom/internal/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type idTokenRequest struct {
	IDToken string `json:"idToken"`
}

type userResponse struct {
	User userView `json:"user"`
}

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	fields := map[string]string{}
	if !strings.Contains(req.Email, "@") {
		fields["email"] = "must be an email address"
	}
	if !validUsername(strings.TrimSpace(req.Username)) {
		fields["username"] = "3-24 characters, letters, digits and underscore"
	}
	if !validPassword(req.Password) {
		fields["password"] = "must be at least 12 characters"
	}
	if len(fields) > 0 {
		WriteJSON(w, http.StatusBadRequest, errorEnvelope{Error: apiError{
			Code: "validation_error", Message: "invalid request", Fields: fields,
		}})
		return
	}

	u, token, err := a.authSvc.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, a.cookieCodec.EncodeToken(token), a.sessionTTL, a.cookieSecure)
	WriteJSON(w, http.StatusCreated, userResponse{User: toUserView(u)})
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	login := strings.TrimSpace(req.Login)
	if login == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "login and password required")
		return
	}

	ipKey := "ip:" + clientIP(r)
	loginKey := "login:" + strings.ToLower(login)
	if !a.loginLimiter.allowed(ipKey) || !a.loginLimiter.allowed(loginKey) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts, try again later")
		return
	}

	u, token, err := a.authSvc.Login(r.Context(), login, req.Password)
	if err != nil {
		a.loginLimiter.recordFailure(ipKey)
		a.loginLimiter.recordFailure(loginKey)
		a.writeDomainError(w, r, err)
		return
	}
	a.loginLimiter.reset(ipKey)
	a.loginLimiter.reset(loginKey)

	auth.SetSessionCookie(w, a.cookieCodec.EncodeToken(token), a.sessionTTL, a.cookieSecure)
	WriteJSON(w, http.StatusOK, userResponse{User: toUserView(u)})
}

func (a *api) handleLoginGoogle(w http.ResponseWriter, r *http.Request) {
	var req idTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	claims, err := auth.VerifyGoogleIDToken(r.Context(), req.IDToken, a.googleClientID)
	if err != nil {
		a.logger.Info("google token rejected", "err", err)
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "id token rejected")
		return
	}

	u, token, err := a.authSvc.LoginExternal(r.Context(), "google", claims)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, a.cookieCodec.EncodeToken(token), a.sessionTTL, a.cookieSecure)
	WriteJSON(w, http.StatusOK, userResponse{User: toUserView(u)})
}

func (a *api) handleLoginApple(w http.ResponseWriter, r *http.Request) {
	var req idTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	claims, err := auth.VerifyAppleIDToken(r.Context(), req.IDToken, a.appleServiceID)
	if err != nil {
		a.logger.Info("apple token rejected", "err", err)
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "id token rejected")
		return
	}

	u, token, err := a.authSvc.LoginExternal(r.Context(), "apple", claims)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, a.cookieCodec.EncodeToken(token), a.sessionTTL, a.cookieSecure)
	WriteJSON(w, http.StatusOK, userResponse{User: toUserView(u)})
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := CurrentSessionToken(r.Context()); ok {
		if err := a.authSvc.Logout(r.Context(), token); err != nil {
			a.logger.Warn("logout", "err", err)
		}
	}
	auth.ClearSessionCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	WriteJSON(w, http.StatusOK, userResponse{User: toUserView(u)})
}
