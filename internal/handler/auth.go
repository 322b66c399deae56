package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/hd-notes/internal/apperror"
	"github.com/sakif/hd-notes/internal/auth"
	"github.com/sakif/hd-notes/internal/service"
)

// AuthHandler exposes the authentication endpoints:
//
//	POST /auth/signup        → create account, send OTP
//	POST /auth/signupverify  → confirm OTP, mark verified, issue session token
//	POST /auth/login         → send login OTP to a verified account
//	POST /auth/loginverify   → confirm OTP, issue session token
//	POST /auth/resend        → reissue OTP
//	POST /auth/google        → verify a client-obtained Google ID token
//	GET  /auth/google/login  → start the server-side Google code flow
//	GET  /auth/google/callback → finish the code flow
//
// All business rules live in AuthService; this layer only parses requests
// and shapes responses.
type AuthHandler struct {
	svc    *service.AuthService
	google *auth.GoogleProvider // nil when Google OAuth is not configured
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google may be nil; the code-flow
// routes are simply not registered in that case.
func NewAuthHandler(svc *service.AuthService, google *auth.GoogleProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, google: google, logger: logger}
}

// HandleSignup starts email registration and sends an OTP.
//
// HTTP: POST /auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	req, err := decodeValid[signupRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, isResend, err := h.svc.Signup(r.Context(), req.Name, req.Email, req.DOB)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "OTP sent to email",
		"user":     user,
		"isResend": isResend,
	})
}

// HandleSignupVerify confirms the signup OTP and returns a session token.
//
// HTTP: POST /auth/signupverify
func (h *AuthHandler) HandleSignupVerify(w http.ResponseWriter, r *http.Request) {
	req, err := decodeValid[otpRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.VerifySignup(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Verified as " + result.User.Name,
		"token":   result.Token,
		"user":    result.User,
	})
}

// HandleLogin sends a login OTP to a verified account.
//
// HTTP: POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeValid[emailRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Login(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Login OTP sent to email",
	})
}

// HandleLoginVerify confirms the login OTP and returns a session token.
//
// HTTP: POST /auth/loginverify
func (h *AuthHandler) HandleLoginVerify(w http.ResponseWriter, r *http.Request) {
	req, err := decodeValid[otpRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.VerifyLogin(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Logged in as " + result.User.Name,
		"token":   result.Token,
		"user":    result.User,
	})
}

// HandleResend reissues the OTP for an account mid-flow.
//
// HTTP: POST /auth/resend
func (h *AuthHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	req, err := decodeValid[emailRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Resend(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "OTP resent successfully",
	})
}

// HandleGoogle signs in with a Google ID token the client obtained itself
// (the Google Identity Services JS flow). The server verifies the token and
// issues its own token pair.
//
// HTTP: POST /auth/google
func (h *AuthHandler) HandleGoogle(w http.ResponseWriter, r *http.Request) {
	req, err := decodeValid[googleRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.LoginWithGoogle(r.Context(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
		"user":         result.User,
	})
}

// HandleGoogleLogin redirects the browser to Google's authorization page.
//
// HTTP: GET /auth/google/login
//
// A random state value goes into a short-lived HttpOnly cookie; the callback
// must echo it back. That ties the callback to a request this server started.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the server-side Google code flow: state
// check, code exchange, then the same user resolution as HandleGoogle.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("google callback: missing state cookie")
		writeError(w, apperror.ValidationFailed("state", "Invalid OAuth state"))
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "Invalid OAuth state"))
		return
	}

	// State is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: authorization denied", slog.String("error", errParam))
		writeError(w, apperror.Unauthorized("Authorization denied"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "Missing OAuth code"))
		return
	}

	claims, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: code exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Authentication failed",
		})
		return
	}

	result, err := h.svc.GoogleLogin(r.Context(), claims)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
		"user":         result.User,
	})
}
