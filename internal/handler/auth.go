package handler

import (
	"net/http"
	"time"

	"videotube/internal/assets"
	"videotube/internal/config"
	"videotube/internal/httputil"
	"videotube/internal/model"
	"videotube/internal/service"
	"videotube/internal/transport/http/middleware"
)

const refreshTokenCookie = "refresh_token"

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	credentials *service.CredentialService
	config      *config.Config
}

func NewAuthHandler(credentials *service.CredentialService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{credentials: credentials, config: cfg}
}

// Register handles multipart sign-up with optional avatar and cover images.
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, 2*assets.MaxImageBytes+1<<20); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	avatar, err := spoolUpload(r, "avatar")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	cover, err := spoolUpload(r, "cover")
	if err != nil {
		removeAll(avatar)
		httputil.WriteServiceError(w, r, err)
		return
	}
	defer removeAll(avatar, cover)

	account, err := h.credentials.Register(r.Context(), model.RegisterInput{
		Username:   r.FormValue("username"),
		Email:      r.FormValue("email"),
		FullName:   r.FormValue("full_name"),
		Password:   r.FormValue("password"),
		AvatarPath: avatar,
		CoverPath:  cover,
	})
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, account)
}

// Login handles user login
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	result, err := h.credentials.Authenticate(r.Context(), req.Identifier, req.Password, clientInfo(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	h.setTokenCookies(w, result.Tokens)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Refresh rotates a refresh token taken from the body or, failing that, the cookie.
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(w, r, &req); err != nil {
			httputil.WriteServiceError(w, r, err)
			return
		}
	}
	if req.RefreshToken == "" {
		if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
			req.RefreshToken = cookie.Value
		}
	}
	if req.RefreshToken == "" {
		httputil.WriteUnauthorized(w, "refresh token is required")
		return
	}

	tokens, err := h.credentials.Refresh(r.Context(), req.RefreshToken, clientInfo(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	h.setTokenCookies(w, tokens)
	httputil.WriteJSON(w, http.StatusOK, tokens)
}

// Logout revokes every session of the caller.
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := h.credentials.Logout(r.Context(), accountID); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	h.clearTokenCookies(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// ChangePassword handles POST /auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var req model.ChangePasswordRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := h.credentials.ChangePassword(r.Context(), accountID, req.OldPassword, req.NewPassword); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed",
	})
}

// Me returns the currently authenticated account
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	account, err := h.credentials.CurrentAccount(r.Context(), accountID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, account)
}

func (h *AuthHandler) setTokenCookies(w http.ResponseWriter, tokens *model.TokenPair) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, tokens.AccessToken, h.config.AccessTokenTTL()))
	http.SetCookie(w, h.cookie(refreshTokenCookie, tokens.RefreshToken, h.config.RefreshTokenTTL()))
}

func (h *AuthHandler) clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, "", -time.Second))
	http.SetCookie(w, h.cookie(refreshTokenCookie, "", -time.Second))
}

func (h *AuthHandler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
