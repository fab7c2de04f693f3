package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/auth"
	"github.com/felixgeelhaar/pyquest/internal/domain"
	"github.com/google/uuid"
)

// ProgressInitializer creates or refreshes the gamification profile on
// sign-in. The auth handler calls it so that registering or logging in
// always leaves the learner with an up-to-date profile and streak.
type ProgressInitializer interface {
	InitializeUserProgress(ctx context.Context, userID uuid.UUID, email, displayName string) (*domain.UserProfile, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *auth.Service
	progress     ProgressInitializer
	cookieName   string
	cookieMaxAge int
	secureCookie bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, progress ProgressInitializer, secureCookie bool, maxAge int) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		progress:     progress,
		cookieName:   "session",
		cookieMaxAge: maxAge,
		secureCookie: secureCookie,
	}
}

// RegisterRequest is the request body for registration
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the response for user data
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func userResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.authService.Register(r.Context(), auth.RegisterRequest{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})

	if errors.Is(err, auth.ErrEmailExists) {
		jsonError(w, http.StatusConflict, "email already registered")
		return
	}
	if errors.Is(err, auth.ErrWeakPassword) {
		jsonError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if _, err := h.progress.InitializeUserProgress(r.Context(), user.ID, user.Email, user.Name); err != nil {
		// Profile creation retries on next login; the account itself exists.
		slog.Error("profile init failed", "user_id", user.ID, "error", err)
	}

	jsonResponse(w, http.StatusCreated, map[string]any{
		"user": userResponse(user),
	})
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.authService.Login(r.Context(), auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})

	if errors.Is(err, auth.ErrInvalidCredentials) {
		jsonError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "login failed")
		return
	}

	profile, err := h.progress.InitializeUserProgress(r.Context(), result.User.ID, result.User.Email, result.User.Name)
	if err != nil {
		slog.Error("profile init failed", "user_id", result.User.ID, "error", err)
	}

	// Set session cookie
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   h.cookieMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	resp := map[string]any{
		"user":  userResponse(result.User),
		"token": result.Token,
	}
	if profile != nil {
		resp["streak"] = profile.CurrentStreak
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookieName)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "not logged in")
		return
	}

	if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
		// The session may already be gone; the user wants out either way.
		slog.Debug("logout", "error", err)
	}

	// Clear cookie
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	jsonResponse(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// Me returns the current user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookieName)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, _, err := h.authService.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		// Clear invalid cookie
		http.SetCookie(w, &http.Cookie{
			Name:     h.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
		jsonError(w, http.StatusUnauthorized, "session expired")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"user": userResponse(user),
	})
}

