package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/api/middleware"
	"github.com/felixgeelhaar/pyquest/internal/domain"
	"github.com/felixgeelhaar/pyquest/internal/progress"
)

// ProgressHandler serves the learner's progress views: the gamification
// profile, per-course progress, the leaderboard and analytics.
type ProgressHandler struct {
	progress *progress.Service
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(service *progress.Service) *ProgressHandler {
	return &ProgressHandler{progress: service}
}

// ProfileView is the API representation of a gamification profile
type ProfileView struct {
	UserID           string   `json:"user_id"`
	DisplayName      string   `json:"display_name"`
	TotalXP          int      `json:"total_xp"`
	CurrentStreak    int      `json:"current_streak"`
	LongestStreak    int      `json:"longest_streak"`
	LessonsCompleted int      `json:"lessons_completed"`
	QuizzesCompleted int      `json:"quizzes_completed"`
	TotalTimeSpent   int      `json:"total_time_spent"` // minutes
	Achievements     []string `json:"achievements"`
	CreatedAt        string   `json:"created_at"`
}

// GetProfile returns the authenticated user's profile
func (h *ProgressHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	p, err := h.progress.GetUserProgress(r.Context(), user.ID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		jsonError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	achievements := p.Achievements
	if achievements == nil {
		achievements = []string{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"profile": ProfileView{
			UserID:           p.UserID.String(),
			DisplayName:      p.DisplayName,
			TotalXP:          p.TotalXP,
			CurrentStreak:    p.CurrentStreak,
			LongestStreak:    p.LongestStreak,
			LessonsCompleted: p.LessonsCompleted,
			QuizzesCompleted: p.QuizzesCompleted,
			TotalTimeSpent:   p.TotalTimeSpent,
			Achievements:     achievements,
			CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		},
	})
}

// GetCourseProgress returns the user's position within one course
func (h *ProgressHandler) GetCourseProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	cp, err := h.progress.GetCourseProgress(r.Context(), user.ID, r.PathValue("courseID"))
	if errors.Is(err, domain.ErrCourseNotFound) {
		jsonError(w, http.StatusNotFound, "course not found")
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load course progress")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"progress": cp})
}

// Leaderboard returns the top profiles ranked by XP
func (h *ProgressHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}

	entries, err := h.progress.GetLeaderboard(r.Context(), limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	if entries == nil {
		entries = []progress.LeaderboardEntry{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

// Analytics returns aggregate learning statistics for the user
func (h *ProgressHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	analytics, err := h.progress.GetUserAnalytics(r.Context(), user.ID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		jsonError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"analytics": analytics})
}
