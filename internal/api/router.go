package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/api/handlers"
	"github.com/felixgeelhaar/pyquest/internal/api/middleware"
)

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux      *http.ServeMux
	app      *App
	auth     *handlers.AuthHandler
	catalog  *handlers.CatalogHandler
	sessions *handlers.SessionHandler
	runs     *handlers.RunsHandler
	progress *handlers.ProgressHandler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(app *App) http.Handler {
	r := &Router{
		mux: http.NewServeMux(),
		app: app,
	}

	r.auth = handlers.NewAuthHandler(app.Auth, app.Progress, !app.Config.Debug, app.Config.SessionMaxAge)
	r.catalog = handlers.NewCatalogHandler(app.Catalog)
	r.sessions = handlers.NewSessionHandler(app.Sessions)
	r.runs = handlers.NewRunsHandler(app.Producer, app.Results, app.Config.RunnerTimeout)
	r.progress = handlers.NewProgressHandler(app.Progress)

	r.registerRoutes()

	return r.buildMiddlewareChain(r.mux)
}

func (r *Router) registerRoutes() {
	requireAuth := middleware.Auth(r.app.Auth)
	rateLimits := middleware.DefaultRateLimitConfig()
	expensive := middleware.ExpensiveRateLimitMiddleware(rateLimits)

	authed := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /ready", r.handleReady)

	// Auth (no auth required)
	r.mux.HandleFunc("POST /api/v1/auth/register", r.auth.Register)
	r.mux.HandleFunc("POST /api/v1/auth/login", r.auth.Login)
	r.mux.HandleFunc("POST /api/v1/auth/logout", r.auth.Logout)
	r.mux.HandleFunc("GET /api/v1/auth/me", r.auth.Me)

	// Course catalog (public read)
	r.mux.HandleFunc("GET /api/v1/courses", r.catalog.ListCourses)
	r.mux.HandleFunc("GET /api/v1/courses/{courseID}", r.catalog.GetCourse)
	r.mux.HandleFunc("GET /api/v1/courses/{courseID}/units/{unitID}/lessons/{lessonID}", r.catalog.GetLesson)

	// Lesson sessions (requires auth)
	r.mux.Handle("POST /api/v1/sessions", authed(r.sessions.Create))
	r.mux.Handle("GET /api/v1/sessions/{id}", authed(r.sessions.Get))
	r.mux.Handle("POST /api/v1/sessions/{id}/steps/{index}", authed(r.sessions.CompleteStep))
	r.mux.Handle("POST /api/v1/sessions/{id}/quiz", authed(r.sessions.StartQuiz))
	r.mux.Handle("POST /api/v1/sessions/{id}/quiz/answer", authed(r.sessions.AnswerQuiz))

	// Playground (requires auth, stricter rate limit)
	r.mux.Handle("POST /api/v1/playground/run", expensive(requireAuth(http.HandlerFunc(r.runs.Run))))

	// Progress (requires auth)
	r.mux.Handle("GET /api/v1/progress", authed(r.progress.GetProfile))
	r.mux.Handle("GET /api/v1/progress/courses/{courseID}", authed(r.progress.GetCourseProgress))
	r.mux.Handle("GET /api/v1/progress/analytics", authed(r.progress.Analytics))

	// Leaderboard (public)
	r.mux.HandleFunc("GET /api/v1/leaderboard", r.progress.Leaderboard)
}

func (r *Router) buildMiddlewareChain(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(handler)

	// Rate limiting is skipped in debug mode for easier development
	if !r.app.Config.Debug {
		handler = middleware.RateLimitMiddleware(middleware.DefaultRateLimitConfig())(handler)
	}

	handler = middleware.RequestID(handler)
	handler = middleware.CORS(handler)

	return handler
}

// Health check handlers
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	r.jsonResponse(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	checks := map[string]string{
		"database": "healthy",
		"queue":    "healthy",
	}
	ready := true

	if err := r.app.PingDB(req.Context()); err != nil {
		slog.Error("database health check failed",
			"error", err,
			"request_id", middleware.GetRequestID(req.Context()),
		)
		checks["database"] = "unhealthy"
		ready = false
	}

	if !r.app.Queue().IsConnected() {
		checks["queue"] = "unhealthy"
		ready = false
	}

	if !ready {
		r.jsonResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"checks": checks,
		})
		return
	}

	r.jsonResponse(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": checks,
	})
}

// Helper for JSON responses
func (r *Router) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
