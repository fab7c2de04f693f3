package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/api/middleware"
	"github.com/felixgeelhaar/pyquest/internal/catalog"
	"github.com/felixgeelhaar/pyquest/internal/domain"
	"github.com/felixgeelhaar/pyquest/internal/progress"
	"github.com/felixgeelhaar/pyquest/internal/session"
	"github.com/google/uuid"
)

// SessionHandler drives lesson sessions: starting them, completing exercise
// steps and running the timed quiz flow for quiz steps. Quiz runs live in
// memory next to their session; both are lost on restart and resume from
// the last persisted step.
type SessionHandler struct {
	sessions *session.Service

	mu      sync.Mutex
	quizzes map[uuid.UUID]*session.QuizRun
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Service) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		quizzes:  make(map[uuid.UUID]*session.QuizRun),
	}
}

// CreateSessionRequest is the request body for starting a session
type CreateSessionRequest struct {
	CourseID string `json:"course_id"`
	UnitID   string `json:"unit_id"`
	LessonID string `json:"lesson_id"`
}

// CompleteStepRequest is the request body for completing an exercise step
type CompleteStepRequest struct {
	Success  bool   `json:"success"`
	Attempts int    `json:"attempts"`
	Code     string `json:"code"`
}

// QuizAnswerRequest is the request body for answering a quiz question
type QuizAnswerRequest struct {
	Choice *int   `json:"choice,omitempty"`
	Code   string `json:"code,omitempty"`
	Stdout string `json:"stdout,omitempty"`
}

// SessionView is the API representation of a lesson session
type SessionView struct {
	ID             string    `json:"id"`
	CourseID       string    `json:"course_id"`
	UnitID         string    `json:"unit_id"`
	LessonID       string    `json:"lesson_id"`
	Status         string    `json:"status"`
	CurrentStep    int       `json:"current_step"`
	TotalSteps     int       `json:"total_steps"`
	CompletedSteps []int     `json:"completed_steps"`
	XPEarned       int       `json:"xp_earned"`
	StartedAt      time.Time `json:"started_at"`
	Step           *StepView `json:"step,omitempty"`
}

// SummaryView reports what a lesson completion changed
type SummaryView struct {
	XPEarned        int               `json:"xp_earned"`
	AchievementXP   int               `json:"achievement_xp"`
	TotalXP         int               `json:"total_xp"`
	NewAchievements []AchievementView `json:"new_achievements"`
}

// AchievementView is one unlocked achievement
type AchievementView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	XPReward    int    `json:"xp_reward"`
}

// Create starts a new session for a lesson
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CourseID == "" || req.UnitID == "" || req.LessonID == "" {
		jsonError(w, http.StatusBadRequest, "course_id, unit_id and lesson_id are required")
		return
	}

	sess, err := h.sessions.Start(r.Context(), user.ID, req.CourseID, req.UnitID, req.LessonID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCourseNotFound),
			errors.Is(err, domain.ErrUnitNotFound),
			errors.Is(err, domain.ErrLessonNotFound):
			jsonError(w, http.StatusNotFound, "lesson not found")
		case errors.Is(err, domain.ErrInvalidLesson):
			jsonError(w, http.StatusUnprocessableEntity, "lesson has no steps")
		default:
			jsonError(w, http.StatusInternalServerError, "failed to start session")
		}
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]any{
		"session": sessionView(sess),
	})
}

// Get returns an active session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionForRequest(w, r)
	if !ok {
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"session": sessionView(sess),
	})
}

// CompleteStep records the outcome of the current exercise step and
// advances the session. Quiz steps go through the quiz endpoints instead.
func (h *SessionHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionForRequest(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid step index")
		return
	}

	var req CompleteStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if index >= 0 && index < len(sess.Lesson().Steps) && sess.Lesson().Steps[index].Type == catalog.StepQuiz {
		jsonError(w, http.StatusBadRequest, "quiz steps are completed through the quiz endpoints")
		return
	}

	result, err := h.sessions.CompleteStep(r.Context(), sess.ID, index, session.StepOutcome{
		Success:  req.Success,
		Attempts: req.Attempts,
		Code:     req.Code,
	})
	if err != nil {
		h.writeStepError(w, err)
		return
	}

	h.writeStepResult(w, result)
}

// StartQuiz begins the quiz run for the session's current step and returns
// the first question with its answer deadline.
func (h *SessionHandler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionForRequest(w, r)
	if !ok {
		return
	}

	if sess.Status == session.StatusCompleted || sess.CurrentStep >= len(sess.Lesson().Steps) {
		jsonError(w, http.StatusConflict, "session already completed")
		return
	}

	step := sess.Step()
	if step.Type != catalog.StepQuiz || step.Quiz == nil {
		jsonError(w, http.StatusBadRequest, "current step is not a quiz")
		return
	}

	h.mu.Lock()
	run, exists := h.quizzes[sess.ID]
	if !exists || run.Finished() {
		run = session.NewQuizRun(step.Quiz)
		h.quizzes[sess.ID] = run
	}
	h.mu.Unlock()

	h.writeQuestion(w, http.StatusCreated, step.Quiz, run, nil, "")
}

// AnswerQuiz submits the answer for the current quiz question. A submission
// past the deadline is treated as time-up. When the last question is
// answered, the quiz result completes the session's quiz step.
func (h *SessionHandler) AnswerQuiz(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionForRequest(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	run := h.quizzes[sess.ID]
	h.mu.Unlock()
	if run == nil {
		jsonError(w, http.StatusNotFound, "no active quiz for this session")
		return
	}

	var req QuizAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	question, _ := run.Question()

	var (
		record session.AnswerRecord
		err    error
	)
	if time.Now().After(run.Deadline()) {
		record, err = run.Expire()
	} else {
		record, err = run.Submit(session.Answer{
			Choice: req.Choice,
			Code:   req.Code,
			Stdout: req.Stdout,
		})
	}
	if errors.Is(err, domain.ErrQuestionOutOfRange) {
		jsonError(w, http.StatusConflict, "quiz already finished")
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to grade answer")
		return
	}

	step := sess.Step()
	if !run.Finished() {
		h.writeQuestion(w, http.StatusOK, step.Quiz, run, &record, question.Explanation)
		return
	}

	quizResult := run.Result()
	h.mu.Lock()
	delete(h.quizzes, sess.ID)
	h.mu.Unlock()

	stepResult, err := h.sessions.CompleteStep(r.Context(), sess.ID, sess.CurrentStep, session.StepOutcome{
		Success: true,
		Score:   quizResult.Score,
		Quiz:    quizResult,
	})
	if err != nil {
		h.writeStepError(w, err)
		return
	}

	resp := map[string]any{
		"answer":      record,
		"explanation": question.Explanation,
		"quiz_result": quizResult,
		"session":     sessionView(stepResult.Session),
		"step_xp":     stepResult.StepXP,
		"completed":   stepResult.Completion != nil,
	}
	if stepResult.Summary != nil {
		resp["summary"] = summaryView(stepResult.Summary)
	}
	jsonResponse(w, http.StatusOK, resp)
}

// sessionForRequest resolves the session from the path and checks it
// belongs to the authenticated user. On failure the error response is
// already written.
func (h *SessionHandler) sessionForRequest(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}

	sess, err := h.sessions.Get(id)
	if err != nil || sess.UserID != user.ID {
		jsonError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) writeStepError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		jsonError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, domain.ErrSessionCompleted):
		jsonError(w, http.StatusConflict, "session already completed")
	case errors.Is(err, domain.ErrStepOutOfOrder):
		jsonError(w, http.StatusConflict, "steps must be completed in order")
	default:
		jsonError(w, http.StatusInternalServerError, "failed to complete step")
	}
}

func (h *SessionHandler) writeStepResult(w http.ResponseWriter, result *session.StepResult) {
	resp := map[string]any{
		"session":   sessionView(result.Session),
		"step_xp":   result.StepXP,
		"completed": result.Completion != nil,
	}
	if result.Summary != nil {
		resp["summary"] = summaryView(result.Summary)
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (h *SessionHandler) writeQuestion(w http.ResponseWriter, status int, quiz *catalog.Quiz, run *session.QuizRun, answered *session.AnswerRecord, explanation string) {
	question, ok := run.Question()
	if !ok {
		jsonError(w, http.StatusConflict, "quiz already finished")
		return
	}

	number := 0
	for i, q := range quiz.Questions {
		if q.ID == question.ID {
			number = i + 1
			break
		}
	}

	resp := map[string]any{
		"question": QuestionView{
			ID:        question.ID,
			Type:      string(question.Type),
			Prompt:    question.Prompt,
			Options:   question.Options,
			Code:      question.Code,
			TimeLimit: quiz.QuestionTimeLimit(number - 1),
		},
		"question_number": number,
		"total_questions": len(quiz.Questions),
		"deadline":        run.Deadline().Format(time.RFC3339),
	}
	if answered != nil {
		resp["answer"] = *answered
		if explanation != "" {
			resp["explanation"] = explanation
		}
	}
	jsonResponse(w, status, resp)
}

func sessionView(s *session.Session) SessionView {
	view := SessionView{
		ID:             s.ID.String(),
		CourseID:       s.CourseID,
		UnitID:         s.UnitID,
		LessonID:       s.LessonID,
		Status:         string(s.Status),
		CurrentStep:    s.CurrentStep,
		TotalSteps:     len(s.Lesson().Steps),
		CompletedSteps: s.CompletedSteps,
		XPEarned:       s.XPEarned,
		StartedAt:      s.StartedAt,
	}
	if view.CompletedSteps == nil {
		view.CompletedSteps = []int{}
	}
	if s.Status != session.StatusCompleted && s.CurrentStep < len(s.Lesson().Steps) {
		sv := stepView(s.CurrentStep, s.Step())
		view.Step = &sv
	}
	return view
}

func summaryView(s *progress.CompletionSummary) SummaryView {
	view := SummaryView{
		XPEarned:        s.XPEarned,
		AchievementXP:   s.AchievementXP,
		TotalXP:         s.TotalXP,
		NewAchievements: make([]AchievementView, len(s.NewAchievements)),
	}
	for i, a := range s.NewAchievements {
		view.NewAchievements[i] = AchievementView{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			XPReward:    a.XPReward,
		}
	}
	return view
}
