package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/catalog"
	"github.com/felixgeelhaar/pyquest/internal/domain"
	"github.com/felixgeelhaar/pyquest/internal/progress"
	"github.com/google/uuid"
)

// StepResult is returned from Service.CompleteStep.
type StepResult struct {
	Session    *Session
	StepXP     int
	Completion *Completion
	Summary    *progress.CompletionSummary
}

// Service creates sessions from the catalog, persists step progress and
// records lesson completion exactly once per session.
type Service struct {
	catalog  *catalog.Registry
	progress ProgressRecorder
	store    Store
	logger   *slog.Logger
}

// NewService creates a session service.
func NewService(cat *catalog.Registry, rec ProgressRecorder, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:  cat,
		progress: rec,
		store:    store,
		logger:   logger,
	}
}

// Start creates a session for a lesson, resuming prior progress when the
// lesson was left unfinished.
func (s *Service) Start(ctx context.Context, userID uuid.UUID, courseID, unitID, lessonID string) (*Session, error) {
	lesson, err := s.catalog.GetLesson(courseID, unitID, lessonID)
	if err != nil {
		return nil, err
	}

	var resume *Resume
	attempts := 1
	prior, err := s.progress.GetLessonProgress(ctx, userID, courseID, unitID, lessonID)
	if err != nil && !errors.Is(err, domain.ErrProgressNotFound) {
		return nil, fmt.Errorf("load prior progress: %w", err)
	}
	if prior != nil {
		attempts = prior.Attempts + 1
		if !prior.Completed {
			resume = &Resume{
				CurrentStep:    prior.CurrentStep,
				CompletedSteps: prior.CompletedSteps,
			}
		}
	}

	sess, err := NewSession(userID, courseID, unitID, lessonID, lesson, resume)
	if err != nil {
		return nil, err
	}
	sess.attempts = attempts

	s.store.Save(sess)
	s.logger.Info("session started",
		"session_id", sess.ID,
		"user_id", userID,
		"lesson", courseID+"/"+unitID+"/"+lessonID,
		"resumed", resume != nil,
	)
	return sess, nil
}

// Get returns an active session by id.
func (s *Service) Get(id uuid.UUID) (*Session, error) {
	return s.store.Get(id)
}

// CompleteStep advances the session and persists progress. Interim step
// writes are best-effort (logged on failure); the completion write is
// authoritative and its failure is returned to the caller.
func (s *Service) CompleteStep(ctx context.Context, sessionID uuid.UUID, stepIndex int, outcome StepOutcome) (*StepResult, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	xpBefore := sess.XPEarned
	completion, err := sess.CompleteStep(stepIndex, outcome)
	if err != nil {
		return nil, err
	}

	result := &StepResult{
		Session:    sess,
		StepXP:     sess.XPEarned - xpBefore,
		Completion: completion,
	}

	rec := s.buildRecord(sess, completion)

	if completion == nil {
		if err := s.progress.SaveLessonProgress(ctx, rec); err != nil {
			// Interim saves degrade to in-memory-only: the session resumes
			// from the last successful write.
			s.logger.Error("save step progress failed", "session_id", sess.ID, "error", err)
		}
		return result, nil
	}

	summary, err := s.progress.RecordLessonCompletion(ctx, rec, quizResults(sess))
	if err != nil {
		return nil, fmt.Errorf("record lesson completion: %w", err)
	}
	result.Summary = summary
	s.store.Delete(sess.ID)

	s.logger.Info("lesson completed",
		"session_id", sess.ID,
		"user_id", sess.UserID,
		"lesson", sess.CourseID+"/"+sess.UnitID+"/"+sess.LessonID,
		"xp", completion.TotalXP,
		"new_achievements", len(summary.NewAchievements),
	)
	return result, nil
}

func (s *Service) buildRecord(sess *Session, completion *Completion) *progress.LessonProgress {
	now := time.Now()
	rec := &progress.LessonProgress{
		UserID:         sess.UserID,
		CourseID:       sess.CourseID,
		UnitID:         sess.UnitID,
		LessonID:       sess.LessonID,
		Completed:      completion != nil,
		CompletedSteps: sess.CompletedSteps,
		CurrentStep:    sess.CurrentStep,
		XPEarned:       sess.XPEarned,
		Attempts:       sess.attempts,
		TimeSpent:      minutesSince(sess.StartedAt, now),
		LastAccessed:   now,
	}
	if completion != nil {
		rec.CompletedAt = &now
	}
	return rec
}

// quizResults collects the quiz outcomes recorded during the session for
// the append-only quiz result log.
func quizResults(sess *Session) []*progress.QuizResult {
	var out []*progress.QuizResult
	for _, outcome := range sess.outcomes {
		q := outcome.Quiz
		if q == nil {
			continue
		}
		answers := make([]progress.QuizAnswer, len(q.Answers))
		for i, a := range q.Answers {
			answers[i] = progress.QuizAnswer{
				QuestionID: a.QuestionID,
				UserAnswer: a.UserAnswer,
				IsCorrect:  a.IsCorrect,
				TimeSpent:  a.TimeSpent,
				WasTimeUp:  a.WasTimeUp,
			}
		}
		out = append(out, &progress.QuizResult{
			UserID:         sess.UserID,
			QuizID:         q.QuizID,
			Score:          q.Score,
			TotalQuestions: q.TotalQuestions,
			CorrectAnswers: q.CorrectAnswers,
			Answers:        answers,
			TimeSpent:      q.TimeSpent,
			CompletedAt:    time.Now(),
		})
	}
	return out
}

func minutesSince(start, end time.Time) int {
	m := int(end.Sub(start).Round(time.Minute) / time.Minute)
	if m < 0 {
		return 0
	}
	return m
}
