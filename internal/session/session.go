package session

import (
	"math"
	"slices"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/catalog"
	"github.com/felixgeelhaar/pyquest/internal/domain"
	"github.com/google/uuid"
)

// XPPerExercise is the fixed award for a completed exercise step. Quiz steps
// award round(score/10), i.e. 1 XP per 10% score.
const XPPerExercise = 10

// Status represents the session state
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// StepOutcome carries the result of a single completed step. For exercise
// steps Success/Attempts/Code are meaningful; for quiz steps Score (0-100)
// and Quiz are set.
type StepOutcome struct {
	Success  bool        `json:"success"`
	Attempts int         `json:"attempts,omitempty"`
	Code     string      `json:"code,omitempty"`
	Score    int         `json:"score,omitempty"`
	Quiz     *QuizResult `json:"quiz,omitempty"`
}

// Completion is emitted exactly once, when the final step completes.
type Completion struct {
	TotalXP        int
	CompletedSteps []int
	Outcomes       map[int]StepOutcome
	Elapsed        time.Duration
}

// Resume carries prior progress for re-entering a lesson.
type Resume struct {
	CurrentStep    int
	CompletedSteps []int
}

// Session drives a user through a lesson's ordered steps, tracking which
// steps are done and accumulated XP, and signaling completion exactly once.
// Completed is terminal: retries create new attempts, they never revert it.
type Session struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	CourseID string
	UnitID   string
	LessonID string

	Status         Status
	CurrentStep    int
	CompletedSteps []int
	XPEarned       int

	StartedAt time.Time
	UpdatedAt time.Time

	lesson   *catalog.Lesson
	outcomes map[int]StepOutcome
	attempts int
}

// NewSession creates a session for a lesson, resuming at the prior current
// step when prior progress is supplied. A lesson with no steps is invalid.
func NewSession(userID uuid.UUID, courseID, unitID, lessonID string, lesson *catalog.Lesson, prior *Resume) (*Session, error) {
	if lesson == nil || len(lesson.Steps) == 0 {
		return nil, domain.ErrInvalidLesson
	}

	now := time.Now()
	s := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		CourseID:  courseID,
		UnitID:    unitID,
		LessonID:  lessonID,
		Status:    StatusNotStarted,
		StartedAt: now,
		UpdatedAt: now,
		lesson:    lesson,
		outcomes:  make(map[int]StepOutcome),
		attempts:  1,
	}

	if prior != nil && len(prior.CompletedSteps) > 0 {
		s.Status = StatusInProgress
		s.CompletedSteps = slices.Clone(prior.CompletedSteps)
		s.CurrentStep = prior.CurrentStep
		if s.CurrentStep >= len(lesson.Steps) {
			s.CurrentStep = len(lesson.Steps) - 1
		}
	}

	return s, nil
}

// Lesson returns the catalog lesson this session walks through.
func (s *Session) Lesson() *catalog.Lesson {
	return s.lesson
}

// Step returns the step at the session's current position.
func (s *Session) Step() catalog.Step {
	return s.lesson.Steps[s.CurrentStep]
}

// Outcomes returns the recorded per-step outcomes.
func (s *Session) Outcomes() map[int]StepOutcome {
	return s.outcomes
}

// CompleteStep records the outcome for the current step and advances the
// session. Steps must complete strictly in order; completing any step on an
// already-completed session is rejected. On the final step the session
// transitions to Completed and the returned Completion is non-nil — this
// happens exactly once per session.
func (s *Session) CompleteStep(stepIndex int, outcome StepOutcome) (*Completion, error) {
	if s.Status == StatusCompleted {
		return nil, domain.ErrSessionCompleted
	}
	if stepIndex != s.CurrentStep {
		return nil, domain.ErrStepOutOfOrder
	}

	step := s.lesson.Steps[stepIndex]
	xp := stepXP(step, outcome)

	s.Status = StatusInProgress
	s.CompletedSteps = append(s.CompletedSteps, stepIndex)
	s.outcomes[stepIndex] = outcome
	s.XPEarned += xp
	s.UpdatedAt = time.Now()

	if stepIndex == len(s.lesson.Steps)-1 {
		s.Status = StatusCompleted
		s.CurrentStep = len(s.lesson.Steps)
		return &Completion{
			TotalXP:        s.XPEarned,
			CompletedSteps: slices.Clone(s.CompletedSteps),
			Outcomes:       s.outcomes,
			Elapsed:        time.Since(s.StartedAt),
		}, nil
	}

	s.CurrentStep = stepIndex + 1
	return nil, nil
}

// stepXP computes the XP delta for a completed step.
func stepXP(step catalog.Step, outcome StepOutcome) int {
	switch step.Type {
	case catalog.StepQuiz:
		score := outcome.Score
		if score < 0 {
			score = 0
		} else if score > 100 {
			score = 100
		}
		return int(math.Round(float64(score) / 10))
	default:
		return XPPerExercise
	}
}
