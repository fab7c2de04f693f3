package session

import (
	"context"

	"github.com/felixgeelhaar/pyquest/internal/progress"
	"github.com/google/uuid"
)

// Store holds active sessions between HTTP calls.
type Store interface {
	Save(s *Session)
	Get(id uuid.UUID) (*Session, error)
	Delete(id uuid.UUID)
}

// ProgressRecorder is the slice of the progress service the session service
// depends on.
type ProgressRecorder interface {
	GetLessonProgress(ctx context.Context, userID uuid.UUID, courseID, unitID, lessonID string) (*progress.LessonProgress, error)
	SaveLessonProgress(ctx context.Context, rec *progress.LessonProgress) error
	RecordLessonCompletion(ctx context.Context, rec *progress.LessonProgress, quizzes []*progress.QuizResult) (*progress.CompletionSummary, error)
}
