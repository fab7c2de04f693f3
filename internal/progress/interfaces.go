package progress

import (
	"context"

	"github.com/felixgeelhaar/pyquest/internal/domain"
	"github.com/google/uuid"
)

// ProfileMutation is applied to a profile inside a store transaction. It
// returns the domain events the store must append to the outbox in the
// same transaction, so counters, achievements and events commit atomically.
type ProfileMutation func(p *domain.UserProfile) ([]domain.Event, error)

// Store is the persistence boundary for learning state. Implementations:
// SQLite for the single-user local store, PostgreSQL for server
// deployments.
type Store interface {
	// GetProfile returns a profile or domain.ErrProfileNotFound.
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)

	// SaveProfile upserts a profile.
	SaveProfile(ctx context.Context, p *domain.UserProfile) error

	// GetLessonProgress returns a record or domain.ErrProgressNotFound.
	GetLessonProgress(ctx context.Context, userID uuid.UUID, courseID, unitID, lessonID string) (*LessonProgress, error)

	// SaveLessonProgress upserts an in-flight record without touching the
	// profile.
	SaveLessonProgress(ctx context.Context, rec *LessonProgress) error

	// ListLessonProgress returns all records for a user within a course.
	ListLessonProgress(ctx context.Context, userID uuid.UUID, courseID string) ([]*LessonProgress, error)

	// ApplyLessonCompletion writes the completed record, the quiz result
	// log entries and the profile mutation in one transaction. The events
	// returned by apply are appended to the outbox in that transaction.
	ApplyLessonCompletion(ctx context.Context, rec *LessonProgress, quizzes []*QuizResult, apply ProfileMutation) error

	// AppendQuizResult writes a standalone quiz result and the profile
	// mutation in one transaction, with the same outbox semantics.
	AppendQuizResult(ctx context.Context, res *QuizResult, apply ProfileMutation) error

	// TopProfiles returns up to limit profiles ordered by total XP
	// descending, ties broken by current streak descending then by
	// profile creation time ascending.
	TopProfiles(ctx context.Context, limit int) ([]*domain.UserProfile, error)
}

// Catalog is the slice of the course catalog the progress service reads.
type Catalog interface {
	LessonCount(courseID string) (int, error)
}
