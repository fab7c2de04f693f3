package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/felixgeelhaar/pyquest/internal/domain"
	"github.com/felixgeelhaar/pyquest/internal/outbox"
	"github.com/felixgeelhaar/pyquest/internal/progress"
)

// ProgressStore implements progress persistence on PostgreSQL with the same
// transactional outbox semantics as the SQLite store.
type ProgressStore struct {
	db *sql.DB
}

// NewProgressStore creates a PostgreSQL-backed progress store.
func NewProgressStore(db *sql.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// querier covers *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const profileColumns = `user_id, email, display_name, total_xp, current_streak,
	longest_streak, lessons_completed, quizzes_completed, total_time_spent,
	achievements, last_login_date, created_at, updated_at`

// GetProfile retrieves a profile by user id.
func (s *ProgressStore) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	return getProfile(ctx, s.db, userID)
}

func getProfile(ctx context.Context, q querier, userID uuid.UUID) (*domain.UserProfile, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE user_id = $1", userID)
	return scanProfile(row.Scan)
}

func scanProfile(scan func(...any) error) (*domain.UserProfile, error) {
	var p domain.UserProfile
	err := scan(&p.UserID, &p.Email, &p.DisplayName, &p.TotalXP, &p.CurrentStreak,
		&p.LongestStreak, &p.LessonsCompleted, &p.QuizzesCompleted, &p.TotalTimeSpent,
		pq.Array(&p.Achievements), &p.LastLoginDate, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	if p.Achievements == nil {
		p.Achievements = []string{}
	}
	return &p, nil
}

// SaveProfile persists a profile (insert or update).
func (s *ProgressStore) SaveProfile(ctx context.Context, p *domain.UserProfile) error {
	return saveProfile(ctx, s.db, p)
}

func saveProfile(ctx context.Context, q querier, p *domain.UserProfile) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id) DO UPDATE SET
			email=excluded.email,
			display_name=excluded.display_name,
			total_xp=excluded.total_xp,
			current_streak=excluded.current_streak,
			longest_streak=excluded.longest_streak,
			lessons_completed=excluded.lessons_completed,
			quizzes_completed=excluded.quizzes_completed,
			total_time_spent=excluded.total_time_spent,
			achievements=excluded.achievements,
			last_login_date=excluded.last_login_date,
			updated_at=excluded.updated_at`,
		p.UserID, p.Email, p.DisplayName, p.TotalXP, p.CurrentStreak,
		p.LongestStreak, p.LessonsCompleted, p.QuizzesCompleted, p.TotalTimeSpent,
		pq.Array(p.Achievements), p.LastLoginDate, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

const lessonColumns = `user_id, course_id, unit_id, lesson_id, completed,
	completed_steps, current_step, xp_earned, attempts, time_spent,
	completed_at, last_accessed`

// GetLessonProgress retrieves the progress record for one lesson.
func (s *ProgressStore) GetLessonProgress(ctx context.Context, userID uuid.UUID, courseID, unitID, lessonID string) (*progress.LessonProgress, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+lessonColumns+` FROM lesson_progress
		WHERE user_id = $1 AND course_id = $2 AND unit_id = $3 AND lesson_id = $4`,
		userID, courseID, unitID, lessonID)

	rec, err := scanLessonProgress(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProgressNotFound
	}
	return rec, err
}

func scanLessonProgress(scan func(...any) error) (*progress.LessonProgress, error) {
	var (
		rec         progress.LessonProgress
		steps       []byte
		completedAt sql.NullTime
	)
	err := scan(&rec.UserID, &rec.CourseID, &rec.UnitID, &rec.LessonID, &rec.Completed,
		&steps, &rec.CurrentStep, &rec.XPEarned, &rec.Attempts, &rec.TimeSpent,
		&completedAt, &rec.LastAccessed)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(steps, &rec.CompletedSteps); err != nil {
		return nil, fmt.Errorf("unmarshal completed_steps: %w", err)
	}
	if completedAt.Valid {
		rec.CompletedAt = &completedAt.Time
	}
	return &rec, nil
}

// SaveLessonProgress persists a lesson progress record (insert or update).
func (s *ProgressStore) SaveLessonProgress(ctx context.Context, rec *progress.LessonProgress) error {
	return saveLessonProgress(ctx, s.db, rec)
}

func saveLessonProgress(ctx context.Context, q querier, rec *progress.LessonProgress) error {
	steps, err := json.Marshal(rec.CompletedSteps)
	if err != nil {
		return fmt.Errorf("marshal completed_steps: %w", err)
	}

	var completedAt sql.NullTime
	if rec.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *rec.CompletedAt, Valid: true}
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO lesson_progress (`+lessonColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, course_id, unit_id, lesson_id) DO UPDATE SET
			completed=excluded.completed,
			completed_steps=excluded.completed_steps,
			current_step=excluded.current_step,
			xp_earned=excluded.xp_earned,
			attempts=excluded.attempts,
			time_spent=excluded.time_spent,
			completed_at=excluded.completed_at,
			last_accessed=excluded.last_accessed`,
		rec.UserID, rec.CourseID, rec.UnitID, rec.LessonID, rec.Completed,
		steps, rec.CurrentStep, rec.XPEarned, rec.Attempts, rec.TimeSpent,
		completedAt, rec.LastAccessed,
	)
	if err != nil {
		return fmt.Errorf("upsert lesson progress: %w", err)
	}
	return nil
}

// ListLessonProgress returns every progress record a user has in a course.
func (s *ProgressStore) ListLessonProgress(ctx context.Context, userID uuid.UUID, courseID string) ([]*progress.LessonProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+lessonColumns+` FROM lesson_progress
		WHERE user_id = $1 AND course_id = $2
		ORDER BY last_accessed`,
		userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("query lesson progress: %w", err)
	}
	defer rows.Close()

	var out []*progress.LessonProgress
	for rows.Next() {
		rec, err := scanLessonProgress(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ApplyLessonCompletion writes the completion record, the quiz logs, the
// profile mutation and the emitted events atomically.
func (s *ProgressStore) ApplyLessonCompletion(ctx context.Context, rec *progress.LessonProgress, quizzes []*progress.QuizResult, apply progress.ProfileMutation) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := saveLessonProgress(ctx, tx, rec); err != nil {
			return err
		}
		for _, q := range quizzes {
			if err := insertQuizResult(ctx, tx, q); err != nil {
				return err
			}
		}
		return s.mutateProfile(ctx, tx, rec.UserID, apply)
	})
}

// AppendQuizResult writes a standalone quiz result, the profile mutation and
// the emitted events atomically.
func (s *ProgressStore) AppendQuizResult(ctx context.Context, res *progress.QuizResult, apply progress.ProfileMutation) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertQuizResult(ctx, tx, res); err != nil {
			return err
		}
		return s.mutateProfile(ctx, tx, res.UserID, apply)
	})
}

func (s *ProgressStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *ProgressStore) mutateProfile(ctx context.Context, tx *sql.Tx, userID uuid.UUID, apply progress.ProfileMutation) error {
	p, err := getProfile(ctx, tx, userID)
	if err != nil {
		return err
	}

	events, err := apply(p)
	if err != nil {
		return err
	}
	if err := saveProfile(ctx, tx, p); err != nil {
		return err
	}

	for _, e := range events {
		if err := insertOutboxEvent(ctx, tx, e); err != nil {
			return err
		}
	}
	return nil
}

func insertQuizResult(ctx context.Context, q querier, res *progress.QuizResult) error {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	completedAt := res.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO quiz_results (user_id, quiz_id, score, total_questions,
			correct_answers, answers, time_spent, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		res.UserID, res.QuizID, res.Score, res.TotalQuestions,
		res.CorrectAnswers, answers, res.TimeSpent, completedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}
	return nil
}

func insertOutboxEvent(ctx context.Context, q querier, e domain.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.EventType(), err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO outbox (event_id, event_type, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.EventID(), e.EventType(), e.AggregateID(),
		pqtype.NullRawMessage{RawMessage: payload, Valid: true}, e.OccurredAt(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// TopProfiles returns profiles ranked for the leaderboard: XP first, then
// current streak, then account age.
func (s *ProgressStore) TopProfiles(ctx context.Context, limit int) ([]*domain.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM profiles
		ORDER BY total_xp DESC, current_streak DESC, created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top profiles: %w", err)
	}
	defer rows.Close()

	var out []*domain.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PendingEvents returns unsent outbox rows in occurrence order.
func (s *ProgressStore) PendingEvents(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, aggregate_id, payload, occurred_at, attempts
		FROM outbox WHERE sent_at IS NULL
		ORDER BY occurred_at, event_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []*outbox.Entry
	for rows.Next() {
		e := &outbox.Entry{}
		var payload pqtype.NullRawMessage
		if err := rows.Scan(&e.EventID, &e.EventType, &e.AggregateID, &payload, &e.OccurredAt, &e.Attempts); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		if payload.Valid {
			e.Payload = payload.RawMessage
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkEventSent marks an outbox row as published.
func (s *ProgressStore) MarkEventSent(ctx context.Context, eventID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE outbox SET sent_at = $1 WHERE event_id = $2", time.Now(), eventID)
	if err != nil {
		return fmt.Errorf("mark event sent: %w", err)
	}
	return nil
}

// MarkEventFailed bumps the attempt counter on a pending outbox row.
func (s *ProgressStore) MarkEventFailed(ctx context.Context, eventID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE outbox SET attempts = attempts + 1 WHERE event_id = $1", eventID)
	if err != nil {
		return fmt.Errorf("mark event failed: %w", err)
	}
	return nil
}

// Ensure the PostgreSQL store implements the storage interfaces.
var (
	_ progress.Store = (*ProgressStore)(nil)
	_ outbox.Source  = (*ProgressStore)(nil)
)
