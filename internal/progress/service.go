package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/domain"
	"github.com/google/uuid"
)

// Service translates completion and login events into persisted state and
// answers the read queries behind dashboards and the leaderboard.
type Service struct {
	store      Store
	catalog    Catalog
	dispatcher *domain.EventDispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a progress service. The dispatcher may be nil when no
// in-process subscribers exist.
func NewService(store Store, catalog Catalog, dispatcher *domain.EventDispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		catalog:    catalog,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// InitializeUserProgress creates the profile on first sign-in, or records a
// login on an existing one (updating the day streak). Called by the auth
// layer on every successful login.
func (s *Service) InitializeUserProgress(ctx context.Context, userID uuid.UUID, email, displayName string) (*domain.UserProfile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		p = domain.NewUserProfile(userID, email, displayName)
		if err := s.store.SaveProfile(ctx, p); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		s.logger.Info("profile created", "user_id", userID)
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	p.RecordLogin(s.now())
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("update login streak: %w", err)
	}
	return p, nil
}

// RecordLessonCompletion persists a completed lesson: the progress record,
// the quiz logs from the session, the profile counter bumps and any newly
// unlocked achievements — all in one store transaction.
func (s *Service) RecordLessonCompletion(ctx context.Context, rec *LessonProgress, quizzes []*QuizResult) (*CompletionSummary, error) {
	summary := &CompletionSummary{XPEarned: rec.XPEarned}

	apply := func(p *domain.UserProfile) ([]domain.Event, error) {
		p.RecordLessonCompletion(rec.XPEarned, rec.TimeSpent)
		for range quizzes {
			// Quiz XP is already part of rec.XPEarned; only the counter
			// and the log entry are added here.
			p.QuizzesCompleted++
		}

		events := []domain.Event{
			domain.NewLessonCompletedEvent(rec.UserID, rec.CourseID, rec.UnitID, rec.LessonID, rec.XPEarned, rec.CompletedSteps, rec.TimeSpent),
		}
		for _, q := range quizzes {
			events = append(events, domain.NewQuizSubmittedEvent(q.UserID, q.QuizID, q.Score, q.CorrectAnswers, q.TotalQuestions))
		}

		events = append(events, s.awardAchievements(p, summary)...)
		summary.TotalXP = p.TotalXP
		return events, nil
	}

	if err := s.store.ApplyLessonCompletion(ctx, rec, quizzes, apply); err != nil {
		return nil, fmt.Errorf("apply lesson completion: %w", err)
	}

	s.publishCompletion(rec.UserID, summary, domain.NewLessonCompletedEvent(rec.UserID, rec.CourseID, rec.UnitID, rec.LessonID, rec.XPEarned, rec.CompletedSteps, rec.TimeSpent))
	return summary, nil
}

// RecordQuizResult persists a standalone quiz attempt (practice mode):
// the append-only result, the quiz XP (1 per 10% score), counters and
// achievements in one transaction.
func (s *Service) RecordQuizResult(ctx context.Context, res *QuizResult) (*CompletionSummary, error) {
	xp := int(math.Round(float64(res.Score) / 10))
	summary := &CompletionSummary{XPEarned: xp}

	apply := func(p *domain.UserProfile) ([]domain.Event, error) {
		p.RecordQuizCompletion(xp, res.TimeSpent/60)

		events := []domain.Event{
			domain.NewQuizSubmittedEvent(res.UserID, res.QuizID, res.Score, res.CorrectAnswers, res.TotalQuestions),
		}
		events = append(events, s.awardAchievements(p, summary)...)
		summary.TotalXP = p.TotalXP
		return events, nil
	}

	if err := s.store.AppendQuizResult(ctx, res, apply); err != nil {
		return nil, fmt.Errorf("append quiz result: %w", err)
	}

	s.publishCompletion(res.UserID, summary, domain.NewQuizSubmittedEvent(res.UserID, res.QuizID, res.Score, res.CorrectAnswers, res.TotalQuestions))
	return summary, nil
}

// awardAchievements evaluates the fixed achievement definitions against the
// profile and grants what is newly unlocked, including the reward XP.
func (s *Service) awardAchievements(p *domain.UserProfile, summary *CompletionSummary) []domain.Event {
	ids, award := domain.EvaluateAchievements(p, p.Achievements)

	var events []domain.Event
	for _, id := range ids {
		a, ok := domain.AchievementByID(id)
		if !ok {
			continue
		}
		p.GrantAchievement(id)
		summary.NewAchievements = append(summary.NewAchievements, a)
		events = append(events, domain.NewAchievementUnlockedEvent(p.UserID, id, a.XPReward))
	}
	if award > 0 {
		p.AddXP(award)
		summary.AchievementXP = award
	}
	return events
}

func (s *Service) publishCompletion(userID uuid.UUID, summary *CompletionSummary, primary domain.Event) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Publish(primary)
	for _, a := range summary.NewAchievements {
		s.dispatcher.Publish(domain.NewAchievementUnlockedEvent(userID, a.ID, a.XPReward))
	}
}

// GetLessonProgress returns one lesson-progress record.
func (s *Service) GetLessonProgress(ctx context.Context, userID uuid.UUID, courseID, unitID, lessonID string) (*LessonProgress, error) {
	return s.store.GetLessonProgress(ctx, userID, courseID, unitID, lessonID)
}

// SaveLessonProgress upserts an in-flight record.
func (s *Service) SaveLessonProgress(ctx context.Context, rec *LessonProgress) error {
	return s.store.SaveLessonProgress(ctx, rec)
}

// GetUserProgress returns the user's profile.
func (s *Service) GetUserProgress(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	return s.store.GetProfile(ctx, userID)
}

// GetCourseProgress summarizes a user's position within a course: lesson
// counts from the catalog, completion counts from the persisted records,
// and the first incomplete lesson as the current position.
func (s *Service) GetCourseProgress(ctx context.Context, userID uuid.UUID, courseID string) (*CourseProgress, error) {
	total, err := s.catalog.LessonCount(courseID)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListLessonProgress(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("list lesson progress: %w", err)
	}

	cp := &CourseProgress{
		CourseID:     courseID,
		TotalLessons: total,
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].LastAccessed.Before(records[j].LastAccessed)
	})
	for _, r := range records {
		if r.Completed {
			cp.CompletedLessons++
		} else {
			cp.CurrentUnit = r.UnitID
			cp.CurrentLesson = r.LessonID
		}
		if r.LastAccessed.After(cp.LastAccessed) {
			cp.LastAccessed = r.LastAccessed
		}
	}

	p, err := s.store.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}
	if p != nil {
		cp.XP = p.TotalXP
		cp.Streak = p.CurrentStreak
	}

	return cp, nil
}

// GetLeaderboard returns the top profiles ranked by total XP descending,
// ties broken by current streak descending then account age ascending.
func (s *Service) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	profiles, err := s.store.TopProfiles(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top profiles: %w", err)
	}

	entries := make([]LeaderboardEntry, len(profiles))
	for i, p := range profiles {
		entries[i] = LeaderboardEntry{
			Rank:          i + 1,
			UserID:        p.UserID,
			DisplayName:   p.DisplayName,
			TotalXP:       p.TotalXP,
			CurrentStreak: p.CurrentStreak,
		}
	}
	return entries, nil
}

// GetUserAnalytics derives aggregate learning statistics from the profile.
func (s *Service) GetUserAnalytics(ctx context.Context, userID uuid.UUID) (*Analytics, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	days := s.now().Sub(p.CreatedAt).Hours() / 24
	if days < 1 {
		days = 1
	}
	perWeek := float64(p.LessonsCompleted) / (days / 7)

	avg := 0
	if p.LessonsCompleted > 0 {
		avg = p.TotalTimeSpent / p.LessonsCompleted
	}

	return &Analytics{
		TotalXP:              p.TotalXP,
		LessonsCompleted:     p.LessonsCompleted,
		QuizzesCompleted:     p.QuizzesCompleted,
		TotalTimeSpent:       p.TotalTimeSpent,
		CurrentStreak:        p.CurrentStreak,
		LongestStreak:        p.LongestStreak,
		LessonsPerWeek:       math.Round(perWeek*10) / 10,
		AverageTimePerLesson: avg,
		Achievements:         p.Achievements,
		JoinDate:             p.CreatedAt,
	}, nil
}
