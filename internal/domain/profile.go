package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date format used for streak bookkeeping.
const DateLayout = "2006-01-02"

// UserProfile tracks a learner's gamification state: XP, streaks, counters
// and unlocked achievements. One profile exists per user; it is created on
// first sign-in and never deleted.
type UserProfile struct {
	UserID           uuid.UUID
	Email            string
	DisplayName      string
	TotalXP          int
	CurrentStreak    int // consecutive active days
	LongestStreak    int
	LessonsCompleted int
	QuizzesCompleted int
	TotalTimeSpent   int // minutes
	Achievements     []string
	LastLoginDate    string // DateLayout
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewUserProfile creates a fresh profile for a first-time user.
func NewUserProfile(userID uuid.UUID, email, displayName string) *UserProfile {
	now := time.Now()
	return &UserProfile{
		UserID:        userID,
		Email:         email,
		DisplayName:   displayName,
		Achievements:  []string{},
		LastLoginDate: now.Format(DateLayout),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AddXP increases total XP. XP is monotonic: negative deltas are ignored.
func (p *UserProfile) AddXP(delta int) {
	if delta <= 0 {
		return
	}
	p.TotalXP += delta
	p.UpdatedAt = time.Now()
}

// HasAchievement reports whether the achievement is already unlocked.
func (p *UserProfile) HasAchievement(id string) bool {
	return slices.Contains(p.Achievements, id)
}

// GrantAchievement adds an achievement to the unlocked set. Duplicate grants
// are no-ops; the set only grows. Returns true if newly granted.
func (p *UserProfile) GrantAchievement(id string) bool {
	if p.HasAchievement(id) {
		return false
	}
	p.Achievements = append(p.Achievements, id)
	p.UpdatedAt = time.Now()
	return true
}

// RecordLessonCompletion bumps the lesson counters and time spent.
func (p *UserProfile) RecordLessonCompletion(xp, minutes int) {
	p.LessonsCompleted++
	p.TotalTimeSpent += minutes
	p.AddXP(xp)
	p.UpdatedAt = time.Now()
}

// RecordQuizCompletion bumps the quiz counters and time spent.
func (p *UserProfile) RecordQuizCompletion(xp, minutes int) {
	p.QuizzesCompleted++
	p.TotalTimeSpent += minutes
	p.AddXP(xp)
	p.UpdatedAt = time.Now()
}

// RecordLogin updates the activity streak for a login at the given time.
// A login the day after the last one extends the streak; a second login on
// the same day leaves it unchanged; any gap resets it to 1. LongestStreak
// never decreases.
func (p *UserProfile) RecordLogin(now time.Time) {
	today := now.Format(DateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(DateLayout)

	switch p.LastLoginDate {
	case today:
		// already counted
	case yesterday:
		p.CurrentStreak++
	default:
		p.CurrentStreak = 1
	}

	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	p.LastLoginDate = today
	p.UpdatedAt = now
}
