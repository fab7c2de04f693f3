// Package progress is the client for persisted learning state: per-lesson
// progress records, the append-only quiz result log, the gamification
// profile and the read queries behind dashboards and the leaderboard.
package progress

import (
	"time"

	"github.com/felixgeelhaar/pyquest/internal/domain"
	"github.com/google/uuid"
)

// LessonProgress is the persisted state of one user's work on one lesson,
// keyed by (user, course, unit, lesson). It is created on first interaction
// and updated idempotently as steps complete; it is never deleted.
type LessonProgress struct {
	UserID         uuid.UUID
	CourseID       string
	UnitID         string
	LessonID       string
	Completed      bool
	CompletedSteps []int
	CurrentStep    int
	XPEarned       int
	Attempts       int
	TimeSpent      int // minutes
	CompletedAt    *time.Time
	LastAccessed   time.Time
}

// Key returns the composite storage key for the record.
func (p *LessonProgress) Key() string {
	return p.UserID.String() + "_" + p.CourseID + "_" + p.UnitID + "_" + p.LessonID
}

// QuizAnswer is one graded answer within a quiz result.
type QuizAnswer struct {
	QuestionID string `json:"question_id"`
	UserAnswer string `json:"user_answer"`
	IsCorrect  bool   `json:"is_correct"`
	TimeSpent  int    `json:"time_spent"` // seconds
	WasTimeUp  bool   `json:"was_time_up"`
}

// QuizResult is an append-only record of one quiz attempt, keyed by
// (user, quiz, timestamp). Results are immutable once written.
type QuizResult struct {
	UserID         uuid.UUID
	QuizID         string
	Score          int // 0-100
	TotalQuestions int
	CorrectAnswers int
	Answers        []QuizAnswer
	TimeSpent      int // seconds
	CompletedAt    time.Time
}

// LeaderboardEntry is one ranked row of the XP leaderboard.
type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	UserID        uuid.UUID `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	TotalXP       int       `json:"total_xp"`
	CurrentStreak int       `json:"current_streak"`
}

// CourseProgress summarizes a user's position within one course.
type CourseProgress struct {
	CourseID         string    `json:"course_id"`
	CompletedLessons int       `json:"completed_lessons"`
	TotalLessons     int       `json:"total_lessons"`
	CurrentUnit      string    `json:"current_unit,omitempty"`
	CurrentLesson    string    `json:"current_lesson,omitempty"`
	XP               int       `json:"xp"`
	Streak           int       `json:"streak"`
	LastAccessed     time.Time `json:"last_accessed"`
}

// Analytics aggregates a user's learning statistics.
type Analytics struct {
	TotalXP              int       `json:"total_xp"`
	LessonsCompleted     int       `json:"lessons_completed"`
	QuizzesCompleted     int       `json:"quizzes_completed"`
	TotalTimeSpent       int       `json:"total_time_spent"` // minutes
	CurrentStreak        int       `json:"current_streak"`
	LongestStreak        int       `json:"longest_streak"`
	LessonsPerWeek       float64   `json:"lessons_per_week"`
	AverageTimePerLesson int       `json:"average_time_per_lesson"` // minutes
	Achievements         []string  `json:"achievements"`
	JoinDate             time.Time `json:"join_date"`
}

// CompletionSummary reports what a completion write changed:
// XP earned by the session plus any newly unlocked achievements.
type CompletionSummary struct {
	XPEarned        int
	NewAchievements []domain.Achievement
	AchievementXP   int
	TotalXP         int // profile total after the write
}
