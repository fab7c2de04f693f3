package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestEvaluateAchievements_Thresholds(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *UserProfile)
		unlocked []string
		wantIDs  []string
		wantXP   int
	}{
		{
			name:    "nothing earned on fresh profile",
			mutate:  func(p *UserProfile) {},
			wantIDs: nil,
			wantXP:  0,
		},
		{
			name:    "first lesson",
			mutate:  func(p *UserProfile) { p.LessonsCompleted = 1 },
			wantIDs: []string{"first_lesson"},
			wantXP:  50,
		},
		{
			name:    "five lessons unlocks both lesson milestones",
			mutate:  func(p *UserProfile) { p.LessonsCompleted = 5 },
			wantIDs: []string{"first_lesson", "lesson_streak_5"},
			wantXP:  125,
		},
		{
			name:    "week streak",
			mutate:  func(p *UserProfile) { p.LongestStreak = 7 },
			wantIDs: []string{"streak_7"},
			wantXP:  100,
		},
		{
			name:    "ten quizzes",
			mutate:  func(p *UserProfile) { p.QuizzesCompleted = 10 },
			wantIDs: []string{"quiz_master"},
			wantXP:  150,
		},
		{
			name:    "thousand xp",
			mutate:  func(p *UserProfile) { p.TotalXP = 1000 },
			wantIDs: []string{"xp_1000"},
			wantXP:  200,
		},
		{
			name:     "already unlocked are skipped",
			mutate:   func(p *UserProfile) { p.LessonsCompleted = 5 },
			unlocked: []string{"first_lesson"},
			wantIDs:  []string{"lesson_streak_5"},
			wantXP:   75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewUserProfile(uuid.New(), "a@b.c", "A")
			tt.mutate(p)

			ids, xp := EvaluateAchievements(p, tt.unlocked)

			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("newlyUnlocked = %v; want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Errorf("newlyUnlocked[%d] = %q; want %q", i, ids[i], tt.wantIDs[i])
				}
			}
			if xp != tt.wantXP {
				t.Errorf("xpAward = %d; want %d", xp, tt.wantXP)
			}
		})
	}
}

func TestEvaluateAchievements_Idempotent(t *testing.T) {
	p := NewUserProfile(uuid.New(), "a@b.c", "A")
	p.LessonsCompleted = 5
	p.LongestStreak = 7

	first, xp := EvaluateAchievements(p, nil)
	if len(first) == 0 || xp == 0 {
		t.Fatal("expected achievements on first evaluation")
	}

	// Second evaluation with the same counters and the first round's results
	// as already-unlocked must award nothing.
	second, xp2 := EvaluateAchievements(p, first)
	if len(second) != 0 {
		t.Errorf("second evaluation unlocked %v; want none", second)
	}
	if xp2 != 0 {
		t.Errorf("second evaluation xpAward = %d; want 0", xp2)
	}
}

func TestAchievementByID(t *testing.T) {
	a, ok := AchievementByID("quiz_master")
	if !ok {
		t.Fatal("AchievementByID(quiz_master) not found")
	}
	if a.XPReward != 150 {
		t.Errorf("XPReward = %d; want 150", a.XPReward)
	}

	if _, ok := AchievementByID("nope"); ok {
		t.Error("AchievementByID(nope) should not be found")
	}
}
