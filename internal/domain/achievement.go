package domain

// Achievement is a named milestone unlocked once its predicate over the
// profile counters becomes true. Definitions are static configuration;
// unlocked state lives in UserProfile.Achievements.
type Achievement struct {
	ID          string
	Title       string
	Description string
	XPReward    int
	Unlocked    func(p *UserProfile) bool
}

// achievements is the fixed, ordered list of achievement definitions.
// Order matters: evaluation and awards are reported in this order.
var achievements = []Achievement{
	{
		ID:          "first_lesson",
		Title:       "First Steps",
		Description: "Complete your first lesson",
		XPReward:    50,
		Unlocked:    func(p *UserProfile) bool { return p.LessonsCompleted >= 1 },
	},
	{
		ID:          "streak_7",
		Title:       "Week Warrior",
		Description: "7-day learning streak",
		XPReward:    100,
		Unlocked:    func(p *UserProfile) bool { return p.LongestStreak >= 7 },
	},
	{
		ID:          "quiz_master",
		Title:       "Quiz Master",
		Description: "Complete 10 quizzes",
		XPReward:    150,
		Unlocked:    func(p *UserProfile) bool { return p.QuizzesCompleted >= 10 },
	},
	{
		ID:          "xp_1000",
		Title:       "XP Champion",
		Description: "Earn 1000 XP",
		XPReward:    200,
		Unlocked:    func(p *UserProfile) bool { return p.TotalXP >= 1000 },
	},
	{
		ID:          "lesson_streak_5",
		Title:       "Learning Machine",
		Description: "Complete 5 lessons",
		XPReward:    75,
		Unlocked:    func(p *UserProfile) bool { return p.LessonsCompleted >= 5 },
	},
}

// Achievements returns the ordered achievement definitions.
func Achievements() []Achievement {
	return achievements
}

// AchievementByID looks up a definition by id.
func AchievementByID(id string) (Achievement, bool) {
	for _, a := range achievements {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// EvaluateAchievements compares the profile counters against every
// definition not yet in unlocked and returns the newly unlocked ids (in
// definition order) plus the summed XP reward. It is pure and deterministic:
// identical inputs yield identical outputs, so it is safe to call on every
// progress update without double-awarding.
func EvaluateAchievements(p *UserProfile, unlocked []string) (newlyUnlocked []string, xpAward int) {
	seen := make(map[string]bool, len(unlocked))
	for _, id := range unlocked {
		seen[id] = true
	}

	for _, a := range achievements {
		if seen[a.ID] {
			continue
		}
		if a.Unlocked(p) {
			newlyUnlocked = append(newlyUnlocked, a.ID)
			xpAward += a.XPReward
		}
	}
	return newlyUnlocked, xpAward
}
