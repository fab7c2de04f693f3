package main

import (
	"fmt"
	"strconv"
	"strings"
)

// cmdStats shows the user's progress
func cmdStats(args []string) error {
	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'pyquest start' first)")
	}

	token, err := loadToken()
	if err != nil {
		return fmt.Errorf("not logged in (run 'pyquest login' first)")
	}

	subCmd := "overview"
	if len(args) > 0 {
		subCmd = args[0]
	}

	switch subCmd {
	case "overview", "":
		return cmdStatsOverview(token)
	case "analytics":
		return cmdStatsAnalytics(token)
	default:
		return fmt.Errorf("unknown stats command: %s (valid: overview, analytics)", subCmd)
	}
}

func cmdStatsOverview(token string) error {
	var result struct {
		Profile struct {
			DisplayName      string   `json:"display_name"`
			TotalXP          int      `json:"total_xp"`
			CurrentStreak    int      `json:"current_streak"`
			LongestStreak    int      `json:"longest_streak"`
			LessonsCompleted int      `json:"lessons_completed"`
			QuizzesCompleted int      `json:"quizzes_completed"`
			TotalTimeSpent   int      `json:"total_time_spent"`
			Achievements     []string `json:"achievements"`
		} `json:"profile"`
	}
	if err := apiGet("/api/v1/progress", token, &result); err != nil {
		return err
	}

	p := result.Profile
	fmt.Printf("Progress for %s\n", p.DisplayName)
	fmt.Println("==============" + strings.Repeat("=", len(p.DisplayName)))
	fmt.Printf("Total XP:          %d\n", p.TotalXP)
	fmt.Printf("Current Streak:    %d days", p.CurrentStreak)
	if p.CurrentStreak >= 7 {
		fmt.Print(" 🔥")
	}
	fmt.Println()
	fmt.Printf("Longest Streak:    %d days\n", p.LongestStreak)
	fmt.Printf("Lessons Completed: %d\n", p.LessonsCompleted)
	fmt.Printf("Quizzes Completed: %d\n", p.QuizzesCompleted)
	fmt.Printf("Time Spent:        %d min\n", p.TotalTimeSpent)

	if len(p.Achievements) > 0 {
		fmt.Println("\nAchievements")
		fmt.Println("------------")
		for _, id := range p.Achievements {
			fmt.Printf("  ★ %s\n", id)
		}
	}

	return nil
}

func cmdStatsAnalytics(token string) error {
	var result struct {
		Analytics struct {
			TotalXP              int     `json:"total_xp"`
			LessonsCompleted     int     `json:"lessons_completed"`
			QuizzesCompleted     int     `json:"quizzes_completed"`
			TotalTimeSpent       int     `json:"total_time_spent"`
			LessonsPerWeek       float64 `json:"lessons_per_week"`
			AverageTimePerLesson int     `json:"average_time_per_lesson"`
			JoinDate             string  `json:"join_date"`
		} `json:"analytics"`
	}
	if err := apiGet("/api/v1/progress/analytics", token, &result); err != nil {
		return err
	}

	a := result.Analytics
	fmt.Println("Learning Analytics")
	fmt.Println("==================")
	fmt.Printf("Total XP:            %d\n", a.TotalXP)
	fmt.Printf("Lessons Completed:   %d\n", a.LessonsCompleted)
	fmt.Printf("Quizzes Completed:   %d\n", a.QuizzesCompleted)
	fmt.Printf("Time Spent:          %d min\n", a.TotalTimeSpent)
	fmt.Printf("Lessons per Week:    %.1f\n", a.LessonsPerWeek)
	fmt.Printf("Avg Time per Lesson: %d min\n", a.AverageTimePerLesson)
	if len(a.JoinDate) >= 10 {
		fmt.Printf("Learning Since:      %s\n", a.JoinDate[:10])
	}

	return nil
}

// cmdLeaderboard shows the XP leaderboard
func cmdLeaderboard(args []string) error {
	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'pyquest start' first)")
	}

	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("limit must be a positive integer")
		}
		limit = n
	}

	var result struct {
		Leaderboard []struct {
			Rank          int    `json:"rank"`
			DisplayName   string `json:"display_name"`
			TotalXP       int    `json:"total_xp"`
			CurrentStreak int    `json:"current_streak"`
		} `json:"leaderboard"`
	}
	if err := apiGet(fmt.Sprintf("/api/v1/leaderboard?limit=%d", limit), "", &result); err != nil {
		return err
	}

	fmt.Println("Leaderboard")
	fmt.Println("===========")

	if len(result.Leaderboard) == 0 {
		fmt.Println("Nobody on the board yet. Complete a lesson to claim the top spot!")
		return nil
	}

	for _, entry := range result.Leaderboard {
		streak := ""
		if entry.CurrentStreak > 0 {
			streak = fmt.Sprintf(" (%d day streak)", entry.CurrentStreak)
		}
		fmt.Printf("%3d. %-24s %6d XP%s\n", entry.Rank, entry.DisplayName, entry.TotalXP, streak)
	}

	return nil
}
