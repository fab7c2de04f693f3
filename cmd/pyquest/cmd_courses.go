package main

import (
	"fmt"
	"net/url"
)

// cmdCourses browses the course catalog
func cmdCourses(args []string) error {
	if len(args) < 1 {
		fmt.Println(`Course commands:

  pyquest courses list         List all courses
  pyquest courses info <id>    Show course outline and your progress`)
		return nil
	}

	switch args[0] {
	case "list":
		return cmdCoursesList()
	case "info":
		if len(args) < 2 {
			return fmt.Errorf("course ID required (e.g., python-basics)")
		}
		return cmdCoursesInfo(args[1])
	default:
		return fmt.Errorf("unknown courses command: %s", args[0])
	}
}

func cmdCoursesList() error {
	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'pyquest start' first)")
	}

	var result struct {
		Courses []struct {
			ID               string `json:"id"`
			Title            string `json:"title"`
			Description      string `json:"description"`
			Level            string `json:"level"`
			EstimatedMinutes int    `json:"estimated_minutes"`
			LessonCount      int    `json:"lesson_count"`
		} `json:"courses"`
	}
	if err := apiGet("/api/v1/courses", "", &result); err != nil {
		return err
	}

	if len(result.Courses) == 0 {
		fmt.Println("No courses installed. Add course packs to the courses directory.")
		return nil
	}

	fmt.Println("Available Courses")
	fmt.Println("=================")
	for _, c := range result.Courses {
		fmt.Printf("\n%s (%s)\n", c.Title, c.ID)
		fmt.Printf("  %s\n", c.Description)
		fmt.Printf("  Level: %s | Lessons: %d | ~%d min\n", c.Level, c.LessonCount, c.EstimatedMinutes)
	}

	return nil
}

func cmdCoursesInfo(courseID string) error {
	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'pyquest start' first)")
	}

	var result struct {
		Course struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Level       string `json:"level"`
			Units       []struct {
				ID      string `json:"id"`
				Title   string `json:"title"`
				Lessons []struct {
					ID         string `json:"id"`
					Title      string `json:"title"`
					Duration   int    `json:"duration"`
					Difficulty string `json:"difficulty"`
					StepCount  int    `json:"step_count"`
				} `json:"lessons"`
			} `json:"units"`
		} `json:"course"`
	}
	if err := apiGet("/api/v1/courses/"+url.PathEscape(courseID), "", &result); err != nil {
		return err
	}

	c := result.Course
	fmt.Printf("%s (%s)\n", c.Title, c.Level)
	fmt.Println(c.Description)

	for _, unit := range c.Units {
		fmt.Printf("\n%s\n", unit.Title)
		for _, lesson := range unit.Lessons {
			fmt.Printf("  - %s (%d steps, ~%d min, %s)\n",
				lesson.Title, lesson.StepCount, lesson.Duration, lesson.Difficulty)
		}
	}

	// Progress is only shown when logged in
	token, err := loadToken()
	if err != nil {
		return nil
	}

	var progressResult struct {
		Progress struct {
			CompletedLessons int    `json:"completed_lessons"`
			TotalLessons     int    `json:"total_lessons"`
			CurrentUnit      string `json:"current_unit"`
			CurrentLesson    string `json:"current_lesson"`
			XP               int    `json:"xp"`
		} `json:"progress"`
	}
	if err := apiGet("/api/v1/progress/courses/"+url.PathEscape(courseID), token, &progressResult); err != nil {
		return nil
	}

	p := progressResult.Progress
	fmt.Println("\nYour Progress")
	fmt.Println("-------------")
	ratio := 0.0
	if p.TotalLessons > 0 {
		ratio = float64(p.CompletedLessons) / float64(p.TotalLessons)
	}
	fmt.Printf("%s %d/%d lessons, %d XP\n", renderProgressBar(ratio, 20), p.CompletedLessons, p.TotalLessons, p.XP)
	if p.CurrentLesson != "" {
		fmt.Printf("Up next: %s / %s\n", p.CurrentUnit, p.CurrentLesson)
	}

	return nil
}
