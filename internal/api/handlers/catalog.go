package handlers

import (
	"errors"
	"net/http"

	"github.com/felixgeelhaar/pyquest/internal/catalog"
	"github.com/felixgeelhaar/pyquest/internal/domain"
)

// CatalogHandler serves the read-only course catalog. Reference solutions
// and correct answers are stripped from every response; grading happens
// server-side only.
type CatalogHandler struct {
	registry *catalog.Registry
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(registry *catalog.Registry) *CatalogHandler {
	return &CatalogHandler{registry: registry}
}

// CourseSummary is one course in the catalog listing
type CourseSummary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Level            string `json:"level"`
	Icon             string `json:"icon,omitempty"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	LessonCount      int    `json:"lesson_count"`
}

// CourseDetail is a course with its unit and lesson structure
type CourseDetail struct {
	CourseSummary
	Units []UnitView `json:"units"`
}

// UnitView is one unit within a course detail
type UnitView struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Lessons     []LessonView `json:"lessons"`
}

// LessonView is a lesson summary within a unit
type LessonView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Difficulty  string `json:"difficulty"`
	StepCount   int    `json:"step_count"`
}

// LessonDetail is a lesson with its full step content
type LessonDetail struct {
	LessonView
	Steps []StepView `json:"steps"`
}

// StepView is one lesson step with its learner-facing content
type StepView struct {
	Index    int           `json:"index"`
	Type     string        `json:"type"`
	Exercise *ExerciseView `json:"exercise,omitempty"`
	Quiz     *QuizView     `json:"quiz,omitempty"`
}

// ExerciseView is an exercise without its reference solution
type ExerciseView struct {
	ID           string   `json:"id"`
	Instruction  string   `json:"instruction"`
	StartingCode string   `json:"starting_code"`
	Hints        []string `json:"hints,omitempty"`
}

// QuizView is a quiz without answers
type QuizView struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	TimeLimit     int            `json:"time_limit"`
	QuestionCount int            `json:"question_count"`
	Questions     []QuestionView `json:"questions"`
}

// QuestionView is a question without its correct answer
type QuestionView struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options,omitempty"`
	Code      string   `json:"code,omitempty"`
	TimeLimit int      `json:"time_limit"`
}

// ListCourses returns all loaded courses
func (h *CatalogHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses := h.registry.Courses()

	summaries := make([]CourseSummary, len(courses))
	for i, c := range courses {
		summaries[i] = courseSummary(c)
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"courses": summaries,
	})
}

// GetCourse returns one course with its unit and lesson structure
func (h *CatalogHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.registry.GetCourse(r.PathValue("courseID"))
	if errors.Is(err, domain.ErrCourseNotFound) {
		jsonError(w, http.StatusNotFound, "course not found")
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load course")
		return
	}

	detail := CourseDetail{
		CourseSummary: courseSummary(course),
		Units:         make([]UnitView, len(course.Units)),
	}
	for i, u := range course.Units {
		detail.Units[i] = unitView(u)
	}

	jsonResponse(w, http.StatusOK, map[string]any{"course": detail})
}

// GetLesson returns a lesson with its full step content
func (h *CatalogHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.registry.GetLesson(
		r.PathValue("courseID"),
		r.PathValue("unitID"),
		r.PathValue("lessonID"),
	)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCourseNotFound):
			jsonError(w, http.StatusNotFound, "course not found")
		case errors.Is(err, domain.ErrUnitNotFound):
			jsonError(w, http.StatusNotFound, "unit not found")
		case errors.Is(err, domain.ErrLessonNotFound):
			jsonError(w, http.StatusNotFound, "lesson not found")
		default:
			jsonError(w, http.StatusInternalServerError, "failed to load lesson")
		}
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"lesson": lessonDetail(lesson)})
}

func courseSummary(c *catalog.Course) CourseSummary {
	return CourseSummary{
		ID:               c.ID,
		Title:            c.Title,
		Description:      c.Description,
		Level:            c.Level,
		Icon:             c.Icon,
		EstimatedMinutes: c.EstimatedMinutes,
		LessonCount:      c.LessonCount(),
	}
}

func unitView(u catalog.Unit) UnitView {
	v := UnitView{
		ID:          u.ID,
		Title:       u.Title,
		Description: u.Description,
		Lessons:     make([]LessonView, len(u.Lessons)),
	}
	for i := range u.Lessons {
		v.Lessons[i] = lessonView(&u.Lessons[i])
	}
	return v
}

func lessonView(l *catalog.Lesson) LessonView {
	return LessonView{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Duration:    l.Duration,
		Difficulty:  l.Difficulty,
		StepCount:   len(l.Steps),
	}
}

func lessonDetail(l *catalog.Lesson) LessonDetail {
	detail := LessonDetail{
		LessonView: lessonView(l),
		Steps:      make([]StepView, len(l.Steps)),
	}
	for i, s := range l.Steps {
		detail.Steps[i] = stepView(i, s)
	}
	return detail
}

func stepView(index int, s catalog.Step) StepView {
	v := StepView{Index: index, Type: string(s.Type)}
	if s.Exercise != nil {
		v.Exercise = &ExerciseView{
			ID:           s.Exercise.ID,
			Instruction:  s.Exercise.Instruction,
			StartingCode: s.Exercise.StartingCode,
			Hints:        s.Exercise.Hints,
		}
	}
	if s.Quiz != nil {
		qv := &QuizView{
			ID:            s.Quiz.ID,
			Title:         s.Quiz.Title,
			TimeLimit:     s.Quiz.TimeLimit,
			QuestionCount: len(s.Quiz.Questions),
			Questions:     make([]QuestionView, len(s.Quiz.Questions)),
		}
		for i, q := range s.Quiz.Questions {
			qv.Questions[i] = QuestionView{
				ID:        q.ID,
				Type:      string(q.Type),
				Prompt:    q.Prompt,
				Options:   q.Options,
				Code:      q.Code,
				TimeLimit: s.Quiz.QuestionTimeLimit(i),
			}
		}
		v.Quiz = qv
	}
	return v
}
