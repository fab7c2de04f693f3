package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CourseFile represents the YAML structure for a course
type CourseFile struct {
	ID               string `yaml:"id"`
	Title            string `yaml:"title"`
	Description      string `yaml:"description"`
	Level            string `yaml:"level"`
	Icon             string `yaml:"icon"`
	EstimatedMinutes int    `yaml:"estimated_minutes"`
	Units            []struct {
		ID          string `yaml:"id"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Lessons     []struct {
			ID          string     `yaml:"id"`
			Title       string     `yaml:"title"`
			Description string     `yaml:"description"`
			Duration    int        `yaml:"duration"`
			Difficulty  string     `yaml:"difficulty"`
			Steps       []StepFile `yaml:"steps"`
		} `yaml:"lessons"`
	} `yaml:"units"`
}

// StepFile represents a single step in a lesson YAML
type StepFile struct {
	Type string `yaml:"type"`

	// Exercise fields
	ID             string   `yaml:"id"`
	Instruction    string   `yaml:"instruction"`
	StartingCode   string   `yaml:"starting_code"`
	Solution       string   `yaml:"solution"`
	Hints          []string `yaml:"hints"`
	SuccessMessage string   `yaml:"success_message"`
	ErrorMessage   string   `yaml:"error_message"`

	// Quiz fields
	Title     string `yaml:"title"`
	TimeLimit int    `yaml:"time_limit"`
	Questions []struct {
		ID             string   `yaml:"id"`
		Type           string   `yaml:"type"`
		Prompt         string   `yaml:"prompt"`
		Options        []string `yaml:"options"`
		CorrectChoice  int      `yaml:"correct_choice"`
		Code           string   `yaml:"code"`
		Solution       string   `yaml:"solution"`
		FixedCode      string   `yaml:"fixed_code"`
		TimeLimit      int      `yaml:"time_limit"`
		Explanation    string   `yaml:"explanation"`
		SuccessMessage string   `yaml:"success_message"`
		ErrorMessage   string   `yaml:"error_message"`
	} `yaml:"questions"`
}

// Loader handles loading courses from YAML files
type Loader struct {
	basePath string
}

// NewLoader creates a new course loader
func NewLoader(basePath string) *Loader {
	return &Loader{basePath: basePath}
}

// BasePath returns the loader's base directory
func (l *Loader) BasePath() string {
	return l.basePath
}

// LoadCourse loads a single course from courses/<id>/course.yaml
func (l *Loader) LoadCourse(courseID string) (*Course, error) {
	path := filepath.Join(l.basePath, courseID, "course.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read course file: %w", err)
	}

	var cf CourseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse course file: %w", err)
	}

	return buildCourse(&cf)
}

// LoadAllCourses loads every course directory under the base path
func (l *Loader) LoadAllCourses() ([]*Course, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("read courses dir: %w", err)
	}

	var courses []*Course
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		course, err := l.LoadCourse(e.Name())
		if err != nil {
			return nil, fmt.Errorf("load course %s: %w", e.Name(), err)
		}
		courses = append(courses, course)
	}

	return courses, nil
}

func buildCourse(cf *CourseFile) (*Course, error) {
	if cf.ID == "" {
		return nil, fmt.Errorf("course id is required")
	}

	course := &Course{
		ID:               cf.ID,
		Title:            cf.Title,
		Description:      cf.Description,
		Level:            cf.Level,
		Icon:             cf.Icon,
		EstimatedMinutes: cf.EstimatedMinutes,
	}

	for _, uf := range cf.Units {
		unit := Unit{
			ID:          uf.ID,
			Title:       uf.Title,
			Description: uf.Description,
		}
		for _, lf := range uf.Lessons {
			lesson := Lesson{
				ID:          lf.ID,
				Title:       lf.Title,
				Description: lf.Description,
				Duration:    lf.Duration,
				Difficulty:  lf.Difficulty,
			}
			for _, sf := range lf.Steps {
				step, err := buildStep(sf)
				if err != nil {
					return nil, fmt.Errorf("lesson %s/%s/%s: %w", cf.ID, uf.ID, lf.ID, err)
				}
				lesson.Steps = append(lesson.Steps, step)
			}
			unit.Lessons = append(unit.Lessons, lesson)
		}
		course.Units = append(course.Units, unit)
	}

	return course, nil
}

func buildStep(sf StepFile) (Step, error) {
	switch StepType(sf.Type) {
	case StepExercise:
		return Step{
			Type: StepExercise,
			Exercise: &Exercise{
				ID:             sf.ID,
				Instruction:    sf.Instruction,
				StartingCode:   sf.StartingCode,
				Solution:       sf.Solution,
				Hints:          sf.Hints,
				SuccessMessage: sf.SuccessMessage,
				ErrorMessage:   sf.ErrorMessage,
			},
		}, nil

	case StepQuiz:
		quiz := &Quiz{
			ID:        sf.ID,
			Title:     sf.Title,
			TimeLimit: sf.TimeLimit,
		}
		for _, qf := range sf.Questions {
			qt := QuestionType(qf.Type)
			switch qt {
			case QuestionMultipleChoice, QuestionTrueFalse, QuestionCodeCompletion, QuestionDebugging:
			default:
				return Step{}, fmt.Errorf("question %s: unknown type %q", qf.ID, qf.Type)
			}
			quiz.Questions = append(quiz.Questions, Question{
				ID:             qf.ID,
				Type:           qt,
				Prompt:         qf.Prompt,
				Options:        qf.Options,
				CorrectChoice:  qf.CorrectChoice,
				Code:           qf.Code,
				Solution:       qf.Solution,
				FixedCode:      qf.FixedCode,
				TimeLimit:      qf.TimeLimit,
				Explanation:    qf.Explanation,
				SuccessMessage: qf.SuccessMessage,
				ErrorMessage:   qf.ErrorMessage,
			})
		}
		if len(quiz.Questions) == 0 {
			return Step{}, fmt.Errorf("quiz %s has no questions", sf.ID)
		}
		return Step{Type: StepQuiz, Quiz: quiz}, nil

	default:
		return Step{}, fmt.Errorf("unknown step type %q", sf.Type)
	}
}
