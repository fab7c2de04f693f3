// Package catalog holds the static course hierarchy: Course → Unit →
// Lesson → Step. Catalog data is loaded once from YAML at startup and is
// read-only afterwards.
package catalog

// StepType distinguishes the two kinds of lesson steps.
type StepType string

const (
	StepExercise StepType = "exercise"
	StepQuiz     StepType = "quiz"
)

// QuestionType is the kind of quiz question.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionTrueFalse      QuestionType = "true-false"
	QuestionCodeCompletion QuestionType = "code-completion"
	QuestionDebugging      QuestionType = "debugging"
)

// Course is a top-level learning track.
type Course struct {
	ID               string
	Title            string
	Description      string
	Level            string // beginner, intermediate, advanced
	Icon             string
	EstimatedMinutes int
	Units            []Unit
}

// Unit groups related lessons within a course.
type Unit struct {
	ID          string
	Title       string
	Description string
	Lessons     []Lesson
}

// Lesson is an ordered sequence of steps a session walks through.
type Lesson struct {
	ID          string
	Title       string
	Description string
	Duration    int // minutes
	Difficulty  string
	Steps       []Step
}

// Step is a single exercise or quiz within a lesson.
type Step struct {
	Type     StepType
	Exercise *Exercise // set when Type == StepExercise
	Quiz     *Quiz     // set when Type == StepQuiz
}

// Exercise is a free-form coding task checked against a reference solution.
type Exercise struct {
	ID             string
	Instruction    string
	StartingCode   string
	Solution       string
	Hints          []string
	SuccessMessage string
	ErrorMessage   string
}

// Quiz is a timed sequence of questions.
type Quiz struct {
	ID        string
	Title     string
	TimeLimit int // seconds, default per question
	Questions []Question
}

// Question is a single quiz question. CorrectChoice is used for
// multiple-choice (option index) and true-false (0 = false, 1 = true);
// Solution holds the reference code for code-completion; FixedCode holds
// the corrected fragment for debugging questions.
type Question struct {
	ID             string
	Type           QuestionType
	Prompt         string
	Options        []string
	CorrectChoice  int
	Code           string // starter code for code questions
	Solution       string
	FixedCode      string
	TimeLimit      int // seconds, overrides the quiz default
	Explanation    string
	SuccessMessage string
	ErrorMessage   string
}

// LessonCount returns the total number of lessons in the course.
func (c *Course) LessonCount() int {
	n := 0
	for _, u := range c.Units {
		n += len(u.Lessons)
	}
	return n
}

// QuestionTimeLimit returns the effective time limit for question i,
// falling back to the quiz default, then to 60 seconds.
func (q *Quiz) QuestionTimeLimit(i int) int {
	if i >= 0 && i < len(q.Questions) && q.Questions[i].TimeLimit > 0 {
		return q.Questions[i].TimeLimit
	}
	if q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return 60
}
