package session

import (
	"math"
	"strings"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/catalog"
	"github.com/felixgeelhaar/pyquest/internal/domain"
)

// Answer is a learner's response to a single quiz question. Choice covers
// multiple-choice and true-false (0 = false, 1 = true); Code and Stdout
// cover code-completion and debugging questions, Stdout being whatever the
// code runner produced for the submitted code.
type Answer struct {
	Choice *int
	Code   string
	Stdout string
}

// AnswerRecord is the graded record of one question.
type AnswerRecord struct {
	QuestionID string `json:"question_id"`
	UserAnswer string `json:"user_answer"`
	IsCorrect  bool   `json:"is_correct"`
	TimeSpent  int    `json:"time_spent"` // seconds
	WasTimeUp  bool   `json:"was_time_up"`
}

// QuizResult is the final outcome of a quiz run.
type QuizResult struct {
	QuizID         string         `json:"quiz_id"`
	Score          int            `json:"score"` // 0-100
	TotalQuestions int            `json:"total_questions"`
	CorrectAnswers int            `json:"correct_answers"`
	Answers        []AnswerRecord `json:"answers"`
	TimeSpent      int            `json:"time_spent"` // seconds
}

// QuizRun walks a quiz's questions in order, one countdown per question.
// A question whose time expires is auto-submitted with whatever answer is
// pending (possibly none).
type QuizRun struct {
	quiz      *catalog.Quiz
	current   int
	answers   []AnswerRecord
	startedAt time.Time
	asked     time.Time
	deadline  time.Time
	now       func() time.Time
}

// NewQuizRun starts a run over the quiz's questions.
func NewQuizRun(quiz *catalog.Quiz) *QuizRun {
	return newQuizRunAt(quiz, time.Now)
}

func newQuizRunAt(quiz *catalog.Quiz, now func() time.Time) *QuizRun {
	r := &QuizRun{
		quiz:      quiz,
		now:       now,
		startedAt: now(),
	}
	r.armTimer()
	return r
}

func (r *QuizRun) armTimer() {
	r.asked = r.now()
	limit := r.quiz.QuestionTimeLimit(r.current)
	r.deadline = r.asked.Add(time.Duration(limit) * time.Second)
}

// Question returns the current question, or false when the run is finished.
func (r *QuizRun) Question() (catalog.Question, bool) {
	if r.Finished() {
		return catalog.Question{}, false
	}
	return r.quiz.Questions[r.current], true
}

// Deadline returns the auto-submit deadline for the current question.
func (r *QuizRun) Deadline() time.Time {
	return r.deadline
}

// Finished reports whether every question has been answered.
func (r *QuizRun) Finished() bool {
	return r.current >= len(r.quiz.Questions)
}

// Submit grades the answer for the current question, records it and
// advances to the next question.
func (r *QuizRun) Submit(ans Answer) (AnswerRecord, error) {
	return r.submit(ans, false)
}

// Expire auto-submits the pending (possibly empty) answer for the current
// question. Callers invoke it when the question deadline passes.
func (r *QuizRun) Expire() (AnswerRecord, error) {
	return r.submit(Answer{}, true)
}

func (r *QuizRun) submit(ans Answer, timeUp bool) (AnswerRecord, error) {
	if r.Finished() {
		return AnswerRecord{}, domain.ErrQuestionOutOfRange
	}

	q := r.quiz.Questions[r.current]
	elapsed := int(r.now().Sub(r.asked).Seconds())
	if limit := r.quiz.QuestionTimeLimit(r.current); elapsed > limit {
		elapsed = limit
		timeUp = true
	}

	rec := AnswerRecord{
		QuestionID: q.ID,
		UserAnswer: answerText(q, ans),
		IsCorrect:  gradeAnswer(q, ans),
		TimeSpent:  elapsed,
		WasTimeUp:  timeUp,
	}

	r.answers = append(r.answers, rec)
	r.current++
	if !r.Finished() {
		r.armTimer()
	}
	return rec, nil
}

// Result computes the final quiz score: round(100 * correct / total).
func (r *QuizRun) Result() *QuizResult {
	correct := 0
	for _, a := range r.answers {
		if a.IsCorrect {
			correct++
		}
	}

	total := len(r.quiz.Questions)
	score := 0
	if total > 0 {
		score = int(math.Round(100 * float64(correct) / float64(total)))
	}

	return &QuizResult{
		QuizID:         r.quiz.ID,
		Score:          score,
		TotalQuestions: total,
		CorrectAnswers: correct,
		Answers:        r.answers,
		TimeSpent:      int(r.now().Sub(r.startedAt).Seconds()),
	}
}

// gradeAnswer checks an answer against the question's defined solution.
// Choice questions compare indices; code questions accept a
// normalized-substring match against the reference solution or any
// execution output.
func gradeAnswer(q catalog.Question, ans Answer) bool {
	switch q.Type {
	case catalog.QuestionMultipleChoice, catalog.QuestionTrueFalse:
		return ans.Choice != nil && *ans.Choice == q.CorrectChoice
	case catalog.QuestionCodeCompletion:
		return containsNormalized(ans.Code, q.Solution) || ans.Stdout != ""
	case catalog.QuestionDebugging:
		return strings.Contains(ans.Code, q.FixedCode) || ans.Stdout != ""
	default:
		return false
	}
}

func answerText(q catalog.Question, ans Answer) string {
	switch q.Type {
	case catalog.QuestionMultipleChoice:
		if ans.Choice != nil && *ans.Choice >= 0 && *ans.Choice < len(q.Options) {
			return q.Options[*ans.Choice]
		}
		return ""
	case catalog.QuestionTrueFalse:
		if ans.Choice == nil {
			return ""
		}
		if *ans.Choice == 1 {
			return "true"
		}
		return "false"
	default:
		return ans.Code
	}
}

func containsNormalized(code, solution string) bool {
	if solution == "" {
		return false
	}
	return strings.Contains(normalize(code), normalize(solution))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
