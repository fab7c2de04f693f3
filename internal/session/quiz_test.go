package session

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/catalog"
	"github.com/felixgeelhaar/pyquest/internal/domain"
)

func testQuiz() *catalog.Quiz {
	return &catalog.Quiz{
		ID:        "variables-quiz",
		TimeLimit: 30,
		Questions: []catalog.Question{
			{
				ID:            "q1",
				Type:          catalog.QuestionMultipleChoice,
				Options:       []string{"x = 5", "int x = 5", "let x = 5"},
				CorrectChoice: 0,
			},
			{
				ID:            "q2",
				Type:          catalog.QuestionTrueFalse,
				CorrectChoice: 1,
			},
			{
				ID:       "q3",
				Type:     catalog.QuestionCodeCompletion,
				Solution: "print(name)",
			},
			{
				ID:        "q4",
				Type:      catalog.QuestionDebugging,
				FixedCode: `print("hello")`,
				TimeLimit: 10,
			},
		},
	}
}

func choice(i int) Answer {
	return Answer{Choice: &i}
}

// fixedClock returns a now func the test can advance manually.
func fixedClock(start time.Time) (func() time.Time, func(d time.Duration)) {
	t := start
	return func() time.Time { return t }, func(d time.Duration) { t = t.Add(d) }
}

func TestQuizRun_AllCorrect(t *testing.T) {
	now, advance := fixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	r := newQuizRunAt(testQuiz(), now)

	answers := []Answer{
		choice(0),
		choice(1),
		{Code: "name = 'Ada'\nprint(name)"},
		{Code: `print("hello")`},
	}
	for i, ans := range answers {
		advance(5 * time.Second)
		rec, err := r.Submit(ans)
		if err != nil {
			t.Fatalf("Submit(%d) error = %v", i, err)
		}
		if !rec.IsCorrect {
			t.Errorf("answer %d graded incorrect", i)
		}
		if rec.WasTimeUp {
			t.Errorf("answer %d flagged time-up", i)
		}
		if rec.TimeSpent != 5 {
			t.Errorf("answer %d TimeSpent = %d; want 5", i, rec.TimeSpent)
		}
	}

	if !r.Finished() {
		t.Fatal("run not finished after all questions")
	}

	res := r.Result()
	if res.Score != 100 {
		t.Errorf("Score = %d; want 100", res.Score)
	}
	if res.CorrectAnswers != 4 {
		t.Errorf("CorrectAnswers = %d; want 4", res.CorrectAnswers)
	}
	if res.TimeSpent != 20 {
		t.Errorf("TimeSpent = %d; want 20", res.TimeSpent)
	}
}

func TestQuizRun_ScoreRounding(t *testing.T) {
	r := NewQuizRun(testQuiz())

	// 3 of 4 correct.
	r.Submit(choice(0))
	r.Submit(choice(0)) // wrong
	r.Submit(Answer{Code: "print(name)"})
	r.Submit(Answer{Code: `print("hello")`})

	res := r.Result()
	if res.Score != 75 {
		t.Errorf("Score = %d; want 75", res.Score)
	}
	if res.CorrectAnswers != 3 {
		t.Errorf("CorrectAnswers = %d; want 3", res.CorrectAnswers)
	}
	if res.TotalQuestions != 4 {
		t.Errorf("TotalQuestions = %d; want 4", res.TotalQuestions)
	}
}

func TestQuizRun_Expire(t *testing.T) {
	now, advance := fixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	r := newQuizRunAt(testQuiz(), now)

	advance(40 * time.Second) // past the 30s limit
	rec, err := r.Expire()
	if err != nil {
		t.Fatalf("Expire() error = %v", err)
	}
	if !rec.WasTimeUp {
		t.Error("WasTimeUp = false; want true")
	}
	if rec.IsCorrect {
		t.Error("empty expired answer graded correct")
	}
	if rec.TimeSpent != 30 {
		t.Errorf("TimeSpent = %d; want clamped to 30", rec.TimeSpent)
	}

	// The run advances past the expired question.
	q, ok := r.Question()
	if !ok || q.ID != "q2" {
		t.Errorf("Question() = %v, %v; want q2", q.ID, ok)
	}
}

func TestQuizRun_LateSubmitFlagsTimeUp(t *testing.T) {
	now, advance := fixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	r := newQuizRunAt(testQuiz(), now)

	advance(45 * time.Second)
	rec, err := r.Submit(choice(0))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !rec.WasTimeUp {
		t.Error("late submit not flagged time-up")
	}
	// The pending answer is still graded.
	if !rec.IsCorrect {
		t.Error("late correct answer graded incorrect")
	}
}

func TestQuizRun_PerQuestionTimeLimit(t *testing.T) {
	now, _ := fixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	r := newQuizRunAt(testQuiz(), now)

	r.Submit(choice(0))
	r.Submit(choice(1))
	r.Submit(Answer{Code: "print(name)"})

	// q4 overrides the quiz default with a 10s limit.
	want := r.asked.Add(10 * time.Second)
	if !r.Deadline().Equal(want) {
		t.Errorf("Deadline() = %v; want %v", r.Deadline(), want)
	}
}

func TestQuizRun_SubmitAfterFinished(t *testing.T) {
	quiz := &catalog.Quiz{
		ID:        "one",
		Questions: []catalog.Question{{ID: "q1", Type: catalog.QuestionTrueFalse, CorrectChoice: 0}},
	}
	r := NewQuizRun(quiz)
	if _, err := r.Submit(choice(0)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := r.Submit(choice(0)); !errors.Is(err, domain.ErrQuestionOutOfRange) {
		t.Errorf("Submit() after finish error = %v; want ErrQuestionOutOfRange", err)
	}
}

func TestGradeAnswer(t *testing.T) {
	one := 1
	zero := 0
	tests := []struct {
		name string
		q    catalog.Question
		ans  Answer
		want bool
	}{
		{
			"multiple choice correct",
			catalog.Question{Type: catalog.QuestionMultipleChoice, CorrectChoice: 1},
			Answer{Choice: &one},
			true,
		},
		{
			"multiple choice wrong",
			catalog.Question{Type: catalog.QuestionMultipleChoice, CorrectChoice: 1},
			Answer{Choice: &zero},
			false,
		},
		{
			"multiple choice no answer",
			catalog.Question{Type: catalog.QuestionMultipleChoice, CorrectChoice: 0},
			Answer{},
			false,
		},
		{
			"true false",
			catalog.Question{Type: catalog.QuestionTrueFalse, CorrectChoice: 0},
			Answer{Choice: &zero},
			true,
		},
		{
			"code completion substring",
			catalog.Question{Type: catalog.QuestionCodeCompletion, Solution: "print(x)"},
			Answer{Code: "x = 1\nPRINT(X)"},
			true,
		},
		{
			"code completion by output",
			catalog.Question{Type: catalog.QuestionCodeCompletion, Solution: "print(x)"},
			Answer{Code: "x = 1\nprint(str(x))", Stdout: "1\n"},
			true,
		},
		{
			"code completion miss",
			catalog.Question{Type: catalog.QuestionCodeCompletion, Solution: "print(x)"},
			Answer{Code: "x = 1"},
			false,
		},
		{
			"debugging exact fragment",
			catalog.Question{Type: catalog.QuestionDebugging, FixedCode: `print("hi")`},
			Answer{Code: `print("hi")`},
			true,
		},
		{
			"debugging by output",
			catalog.Question{Type: catalog.QuestionDebugging, FixedCode: `print("hi")`},
			Answer{Code: `print('hi')`, Stdout: "hi\n"},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gradeAnswer(tt.q, tt.ans); got != tt.want {
				t.Errorf("gradeAnswer() = %v; want %v", got, tt.want)
			}
		})
	}
}
