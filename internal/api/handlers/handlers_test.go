package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/felixgeelhaar/pyquest/internal/api/middleware"
	"github.com/felixgeelhaar/pyquest/internal/catalog"
	"github.com/felixgeelhaar/pyquest/internal/domain"
	"github.com/felixgeelhaar/pyquest/internal/progress"
	"github.com/felixgeelhaar/pyquest/internal/session"
	"github.com/google/uuid"
)

const handlerCourseYAML = `id: python-basics
title: Python Fundamentals
description: Start your Python journey
level: beginner
units:
  - id: getting-started
    title: Getting Started
    lessons:
      - id: variables-numbers
        title: Variables and Numbers
        duration: 15
        difficulty: beginner
        steps:
          - type: exercise
            id: first-variable
            instruction: Create a variable called "age" and print it.
            starting_code: "# Create a variable called age"
            solution: |
              age = 25
              print(age)
            hints:
              - Use the = operator
          - type: quiz
            id: variables-quiz
            title: Variables Quiz
            time_limit: 120
            questions:
              - id: var-syntax
                type: multiple-choice
                prompt: Which is the correct way to create a variable?
                options:
                  - var name = "John"
                  - name = "John"
                correct_choice: 1
              - id: number-types
                type: true-false
                prompt: 5 and 5.0 are the same type of number.
                correct_choice: 0
`

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	dir := t.TempDir()
	courseDir := filepath.Join(dir, "python-basics")
	if err := os.MkdirAll(courseDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(courseDir, "course.yaml"), []byte(handlerCourseYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := catalog.NewRegistry(catalog.NewLoader(dir))
	if err := reg.Load(); err != nil {
		t.Fatalf("registry load: %v", err)
	}
	return reg
}

// fakeStore is an in-memory progress.Store.
type fakeStore struct {
	profiles map[uuid.UUID]*domain.UserProfile
	lessons  map[string]*progress.LessonProgress
	quizzes  []*progress.QuizResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[uuid.UUID]*domain.UserProfile),
		lessons:  make(map[string]*progress.LessonProgress),
	}
}

func (f *fakeStore) GetProfile(_ context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) SaveProfile(_ context.Context, p *domain.UserProfile) error {
	cp := *p
	f.profiles[p.UserID] = &cp
	return nil
}

func (f *fakeStore) GetLessonProgress(_ context.Context, userID uuid.UUID, courseID, unitID, lessonID string) (*progress.LessonProgress, error) {
	rec, ok := f.lessons[userID.String()+courseID+unitID+lessonID]
	if !ok {
		return nil, domain.ErrProgressNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) SaveLessonProgress(_ context.Context, rec *progress.LessonProgress) error {
	cp := *rec
	f.lessons[rec.UserID.String()+rec.CourseID+rec.UnitID+rec.LessonID] = &cp
	return nil
}

func (f *fakeStore) ListLessonProgress(_ context.Context, userID uuid.UUID, courseID string) ([]*progress.LessonProgress, error) {
	var out []*progress.LessonProgress
	for _, rec := range f.lessons {
		if rec.UserID == userID && rec.CourseID == courseID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ApplyLessonCompletion(ctx context.Context, rec *progress.LessonProgress, quizzes []*progress.QuizResult, apply progress.ProfileMutation) error {
	if err := f.SaveLessonProgress(ctx, rec); err != nil {
		return err
	}
	f.quizzes = append(f.quizzes, quizzes...)
	return f.mutateProfile(rec.UserID, apply)
}

func (f *fakeStore) AppendQuizResult(_ context.Context, res *progress.QuizResult, apply progress.ProfileMutation) error {
	f.quizzes = append(f.quizzes, res)
	return f.mutateProfile(res.UserID, apply)
}

func (f *fakeStore) mutateProfile(userID uuid.UUID, apply progress.ProfileMutation) error {
	p, ok := f.profiles[userID]
	if !ok {
		p = domain.NewUserProfile(userID, "", "")
		f.profiles[userID] = p
	}
	_, err := apply(p)
	return err
}

func (f *fakeStore) TopProfiles(_ context.Context, limit int) ([]*domain.UserProfile, error) {
	var out []*domain.UserProfile
	for _, p := range f.profiles {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalXP != out[j].TotalXP {
			return out[i].TotalXP > out[j].TotalXP
		}
		if out[i].CurrentStreak != out[j].CurrentStreak {
			return out[i].CurrentStreak > out[j].CurrentStreak
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// testServices wires a real session and progress stack over in-memory
// storage for handler tests.
func testServices(t *testing.T) (*session.Service, *progress.Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	reg := testRegistry(t)
	progressSvc := progress.NewService(store, reg, nil, nil)
	sessionSvc := session.NewService(reg, progressSvc, session.NewMemoryStore(), nil)
	return sessionSvc, progressSvc, store
}

func testUser() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: "ada@example.com",
		Name:  "Ada",
	}
}

// request builds a JSON request carrying the authenticated user in context.
func request(t *testing.T, method, target string, body any, user *domain.User) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserKey, user))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}
