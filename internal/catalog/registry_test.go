package catalog

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/pyquest/internal/domain"
)

func loadTestRegistry(t *testing.T) *Registry {
	t.Helper()
	tmpDir := t.TempDir()
	writeTestCourse(t, tmpDir, "python-basics", testCourseYAML)

	r := NewRegistry(NewLoader(tmpDir))
	if err := r.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return r
}

func TestRegistry_GetCourse(t *testing.T) {
	r := loadTestRegistry(t)

	c, err := r.GetCourse("python-basics")
	if err != nil {
		t.Fatalf("GetCourse() error = %v", err)
	}
	if c.Title != "Python Fundamentals" {
		t.Errorf("Title = %q, want %q", c.Title, "Python Fundamentals")
	}

	_, err = r.GetCourse("unknown")
	if !errors.Is(err, domain.ErrCourseNotFound) {
		t.Errorf("GetCourse(unknown) error = %v, want ErrCourseNotFound", err)
	}
}

func TestRegistry_GetLesson(t *testing.T) {
	r := loadTestRegistry(t)

	l, err := r.GetLesson("python-basics", "getting-started", "variables-numbers")
	if err != nil {
		t.Fatalf("GetLesson() error = %v", err)
	}
	if len(l.Steps) != 2 {
		t.Errorf("len(Steps) = %d, want 2", len(l.Steps))
	}

	_, err = r.GetLesson("python-basics", "getting-started", "nope")
	if !errors.Is(err, domain.ErrLessonNotFound) {
		t.Errorf("error = %v, want ErrLessonNotFound", err)
	}

	_, err = r.GetLesson("python-basics", "nope", "variables-numbers")
	if !errors.Is(err, domain.ErrUnitNotFound) {
		t.Errorf("error = %v, want ErrUnitNotFound", err)
	}
}

func TestRegistry_Courses_Order(t *testing.T) {
	r := loadTestRegistry(t)

	courses := r.Courses()
	if len(courses) != 1 {
		t.Fatalf("len(Courses()) = %d, want 1", len(courses))
	}
	if courses[0].ID != "python-basics" {
		t.Errorf("Courses()[0].ID = %q, want python-basics", courses[0].ID)
	}
}

func TestRegistry_LessonCount(t *testing.T) {
	r := loadTestRegistry(t)

	n, err := r.LessonCount("python-basics")
	if err != nil {
		t.Fatalf("LessonCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("LessonCount = %d, want 1", n)
	}
}

func TestRegistry_Reload(t *testing.T) {
	r := loadTestRegistry(t)

	if err := r.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if _, err := r.GetCourse("python-basics"); err != nil {
		t.Errorf("GetCourse after Reload error = %v", err)
	}
}
