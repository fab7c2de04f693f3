package catalog

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/pyquest/internal/domain"
)

// Registry provides read access to the loaded course catalog
type Registry struct {
	loader  *Loader
	mu      sync.RWMutex
	courses map[string]*Course
	order   []string
	loaded  bool
}

// NewRegistry creates a new course registry
func NewRegistry(loader *Loader) *Registry {
	return &Registry{
		loader:  loader,
		courses: make(map[string]*Course),
	}
}

// Load loads all courses into memory
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	courses, err := r.loader.LoadAllCourses()
	if err != nil {
		return fmt.Errorf("load courses: %w", err)
	}

	for _, c := range courses {
		if _, ok := r.courses[c.ID]; ok {
			return fmt.Errorf("duplicate course id: %s", c.ID)
		}
		r.courses[c.ID] = c
		r.order = append(r.order, c.ID)
	}

	r.loaded = true
	return nil
}

// Reload discards the catalog and loads it again (useful for development)
func (r *Registry) Reload() error {
	r.mu.Lock()
	r.courses = make(map[string]*Course)
	r.order = nil
	r.loaded = false
	r.mu.Unlock()

	return r.Load()
}

// Courses returns all courses in load order
func (r *Registry) Courses() []*Course {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Course, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.courses[id])
	}
	return out
}

// GetCourse returns a course by id
func (r *Registry) GetCourse(id string) (*Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.courses[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCourseNotFound, id)
	}
	return c, nil
}

// GetUnit returns a unit within a course
func (r *Registry) GetUnit(courseID, unitID string) (*Unit, error) {
	c, err := r.GetCourse(courseID)
	if err != nil {
		return nil, err
	}

	for i := range c.Units {
		if c.Units[i].ID == unitID {
			return &c.Units[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", domain.ErrUnitNotFound, courseID, unitID)
}

// GetLesson returns a lesson by its (course, unit, lesson) path
func (r *Registry) GetLesson(courseID, unitID, lessonID string) (*Lesson, error) {
	u, err := r.GetUnit(courseID, unitID)
	if err != nil {
		return nil, err
	}

	for i := range u.Lessons {
		if u.Lessons[i].ID == lessonID {
			return &u.Lessons[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s/%s", domain.ErrLessonNotFound, courseID, unitID, lessonID)
}

// LessonCount returns the number of lessons in a course
func (r *Registry) LessonCount(courseID string) (int, error) {
	c, err := r.GetCourse(courseID)
	if err != nil {
		return 0, err
	}
	return c.LessonCount(), nil
}
