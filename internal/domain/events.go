package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Event Interface and Base Event
// -----------------------------------------------------------------------------

// Event represents a domain event
type Event interface {
	// EventID returns the unique identifier for this event
	EventID() uuid.UUID
	// EventType returns the type name of this event
	EventType() string
	// OccurredAt returns when this event occurred
	OccurredAt() time.Time
	// AggregateID returns the ID of the aggregate that produced this event
	AggregateID() uuid.UUID
}

// Event type names
const (
	EventLessonCompleted     = "lesson.completed"
	EventQuizSubmitted       = "quiz.submitted"
	EventAchievementUnlocked = "achievement.unlocked"
)

// BaseEvent provides common event fields
type BaseEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateUUID uuid.UUID `json:"aggregate_id"`
}

// NewBaseEvent creates a new BaseEvent
func NewBaseEvent(eventType string, aggregateID uuid.UUID) BaseEvent {
	return BaseEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now(),
		AggregateUUID: aggregateID,
	}
}

func (e BaseEvent) EventID() uuid.UUID     { return e.ID }
func (e BaseEvent) EventType() string      { return e.Type }
func (e BaseEvent) OccurredAt() time.Time  { return e.Timestamp }
func (e BaseEvent) AggregateID() uuid.UUID { return e.AggregateUUID }

// -----------------------------------------------------------------------------
// Concrete Events
// -----------------------------------------------------------------------------

// LessonCompletedEvent is emitted when a lesson session reaches Completed.
type LessonCompletedEvent struct {
	BaseEvent
	UserID         uuid.UUID `json:"user_id"`
	CourseID       string    `json:"course_id"`
	UnitID         string    `json:"unit_id"`
	LessonID       string    `json:"lesson_id"`
	XPEarned       int       `json:"xp_earned"`
	StepsCompleted []int     `json:"steps_completed"`
	TimeSpent      int       `json:"time_spent"` // minutes
}

// NewLessonCompletedEvent creates a LessonCompletedEvent.
func NewLessonCompletedEvent(userID uuid.UUID, courseID, unitID, lessonID string, xp int, steps []int, minutes int) *LessonCompletedEvent {
	return &LessonCompletedEvent{
		BaseEvent:      NewBaseEvent(EventLessonCompleted, userID),
		UserID:         userID,
		CourseID:       courseID,
		UnitID:         unitID,
		LessonID:       lessonID,
		XPEarned:       xp,
		StepsCompleted: steps,
		TimeSpent:      minutes,
	}
}

// QuizSubmittedEvent is emitted when a quiz result is recorded.
type QuizSubmittedEvent struct {
	BaseEvent
	UserID         uuid.UUID `json:"user_id"`
	QuizID         string    `json:"quiz_id"`
	Score          int       `json:"score"` // 0-100
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
}

// NewQuizSubmittedEvent creates a QuizSubmittedEvent.
func NewQuizSubmittedEvent(userID uuid.UUID, quizID string, score, correct, total int) *QuizSubmittedEvent {
	return &QuizSubmittedEvent{
		BaseEvent:      NewBaseEvent(EventQuizSubmitted, userID),
		UserID:         userID,
		QuizID:         quizID,
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: total,
	}
}

// AchievementUnlockedEvent is emitted once per newly unlocked achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        uuid.UUID `json:"user_id"`
	AchievementID string    `json:"achievement_id"`
	XPReward      int       `json:"xp_reward"`
}

// NewAchievementUnlockedEvent creates an AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID uuid.UUID, achievementID string, xpReward int) *AchievementUnlockedEvent {
	return &AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID),
		UserID:        userID,
		AchievementID: achievementID,
		XPReward:      xpReward,
	}
}

// -----------------------------------------------------------------------------
// Event Handler and Dispatcher
// -----------------------------------------------------------------------------

// EventHandler processes domain events
type EventHandler func(event Event)

// EventDispatcher manages event subscriptions and publishing
type EventDispatcher struct {
	mu          sync.RWMutex
	handlers    map[string][]EventHandler
	allHandlers []EventHandler // handlers for all events
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (d *EventDispatcher) Subscribe(eventType string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all events
func (d *EventDispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allHandlers = append(d.allHandlers, handler)
}

// Publish delivers an event to all subscribed handlers synchronously.
func (d *EventDispatcher) Publish(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, h := range d.handlers[event.EventType()] {
		h(event)
	}
	for _, h := range d.allHandlers {
		h(event)
	}
}
