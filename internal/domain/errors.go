package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by repositories
// and services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// User errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidPassword   = errors.New("invalid password")
)

// Auth session errors
var (
	ErrAuthSessionNotFound = errors.New("auth session not found")
	ErrAuthSessionExpired  = errors.New("auth session expired")
)

// Profile errors
var (
	ErrProfileNotFound = errors.New("user profile not found")
)

// Catalog errors
var (
	ErrCourseNotFound = errors.New("course not found")
	ErrUnitNotFound   = errors.New("unit not found")
	ErrLessonNotFound = errors.New("lesson not found")
)

// Session errors (lesson/quiz sessions)
var (
	ErrInvalidLesson       = errors.New("lesson has no steps")
	ErrStepOutOfOrder      = errors.New("step completed out of order")
	ErrSessionCompleted    = errors.New("session already completed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrQuestionOutOfRange  = errors.New("question index out of range")
	ErrQuizAlreadyAnswered = errors.New("question already answered")
)

// Progress errors
var (
	ErrProgressNotFound = errors.New("lesson progress not found")
)

// General errors
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternalError = errors.New("internal error")
)
