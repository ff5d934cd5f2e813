package domain

import "errors"

var (
	// ErrProvider is returned when the trivia provider cannot supply questions.
	ErrProvider = errors.New("question provider error")
	// ErrSessionCreate is returned when a quiz could not be started.
	ErrSessionCreate = errors.New("failed to create quiz session")
	// ErrSubmission is returned when a finished quiz could not be persisted.
	ErrSubmission = errors.New("failed to submit quiz")
	// ErrNotFoundOrForbidden hides whether a record exists when the caller does not own it.
	ErrNotFoundOrForbidden = errors.New("unauthorized")
	// ErrSessionCompleted indicates a write against a session that is already finalized.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrInvalidInput indicates a request that fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoActiveQuiz is returned for operations that need an active quiz.
	ErrNoActiveQuiz = errors.New("no active quiz")
)
