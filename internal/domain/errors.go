package domain

import "errors"

var (
	// ErrNoQuestions indicates a book has no quiz; callers render an empty
	// state rather than starting an attempt.
	ErrNoQuestions = errors.New("no quiz available for book")
	// ErrNotAuthenticated is returned for session commands that need a user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrBookNotFound indicates the backend knows no such book.
	ErrBookNotFound = errors.New("book not found")
	// ErrAttemptNotFound indicates a completed attempt id that was never recorded.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
)
