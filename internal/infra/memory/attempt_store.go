package memory

import (
	"context"
	"sync"

	"readnex-service/internal/domain"
)

// AttemptStore keeps completed quiz attempts in memory. It backs the reading
// history and quiz result screens and implements app.AttemptSink.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts []domain.QuizAttempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{}
}

func (s *AttemptStore) SaveAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

// ByUser returns the user's completed attempts, oldest first.
func (s *AttemptStore) ByUser(userID string) []domain.QuizAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.QuizAttempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// Get looks an attempt up by id.
func (s *AttemptStore) Get(id string) (domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.QuizAttempt{}, domain.ErrAttemptNotFound
}
