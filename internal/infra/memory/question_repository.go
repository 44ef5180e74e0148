package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"readnex-service/internal/domain"
)

// QuestionLoader fetches a book's question sequence from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, bookID string) ([]domain.QuizQuestion, error)
}

// QuestionRepository caches question sequences with TTL to avoid repeated
// backing-store hits when several attempts start for the same book.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.QuizQuestion
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, bookID string) ([]domain.QuizQuestion, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[bookID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(bookID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[bookID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.loader.LoadQuestions(ctx, bookID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[bookID] = cachedQuestions{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuizQuestion), nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves question sequences from an in-memory map
// (useful for tests/demos). Unknown books load as empty, which callers render
// as a "no quiz available" state.
type StaticQuestionLoader struct {
	questions map[string][]domain.QuizQuestion
}

func NewStaticQuestionLoader(questions map[string][]domain.QuizQuestion) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, bookID string) ([]domain.QuizQuestion, error) {
	return l.questions[bookID], nil
}
