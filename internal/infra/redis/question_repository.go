package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"readnex-service/internal/domain"
)

// QuestionLoader fetches a book's question sequence from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, bookID string) ([]domain.QuizQuestion, error)
}

// QuestionRepository caches each book's full question sequence in Redis as a
// JSON value and falls back to the loader on a miss. Empty sequences are
// cached too, so books without a quiz do not hammer the backing store.
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, bookID string) ([]domain.QuizQuestion, error) {
	key := r.key(bookID)

	raw, err := r.client.Get(ctx, key).Result()
	if err == nil {
		return decodeQuestions(raw)
	}

	result, err, _ := r.sf.Do(bookID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		raw, err := r.client.Get(ctx, key).Result()
		if err == nil {
			questions, err := decodeQuestions(raw)
			if err != nil {
				return nil, err
			}
			return questions, nil
		}

		questions, err := r.loader.LoadQuestions(ctx, bookID)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(questions)
		if err != nil {
			return nil, err
		}
		// best-effort cache fill
		_ = r.client.Set(ctx, key, encoded, r.ttlWithJitter()).Err()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuizQuestion), nil
}

func (r *QuestionRepository) key(bookID string) string {
	return "quiz:book:" + bookID + ":questions"
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func decodeQuestions(raw string) ([]domain.QuizQuestion, error) {
	var questions []domain.QuizQuestion
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, err
	}
	return questions, nil
}
