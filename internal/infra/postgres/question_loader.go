package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"readnex-service/internal/domain"
)

// QuestionLoader loads a book's question sequence from Postgres JSONB.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, bookID string) ([]domain.QuizQuestion, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM book_quizzes WHERE book_id=$1`, bookID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		// No quiz row for the book is an empty state, not an error.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	var questions []domain.QuizQuestion
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return questions, nil
}
