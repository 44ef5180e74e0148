package memory

import (
	"context"
	"testing"
	"time"

	"readnex-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(map[string][]domain.QuizQuestion{
			"book-1": sampleQuestions(),
		}),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.GetQuestions(context.Background(), "book-1"); err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuestions(context.Background(), "book-1"); err != nil {
		t.Fatalf("get questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestStaticLoaderUnknownBookIsEmpty(t *testing.T) {
	loader := NewStaticQuestionLoader(map[string][]domain.QuizQuestion{})
	questions, err := loader.LoadQuestions(context.Background(), "missing")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("expected empty sequence for unknown book, got %d", len(questions))
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, bookID string) ([]domain.QuizQuestion, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, bookID)
}

func sampleQuestions() []domain.QuizQuestion {
	return []domain.QuizQuestion{
		{
			ID:            "q1",
			Question:      "Who wrote the letter in chapter two?",
			Options:       []string{"The aunt", "The tutor", "The gardener"},
			CorrectAnswer: 1,
			Explanation:   "The handwriting matches the tutor's notes.",
		},
	}
}
