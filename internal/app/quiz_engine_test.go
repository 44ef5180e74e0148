package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"readnex-service/internal/app"
	"readnex-service/internal/domain"
	"readnex-service/internal/infra/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingSink struct {
	saved []domain.QuizAttempt
}

func (s *recordingSink) SaveAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	s.saved = append(s.saved, attempt)
	return nil
}

func newTestQuizService(questions map[string][]domain.QuizQuestion, sink app.AttemptSink, clock *fakeClock) *app.QuizService {
	repo := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(questions), 5*time.Minute)
	seq := 0
	newID := func() string {
		seq++
		return fmt.Sprintf("attempt-%d", seq)
	}
	return app.NewQuizServiceWithClock(repo, sink, clock.Now, newID)
}

func fiveQuestions() []domain.QuizQuestion {
	qs := make([]domain.QuizQuestion, 5)
	for i := range qs {
		qs[i] = domain.QuizQuestion{
			ID:            fmt.Sprintf("q%d", i+1),
			Question:      fmt.Sprintf("Question %d", i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
			Explanation:   "because",
		}
	}
	return qs
}

func TestStartAttemptEmptyQuiz(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	service := newTestQuizService(map[string][]domain.QuizQuestion{}, &recordingSink{}, clock)

	_, err := service.StartAttempt(context.Background(), "u1", "book-without-quiz", nil)
	if !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestFullRunScoresAndPasses(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	sink := &recordingSink{}
	service := newTestQuizService(map[string][]domain.QuizQuestion{"book-1": fiveQuestions()}, sink, clock)

	var completed *domain.QuizAttempt
	attempt, err := service.StartAttempt(context.Background(), "u1", "book-1", func(record domain.QuizAttempt) {
		completed = &record
	})
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	// Answer 4 of 5 correctly; miss the last one.
	for i, q := range fiveQuestions() {
		answer := q.CorrectAnswer
		if i == 4 {
			answer = (q.CorrectAnswer + 1) % 4
		}
		attempt.SelectAnswer(answer)
		attempt.SubmitAnswer()
		clock.Advance(19 * time.Second)
		attempt.Advance()
	}

	if completed == nil {
		t.Fatalf("expected completion callback to fire")
	}
	if completed.Score != 4 || completed.TotalQuestions != 5 {
		t.Fatalf("expected score 4/5, got %d/%d", completed.Score, completed.TotalQuestions)
	}
	if completed.Percentage != 80 {
		t.Fatalf("expected 80%%, got %d", completed.Percentage)
	}
	if !completed.Passed {
		t.Fatalf("expected 80%% to pass the 60%% threshold")
	}
	if completed.TimeTakenSeconds != 95 {
		t.Fatalf("expected 95s elapsed, got %d", completed.TimeTakenSeconds)
	}
	if completed.ID != "attempt-1" {
		t.Fatalf("expected generated id, got %q", completed.ID)
	}

	if len(sink.saved) != 1 || sink.saved[0].ID != completed.ID {
		t.Fatalf("expected the record handed to the sink, got %+v", sink.saved)
	}
	if view := attempt.Snapshot(); view.State != app.AttemptCompleted || view.Result == nil {
		t.Fatalf("expected completed attempt with result, got %+v", view)
	}
}

func TestSelectOverwritesUntilSubmitThenFreezes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	service := newTestQuizService(map[string][]domain.QuizQuestion{"book-1": fiveQuestions()}, &recordingSink{}, clock)

	attempt, err := service.StartAttempt(context.Background(), "u1", "book-1", nil)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	attempt.SelectAnswer(1)
	attempt.SelectAnswer(3)
	if view := attempt.Snapshot(); view.Selected != 3 {
		t.Fatalf("expected reselection to keep last choice, got %d", view.Selected)
	}

	attempt.SubmitAnswer()
	attempt.SelectAnswer(0) // frozen after submit
	if view := attempt.Snapshot(); view.Selected != 3 {
		t.Fatalf("expected frozen answer 3, got %d", view.Selected)
	}

	attempt.SubmitAnswer() // second submit no-ops
	if view := attempt.Snapshot(); !view.HasAnswered || view.QuestionIndex != 0 {
		t.Fatalf("expected still on question 0 answered, got %+v", view)
	}
}

func TestOutOfOrderCallsNoop(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	service := newTestQuizService(map[string][]domain.QuizQuestion{"book-1": fiveQuestions()}, &recordingSink{}, clock)

	attempt, err := service.StartAttempt(context.Background(), "u1", "book-1", nil)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	// Advance before submit must not move the cursor.
	attempt.Advance()
	if view := attempt.Snapshot(); view.QuestionIndex != 0 {
		t.Fatalf("expected cursor 0 after premature advance, got %d", view.QuestionIndex)
	}

	// Submit without a selection must not lock the question.
	attempt.SubmitAnswer()
	if view := attempt.Snapshot(); view.HasAnswered {
		t.Fatalf("expected unanswered question after empty submit")
	}

	// Out-of-range selections are ignored.
	attempt.SelectAnswer(99)
	attempt.SelectAnswer(-2)
	if view := attempt.Snapshot(); view.Selected != app.NoAnswer {
		t.Fatalf("expected sentinel selection, got %d", view.Selected)
	}
}

func TestOptionStatusMatrix(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	questions := []domain.QuizQuestion{{
		ID:            "q1",
		Question:      "pick one",
		Options:       []string{"a", "b", "c", "d"},
		CorrectAnswer: 2,
	}}
	service := newTestQuizService(map[string][]domain.QuizQuestion{"book-1": questions}, &recordingSink{}, clock)

	attempt, err := service.StartAttempt(context.Background(), "u1", "book-1", nil)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	if got := attempt.OptionStatus(2); got != app.OptionNeutral {
		t.Fatalf("expected neutral before submit, got %v", got)
	}

	attempt.SelectAnswer(0)
	attempt.SubmitAnswer()

	cases := map[int]app.OptionStatus{
		0: app.OptionSelectedIncorrect,
		1: app.OptionNeutral,
		2: app.OptionCorrect,
		3: app.OptionNeutral,
	}
	for option, want := range cases {
		if got := attempt.OptionStatus(option); got != want {
			t.Fatalf("option %d: expected %v, got %v", option, want, got)
		}
	}
}

func TestRetakeResetsFully(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	questions := fiveQuestions()
	service := newTestQuizService(map[string][]domain.QuizQuestion{"book-1": questions}, &recordingSink{}, clock)

	attempt, err := service.StartAttempt(context.Background(), "u1", "book-1", nil)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	for range questions {
		attempt.SelectAnswer(0)
		attempt.SubmitAnswer()
		attempt.Advance()
	}
	if view := attempt.Snapshot(); view.State != app.AttemptCompleted {
		t.Fatalf("expected completed attempt, got %+v", view)
	}

	attempt.Retake()
	view := attempt.Snapshot()
	if view.State != app.AttemptInProgress {
		t.Fatalf("expected in-progress after retake")
	}
	if view.QuestionIndex != 0 || view.Selected != app.NoAnswer || view.HasAnswered {
		t.Fatalf("expected pristine first question, got %+v", view)
	}
	if view.Result != nil {
		t.Fatalf("expected result cleared on retake")
	}
	if view.Question.ID != questions[0].ID || view.TotalQuestions != len(questions) {
		t.Fatalf("expected the original question sequence preserved")
	}
}

func TestScoreMessageTiers(t *testing.T) {
	if app.ScoreMessage(95) != app.ScoreMessage(90) {
		t.Fatalf("expected 90+ to share the top tier")
	}
	if app.ScoreMessage(89) != app.ScoreMessage(75) {
		t.Fatalf("expected 75-89 to share the second tier")
	}
	if app.ScoreMessage(74) != app.ScoreMessage(60) {
		t.Fatalf("expected 60-74 to share the passing tier")
	}
	if app.ScoreMessage(59) == app.ScoreMessage(60) {
		t.Fatalf("expected 59 to fall into the encouragement tier")
	}
}
