package app

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"readnex-service/internal/domain"
)

// Score boundaries. PassPercent is the single pass/fail threshold used
// anywhere "passed" is reported; the higher two only select the result
// message tier.
const (
	PassPercent      = 60
	GreatPercent     = 75
	ExcellentPercent = 90
)

// NoAnswer is the sentinel marking an answer slot as not yet selected.
const NoAnswer = -1

// QuestionRepository loads the fixed question sequence for a book
// (from cache/backing store).
type QuestionRepository interface {
	GetQuestions(ctx context.Context, bookID string) ([]domain.QuizQuestion, error)
}

// AttemptSink receives completed attempt records. The engine itself never
// persists; that stays with the caller's collaborator.
type AttemptSink interface {
	SaveAttempt(ctx context.Context, attempt domain.QuizAttempt) error
}

// QuizService starts quiz attempts for books.
type QuizService struct {
	questions QuestionRepository
	sink      AttemptSink
	now       func() time.Time
	newID     func() string
}

func NewQuizService(questions QuestionRepository, sink AttemptSink) *QuizService {
	return &QuizService{
		questions: questions,
		sink:      sink,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps and ids.
func NewQuizServiceWithClock(questions QuestionRepository, sink AttemptSink, now func() time.Time, newID func() string) *QuizService {
	return &QuizService{questions: questions, sink: sink, now: now, newID: newID}
}

// StartAttempt fetches the question sequence for a book once and returns a
// new in-progress attempt. An empty sequence yields domain.ErrNoQuestions and
// no attempt is created. onComplete, if non-nil, is invoked with the final
// record after the last question is advanced past; the record is also handed
// to the configured sink.
func (s *QuizService) StartAttempt(ctx context.Context, userID, bookID string, onComplete func(domain.QuizAttempt)) (*Attempt, error) {
	questions, err := s.questions.GetQuestions(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	complete := func(record domain.QuizAttempt) {
		if s.sink != nil {
			// Persistence failures must not disturb the finished attempt.
			_ = s.sink.SaveAttempt(context.Background(), record)
		}
		if onComplete != nil {
			onComplete(record)
		}
	}
	return newAttempt(userID, bookID, questions, s.now, s.newID, complete), nil
}

// AttemptState is the lifecycle state of one quiz attempt.
type AttemptState int

const (
	AttemptInProgress AttemptState = iota
	AttemptCompleted
)

// OptionStatus is the visual state of one option after the current question
// has been submitted. The selected option and the true correct option are
// distinguished independently, giving four mutually exclusive states.
type OptionStatus int

const (
	OptionNeutral OptionStatus = iota
	OptionCorrect
	OptionSelectedCorrect
	OptionSelectedIncorrect
)

// Attempt is the state machine for a single pass through a fixed question
// sequence. Exactly one question is active at a time; a submitted answer is
// frozen until Retake resets the whole attempt. All invalid transitions
// (answer after submit, advance before submit, anything after completion)
// are no-ops rather than errors.
type Attempt struct {
	mu              sync.Mutex
	userID          string
	bookID          string
	questions       []domain.QuizQuestion
	answers         []int
	current         int
	hasAnswered     bool
	showExplanation bool
	state           AttemptState
	startedAt       time.Time
	result          *domain.QuizAttempt

	now        func() time.Time
	newID      func() string
	onComplete func(domain.QuizAttempt)
}

func newAttempt(userID, bookID string, questions []domain.QuizQuestion, now func() time.Time, newID func() string, onComplete func(domain.QuizAttempt)) *Attempt {
	a := &Attempt{
		userID:     userID,
		bookID:     bookID,
		questions:  questions,
		answers:    make([]int, len(questions)),
		startedAt:  now(),
		now:        now,
		newID:      newID,
		onComplete: onComplete,
	}
	for i := range a.answers {
		a.answers[i] = NoAnswer
	}
	return a
}

// SelectAnswer records a selection for the active question. Reselecting
// before submit overwrites; once submitted the slot is frozen. Out-of-range
// indexes are ignored.
func (a *Attempt) SelectAnswer(option int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AttemptInProgress || a.hasAnswered {
		return
	}
	if option < 0 || option >= len(a.questions[a.current].Options) {
		return
	}
	a.answers[a.current] = option
}

// SubmitAnswer locks in the current selection and reveals the explanation and
// per-option correctness. It requires a selection; a second submit no-ops.
func (a *Attempt) SubmitAnswer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AttemptInProgress || a.hasAnswered {
		return
	}
	if a.answers[a.current] == NoAnswer {
		return
	}
	a.hasAnswered = true
	a.showExplanation = true
}

// Advance moves past a submitted question. On the last question it computes
// the final record, transitions to Completed, and fires the completion
// callback. Before SubmitAnswer it is a no-op.
func (a *Attempt) Advance() {
	a.mu.Lock()
	if a.state != AttemptInProgress || !a.hasAnswered {
		a.mu.Unlock()
		return
	}
	if a.current < len(a.questions)-1 {
		a.current++
		a.hasAnswered = false
		a.showExplanation = false
		a.mu.Unlock()
		return
	}

	record := a.computeResultsLocked()
	a.state = AttemptCompleted
	a.result = &record
	complete := a.onComplete
	a.mu.Unlock()

	// Callback runs outside the lock so it may read the attempt.
	if complete != nil {
		complete(record)
	}
}

// Retake resets the attempt for another pass over the same questions: cursor
// to zero, every slot back to the sentinel, clock restarted. No re-fetch.
func (a *Attempt) Retake() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.answers {
		a.answers[i] = NoAnswer
	}
	a.current = 0
	a.hasAnswered = false
	a.showExplanation = false
	a.state = AttemptInProgress
	a.result = nil
	a.startedAt = a.now()
}

// OptionStatus reports the visual state of an option on the active question.
// Before submission everything is neutral; selection highlighting before
// submit comes from Snapshot.Selected.
func (a *Attempt) OptionStatus(option int) OptionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasAnswered {
		return OptionNeutral
	}
	correct := a.questions[a.current].CorrectAnswer
	selected := a.answers[a.current]
	switch {
	case option == selected && option == correct:
		return OptionSelectedCorrect
	case option == selected:
		return OptionSelectedIncorrect
	case option == correct:
		return OptionCorrect
	default:
		return OptionNeutral
	}
}

// AttemptView is a read-only snapshot of the attempt for rendering.
type AttemptView struct {
	State           AttemptState
	QuestionIndex   int
	TotalQuestions  int
	Question        domain.QuizQuestion
	Selected        int
	HasAnswered     bool
	ShowExplanation bool
	Result          *domain.QuizAttempt
}

// Snapshot returns the current view of the attempt.
func (a *Attempt) Snapshot() AttemptView {
	a.mu.Lock()
	defer a.mu.Unlock()
	view := AttemptView{
		State:           a.state,
		QuestionIndex:   a.current,
		TotalQuestions:  len(a.questions),
		Question:        a.questions[a.current],
		Selected:        a.answers[a.current],
		HasAnswered:     a.hasAnswered,
		ShowExplanation: a.showExplanation,
	}
	if a.result != nil {
		r := *a.result
		view.Result = &r
	}
	return view
}

func (a *Attempt) computeResultsLocked() domain.QuizAttempt {
	score := 0
	for i, q := range a.questions {
		if a.answers[i] == q.CorrectAnswer {
			score++
		}
	}
	total := len(a.questions)
	percentage := int(math.Round(float64(score) / float64(total) * 100))
	completedAt := a.now()

	return domain.QuizAttempt{
		ID:               a.newID(),
		BookID:           a.bookID,
		UserID:           a.userID,
		Score:            score,
		TotalQuestions:   total,
		Percentage:       percentage,
		Passed:           percentage >= PassPercent,
		TimeTakenSeconds: int(completedAt.Sub(a.startedAt).Seconds()),
		CompletedAt:      completedAt,
	}
}

// ScoreMessage picks the result message tier for a final percentage.
func ScoreMessage(percentage int) string {
	switch {
	case percentage >= ExcellentPercent:
		return "Outstanding! You really know this book."
	case percentage >= GreatPercent:
		return "Great job! You have a solid grasp of the story."
	case percentage >= PassPercent:
		return "Good work, you passed. A re-read could sharpen the details."
	default:
		return "Keep reading! Give the book another look and try again."
	}
}
