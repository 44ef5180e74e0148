package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"readnex-service/internal/app"
	"readnex-service/internal/domain"
)

// WSHandler drives one quiz attempt per websocket connection. The attempt
// lives and dies with the socket: closing the connection abandons it.
type WSHandler struct {
	service  *app.QuizService
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log logrus.FieldLogger) *WSHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option int `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// questionPayload shows the active question without its answer; correctness
// is only revealed through feedbackPayload after submission.
type questionPayload struct {
	Index      int      `json:"index"`
	Total      int      `json:"total"`
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Difficulty string   `json:"difficulty"`
	Category   string   `json:"category"`
	Selected   int      `json:"selected"`
}

type feedbackPayload struct {
	Correct       bool     `json:"correct"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	OptionStatus  []string `json:"optionStatus"`
}

type resultsPayload struct {
	Attempt domain.QuizAttempt `json:"attempt"`
	Message string             `json:"message"`
}

// ServeWS upgrades the request and runs the attempt loop. Query params: bookId
// and userId.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	bookID := r.URL.Query().Get("bookId")
	userID := r.URL.Query().Get("userId")
	if bookID == "" || userID == "" {
		http.Error(w, "missing bookId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan any, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	attempt, err := h.service.StartAttempt(r.Context(), userID, bookID, func(record domain.QuizAttempt) {
		send <- outboundMessage[resultsPayload]{Type: "results", Payload: resultsPayload{
			Attempt: record,
			Message: app.ScoreMessage(record.Percentage),
		}}
	})
	if errors.Is(err, domain.ErrNoQuestions) {
		send <- outboundMessage[errorPayload]{Type: "empty", Payload: errorPayload{Message: "No quiz available for this book yet."}}
		close(send)
		<-writerDone
		return
	}
	if err != nil {
		send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		close(send)
		<-writerDone
		return
	}

	send <- questionMessage(attempt.Snapshot())

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}}
				continue
			}
			attempt.SelectAnswer(payload.Option)
			send <- questionMessage(attempt.Snapshot())
		case "submit":
			attempt.SubmitAnswer()
			view := attempt.Snapshot()
			if !view.HasAnswered {
				// Nothing selected yet; the submit was a no-op.
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "select an answer first"}}
				continue
			}
			send <- feedbackMessage(attempt, view)
		case "advance":
			attempt.Advance()
			if view := attempt.Snapshot(); view.State == app.AttemptInProgress {
				send <- questionMessage(view)
			}
			// Completion pushes the results message through the callback.
		case "retake":
			attempt.Retake()
			send <- questionMessage(attempt.Snapshot())
		default:
			send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(send)
	<-writerDone
}

func questionMessage(view app.AttemptView) any {
	return outboundMessage[questionPayload]{Type: "question", Payload: questionPayload{
		Index:      view.QuestionIndex,
		Total:      view.TotalQuestions,
		Question:   view.Question.Question,
		Options:    view.Question.Options,
		Difficulty: view.Question.Difficulty,
		Category:   view.Question.Category,
		Selected:   view.Selected,
	}}
}

func feedbackMessage(attempt *app.Attempt, view app.AttemptView) any {
	statuses := make([]string, len(view.Question.Options))
	for i := range statuses {
		statuses[i] = optionStatusName(attempt.OptionStatus(i))
	}
	return outboundMessage[feedbackPayload]{Type: "feedback", Payload: feedbackPayload{
		Correct:       view.Selected == view.Question.CorrectAnswer,
		CorrectAnswer: view.Question.CorrectAnswer,
		Explanation:   view.Question.Explanation,
		OptionStatus:  statuses,
	}}
}

func optionStatusName(s app.OptionStatus) string {
	switch s {
	case app.OptionSelectedCorrect:
		return "selected_correct"
	case app.OptionSelectedIncorrect:
		return "selected_incorrect"
	case app.OptionCorrect:
		return "correct"
	default:
		return "neutral"
	}
}
