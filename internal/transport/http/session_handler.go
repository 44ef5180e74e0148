package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"readnex-service/internal/app"
	"readnex-service/internal/domain"
)

// AttemptLog is the slice of the attempt store the transport reads for the
// quiz history endpoint.
type AttemptLog interface {
	ByUser(userID string) []domain.QuizAttempt
}

// SessionHandler exposes the session manager commands as thin JSON endpoints
// and the route guard as a decision endpoint the front-end router calls.
type SessionHandler struct {
	sessions *app.SessionManager
	attempts AttemptLog
	log      logrus.FieldLogger
}

func NewSessionHandler(sessions *app.SessionManager, attempts AttemptLog, log logrus.FieldLogger) *SessionHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SessionHandler{sessions: sessions, attempts: attempts, log: log}
}

// Register wires the handler's routes onto mux.
func (h *SessionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/session", h.handleSnapshot)
	mux.HandleFunc("/session/login", h.handleLogin)
	mux.HandleFunc("/session/logout", h.handleLogout)
	mux.HandleFunc("/session/register", h.handleRegister)
	mux.HandleFunc("/session/user", h.handleUpdateUser)
	mux.HandleFunc("/session/forgot-password", h.handleForgotPassword)
	mux.HandleFunc("/session/reset-password", h.handleResetPassword)
	mux.HandleFunc("/session/change-password", h.handleChangePassword)
	mux.HandleFunc("/session/guard", h.handleGuard)
	mux.HandleFunc("/quiz/attempts", h.Guarded(false, h.handleAttempts))
}

// Guarded wraps an endpoint with a route-guard check against the current
// session. A redirect decision is answered with the guard's target and notice
// instead of the protected payload.
func (h *SessionHandler) Guarded(requireAdmin bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decision := app.Decide(h.sessions.Snapshot(), requireAdmin)
		if decision.Action == app.ActionWait {
			// Restore runs before the server accepts traffic, so this only
			// shows up if a caller races boot.
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"notice": "session restoring",
			})
			return
		}
		if decision.Action != app.ActionRender {
			status := http.StatusUnauthorized
			if decision.Notice == app.NoticeAccessDenied {
				status = http.StatusForbidden
			}
			writeJSON(w, status, map[string]string{
				"redirect": decision.Path,
				"notice":   decision.Notice,
			})
			return
		}
		next(w, r)
	}
}

func (h *SessionHandler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := h.sessions.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"state": snap.State.String(),
		"user":  snap.User,
	})
}

func (h *SessionHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	redirect, err := h.sessions.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	snap := h.sessions.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"redirect": redirect,
		"user":     snap.User,
	})
}

func (h *SessionHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.sessions.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var reg domain.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	redirect, err := h.sessions.Register(r.Context(), reg)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"redirect": redirect})
}

func (h *SessionHandler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var user domain.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := h.sessions.UpdateUser(r.Context(), user); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := h.sessions.ForgotPassword(r.Context(), body.Email); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Email            string `json:"email"`
		ConfirmationCode string `json:"confirmation_code"`
		NewPassword      string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := h.sessions.ResetPassword(r.Context(), body.Email, body.ConfirmationCode, body.NewPassword); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		OldPassword     string `json:"old_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := h.sessions.ChangePassword(r.Context(), body.OldPassword, body.NewPassword, body.ConfirmPassword); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGuard evaluates the route guard for an app screen path. The caller
// performs the navigation and notification; this endpoint only decides.
func (h *SessionHandler) handleGuard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "missing path", http.StatusBadRequest)
		return
	}
	decision := app.DecideForPath(h.sessions.Snapshot(), path)
	writeJSON(w, http.StatusOK, map[string]any{
		"action":   guardActionName(decision.Action),
		"redirect": decision.Path,
		"notice":   decision.Notice,
	})
}

func (h *SessionHandler) handleAttempts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	attempts := h.attempts.ByUser(userID)
	if attempts == nil {
		attempts = []domain.QuizAttempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *SessionHandler) writeError(w http.ResponseWriter, err error) {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]string{
			"message": apiErr.Message,
			"kind":    string(apiErr.Kind),
		})
		return
	}
	if errors.Is(err, domain.ErrNotAuthenticated) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"message": app.NoticeAuthRequired,
			"kind":    string(domain.KindAuthorization),
		})
		return
	}
	h.log.WithError(err).Error("session command failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
}

func guardActionName(a app.GuardAction) string {
	switch a {
	case app.ActionWait:
		return "wait"
	case app.ActionRedirect:
		return "redirect"
	default:
		return "render"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
