package app

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"readnex-service/internal/domain"
)

// SessionState is the authentication state of the application session.
type SessionState int

const (
	// StateUnknown is the initial state before stored credentials are read.
	// Route guards wait on it instead of redirecting.
	StateUnknown SessionState = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// CredentialStore persists the access/refresh/user group (memory, Redis, etc).
// Save and Clear act on the whole group; Load returns a zero-value group when
// nothing (or only part of the group) is stored.
type CredentialStore interface {
	Load(ctx context.Context) (domain.Credentials, error)
	Save(ctx context.Context, creds domain.Credentials) error
	Clear(ctx context.Context) error
}

// AuthAPI is the upstream ReadNex backend surface the session manager drives.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (domain.Credentials, error)
	Register(ctx context.Context, reg domain.Registration) error
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, confirmationCode, newPassword string) error
	ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword, confirmPassword string) error
}

// Snapshot is the read-only view of the session handed to consumers. Nothing
// outside the manager mutates session state.
type Snapshot struct {
	State SessionState
	User  *domain.User
}

// SessionManager owns the authenticated-user state for the whole application
// lifetime. It is the single writer of the credential group; everyone else
// observes through Snapshot or Subscribe.
type SessionManager struct {
	store CredentialStore
	api   AuthAPI
	log   logrus.FieldLogger

	mu          sync.RWMutex
	state       SessionState
	creds       domain.Credentials
	subscribers map[chan Snapshot]struct{}
}

func NewSessionManager(store CredentialStore, api AuthAPI, log logrus.FieldLogger) *SessionManager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SessionManager{
		store:       store,
		api:         api,
		log:         log,
		state:       StateUnknown,
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Restore resolves the initial Unknown state from stored credentials. The read
// is synchronous so guards never see Unknown after startup. A partial group
// (token without user, or the reverse) is cleared and treated as logged out.
func (m *SessionManager) Restore(ctx context.Context) Snapshot {
	creds, err := m.store.Load(ctx)
	if err != nil {
		m.log.WithError(err).Warn("credential restore failed, starting logged out")
		creds = domain.Credentials{}
	}

	m.mu.Lock()
	if creds.Complete() {
		m.creds = creds
		m.state = StateAuthenticated
	} else {
		m.creds = domain.Credentials{}
		m.state = StateUnauthenticated
		if creds.AccessToken != "" || creds.RefreshToken != "" || creds.User != nil {
			// Drop the partial group so storage matches the resolved state.
			if err := m.store.Clear(ctx); err != nil {
				m.log.WithError(err).Warn("failed to clear partial credentials")
			}
		}
	}
	snap := m.snapshotLocked()
	m.broadcastLocked(snap)
	m.mu.Unlock()
	return snap
}

// Login authenticates against the backend and, on success, stores the
// credential group and returns the screen to route to: the admin dashboard for
// staff accounts, the general dashboard otherwise. On failure the session
// state is untouched and the normalized backend error is returned for the
// form to display.
func (m *SessionManager) Login(ctx context.Context, email, password string) (string, error) {
	creds, err := m.api.Login(ctx, email, password)
	if err != nil {
		return "", err
	}
	if err := m.store.Save(ctx, creds); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.creds = creds
	m.state = StateAuthenticated
	m.broadcastLocked(m.snapshotLocked())
	m.mu.Unlock()

	if creds.User != nil && creds.User.IsStaff {
		return domain.RouteAdminDashboard, nil
	}
	return domain.RouteDashboard, nil
}

// Register creates an account. It never changes session state; on success the
// caller redirects to the login screen.
func (m *SessionManager) Register(ctx context.Context, reg domain.Registration) (string, error) {
	if err := m.api.Register(ctx, reg); err != nil {
		return "", err
	}
	return domain.RouteLogin, nil
}

// Logout tears the session down. The backend is notified so the refresh token
// can be invalidated, but a failed notification is logged and swallowed: local
// credentials are always cleared and the state always ends Unauthenticated.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.RLock()
	refresh := m.creds.RefreshToken
	m.mu.RUnlock()

	if refresh != "" {
		if err := m.api.Logout(ctx, refresh); err != nil {
			m.log.WithError(err).Warn("logout notification failed, clearing locally anyway")
		}
	}
	if err := m.store.Clear(ctx); err != nil {
		m.log.WithError(err).Warn("failed to clear stored credentials")
	}

	m.mu.Lock()
	m.creds = domain.Credentials{}
	m.state = StateUnauthenticated
	m.broadcastLocked(m.snapshotLocked())
	m.mu.Unlock()
}

// UpdateUser replaces the user record in memory and in storage without
// touching the tokens.
func (m *SessionManager) UpdateUser(ctx context.Context, user domain.User) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return domain.ErrNotAuthenticated
	}
	u := user
	m.creds.User = &u
	creds := m.creds
	m.broadcastLocked(m.snapshotLocked())
	m.mu.Unlock()

	return m.store.Save(ctx, creds)
}

// ForgotPassword asks the backend to start a password reset for email.
func (m *SessionManager) ForgotPassword(ctx context.Context, email string) error {
	return m.api.ForgotPassword(ctx, email)
}

// ResetPassword completes a reset with the emailed confirmation code.
func (m *SessionManager) ResetPassword(ctx context.Context, email, confirmationCode, newPassword string) error {
	return m.api.ResetPassword(ctx, email, confirmationCode, newPassword)
}

// ChangePassword updates the password for the logged-in user.
func (m *SessionManager) ChangePassword(ctx context.Context, oldPassword, newPassword, confirmPassword string) error {
	m.mu.RLock()
	state := m.state
	token := m.creds.AccessToken
	m.mu.RUnlock()

	if state != StateAuthenticated {
		return domain.ErrNotAuthenticated
	}
	return m.api.ChangePassword(ctx, token, oldPassword, newPassword, confirmPassword)
}

// Snapshot returns the current read-only session view.
func (m *SessionManager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Subscribe returns a channel of session snapshots, starting with the current
// one. The caller must invoke the returned cancel function to avoid leaks.
func (m *SessionManager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	initial := m.snapshotLocked()
	m.mu.Unlock()

	ch <- initial

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

func (m *SessionManager) snapshotLocked() Snapshot {
	snap := Snapshot{State: m.state}
	if m.creds.User != nil {
		u := *m.creds.User
		snap.User = &u
	}
	return snap
}

func (m *SessionManager) broadcastLocked(snap Snapshot) {
	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow subscriber never blocks
			// a state transition.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
