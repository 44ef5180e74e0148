package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"readnex-service/internal/app"
	"readnex-service/internal/domain"
	"readnex-service/internal/infra/memory"
)

type stubAuthAPI struct {
	creds    domain.Credentials
	loginErr error
}

func (s *stubAuthAPI) Login(_ context.Context, _, _ string) (domain.Credentials, error) {
	if s.loginErr != nil {
		return domain.Credentials{}, s.loginErr
	}
	return s.creds, nil
}

func (s *stubAuthAPI) Register(_ context.Context, _ domain.Registration) error { return nil }

func (s *stubAuthAPI) Logout(_ context.Context, _ string) error { return nil }

func (s *stubAuthAPI) ForgotPassword(_ context.Context, _ string) error { return nil }

func (s *stubAuthAPI) ResetPassword(_ context.Context, _, _, _ string) error { return nil }

func (s *stubAuthAPI) ChangePassword(_ context.Context, _, _, _, _ string) error { return nil }

func newSessionTestServer(t *testing.T, api *stubAuthAPI) (*httptest.Server, *app.SessionManager) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	manager := app.NewSessionManager(memory.NewCredentialStore(), api, log)
	manager.Restore(context.Background())

	handler := NewSessionHandler(manager, memory.NewAttemptStore(), log)
	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, manager
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	encoded, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestLoginEndpointReturnsRedirect(t *testing.T) {
	api := &stubAuthAPI{creds: domain.Credentials{
		AccessToken:  "a1",
		RefreshToken: "r1",
		User:         &domain.User{ID: 1, Email: "staff@example.com", IsStaff: true},
	}}
	server, _ := newSessionTestServer(t, api)

	resp := postJSON(t, server.URL+"/session/login", map[string]string{
		"email": "staff@example.com", "password": "pw",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Redirect string       `json:"redirect"`
		User     *domain.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Redirect != domain.RouteAdminDashboard {
		t.Fatalf("expected admin redirect for staff, got %s", body.Redirect)
	}
	if body.User == nil || !body.User.IsStaff {
		t.Fatalf("expected staff user in response, got %+v", body.User)
	}
}

func TestLoginEndpointPropagatesNormalizedError(t *testing.T) {
	api := &stubAuthAPI{
		loginErr: domain.NormalizeErrorBody(401, []byte(`{"detail":"Invalid credentials"}`), "Login failed."),
	}
	server, manager := newSessionTestServer(t, api)

	resp := postJSON(t, server.URL+"/session/login", map[string]string{
		"email": "x@example.com", "password": "wrong",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["message"] != "Invalid credentials" || body["kind"] != "credential" {
		t.Fatalf("expected normalized error body, got %v", body)
	}
	if snap := manager.Snapshot(); snap.State != app.StateUnauthenticated {
		t.Fatalf("expected state untouched after failed login")
	}
}

func TestGuardEndpointDecisions(t *testing.T) {
	server, manager := newSessionTestServer(t, &stubAuthAPI{creds: domain.Credentials{
		AccessToken: "a1", RefreshToken: "r1", User: &domain.User{ID: 2},
	}})

	decide := func(path string) map[string]string {
		resp, err := http.Get(server.URL + "/session/guard?path=" + path)
		if err != nil {
			t.Fatalf("guard %s: %v", path, err)
		}
		defer resp.Body.Close()
		var body map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return body
	}

	if d := decide("/dashboard"); d["action"] != "redirect" || d["redirect"] != domain.RouteLogin {
		t.Fatalf("expected login redirect while logged out, got %v", d)
	}
	if d := decide("/faq"); d["action"] != "render" {
		t.Fatalf("expected public path rendered, got %v", d)
	}

	if _, err := manager.Login(context.Background(), "reader@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if d := decide("/dashboard"); d["action"] != "render" {
		t.Fatalf("expected dashboard rendered once logged in, got %v", d)
	}
	if d := decide("/admin"); d["action"] != "redirect" || d["notice"] != app.NoticeAccessDenied {
		t.Fatalf("expected admin denial for non-staff, got %v", d)
	}
}

func TestAttemptsEndpointIsGuarded(t *testing.T) {
	server, manager := newSessionTestServer(t, &stubAuthAPI{creds: domain.Credentials{
		AccessToken: "a1", RefreshToken: "r1", User: &domain.User{ID: 2},
	}})

	resp, err := http.Get(server.URL + "/quiz/attempts?userId=u1")
	if err != nil {
		t.Fatalf("get attempts: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 while logged out, got %d", resp.StatusCode)
	}
	var denial map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&denial)
	if denial["redirect"] != domain.RouteLogin || denial["notice"] != app.NoticeAuthRequired {
		t.Fatalf("expected guard redirect body, got %v", denial)
	}

	if _, err := manager.Login(context.Background(), "reader@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	resp2, err := http.Get(server.URL + "/quiz/attempts?userId=u1")
	if err != nil {
		t.Fatalf("get attempts logged in: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 once logged in, got %d", resp2.StatusCode)
	}
	var attempts []domain.QuizAttempt
	if err := json.NewDecoder(resp2.Body).Decode(&attempts); err != nil {
		t.Fatalf("decode attempts: %v", err)
	}
	if len(attempts) != 0 {
		t.Fatalf("expected empty history, got %+v", attempts)
	}
}

func TestLogoutEndpointTearsDownSession(t *testing.T) {
	server, manager := newSessionTestServer(t, &stubAuthAPI{creds: domain.Credentials{
		AccessToken: "a1", RefreshToken: "r1", User: &domain.User{ID: 2},
	}})
	if _, err := manager.Login(context.Background(), "reader@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	resp := postJSON(t, server.URL+"/session/logout", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if snap := manager.Snapshot(); snap.State != app.StateUnauthenticated {
		t.Fatalf("expected logged out, got %v", snap.State)
	}
}
