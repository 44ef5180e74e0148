package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"readnex-service/internal/domain"
)

// Fallback messages used when the backend error body carries no usable field.
const (
	fallbackLogin    = "Login failed. Please check your credentials and try again."
	fallbackRegister = "Registration failed. Please try again."
	fallbackGeneric  = "Something went wrong. Please try again."
)

// Client wraps the upstream ReadNex REST backend. It implements the session
// manager's AuthAPI and the plain book/review CRUD calls. Failed requests are
// normalized into *domain.APIError; the timeout policy for every call lives
// on the embedded http.Client.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for the access/refresh/user group.
func (c *Client) Login(ctx context.Context, email, password string) (domain.Credentials, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		Access  string       `json:"access"`
		Refresh string       `json:"refresh"`
		User    *domain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/login/", "", body, &out, fallbackLogin); err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{
		AccessToken:  out.Access,
		RefreshToken: out.Refresh,
		User:         out.User,
	}, nil
}

// Register creates an account; the created-user payload is not needed by the
// session layer, so it is discarded.
func (c *Client) Register(ctx context.Context, reg domain.Registration) error {
	return c.do(ctx, http.MethodPost, "/api/register/", "", reg, nil, fallbackRegister)
}

// Logout invalidates the refresh token server-side.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	return c.do(ctx, http.MethodPost, "/api/logout/", "", body, nil, fallbackGeneric)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/api/forgot-password/", "", body, nil, fallbackGeneric)
}

func (c *Client) ResetPassword(ctx context.Context, email, confirmationCode, newPassword string) error {
	body := map[string]string{
		"email":             email,
		"confirmation_code": confirmationCode,
		"new_password":      newPassword,
	}
	return c.do(ctx, http.MethodPost, "/api/reset-password/", "", body, nil, fallbackGeneric)
}

func (c *Client) ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword, confirmPassword string) error {
	body := map[string]string{
		"old_password":     oldPassword,
		"new_password":     newPassword,
		"confirm_password": confirmPassword,
	}
	return c.do(ctx, http.MethodPut, "/change-password/", accessToken, body, nil, fallbackGeneric)
}

// ListApprovedBooks returns the public library catalogue.
func (c *Client) ListApprovedBooks(ctx context.Context, accessToken string) ([]domain.Book, error) {
	var books []domain.Book
	err := c.do(ctx, http.MethodGet, "/api/list-approved-books", accessToken, nil, &books, fallbackGeneric)
	return books, err
}

func (c *Client) GetBook(ctx context.Context, accessToken, bookID string) (domain.Book, error) {
	var book domain.Book
	err := c.do(ctx, http.MethodGet, "/api/books/"+bookID+"/", accessToken, nil, &book, fallbackGeneric)
	return book, err
}

func (c *Client) ListReviews(ctx context.Context, accessToken, bookID string) ([]domain.Review, error) {
	var reviews []domain.Review
	err := c.do(ctx, http.MethodGet, "/api/books/"+bookID+"/reviews", accessToken, nil, &reviews, fallbackGeneric)
	return reviews, err
}

func (c *Client) AddReview(ctx context.Context, accessToken, bookID string, review domain.Review) error {
	return c.do(ctx, http.MethodPost, "/api/books/"+bookID+"/add_review/", accessToken, review, nil, fallbackGeneric)
}

// CreateUserBook submits a reader-contributed book pending admin approval.
func (c *Client) CreateUserBook(ctx context.Context, accessToken string, book domain.Book) error {
	return c.do(ctx, http.MethodPost, "/api/create-user-book/", accessToken, book, nil, fallbackGeneric)
}

// Admin moderation calls.

func (c *Client) ApproveBook(ctx context.Context, accessToken, bookID string) error {
	return c.do(ctx, http.MethodPost, "/api/admin/books/"+bookID+"/approve/", accessToken, nil, nil, fallbackGeneric)
}

func (c *Client) RejectBook(ctx context.Context, accessToken, bookID string) error {
	return c.do(ctx, http.MethodPost, "/api/admin/books/"+bookID+"/reject/", accessToken, nil, nil, fallbackGeneric)
}

func (c *Client) UpdateBook(ctx context.Context, accessToken string, book domain.Book) error {
	return c.do(ctx, http.MethodPut, "/api/admin/books/"+book.ID+"/edit/", accessToken, book, nil, fallbackGeneric)
}

func (c *Client) DeleteBook(ctx context.Context, accessToken, bookID string) error {
	return c.do(ctx, http.MethodDelete, "/api/admin/books/"+bookID+"/delete/", accessToken, nil, nil, fallbackGeneric)
}

// do issues one request and decodes the response into out (when non-nil).
// Non-2xx responses become *domain.APIError via the normalization priority
// list; transport failures become an "unavailable" APIError so callers handle
// a single error shape.
func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any, fallback string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.APIError{
			Kind:    domain.KindUnavailable,
			Message: fallback,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return domain.NormalizeErrorBody(resp.StatusCode, raw, fallback)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
