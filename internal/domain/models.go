package domain

import "time"

// User is the account record returned by the ReadNex backend on login.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsStaff   bool   `json:"is_staff"`
}

// Credentials is the persisted session group. The three members are written
// and cleared together; a partial group is treated as logged out.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// Complete reports whether the group is sufficient to consider the session
// authenticated. Token presence is the whole check; expiry is not verified
// locally, a stored token is trusted until a backend call rejects it.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.User != nil
}

// Registration is the payload for creating a new account.
type Registration struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

// QuizQuestion is a single multiple-choice question. CorrectAnswer indexes
// into Options.
type QuizQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
	Category      string   `json:"category"`
}

// QuizAttempt is the immutable record of one completed pass through a
// question sequence.
type QuizAttempt struct {
	ID               string    `json:"id"`
	BookID           string    `json:"book_id"`
	UserID           string    `json:"user_id"`
	Score            int       `json:"score"`
	TotalQuestions   int       `json:"total_questions"`
	Percentage       int       `json:"percentage"`
	Passed           bool      `json:"passed"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	CompletedAt      time.Time `json:"completed_at"`
}

// Book is the catalogue record served by the backend book endpoints.
type Book struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	CoverURL    string `json:"cover_url"`
	Approved    bool   `json:"approved"`
}

// Review is a reader review attached to a book.
type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
