package api

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxCommentLength = 1000

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// ResendConfirmationRequest is the body of POST /auth/resend-confirmation.
type ResendConfirmationRequest struct {
	Email string `json:"email"`
}

// UpdateProfileRequest is the body of PATCH /auth/profile. Absent fields are
// left unchanged.
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Validate rejects empty updates and blank values.
func (r *UpdateProfileRequest) Validate() error {
	if r.Username == nil && r.Email == nil {
		return fmt.Errorf("at least one of username or email is required")
	}
	if r.Username != nil && strings.TrimSpace(*r.Username) == "" {
		return fmt.Errorf("username must not be blank")
	}
	if r.Email != nil && strings.TrimSpace(*r.Email) == "" {
		return fmt.Errorf("email must not be blank")
	}
	return nil
}

// VerifyCallbackRequest is the body of POST /auth/verify-callback.
type VerifyCallbackRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// CreateReviewRequest is the body of POST /reviews.
type CreateReviewRequest struct {
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	KeyboardFrame string   `json:"keyboardFrame"`
	SwitchType    string   `json:"switchType"`
	KeycapType    string   `json:"keycapType"`
	DeskPad       string   `json:"deskPad,omitempty"`
	DeskType      string   `json:"deskType,omitempty"`
	SoundRating   float64  `json:"soundRating"`
	FeelRating    float64  `json:"feelRating"`
	OverallRating float64  `json:"overallRating"`
	Tags          []string `json:"tags,omitempty"`
}

// Validate checks required fields and rating bounds.
func (r *CreateReviewRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("content is required")
	}
	if strings.TrimSpace(r.KeyboardFrame) == "" {
		return fmt.Errorf("keyboardFrame is required")
	}
	if strings.TrimSpace(r.SwitchType) == "" {
		return fmt.Errorf("switchType is required")
	}
	if strings.TrimSpace(r.KeycapType) == "" {
		return fmt.Errorf("keycapType is required")
	}
	for name, rating := range map[string]float64{
		"soundRating":   r.SoundRating,
		"feelRating":    r.FeelRating,
		"overallRating": r.OverallRating,
	} {
		if rating < 0 || rating > 5 {
			return fmt.Errorf("%s must be between 0 and 5", name)
		}
	}
	return nil
}

// CreateCommentRequest is the body of POST /comments.
type CreateCommentRequest struct {
	ReviewID string `json:"reviewId"`
	Content  string `json:"content"`
}

// Validate checks required fields and the content length limit.
func (r *CreateCommentRequest) Validate() error {
	if strings.TrimSpace(r.ReviewID) == "" {
		return fmt.Errorf("reviewId is required")
	}
	return validateCommentContent(r.Content)
}

// UpdateCommentRequest is the body of PATCH /comments/{id}.
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// Validate checks the content length limit.
func (r *UpdateCommentRequest) Validate() error {
	return validateCommentContent(r.Content)
}

func validateCommentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return fmt.Errorf("content must be at most %d characters", maxCommentLength)
	}
	return nil
}
