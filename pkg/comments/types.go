package comments

import (
	"context"
	"time"
)

// Commenter is the public view of a comment author.
type Commenter struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Comment belongs to exactly one review and one owner. Only the owner may
// update or delete it.
type Comment struct {
	ID        string     `json:"id"`
	ReviewID  string     `json:"reviewId"`
	UserID    string     `json:"userId"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	User      *Commenter `json:"user,omitempty"`
}

// Store is the persistence boundary for comments. Ownership-gated mutations
// filter by (id, userID) in one statement so a missing row and a foreign row
// are indistinguishable to callers.
type Store interface {
	Insert(ctx context.Context, comment *Comment) error
	ListByReview(ctx context.Context, reviewID string) ([]*Comment, error)
	UpdateContent(ctx context.Context, id, userID, content string) (*Comment, error)
	DeleteOwned(ctx context.Context, id, userID string) error
}
