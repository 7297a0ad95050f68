package reviews

import (
	"context"
	"io"
	"time"
)

// Review is a keyboard review. Only the identity recorded in UserID may
// update or delete it.
type Review struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	KeyboardFrame string    `json:"keyboardFrame"`
	SwitchType    string    `json:"switchType"`
	KeycapType    string    `json:"keycapType"`
	DeskPad       string    `json:"deskPad,omitempty"`
	DeskType      string    `json:"deskType,omitempty"`
	SoundRating   float64   `json:"soundRating"`
	FeelRating    float64   `json:"feelRating"`
	OverallRating float64   `json:"overallRating"`
	Tags          []string  `json:"tags"`
	UserID        string    `json:"userId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Media is a file attached to a review. Rows cascade with their review.
type Media struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"reviewId"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// SearchFilter narrows a review search. Zero-valued fields are no-ops; set
// fields AND-combine. Text fields match case-insensitive substrings; Tags
// matches any overlap with the review's tag set.
type SearchFilter struct {
	KeyboardFrame string
	SwitchType    string
	KeycapType    string
	Tags          []string
}

// Store is the persistence boundary for reviews. Implemented by
// pkg/storage/postgres.
type Store interface {
	// Insert persists a review with service-level credentials.
	Insert(ctx context.Context, review *Review) error
	// InsertScoped persists a review inside a transaction whose security
	// context is attributed to the review's owner, so store-side row-level
	// policies evaluate against the caller.
	InsertScoped(ctx context.Context, review *Review) error
	Get(ctx context.Context, id string) (*Review, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*Review, int, error)
	ListByUser(ctx context.Context, userID string) ([]*Review, error)
	Search(ctx context.Context, filter SearchFilter) ([]*Review, error)
	// DeleteCascade removes the review row together with its comment and
	// media rows in one transaction.
	DeleteCascade(ctx context.Context, id string) error
}

// MediaStore is the persistence boundary for media rows.
type MediaStore interface {
	Insert(ctx context.Context, media *Media) error
	ListByReview(ctx context.Context, reviewID string) ([]*Media, error)
	Delete(ctx context.Context, id string) error
}

// BlobStore is the byte storage behind media URLs.
type BlobStore interface {
	Put(ctx context.Context, key string, content io.Reader, contentType string) (url string, err error)
	Delete(ctx context.Context, keys ...string) error
	// KeyFromURL recovers the storage key a public URL was built from.
	KeyFromURL(url string) string
}
