package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keebreview/keebreview/pkg/apperrors"
	"github.com/keebreview/keebreview/pkg/reviews"
)

// MediaStore implements reviews.MediaStore on PostgreSQL.
type MediaStore struct {
	db *sql.DB
}

// NewMediaStore creates a MediaStore.
func NewMediaStore(db *sql.DB) *MediaStore {
	return &MediaStore{db: db}
}

// Insert persists a media row.
func (s *MediaStore) Insert(ctx context.Context, media *reviews.Media) error {
	ctx, span := tracer.Start(ctx, "postgres.media.insert",
		trace.WithAttributes(
			attribute.String("media.id", media.ID),
			attribute.String("review.id", media.ReviewID),
		))
	defer span.End()

	query := `INSERT INTO review_media (id, review_id, file_url, file_type, file_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		media.ID, media.ReviewID, media.URL, media.MimeType, media.Size, media.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert media: %w", err)
	}
	return nil
}

// ListByReview returns a review's media rows, oldest first.
func (s *MediaStore) ListByReview(ctx context.Context, reviewID string) ([]*reviews.Media, error) {
	ctx, span := tracer.Start(ctx, "postgres.media.list_by_review",
		trace.WithAttributes(attribute.String("review.id", reviewID)))
	defer span.End()

	query := `SELECT id, review_id, file_url, file_type, file_size, created_at
		FROM review_media WHERE review_id = $1 ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, reviewID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	result := []*reviews.Media{}
	for rows.Next() {
		var m reviews.Media
		err := rows.Scan(&m.ID, &m.ReviewID, &m.URL, &m.MimeType, &m.Size, &m.CreatedAt)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate media: %w", err)
	}
	return result, nil
}

// Delete removes a single media row.
func (s *MediaStore) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.media.delete",
		trace.WithAttributes(attribute.String("media.id", id)))
	defer span.End()

	result, err := s.db.ExecContext(ctx, `DELETE FROM review_media WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete media: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("media not found")
	}
	return nil
}
