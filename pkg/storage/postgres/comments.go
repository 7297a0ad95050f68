package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keebreview/keebreview/pkg/apperrors"
	"github.com/keebreview/keebreview/pkg/comments"
)

// CommentStore implements comments.Store on PostgreSQL.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore creates a CommentStore.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

// Insert persists a comment row.
func (s *CommentStore) Insert(ctx context.Context, comment *comments.Comment) error {
	ctx, span := tracer.Start(ctx, "postgres.comments.insert",
		trace.WithAttributes(
			attribute.String("comment.id", comment.ID),
			attribute.String("review.id", comment.ReviewID),
		))
	defer span.End()

	query := `INSERT INTO comments (id, review_id, user_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		comment.ID, comment.ReviewID, comment.UserID, comment.Content,
		comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// ListByReview returns a review's comments oldest first, each joined with its
// author's profile when one exists.
func (s *CommentStore) ListByReview(ctx context.Context, reviewID string) ([]*comments.Comment, error) {
	ctx, span := tracer.Start(ctx, "postgres.comments.list_by_review",
		trace.WithAttributes(attribute.String("review.id", reviewID)))
	defer span.End()

	query := `SELECT c.id, c.review_id, c.user_id, c.content, c.created_at, c.updated_at,
			p.id, p.username, p.email
		FROM comments c
		LEFT JOIN profiles p ON p.id = c.user_id
		WHERE c.review_id = $1
		ORDER BY c.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, reviewID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	result := []*comments.Comment{}
	for rows.Next() {
		var (
			c        comments.Comment
			userID   sql.NullString
			username sql.NullString
			email    sql.NullString
		)
		err := rows.Scan(&c.ID, &c.ReviewID, &c.UserID, &c.Content,
			&c.CreatedAt, &c.UpdatedAt, &userID, &username, &email)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		if userID.Valid {
			c.User = &comments.Commenter{
				ID:       userID.String,
				Username: username.String,
				Email:    email.String,
			}
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return result, nil
}

// UpdateContent rewrites a comment's content, filtered by owner in the same
// statement. A missing row and a foreign row produce the same not-found
// error, so callers learn nothing about comments they do not own.
func (s *CommentStore) UpdateContent(ctx context.Context, id, userID, content string) (*comments.Comment, error) {
	ctx, span := tracer.Start(ctx, "postgres.comments.update_content",
		trace.WithAttributes(attribute.String("comment.id", id)))
	defer span.End()

	query := `UPDATE comments SET content = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING id, review_id, user_id, content, created_at, updated_at`

	var c comments.Comment
	err := s.db.QueryRowContext(ctx, query, id, userID, content).Scan(
		&c.ID, &c.ReviewID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("comment not found or not owned by caller")
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return &c, nil
}

// DeleteOwned deletes a comment, filtered by owner in the same statement.
func (s *CommentStore) DeleteOwned(ctx context.Context, id, userID string) error {
	ctx, span := tracer.Start(ctx, "postgres.comments.delete_owned",
		trace.WithAttributes(attribute.String("comment.id", id)))
	defer span.End()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM comments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("comment not found or not owned by caller")
	}
	return nil
}
