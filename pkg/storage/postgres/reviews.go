package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keebreview/keebreview/pkg/apperrors"
	"github.com/keebreview/keebreview/pkg/reviews"
)

// ReviewStore implements reviews.Store on PostgreSQL.
type ReviewStore struct {
	db *sql.DB
}

// NewReviewStore creates a ReviewStore.
func NewReviewStore(db *sql.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

const reviewColumns = `id, title, content, keyboard_frame, switch_type, keycap_type,
	desk_pad, desk_type, sound_rating, feel_rating, overall_rating, tags,
	user_id, created_at, updated_at`

const insertReviewQuery = `INSERT INTO reviews (id, title, content, keyboard_frame, switch_type,
		keycap_type, desk_pad, desk_type, sound_rating, feel_rating, overall_rating,
		tags, user_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

// Insert persists a review with service-level credentials.
func (s *ReviewStore) Insert(ctx context.Context, review *reviews.Review) error {
	ctx, span := tracer.Start(ctx, "postgres.reviews.insert",
		trace.WithAttributes(attribute.String("review.id", review.ID)))
	defer span.End()

	_, err := s.db.ExecContext(ctx, insertReviewQuery, reviewArgs(review)...)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// InsertScoped persists a review inside a transaction whose security context
// is attributed to the review's owner. Row-level policies read the setting
// app.current_user_id; SET LOCAL scope keeps it from leaking past the tx.
func (s *ReviewStore) InsertScoped(ctx context.Context, review *reviews.Review) error {
	ctx, span := tracer.Start(ctx, "postgres.reviews.insert_scoped",
		trace.WithAttributes(
			attribute.String("review.id", review.ID),
			attribute.String("review.user_id", review.UserID),
		))
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`SELECT set_config('app.current_user_id', $1, true)`, review.UserID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set caller scope: %w", err)
	}

	if _, err := tx.ExecContext(ctx, insertReviewQuery, reviewArgs(review)...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert review: %w", err)
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get returns a single review by ID.
func (s *ReviewStore) Get(ctx context.Context, id string) (*reviews.Review, error) {
	ctx, span := tracer.Start(ctx, "postgres.reviews.get",
		trace.WithAttributes(attribute.String("review.id", id)))
	defer span.End()

	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	review, err := scanReview(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("review not found")
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

// Exists reports whether a review row exists.
func (s *ReviewStore) Exists(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.reviews.exists",
		trace.WithAttributes(attribute.String("review.id", id)))
	defer span.End()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check review existence: %w", err)
	}
	return exists, nil
}

// List returns a page of reviews, newest first, plus the total row count.
func (s *ReviewStore) List(ctx context.Context, limit, offset int) ([]*reviews.Review, int, error) {
	ctx, span := tracer.Start(ctx, "postgres.reviews.list",
		trace.WithAttributes(
			attribute.Int("limit", limit),
			attribute.Int("offset", offset),
		))
	defer span.End()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	query := `SELECT ` + reviewColumns + ` FROM reviews ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	result, err := collectReviews(rows)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	return result, total, nil
}

// ListByUser returns all reviews owned by a user, newest first.
func (s *ReviewStore) ListByUser(ctx context.Context, userID string) ([]*reviews.Review, error) {
	ctx, span := tracer.Start(ctx, "postgres.reviews.list_by_user",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list reviews by user: %w", err)
	}
	defer rows.Close()

	result, err := collectReviews(rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// Search returns reviews matching every set filter field, newest first. Text
// fields match as case-insensitive substrings; tags match on any overlap.
func (s *ReviewStore) Search(ctx context.Context, filter reviews.SearchFilter) ([]*reviews.Review, error) {
	ctx, span := tracer.Start(ctx, "postgres.reviews.search")
	defer span.End()

	var (
		conds []string
		args  []interface{}
	)
	addCond := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, "%"+value+"%")
		conds = append(conds, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
	}
	addCond("keyboard_frame", filter.KeyboardFrame)
	addCond("switch_type", filter.SwitchType)
	addCond("keycap_type", filter.KeycapType)
	if len(filter.Tags) > 0 {
		args = append(args, pq.Array(filter.Tags))
		conds = append(conds, fmt.Sprintf("tags && $%d", len(args)))
	}

	query := `SELECT ` + reviewColumns + ` FROM reviews`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search reviews: %w", err)
	}
	defer rows.Close()

	result, err := collectReviews(rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// DeleteCascade removes a review together with its comment and media rows in
// one transaction. Blob cleanup happens before this call.
func (s *ReviewStore) DeleteCascade(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.reviews.delete_cascade",
		trace.WithAttributes(attribute.String("review.id", id)))
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM review_media WHERE review_id = $1`, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete review media: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE review_id = $1`, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete review comments: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("review not found")
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func reviewArgs(r *reviews.Review) []interface{} {
	return []interface{}{
		r.ID, r.Title, r.Content, r.KeyboardFrame, r.SwitchType, r.KeycapType,
		r.DeskPad, r.DeskType, r.SoundRating, r.FeelRating, r.OverallRating,
		pq.Array(r.Tags), r.UserID, r.CreatedAt, r.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanReview tolerates NULLs in optional and numeric columns left behind by
// older writers, substituting zero values.
func scanReview(row rowScanner) (*reviews.Review, error) {
	var (
		r        reviews.Review
		deskPad  sql.NullString
		deskType sql.NullString
		sound    sql.NullFloat64
		feel     sql.NullFloat64
		overall  sql.NullFloat64
		tags     []string
	)
	err := row.Scan(
		&r.ID, &r.Title, &r.Content, &r.KeyboardFrame, &r.SwitchType, &r.KeycapType,
		&deskPad, &deskType, &sound, &feel, &overall, pq.Array(&tags),
		&r.UserID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.DeskPad = deskPad.String
	r.DeskType = deskType.String
	r.SoundRating = sound.Float64
	r.FeelRating = feel.Float64
	r.OverallRating = overall.Float64
	r.Tags = tags
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return &r, nil
}

func collectReviews(rows *sql.Rows) ([]*reviews.Review, error) {
	result := []*reviews.Review{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		result = append(result, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return result, nil
}
