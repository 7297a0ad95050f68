package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keebreview/keebreview/pkg/apperrors"
	"github.com/keebreview/keebreview/pkg/auth"
)

// ProfileStore implements auth.ProfileStore on PostgreSQL.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a ProfileStore.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Get returns the profile for an identity ID.
func (s *ProfileStore) Get(ctx context.Context, id string) (*auth.Profile, error) {
	ctx, span := tracer.Start(ctx, "postgres.profiles.get",
		trace.WithAttributes(attribute.String("profile.id", id)))
	defer span.End()

	query := `SELECT id, username, email, created_at, updated_at FROM profiles WHERE id = $1`

	var p auth.Profile
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Username, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("profile not found")
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// Insert creates a profile row for a freshly registered identity.
func (s *ProfileStore) Insert(ctx context.Context, profile *auth.Profile) error {
	ctx, span := tracer.Start(ctx, "postgres.profiles.insert",
		trace.WithAttributes(attribute.String("profile.id", profile.ID)))
	defer span.End()

	query := `INSERT INTO profiles (id, username, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		profile.ID, profile.Username, profile.Email, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// Update applies a partial profile update and returns the updated row.
func (s *ProfileStore) Update(ctx context.Context, id string, update auth.ProfileUpdate) (*auth.Profile, error) {
	ctx, span := tracer.Start(ctx, "postgres.profiles.update",
		trace.WithAttributes(attribute.String("profile.id", id)))
	defer span.End()

	query := `UPDATE profiles SET
			username = COALESCE($2, username),
			email = COALESCE($3, email),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, username, email, created_at, updated_at`

	var p auth.Profile
	err := s.db.QueryRowContext(ctx, query, id, update.Username, update.Email).Scan(
		&p.ID, &p.Username, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("profile not found")
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &p, nil
}
