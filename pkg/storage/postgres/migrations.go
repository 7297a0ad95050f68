package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create profiles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS profiles (
					id UUID PRIMARY KEY,
					username VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_profiles_email ON profiles(email);
			`,
		},
		{
			Version:     2,
			Description: "Create reviews table",
			SQL: `
				CREATE TABLE IF NOT EXISTS reviews (
					id UUID PRIMARY KEY,
					title VARCHAR(255) NOT NULL,
					content TEXT NOT NULL,
					keyboard_frame VARCHAR(255) NOT NULL,
					switch_type VARCHAR(255) NOT NULL,
					keycap_type VARCHAR(255) NOT NULL,
					desk_pad VARCHAR(255),
					desk_type VARCHAR(255),
					sound_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
					feel_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
					overall_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
					tags TEXT[] NOT NULL DEFAULT '{}',
					user_id UUID NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_reviews_user_id ON reviews(user_id);
				CREATE INDEX idx_reviews_created_at ON reviews(created_at DESC);
				CREATE INDEX idx_reviews_tags ON reviews USING GIN(tags);
			`,
		},
		{
			Version:     3,
			Description: "Create comments table",
			SQL: `
				CREATE TABLE IF NOT EXISTS comments (
					id UUID PRIMARY KEY,
					review_id UUID NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
					user_id UUID NOT NULL,
					content TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_comments_review_id ON comments(review_id);
				CREATE INDEX idx_comments_user_id ON comments(user_id);
			`,
		},
		{
			Version:     4,
			Description: "Create review_media table",
			SQL: `
				CREATE TABLE IF NOT EXISTS review_media (
					id UUID PRIMARY KEY,
					review_id UUID NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
					file_url TEXT NOT NULL,
					file_type VARCHAR(255) NOT NULL,
					file_size BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_review_media_review_id ON review_media(review_id);
			`,
		},
	}
}

// RunMigrations applies all pending migrations, each in its own transaction.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate migrations: %w", err)
	}

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
