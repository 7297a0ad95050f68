// Package storage holds the configuration shared by the persistence
// backends: PostgreSQL for rows, S3 for media blobs, and Redis for the
// profile cache. The store interfaces themselves live with their consumers
// (pkg/auth, pkg/reviews, pkg/comments); pkg/storage/postgres implements
// them.
package storage

import "time"

// Config for the storage backends. Loaded from the environment by
// pkg/config; one set of clients is constructed at startup and injected.
type Config struct {
	// PostgreSQL
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	// S3 (media blobs). Optional: when Bucket is empty, media upload is
	// disabled and the rest of the service runs normally.
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
	// S3PublicBaseURL is the prefix public media URLs are built from, e.g.
	// a CDN domain. Defaults to the endpoint+bucket when empty.
	S3PublicBaseURL string

	// Redis (profile cache). Optional: when RedisURL is empty, profile
	// lookups always hit PostgreSQL.
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	ProfileCacheTTL time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		S3Region:         "us-east-1",
		ProfileCacheTTL:  5 * time.Minute,
	}
}
