package api

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keebreview/keebreview/pkg/apperrors"
	"github.com/keebreview/keebreview/pkg/auth"
	"github.com/keebreview/keebreview/pkg/comments"
	"github.com/keebreview/keebreview/pkg/middleware"
	"github.com/keebreview/keebreview/pkg/observability"
	"github.com/keebreview/keebreview/pkg/reviews"
)

const (
	testSecret  = "0123456789abcdef0123456789abcdef"
	testHourTTL = time.Hour
)

type memProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*auth.Profile
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{profiles: map[string]*auth.Profile{}}
}

func (s *memProfileStore) Get(ctx context.Context, id string) (*auth.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, apperrors.NotFound("profile not found")
}

func (s *memProfileStore) Insert(ctx context.Context, profile *auth.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = profile
	return nil
}

func (s *memProfileStore) Update(ctx context.Context, id string, update auth.ProfileUpdate) (*auth.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, apperrors.NotFound("profile not found")
	}
	if update.Username != nil {
		p.Username = *update.Username
	}
	if update.Email != nil {
		p.Email = *update.Email
	}
	p.UpdatedAt = time.Now().UTC()
	copied := *p
	return &copied, nil
}

type memReviewStore struct {
	mu      sync.Mutex
	reviews map[string]*reviews.Review
}

func newMemReviewStore() *memReviewStore {
	return &memReviewStore{reviews: map[string]*reviews.Review{}}
}

func (s *memReviewStore) Insert(ctx context.Context, review *reviews.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[review.ID] = review
	return nil
}

func (s *memReviewStore) InsertScoped(ctx context.Context, review *reviews.Review) error {
	return s.Insert(ctx, review)
}

func (s *memReviewStore) Get(ctx context.Context, id string) (*reviews.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reviews[id]; ok {
		return r, nil
	}
	return nil, apperrors.NotFound("review not found")
}

func (s *memReviewStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reviews[id]
	return ok, nil
}

func (s *memReviewStore) List(ctx context.Context, limit, offset int) ([]*reviews.Review, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*reviews.Review, 0, len(s.reviews))
	for _, r := range s.reviews {
		all = append(all, r)
	}
	total := len(all)
	if offset >= len(all) {
		return []*reviews.Review{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *memReviewStore) ListByUser(ctx context.Context, userID string) ([]*reviews.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*reviews.Review{}
	for _, r := range s.reviews {
		if r.UserID == userID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *memReviewStore) Search(ctx context.Context, filter reviews.SearchFilter) ([]*reviews.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*reviews.Review{}
	for _, r := range s.reviews {
		if filter.KeyboardFrame != "" &&
			!strings.Contains(strings.ToLower(r.KeyboardFrame), strings.ToLower(filter.KeyboardFrame)) {
			continue
		}
		if len(filter.Tags) > 0 && !tagsOverlap(r.Tags, filter.Tags) {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

func tagsOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func (s *memReviewStore) DeleteCascade(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[id]; !ok {
		return apperrors.NotFound("review not found")
	}
	delete(s.reviews, id)
	return nil
}

type memMediaStore struct {
	mu    sync.Mutex
	media map[string]*reviews.Media
}

func newMemMediaStore() *memMediaStore {
	return &memMediaStore{media: map[string]*reviews.Media{}}
}

func (s *memMediaStore) Insert(ctx context.Context, media *reviews.Media) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media[media.ID] = media
	return nil
}

func (s *memMediaStore) ListByReview(ctx context.Context, reviewID string) ([]*reviews.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*reviews.Media{}
	for _, m := range s.media {
		if m.ReviewID == reviewID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (s *memMediaStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.media, id)
	return nil
}

type memBlobStore struct {
	mu      sync.Mutex
	objects map[string]string
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: map[string]string{}}
}

func (s *memBlobStore) Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = contentType
	return "https://cdn.test/" + key, nil
}

func (s *memBlobStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.objects, key)
	}
	return nil
}

func (s *memBlobStore) KeyFromURL(url string) string {
	return strings.TrimPrefix(url, "https://cdn.test/")
}

type memCommentStore struct {
	mu       sync.Mutex
	comments map[string]*comments.Comment
}

func newMemCommentStore() *memCommentStore {
	return &memCommentStore{comments: map[string]*comments.Comment{}}
}

func (s *memCommentStore) Insert(ctx context.Context, comment *comments.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = comment
	return nil
}

func (s *memCommentStore) ListByReview(ctx context.Context, reviewID string) ([]*comments.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*comments.Comment{}
	for _, c := range s.comments {
		if c.ReviewID == reviewID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *memCommentStore) UpdateContent(ctx context.Context, id, userID, content string) (*comments.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok || c.UserID != userID {
		return nil, apperrors.NotFound("comment not found or not owned by caller")
	}
	c.Content = content
	c.UpdatedAt = time.Now().UTC()
	return c, nil
}

func (s *memCommentStore) DeleteOwned(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok || c.UserID != userID {
		return apperrors.NotFound("comment not found or not owned by caller")
	}
	delete(s.comments, id)
	return nil
}

// fixture bundles the in-memory stores behind a fully wired test server.
type fixture struct {
	server       *Server
	verifier     *auth.LocalVerifier
	profiles     *memProfileStore
	reviewStore  *memReviewStore
	mediaStore   *memMediaStore
	blobStore    *memBlobStore
	commentStore *memCommentStore
	provider     *auth.ProviderClient
}

// newFixture wires a server the way main does, with in-memory stores, the
// local token verifier, and providerURL (may be empty) for the auth service.
func newFixture(t *testing.T, providerURL string) *fixture {
	t.Helper()

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	verifier, err := auth.NewLocalVerifier(testSecret)
	require.NoError(t, err)

	f := &fixture{
		verifier:     verifier,
		profiles:     newMemProfileStore(),
		reviewStore:  newMemReviewStore(),
		mediaStore:   newMemMediaStore(),
		blobStore:    newMemBlobStore(),
		commentStore: newMemCommentStore(),
	}
	f.provider = auth.NewProviderClient(providerURL, "anon-key")

	guard := middleware.NewAuthMiddleware(verifier, f.profiles, logger, nil)
	authService := auth.NewService(f.provider, verifier, f.profiles, logger)
	reviewService := reviews.NewService(f.reviewStore, f.mediaStore, f.blobStore, logger)
	commentService := comments.NewService(f.commentStore, f.reviewStore, logger)

	f.server = NewServer(nil, logger, observability.NewMetrics(),
		NewAuthHandlers(authService, guard, logger),
		NewReviewHandlers(reviewService, guard, logger),
		NewCommentHandlers(commentService, guard, logger),
	)
	return f
}

// token issues a bearer token for a user id and seeds a matching profile.
func (f *fixture) token(t *testing.T, id, username, email string) string {
	t.Helper()
	f.profiles.profiles[id] = &auth.Profile{
		ID:        id,
		Username:  username,
		Email:     email,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	token, err := f.verifier.IssueLocal(id, email, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}
