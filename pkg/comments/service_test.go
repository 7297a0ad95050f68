package comments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keebreview/keebreview/pkg/apperrors"
	"github.com/keebreview/keebreview/pkg/auth"
	"github.com/keebreview/keebreview/pkg/observability"
)

type fakeStore struct {
	comments map[string]*Comment
}

func newFakeStore() *fakeStore {
	return &fakeStore{comments: map[string]*Comment{}}
}

func (f *fakeStore) Insert(ctx context.Context, comment *Comment) error {
	f.comments[comment.ID] = comment
	return nil
}

func (f *fakeStore) ListByReview(ctx context.Context, reviewID string) ([]*Comment, error) {
	result := []*Comment{}
	for _, c := range f.comments {
		if c.ReviewID == reviewID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (f *fakeStore) UpdateContent(ctx context.Context, id, userID, content string) (*Comment, error) {
	c, ok := f.comments[id]
	if !ok || c.UserID != userID {
		return nil, apperrors.NotFound("comment not found or not owned by caller")
	}
	c.Content = content
	c.UpdatedAt = time.Now().UTC()
	return c, nil
}

func (f *fakeStore) DeleteOwned(ctx context.Context, id, userID string) error {
	c, ok := f.comments[id]
	if !ok || c.UserID != userID {
		return apperrors.NotFound("comment not found or not owned by caller")
	}
	delete(f.comments, id)
	return nil
}

type fakeReviewChecker struct {
	existing map[string]bool
}

func (f *fakeReviewChecker) Exists(ctx context.Context, id string) (bool, error) {
	return f.existing[id], nil
}

func newService(store *fakeStore, existing ...string) *Service {
	checker := &fakeReviewChecker{existing: map[string]bool{}}
	for _, id := range existing {
		checker.existing[id] = true
	}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewService(store, checker, logger)
}

func testPrincipal() *auth.Principal {
	return &auth.Principal{ID: "user-1", Username: "keebfan", Email: "keebfan@example.com"}
}

func TestService_Create(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, "review-1")

	comment, err := svc.Create(context.Background(), "review-1", "Sounds thocky!", testPrincipal())
	require.NoError(t, err)

	assert.NotEmpty(t, comment.ID)
	assert.Equal(t, "review-1", comment.ReviewID)
	assert.Equal(t, "user-1", comment.UserID)
	require.NotNil(t, comment.User)
	assert.Equal(t, "keebfan", comment.User.Username)
	assert.Contains(t, store.comments, comment.ID)
}

func TestService_Create_ReviewMissing(t *testing.T) {
	svc := newService(newFakeStore())

	_, err := svc.Create(context.Background(), "missing", "Hello?", testPrincipal())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestService_FindByReview(t *testing.T) {
	store := newFakeStore()
	store.comments["comment-1"] = &Comment{ID: "comment-1", ReviewID: "review-1", UserID: "user-1"}
	svc := newService(store, "review-1")

	result, err := svc.FindByReview(context.Background(), "review-1")
	require.NoError(t, err)
	assert.Len(t, result, 1)
}

func TestService_FindByReview_ReviewMissing(t *testing.T) {
	svc := newService(newFakeStore())

	_, err := svc.FindByReview(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestService_Update(t *testing.T) {
	store := newFakeStore()
	store.comments["comment-1"] = &Comment{ID: "comment-1", ReviewID: "review-1", UserID: "user-1", Content: "Old."}
	svc := newService(store, "review-1")

	comment, err := svc.Update(context.Background(), "comment-1", "New.", testPrincipal())
	require.NoError(t, err)
	assert.Equal(t, "New.", comment.Content)
}

func TestService_Update_ForeignComment(t *testing.T) {
	store := newFakeStore()
	store.comments["comment-1"] = &Comment{ID: "comment-1", ReviewID: "review-1", UserID: "someone-else"}
	svc := newService(store, "review-1")

	_, err := svc.Update(context.Background(), "comment-1", "Hijacked.", testPrincipal())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestService_Remove(t *testing.T) {
	store := newFakeStore()
	store.comments["comment-1"] = &Comment{ID: "comment-1", ReviewID: "review-1", UserID: "user-1"}
	svc := newService(store, "review-1")

	require.NoError(t, svc.Remove(context.Background(), "comment-1", testPrincipal()))
	assert.Empty(t, store.comments)
}

func TestService_Remove_ForeignComment(t *testing.T) {
	store := newFakeStore()
	store.comments["comment-1"] = &Comment{ID: "comment-1", ReviewID: "review-1", UserID: "someone-else"}
	svc := newService(store, "review-1")

	err := svc.Remove(context.Background(), "comment-1", testPrincipal())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
	assert.Contains(t, store.comments, "comment-1")
}
