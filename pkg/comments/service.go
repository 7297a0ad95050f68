// Package comments implements review comments: creation, listing, and
// owner-gated edit and delete.
package comments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keebreview/keebreview/pkg/apperrors"
	"github.com/keebreview/keebreview/pkg/auth"
	"github.com/keebreview/keebreview/pkg/observability"
)

// ReviewChecker reports whether a review exists. Satisfied by the review
// store.
type ReviewChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Service implements comment operations over the store.
type Service struct {
	store   Store
	reviews ReviewChecker
	logger  *observability.Logger
}

// NewService creates a comment Service.
func NewService(store Store, reviews ReviewChecker, logger *observability.Logger) *Service {
	return &Service{
		store:   store,
		reviews: reviews,
		logger:  logger,
	}
}

// Create adds a comment to an existing review.
func (s *Service) Create(ctx context.Context, reviewID, content string, principal *auth.Principal) (*Comment, error) {
	exists, err := s.reviews.Exists(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to check review: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("review not found")
	}

	now := time.Now().UTC()
	comment := &Comment{
		ID:        uuid.New().String(),
		ReviewID:  reviewID,
		UserID:    principal.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
		User: &Commenter{
			ID:       principal.ID,
			Username: principal.Username,
			Email:    principal.Email,
		},
	}
	if err := s.store.Insert(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"comment_id": comment.ID,
		"review_id":  reviewID,
	}).Info("comment created")
	return comment, nil
}

// FindByReview returns a review's comments, oldest first.
func (s *Service) FindByReview(ctx context.Context, reviewID string) ([]*Comment, error) {
	exists, err := s.reviews.Exists(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to check review: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("review not found")
	}
	return s.store.ListByReview(ctx, reviewID)
}

// Update rewrites a comment's content. Only the owner succeeds; everyone
// else gets the same not-found error as for a missing comment.
func (s *Service) Update(ctx context.Context, id, content string, principal *auth.Principal) (*Comment, error) {
	comment, err := s.store.UpdateContent(ctx, id, principal.ID, content)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("comment_id", id).Info("comment updated")
	return comment, nil
}

// Remove deletes a comment. Only the owner succeeds.
func (s *Service) Remove(ctx context.Context, id string, principal *auth.Principal) error {
	if err := s.store.DeleteOwned(ctx, id, principal.ID); err != nil {
		return err
	}

	s.logger.WithField("comment_id", id).Info("comment deleted")
	return nil
}
