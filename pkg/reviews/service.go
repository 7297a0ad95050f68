// Package reviews implements the keyboard review lifecycle: creation,
// listing, search, media attachments, and owner-gated deletion.
package reviews

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/keebreview/keebreview/pkg/apperrors"
	"github.com/keebreview/keebreview/pkg/auth"
	"github.com/keebreview/keebreview/pkg/observability"
)

// CreateInput carries the caller-supplied fields of a new review.
type CreateInput struct {
	Title         string
	Content       string
	KeyboardFrame string
	SwitchType    string
	KeycapType    string
	DeskPad       string
	DeskType      string
	SoundRating   float64
	FeelRating    float64
	OverallRating float64
	Tags          []string
}

// Upload is one file in a media upload batch.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Page is one page of reviews plus the total count across all pages.
type Page struct {
	Reviews []*Review
	Total   int
}

// Service implements review operations over the stores.
type Service struct {
	store  Store
	media  MediaStore
	blobs  BlobStore
	logger *observability.Logger
}

// NewService creates a review Service. blobs may be nil, which disables
// media upload while leaving the rest of the service functional.
func NewService(store Store, media MediaStore, blobs BlobStore, logger *observability.Logger) *Service {
	return &Service{
		store:  store,
		media:  media,
		blobs:  blobs,
		logger: logger,
	}
}

// Create persists a new review owned by the caller. When the caller's raw
// bearer token is available the insert runs caller-scoped, so store-side
// row policies see the owner; otherwise it falls back to a service-level
// insert with the owner recorded explicitly.
func (s *Service) Create(ctx context.Context, input CreateInput, principal *auth.Principal, rawToken string) (*Review, error) {
	now := time.Now().UTC()
	review := &Review{
		ID:            uuid.New().String(),
		Title:         input.Title,
		Content:       input.Content,
		KeyboardFrame: input.KeyboardFrame,
		SwitchType:    input.SwitchType,
		KeycapType:    input.KeycapType,
		DeskPad:       input.DeskPad,
		DeskType:      input.DeskType,
		SoundRating:   input.SoundRating,
		FeelRating:    input.FeelRating,
		OverallRating: input.OverallRating,
		Tags:          input.Tags,
		UserID:        principal.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if review.Tags == nil {
		review.Tags = []string{}
	}

	var err error
	if rawToken != "" {
		err = s.store.InsertScoped(ctx, review)
	} else {
		err = s.store.Insert(ctx, review)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"review_id": review.ID,
		"user_id":   principal.ID,
	}).Info("review created")
	return review, nil
}

// FindAll returns one page of reviews, newest first. Page numbers start at
// 1; out-of-range values are clamped to defaults.
func (s *Service) FindAll(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	result, total, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return &Page{Reviews: result, Total: total}, nil
}

// FindOne returns a single review.
func (s *Service) FindOne(ctx context.Context, id string) (*Review, error) {
	return s.store.Get(ctx, id)
}

// FindByUser returns all reviews owned by a user, newest first.
func (s *Service) FindByUser(ctx context.Context, userID string) ([]*Review, error) {
	return s.store.ListByUser(ctx, userID)
}

// Search returns reviews matching the filter, newest first.
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]*Review, error) {
	return s.store.Search(ctx, filter)
}

// UploadMedia attaches files to a review the caller owns. The batch is
// all-or-nothing: uploads run concurrently, and if any file fails to reach
// blob storage or the database, every blob and row created by the batch is
// rolled back before the error returns.
func (s *Service) UploadMedia(ctx context.Context, reviewID string, uploads []Upload, principal *auth.Principal) ([]*Media, error) {
	if s.blobs == nil {
		return nil, apperrors.Internal("media storage is not configured")
	}
	if len(uploads) == 0 {
		return nil, apperrors.InvalidArg("no files provided")
	}

	review, err := s.store.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != principal.ID {
		return nil, apperrors.Forbidden("only the review owner may attach media")
	}

	var (
		mu       sync.Mutex
		uploaded []string
		inserted []string
		result   []*Media
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, upload := range uploads {
		upload := upload
		g.Go(func() error {
			key := fmt.Sprintf("reviews/%s/%s-%s", reviewID, uuid.New().String(), upload.Filename)
			url, err := s.blobs.Put(gctx, key, upload.Content, upload.ContentType)
			if err != nil {
				return err
			}
			mu.Lock()
			uploaded = append(uploaded, key)
			mu.Unlock()

			media := &Media{
				ID:        uuid.New().String(),
				ReviewID:  reviewID,
				URL:       url,
				MimeType:  upload.ContentType,
				Size:      upload.Size,
				CreatedAt: time.Now().UTC(),
			}
			if err := s.media.Insert(gctx, media); err != nil {
				return err
			}
			mu.Lock()
			inserted = append(inserted, media.ID)
			result = append(result, media)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.rollbackUploads(ctx, uploaded, inserted)
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"review_id": reviewID,
		"files":     len(result),
	}).Info("media uploaded")
	return result, nil
}

// rollbackUploads undoes the partial work of a failed batch. Rollback runs
// on a fresh context so a canceled request still cleans up.
func (s *Service) rollbackUploads(ctx context.Context, keys []string, mediaIDs []string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for _, id := range mediaIDs {
		if err := s.media.Delete(cleanupCtx, id); err != nil {
			s.logger.WithError(err).WithField("media_id", id).Warn("failed to roll back media row")
		}
	}
	if len(keys) > 0 {
		if err := s.blobs.Delete(cleanupCtx, keys...); err != nil {
			s.logger.WithError(err).Warn("failed to roll back uploaded blobs")
		}
	}
}

// Delete removes a review the caller owns, together with its comments,
// media rows, and media blobs. Blobs go first: leftover rows pointing at
// deleted blobs are recoverable, orphaned blobs are not discoverable.
func (s *Service) Delete(ctx context.Context, id string, principal *auth.Principal) error {
	review, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if review.UserID != principal.ID {
		return apperrors.Forbidden("only the review owner may delete it")
	}

	media, err := s.media.ListByReview(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list review media: %w", err)
	}
	if len(media) > 0 && s.blobs != nil {
		keys := make([]string, 0, len(media))
		for _, m := range media {
			keys = append(keys, s.blobs.KeyFromURL(m.URL))
		}
		if err := s.blobs.Delete(ctx, keys...); err != nil {
			return fmt.Errorf("failed to delete media blobs: %w", err)
		}
	}

	if err := s.store.DeleteCascade(ctx, id); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"review_id": id,
		"user_id":   principal.ID,
	}).Info("review deleted")
	return nil
}
