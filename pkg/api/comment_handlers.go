package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/keebreview/keebreview/pkg/comments"
	"github.com/keebreview/keebreview/pkg/httputil"
	"github.com/keebreview/keebreview/pkg/middleware"
	"github.com/keebreview/keebreview/pkg/observability"
)

// CommentHandlers handles comment HTTP requests. Comment responses use the
// {success, data, message} envelope.
type CommentHandlers struct {
	service *comments.Service
	guard   *middleware.AuthMiddleware
	logger  *observability.Logger
}

// NewCommentHandlers creates the comment handlers.
func NewCommentHandlers(service *comments.Service, guard *middleware.AuthMiddleware, logger *observability.Logger) *CommentHandlers {
	return &CommentHandlers{
		service: service,
		guard:   guard,
		logger:  logger,
	}
}

// RegisterRoutes registers comment routes.
func (h *CommentHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/comments", h.guard.Func(h.create)).Methods("POST")
	router.HandleFunc("/comments/review/{reviewId}", h.listByReview).Methods("GET")
	router.HandleFunc("/comments/{id}", h.guard.Func(h.update)).Methods("PATCH")
	router.HandleFunc("/comments/{id}", h.guard.Func(h.delete)).Methods("DELETE")
}

// create handles POST /comments.
func (h *CommentHandlers) create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req CreateCommentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	comment, err := h.service.Create(r.Context(), req.ReviewID, req.Content, principal)
	if err != nil {
		httputil.WriteEnvelopeError(w, err, "failed to create comment")
		return
	}
	httputil.WriteEnvelope(w, http.StatusCreated, comment, "comment created")
}

// listByReview handles GET /comments/review/{reviewId}.
func (h *CommentHandlers) listByReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.PathStringOrError(w, r, "reviewId")
	if !ok {
		return
	}

	result, err := h.service.FindByReview(r.Context(), reviewID)
	if err != nil {
		httputil.WriteEnvelopeError(w, err, "failed to list comments")
		return
	}
	httputil.WriteEnvelopeList(w, result, len(result))
}

// update handles PATCH /comments/{id}.
func (h *CommentHandlers) update(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.PathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateCommentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	comment, err := h.service.Update(r.Context(), id, req.Content, principal)
	if err != nil {
		httputil.WriteEnvelopeError(w, err, "failed to update comment")
		return
	}
	httputil.WriteEnvelope(w, http.StatusOK, comment, "comment updated")
}

// delete handles DELETE /comments/{id}.
func (h *CommentHandlers) delete(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.PathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), id, principal); err != nil {
		httputil.WriteEnvelopeError(w, err, "failed to delete comment")
		return
	}
	httputil.WriteEnvelope(w, http.StatusOK, nil, "comment deleted")
}
