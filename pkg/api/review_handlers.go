package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/keebreview/keebreview/pkg/contextkeys"
	"github.com/keebreview/keebreview/pkg/httputil"
	"github.com/keebreview/keebreview/pkg/middleware"
	"github.com/keebreview/keebreview/pkg/observability"
	"github.com/keebreview/keebreview/pkg/reviews"
)

// 32 MiB, matching the largest expected typing-test clip.
const maxUploadMemory = 32 << 20

// ReviewHandlers handles review and media HTTP requests.
type ReviewHandlers struct {
	service *reviews.Service
	guard   *middleware.AuthMiddleware
	logger  *observability.Logger
}

// NewReviewHandlers creates the review handlers.
func NewReviewHandlers(service *reviews.Service, guard *middleware.AuthMiddleware, logger *observability.Logger) *ReviewHandlers {
	return &ReviewHandlers{
		service: service,
		guard:   guard,
		logger:  logger,
	}
}

// RegisterRoutes registers review routes. The static /reviews/search and
// /reviews/user prefixes register before /reviews/{id} so mux does not
// swallow them as ids.
func (h *ReviewHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/reviews", h.guard.Func(h.create)).Methods("POST")
	router.HandleFunc("/reviews", h.list).Methods("GET")
	router.HandleFunc("/reviews/search", h.search).Methods("GET")
	router.HandleFunc("/reviews/user/{userId}", h.listByUser).Methods("GET")
	router.HandleFunc("/reviews/{id}", h.get).Methods("GET")
	router.HandleFunc("/reviews/{id}", h.guard.Func(h.delete)).Methods("DELETE")
	router.HandleFunc("/reviews/{id}/media", h.guard.Func(h.uploadMedia)).Methods("POST")
}

// create handles POST /reviews.
func (h *ReviewHandlers) create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req CreateReviewRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	rawToken := contextkeys.RawToken(r.Context())
	review, err := h.service.Create(r.Context(), reviews.CreateInput{
		Title:         req.Title,
		Content:       req.Content,
		KeyboardFrame: req.KeyboardFrame,
		SwitchType:    req.SwitchType,
		KeycapType:    req.KeycapType,
		DeskPad:       req.DeskPad,
		DeskType:      req.DeskType,
		SoundRating:   req.SoundRating,
		FeelRating:    req.FeelRating,
		OverallRating: req.OverallRating,
		Tags:          req.Tags,
	}, principal, rawToken)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, review)
}

// list handles GET /reviews?page=&limit=.
func (h *ReviewHandlers) list(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParseQueryInt(r, "page", 1)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	limit, err := httputil.ParseQueryInt(r, "limit", 10)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.FindAll(r.Context(), page, limit)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"reviews": result.Reviews,
		"total":   result.Total,
	})
}

// search handles GET /reviews/search.
func (h *ReviewHandlers) search(w http.ResponseWriter, r *http.Request) {
	filter := reviews.SearchFilter{
		KeyboardFrame: httputil.ParseQueryString(r, "keyboardFrame", ""),
		SwitchType:    httputil.ParseQueryString(r, "switchType", ""),
		KeycapType:    httputil.ParseQueryString(r, "keycapType", ""),
	}
	if tags := httputil.ParseQueryString(r, "tags", ""); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}

	result, err := h.service.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// listByUser handles GET /reviews/user/{userId}.
func (h *ReviewHandlers) listByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.PathStringOrError(w, r, "userId")
	if !ok {
		return
	}

	result, err := h.service.FindByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// get handles GET /reviews/{id}.
func (h *ReviewHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathStringOrError(w, r, "id")
	if !ok {
		return
	}

	review, err := h.service.FindOne(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, review)
}

// delete handles DELETE /reviews/{id}.
func (h *ReviewHandlers) delete(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.PathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, principal); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "review deleted"})
}

// uploadMedia handles POST /reviews/{id}/media with multipart form files
// under the "files" field.
func (h *ReviewHandlers) uploadMedia(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	id, ok := httputil.PathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httputil.WriteBadRequest(w, "invalid multipart form: "+err.Error())
		return
	}
	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		httputil.WriteBadRequest(w, "no files provided")
		return
	}

	uploads := make([]reviews.Upload, 0, len(fileHeaders))
	var opened []interface{ Close() error }
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range fileHeaders {
		file, err := fh.Open()
		if err != nil {
			httputil.WriteBadRequest(w, "unreadable file: "+fh.Filename)
			return
		}
		opened = append(opened, file)
		uploads = append(uploads, reviews.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     file,
		})
	}

	result, err := h.service.UploadMedia(r.Context(), id, uploads, principal)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, result)
}
