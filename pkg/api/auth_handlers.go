package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/keebreview/keebreview/pkg/auth"
	"github.com/keebreview/keebreview/pkg/contextkeys"
	"github.com/keebreview/keebreview/pkg/httputil"
	"github.com/keebreview/keebreview/pkg/middleware"
	"github.com/keebreview/keebreview/pkg/observability"
)

// AuthHandlers handles authentication and profile HTTP requests.
type AuthHandlers struct {
	service *auth.Service
	guard   *middleware.AuthMiddleware
	logger  *observability.Logger
}

// NewAuthHandlers creates the auth handlers.
func NewAuthHandlers(service *auth.Service, guard *middleware.AuthMiddleware, logger *observability.Logger) *AuthHandlers {
	return &AuthHandlers{
		service: service,
		guard:   guard,
		logger:  logger,
	}
}

// RegisterRoutes registers authentication routes.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.register).Methods("POST")
	router.HandleFunc("/auth/login", h.login).Methods("POST")
	router.HandleFunc("/auth/logout", h.guard.Func(h.logout)).Methods("POST")
	router.HandleFunc("/auth/resend-confirmation", h.resendConfirmation).Methods("POST")
	router.HandleFunc("/auth/me", h.guard.Func(h.me)).Methods("GET")
	router.HandleFunc("/auth/profile", h.guard.Func(h.updateProfile)).Methods("PATCH")
	router.HandleFunc("/auth/callback", h.callbackPage).Methods("GET")
	router.HandleFunc("/auth/verify-callback", h.verifyCallback).Methods("POST")
}

// register handles POST /auth/register.
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	result, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, result)
}

// login handles POST /auth/login.
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// logout handles POST /auth/logout.
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	token := contextkeys.RawToken(r.Context())
	if err := h.service.Logout(r.Context(), token); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "logged out"})
}

// resendConfirmation handles POST /auth/resend-confirmation.
func (h *AuthHandlers) resendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req ResendConfirmationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	if err := h.service.ResendConfirmation(r.Context(), req.Email); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "confirmation email sent"})
}

// me handles GET /auth/me.
func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	result, err := h.service.CurrentUser(r.Context(), *principal)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// updateProfile handles PATCH /auth/profile. The update always targets the
// authenticated principal's own profile.
func (h *AuthHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req UpdateProfileRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), principal.ID, auth.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, profile)
}

// verifyCallback handles POST /auth/verify-callback, the server side of the
// email-confirmation redirect.
func (h *AuthHandlers) verifyCallback(w http.ResponseWriter, r *http.Request) {
	var req VerifyCallbackRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.AccessToken, "access_token") {
		return
	}

	result, err := h.service.VerifyCallback(r.Context(), req.AccessToken)
	if err != nil {
		httputil.WriteEnvelopeError(w, err, "email verification failed")
		return
	}
	httputil.WriteEnvelope(w, http.StatusOK, result, result.Message)
}
