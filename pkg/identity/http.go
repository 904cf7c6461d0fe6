package identity

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/common/models"
	gatewayauth "github.com/meridian-health/hms/pkg/gateway/auth"
	"github.com/meridian-health/hms/pkg/gateway/middleware"
)

type Handler struct {
	service     *Service
	tokenSigner *gatewayauth.JWTManager
	oidc        *gatewayauth.OIDCAuthenticator
}

func NewHandler(service *Service, tokenSigner *gatewayauth.JWTManager, oidc *gatewayauth.OIDCAuthenticator) *Handler {
	return &Handler{service: service, tokenSigner: tokenSigner, oidc: oidc}
}

// Register mounts the auth routes. Bootstrap and login are open; everything
// else requires a valid token.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/auth/bootstrap", h.handleBootstrap).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost)
	if h.oidc != nil {
		r.HandleFunc("/auth/oidc/authorize", h.handleOIDCAuthorize).Methods(http.MethodGet)
		r.HandleFunc("/auth/oidc/callback", h.handleOIDCCallback).Methods(http.MethodGet)
	}

	protected := r.NewRoute().Subrouter()
	protected.Use(middleware.Authenticate(h.tokenSigner))
	protected.HandleFunc("/auth/me", h.handleMe).Methods(http.MethodGet)
	protected.HandleFunc("/auth/register", h.handleRegister).Methods(http.MethodPost)
}

func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	user, err := h.service.Bootstrap(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		logger.Log.WithError(err).Warn("bootstrap failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := h.tokenSigner.IssueToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("issue token failed during bootstrap")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, models.AuthResponse{Token: token, User: user})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		logger.Log.WithError(err).Warn("authentication failed")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.tokenSigner.IssueToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("failed issuing token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, models.AuthResponse{Token: token, User: user})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if claims.Role != gatewayauth.RoleAdmin {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to register user")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to fetch user in /me")
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleOIDCAuthorize redirects the browser to the configured identity
// provider.
func (h *Handler) handleOIDCAuthorize(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		http.Error(w, "state required", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, h.oidc.AuthCodeURL(state), http.StatusFound)
}

// handleOIDCCallback exchanges the authorization code and issues a local
// token for the matching user. Users must already exist; OIDC does not
// self-provision accounts.
func (h *Handler) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "code required", http.StatusBadRequest)
		return
	}

	oauthToken, err := h.oidc.Exchange(r.Context(), code)
	if err != nil {
		logger.Log.WithError(err).Warn("oidc code exchange failed")
		http.Error(w, "invalid code", http.StatusUnauthorized)
		return
	}

	email, err := gatewayauth.SubjectEmail(oauthToken)
	if err != nil {
		logger.Log.WithError(err).Warn("oidc token missing identity")
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	user, err := h.service.LookupByEmail(r.Context(), email)
	if err != nil {
		logger.Log.WithError(err).Warn("oidc login for unknown user")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.tokenSigner.IssueToken(user)
	if err != nil {
		logger.Log.WithError(err).Error("failed issuing token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, models.AuthResponse{Token: token, User: user})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
