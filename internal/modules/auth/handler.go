package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/auth/login", h.login)
}

type loginRequest struct {
	Passcode string `json:"passcode"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	token, err := h.service.Login(r.Context(), req.Passcode)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		respond(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrDisabled):
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		h.logger.Error("login failed", zap.Error(err))
		respond(w, http.StatusInternalServerError, map[string]string{"error": "could not issue token"})
	default:
		respond(w, http.StatusOK, map[string]string{"token": token})
	}
}

// Middleware rejects requests without a valid bearer token. It is a no-op when auth is disabled.
func Middleware(service Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !service.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			if _, err := service.Verify(bearerToken(r)); err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				respond(w, http.StatusUnauthorized, map[string]string{"error": ErrInvalidToken.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
