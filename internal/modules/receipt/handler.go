package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/georgemunganga/pantry-backend/internal/modules/inventory"
	"github.com/georgemunganga/pantry-backend/internal/modules/ocr"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Importer merges recognised product names into the inventory.
type Importer interface {
	ImportCandidates(ctx context.Context, names []string) (*inventory.ImportResult, error)
}

// Handler exposes the receipt session over HTTP for the browser front end.
type Handler struct {
	manager  *Manager
	importer Importer
	logger   *zap.Logger
}

func NewHandler(manager *Manager, importer Importer, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, importer: importer, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/receipt/session", func(r chi.Router) {
		r.Post("/", h.start)
		r.Get("/", h.state)
		r.Delete("/", h.end)
		r.Post("/retry", h.withSession(func(r *http.Request, s *Session) error { return s.Retry(r.Context()) }))
		r.Post("/capture", h.withSession(func(r *http.Request, s *Session) error { return s.Capture(r.Context()) }))
		r.Post("/retake", h.withSession(func(r *http.Request, s *Session) error { return s.Retake(r.Context()) }))
		r.Post("/accept", h.withSession(func(r *http.Request, s *Session) error { return s.Accept() }))
		r.Post("/clear-error", h.withSession(func(r *http.Request, s *Session) error { return s.ClearError() }))
		r.Post("/cancel", h.withSession(func(r *http.Request, s *Session) error { return s.CancelToCamera(r.Context()) }))
		r.Post("/process", h.process)
	})
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Start(r.Context())
	if err != nil {
		h.fail(w, err, s)
		return
	}
	respond(w, http.StatusCreated, s.State())
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Current()
	if err != nil {
		h.fail(w, err, nil)
		return
	}
	respond(w, http.StatusOK, s.State())
}

func (h *Handler) end(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.End(); err != nil {
		h.fail(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// withSession runs op on the active session and responds with its new state.
func (h *Handler) withSession(op func(*http.Request, *Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.manager.Current()
		if err != nil {
			h.fail(w, err, nil)
			return
		}
		if err := op(r, s); err != nil {
			h.fail(w, err, s)
			return
		}
		respond(w, http.StatusOK, s.State())
	}
}

type processRequest struct {
	// Image is an optional data URL; the captured photo is used when empty.
	Image  string `json:"image"`
	Import bool   `json:"import"`
}

type processResponse struct {
	State      State                   `json:"state"`
	Candidates []ocr.Candidate         `json:"candidates"`
	Import     *inventory.ImportResult `json:"import,omitempty"`
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Current()
	if err != nil {
		h.fail(w, err, nil)
		return
	}
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var img *ocr.Image
	if req.Image != "" {
		parsed, err := ocr.ParseDataURL(req.Image)
		if err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		img = &parsed
	}

	outcome, err := s.ProcessReceiptWithOCR(r.Context(), img)
	if err != nil {
		h.fail(w, err, s)
		return
	}
	resp := processResponse{Candidates: outcome.Candidates}
	if req.Import {
		result, err := h.importer.ImportCandidates(r.Context(), ocr.Names(outcome.Candidates))
		if err != nil {
			h.logger.Error("failed to import receipt", zap.Error(err))
			respond(w, http.StatusInternalServerError, map[string]interface{}{
				"error": err.Error(), "state": s.State(), "import": result,
			})
			return
		}
		resp.Import = result
	}
	resp.State = s.State()
	respond(w, http.StatusOK, resp)
}

// fail maps session errors onto HTTP status codes and includes the session state when there is one.
func (h *Handler) fail(w http.ResponseWriter, err error, s *Session) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNoSession):
		status = http.StatusNotFound
	case errors.Is(err, ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, ErrDeviceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrNoImage),
		errors.Is(err, ErrSessionEnded), errors.Is(err, ErrSuperseded):
		status = http.StatusConflict
	case errors.Is(err, ocr.ErrOCR):
		status = http.StatusBadGateway
	default:
		h.logger.Error("receipt request failed", zap.Error(err))
	}
	body := map[string]interface{}{"error": err.Error()}
	if s != nil {
		body["state"] = s.State()
	}
	respond(w, status, body)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
