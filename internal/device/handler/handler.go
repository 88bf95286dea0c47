package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rangerwatch/pkg/platform/httputil"
)

// Service defines the device operations the HTTP layer needs.
type Service interface {
	Register(ctx context.Context) (int64, error)
}

// Handler wires the device registration endpoint to the device service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the device endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/anon", h.HandleRegister)
}

// HandleRegister handles POST /api/anon requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := h.service.Register(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "device registration failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]int64{"anon_user_number": n})
}
