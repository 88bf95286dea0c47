package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"rangerwatch/internal/sighting/models"
	id "rangerwatch/pkg/domain"
	dErrors "rangerwatch/pkg/domain-errors"
	"rangerwatch/pkg/platform/httputil"
	"rangerwatch/pkg/requestcontext"
)

// Service defines the sighting operations the HTTP layer needs.
type Service interface {
	SubmitSighting(ctx context.Context, req *models.CreateSightingRequest) (*models.EnrichedSighting, error)
	SubmitCheckin(ctx context.Context, req *models.CheckinRequest) (models.CheckinAggregate, error)
	ListActive(ctx context.Context, q models.ListQuery) ([]models.EnrichedSighting, error)
	FindNearby(ctx context.Context, lat, lng float64) (models.NearbyResult, error)
	SoftDelete(ctx context.Context, rawSightingID string) (id.SightingID, error)
	GetAdmin(ctx context.Context, rawSightingID string) (*models.Sighting, error)
}

// Handler wires sighting endpoints to the sighting service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a sighting handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the public sighting endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/sightings", h.HandleList)
	r.Post("/api/sightings", h.HandleSubmit)
	r.Get("/api/nearby", h.HandleNearby)
	r.Post("/api/checkins", h.HandleCheckin)
}

// RegisterAdmin mounts the admin endpoints. The caller is expected to guard
// the subtree with admin auth middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/api/admin/delete", h.HandleAdminDelete)
	r.Get("/api/admin/sightings/{sightingID}", h.HandleAdminGet)
}

// HandleList handles GET /api/sightings requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := models.ListQuery{
		Range:    models.FilterRange(r.URL.Query().Get("range")),
		Recently: r.URL.Query().Get("recently") == "1",
	}

	list, err := h.service.ListActive(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "list sightings failed",
			"request_id", requestcontext.RequestID(ctx),
			"range", r.URL.Query().Get("range"),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, list)
}

// HandleSubmit handles POST /api/sightings requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req models.CreateSightingRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	created, err := h.service.SubmitSighting(ctx, &req)
	if err != nil {
		h.writeRejection(ctx, w, "sighting submission rejected", err)
		return
	}

	h.logger.InfoContext(ctx, "sighting created",
		"request_id", requestcontext.RequestID(ctx),
		"sighting_id", created.ID,
		"tag", created.Tag,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, created)
}

// HandleNearby handles GET /api/nearby requests.
func (h *Handler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "lat and lng query parameters are required"))
		return
	}

	res, err := h.service.FindNearby(ctx, lat, lng)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleCheckin handles POST /api/checkins requests.
func (h *Handler) HandleCheckin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CheckinRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	agg, err := h.service.SubmitCheckin(ctx, &req)
	if err != nil {
		h.writeRejection(ctx, w, "checkin rejected", err)
		return
	}

	h.logger.InfoContext(ctx, "checkin created",
		"request_id", requestcontext.RequestID(ctx),
		"sighting_id", req.SightingID,
		"checkin_count", agg.CheckinCount,
	)

	httputil.WriteJSON(w, http.StatusCreated, agg)
}

// HandleAdminDelete handles POST /api/admin/delete requests.
func (h *Handler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		SightingID string `json:"sighting_id"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}

	deletedID, err := h.service.SoftDelete(ctx, req.SightingID)
	if err != nil {
		h.logger.WarnContext(ctx, "admin delete failed",
			"request_id", requestcontext.RequestID(ctx),
			"sighting_id", req.SightingID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": deletedID.String()})
}

// HandleAdminGet handles GET /api/admin/sightings/{sightingID} requests. It
// returns the record whether or not it has been soft-deleted.
func (h *Handler) HandleAdminGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s, err := h.service.GetAdmin(ctx, chi.URLParam(r, "sightingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, s)
}

// writeRejection logs a rejected write at the right level and translates the
// error. Policy rejections are expected traffic, not server failures.
func (h *Handler) writeRejection(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	derr := dErrors.From(err)
	if derr == nil || derr.Code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.InfoContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"code", derr.Code,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
