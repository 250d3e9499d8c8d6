package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sellerdesk/sellerdesk/internal/platform/httpx"
)

// Invalidator lets the handler drop derived caches after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler wires the product CRUD endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	analytics Invalidator
	validator *validator.Validate
}

// NewHandler constructs a Handler. analytics may be nil.
func NewHandler(logger *slog.Logger, service *Service, analytics Invalidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		analytics: analytics,
		validator: validator.New(),
	}
}

// MountRoutes registers product routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/reprice", h.reprice)
	r.Put("/{id}/status", h.setStatus)
	r.Post("/{id}/tags", h.addTags)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Category: q.Get("category"),
		Status:   Status(q.Get("status")),
		Search:   q.Get("search"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products, "count": len(products)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	product, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		h.respondError(w, "create product", err)
		return
	}
	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	product, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		h.respondError(w, "update product", err)
		return
	}
	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete product", err)
		return
	}
	h.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reprice(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Reprice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "reprice product", err)
		return
	}
	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	product, err := h.service.SetStatus(r.Context(), chi.URLParam(r, "id"), Status(req.Status))
	if err != nil {
		h.respondError(w, "set product status", err)
		return
	}
	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) addTags(w http.ResponseWriter, r *http.Request) {
	var req addTagsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	product, err := h.service.AddTags(r.Context(), chi.URLParam(r, "id"), req.Tags)
	if err != nil {
		h.respondError(w, "add product tags", err)
		return
	}
	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.analytics == nil {
		return
	}
	if err := h.analytics.Invalidate(ctx); err != nil {
		h.logger.Warn("analytics invalidate", slog.Any("error", err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrNegativePrice),
		errors.Is(err, ErrNegativeStock),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrEmptyUpdate):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
