package analytics

import (
	"bytes"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/sellerdesk/sellerdesk/internal/platform/httpx"
)

const (
	defaultTopN          = 10
	maxTopN              = 100
	defaultLowStockLevel = 5
)

// Handler serves catalog analytics over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	csvPool sync.Pool
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	h := &Handler{logger: logger, service: service}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// MountRoutes registers analytics endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))

	r.Get("/summary", h.handleSummary)
	r.Get("/categories", h.handleCategories)
	r.Get("/margins", h.handleMargins)
	r.Get("/top-profit", h.handleTopProfit)
	r.Get("/low-stock", h.handleLowStock)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/categories/export.csv", h.handleCategoryCSV)
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary(r.Context())
	if err != nil {
		h.fail(w, "summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetCategoryBreakdown(r.Context())
	if err != nil {
		h.fail(w, "categories", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleMargins(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.service.GetMarginDistribution(r.Context())
	if err != nil {
		h.fail(w, "margins", err)
		return
	}
	httpx.JSON(w, http.StatusOK, buckets)
}

func (h *Handler) handleTopProfit(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "n", defaultTopN)
	if n <= 0 || n > maxTopN {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "n must be between 1 and 100")
		return
	}
	products, err := h.service.GetTopProfit(r.Context(), n)
	if err != nil {
		h.fail(w, "top profit", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := queryInt(r, "threshold", defaultLowStockLevel)
	if threshold < 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "threshold must not be negative")
		return
	}
	products, err := h.service.GetLowStock(r.Context(), threshold)
	if err != nil {
		h.fail(w, "low stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) handleCategoryCSV(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetCategoryBreakdown(r.Context())
	if err != nil {
		h.fail(w, "categories csv", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer h.csvPool.Put(buf)

	writer := csv.NewWriter(buf)
	_ = writer.Write([]string{"category", "count", "stock", "total_profit"})
	for _, stat := range stats {
		_ = writer.Write([]string{
			stat.Category,
			strconv.Itoa(stat.Count),
			strconv.Itoa(stat.Stock),
			strconv.FormatFloat(stat.TotalProfit, 'f', 2, 64),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.fail(w, "categories csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="categories.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) fail(w http.ResponseWriter, view string, err error) {
	h.logger.Error("analytics "+view, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "")
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}
