package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/simaogato/splitpay-backend/internal/domain"
	"github.com/simaogato/splitpay-backend/internal/usecase/extraction"
	"github.com/simaogato/splitpay-backend/internal/usecase/order"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 32 << 20
	uploadField   = "files"
)

// OrderHandler handles split generation and order HTTP requests
type OrderHandler struct {
	orders     *order.OrderService
	extraction *extraction.ExtractionService
	log        zerolog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *order.OrderService, extractionService *extraction.ExtractionService, log zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:     orders,
		extraction: extractionService,
		log:        log.With().Str("handler", "orders").Logger(),
	}
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/splits/generate", h.HandleGenerateSplit)
	r.Post("/totals", h.HandleAggregate)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.HandleListOrders)
		r.Post("/", h.HandleCreateOrder)
		r.Post("/bulk-delete", h.HandleDeleteOrders)

		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.HandleGetOrder)
			r.Delete("/", h.HandleDeleteOrder)
			r.Patch("/items/{itemID}", h.HandleUpdateItem)
			r.Delete("/items/{itemID}", h.HandleDeleteItem)
			r.Post("/records", h.HandleAppendRecords)
			r.Post("/extract", h.HandleExtract)
			r.Get("/totals", h.HandlePreviewTotals)
			r.Post("/execution", h.HandleRegisterExecution)
		})
	})
}

// GenerateSplitRequest is the body of POST /api/splits/generate
type GenerateSplitRequest struct {
	Total      int64 `json:"total"`
	MaxPerPart int64 `json:"maxPerPart"`
}

// CreateOrderRequest is the body of POST /api/orders
type CreateOrderRequest struct {
	TotalAmount int64              `json:"totalAmount"`
	Links       []domain.SplitItem `json:"links"`
}

// UpdateItemRequest is the body of PATCH /api/orders/{id}/items/{itemId}; absent fields are unchanged
type UpdateItemRequest struct {
	Value   *int64  `json:"value"`
	LinkURL *string `json:"linkUrl"`
	IsPaid  *bool   `json:"isPaid"`
}

// RecordsRequest carries execution records
type RecordsRequest struct {
	Records []domain.ExtractedRecord `json:"records"`
}

// BulkDeleteRequest is the body of POST /api/orders/bulk-delete
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// ExtractResponse reports the outcome of an upload batch, including partial progress on failure
type ExtractResponse struct {
	Order     *domain.Order `json:"order,omitempty"`
	Processed int           `json:"processed"`
	Appended  int           `json:"appended"`
	Error     string        `json:"error,omitempty"`
}

// HandleGenerateSplit returns draft split items; nothing is stored
func (h *OrderHandler) HandleGenerateSplit(w http.ResponseWriter, r *http.Request) {
	var req GenerateSplitRequest
	if !h.decode(w, r, &req) {
		return
	}

	items, err := h.orders.GenerateSplit(req.Total, req.MaxPerPart)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total": req.Total,
		"items": items,
	})
}

// HandleCreateOrder stores a confirmed split as a pending order
func (h *OrderHandler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.orders.CreateOrder(r.Context(), req.TotalAmount, req.Links)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, created)
}

// HandleListOrders returns every order, newest first
func (h *OrderHandler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	h.writeJSON(w, http.StatusOK, orders)
}

// HandleGetOrder returns one order
func (h *OrderHandler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, o)
}

// HandleDeleteOrder removes one order
func (h *OrderHandler) HandleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.DeleteOrder(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteOrders removes several orders
func (h *OrderHandler) HandleDeleteOrders(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.orders.DeleteOrders(r.Context(), req.IDs); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateItem changes value, link or paid flag of one split item
func (h *OrderHandler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated, err := h.orders.UpdateItem(r.Context(),
		chi.URLParam(r, "orderID"),
		chi.URLParam(r, "itemID"),
		order.ItemPatch{Value: req.Value, LinkURL: req.LinkURL, IsPaid: req.IsPaid},
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, updated)
}

// HandleDeleteItem removes one split item; 204 means the order went with it
func (h *OrderHandler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	updated, err := h.orders.DeleteItem(r.Context(), chi.URLParam(r, "orderID"), chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if updated == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.writeJSON(w, http.StatusOK, updated)
}

// HandleAppendRecords adds manually entered records to an order
func (h *OrderHandler) HandleAppendRecords(w http.ResponseWriter, r *http.Request) {
	var req RecordsRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated, err := h.orders.AppendRecords(r.Context(), chi.URLParam(r, "orderID"), req.Records)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, updated)
}

// HandleExtract reads the uploaded screenshots in order and appends their records
func (h *OrderHandler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[uploadField]
	images := make([]domain.Image, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to open %s", fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s", fh.Filename))
			return
		}
		images = append(images, domain.Image{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	res, err := h.extraction.ExtractInto(r.Context(), chi.URLParam(r, "orderID"), images)
	resp := ExtractResponse{Order: res.Order, Processed: res.Processed, Appended: res.Appended}
	if err != nil {
		resp.Error = err.Error()
		h.writeJSON(w, h.statusFor(err, http.StatusBadGateway), resp)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandlePreviewTotals aggregates an order's records, or returns its frozen totals
func (h *OrderHandler) HandlePreviewTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.orders.PreviewTotals(r.Context(), chi.URLParam(r, "orderID"), localeParam(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, totals)
}

// HandleRegisterExecution freezes an order's totals
func (h *OrderHandler) HandleRegisterExecution(w http.ResponseWriter, r *http.Request) {
	registered, err := h.orders.RegisterExecution(r.Context(), chi.URLParam(r, "orderID"), localeParam(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, registered)
}

// HandleAggregate aggregates records that are not attached to an order
func (h *OrderHandler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	var req RecordsRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.writeJSON(w, http.StatusOK, h.orders.Aggregate(req.Records, localeParam(r)))
}

// localeParam reads ?locale=; absent means the service default
func localeParam(r *http.Request) domain.Locale {
	tag := r.URL.Query().Get("locale")
	if tag == "" {
		return ""
	}
	return domain.ParseLocale(tag)
}

// Helper methods

func (h *OrderHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *OrderHandler) statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrExecutionRegistered):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAllocationUnresolvable):
		return http.StatusUnprocessableEntity
	default:
		return fallback
	}
}

func (h *OrderHandler) writeServiceError(w http.ResponseWriter, err error) {
	status := h.statusFor(err, http.StatusInternalServerError)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
		h.writeError(w, status, "internal server error")
		return
	}
	h.writeError(w, status, err.Error())
}

func (h *OrderHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *OrderHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
