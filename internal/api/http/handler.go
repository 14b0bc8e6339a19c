package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shestoi/warungpos/internal/observability"
	"github.com/shestoi/warungpos/internal/service"
)

// Handler содержит HTTP-обработчики POS сервиса
// Тонкий презентационный слой: приводит типы и валидирует ввод (§6),
// вся бизнес-логика в service.Store
type Handler struct {
	store  *service.Store
	logger *zap.Logger
}

// NewHandler создаёт новый HTTP handler
func NewHandler(store *service.Store, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// log возвращает request-scoped logger с trace_id, если он есть в контексте
func (h *Handler) log(r *http.Request) *zap.Logger {
	if l := observability.LoggerFromContext(r.Context()); l != nil {
		return l
	}
	return h.logger
}

// ProductRequest представляет тело запроса на создание/обновление товара
// Pointer-поля различают "не передано" и нулевое значение
type ProductRequest struct {
	Code     *string `json:"code"`
	Name     *string `json:"name"`
	Category *string `json:"category"`
	Price    *int64  `json:"price"`
	Stock    *int    `json:"stock"`
	MinStock *int    `json:"minStock"`
}

// StockRequest представляет тело запроса на корректировку остатка
type StockRequest struct {
	Change *int   `json:"change"`
	Note   string `json:"note"`
}

// CartAddRequest представляет тело запроса на добавление в корзину
type CartAddRequest struct {
	ProductID *int64 `json:"product_id"`
}

// CartQuantityRequest представляет тело запроса на изменение количества
type CartQuantityRequest struct {
	Delta *int `json:"delta"`
}

// CheckoutRequest представляет тело запроса на оплату
type CheckoutRequest struct {
	Payment *int64 `json:"payment"`
}

// CartResponse представляет корзину с пересчитанной суммой
type CartResponse struct {
	Items []service.CartLine `json:"items"`
	Total int64              `json:"total"`
}

// ProductResponse представляет товар вместе со статусом остатка
type ProductResponse struct {
	service.Product
	StockStatus string `json:"stockStatus"`
}

// TodayResponse представляет продажи за текущий день
type TodayResponse struct {
	Transactions []service.Transaction `json:"transactions"`
	Count        int                   `json:"count"`
	TotalSales   int64                 `json:"totalSales"`
}

// ListProducts обрабатывает GET /products?q= — каталог с поиском
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.store.SearchProducts(r.URL.Query().Get("q"))

	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, ProductResponse{Product: p, StockStatus: service.StockStatus(p)})
	}
	writeJSON(w, http.StatusOK, out)
}

// PostProduct обрабатывает POST /products — добавление товара
func (h *Handler) PostProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Code == nil || req.Name == nil || req.Price == nil {
		writeError(w, http.StatusBadRequest, "code, name and price are required")
		return
	}
	if *req.Price < 0 {
		writeError(w, http.StatusBadRequest, "price must be non-negative")
		return
	}

	input := service.ProductInput{
		Code:  *req.Code,
		Name:  *req.Name,
		Price: *req.Price,
	}
	if req.Category != nil {
		input.Category = *req.Category
	}
	if req.Stock != nil {
		input.Stock = *req.Stock
	}
	if req.MinStock != nil {
		input.MinStock = *req.MinStock
	}

	product, err := h.store.AddProduct(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// GetProduct обрабатывает GET /products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	product, err := h.store.GetProduct(id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductResponse{Product: product, StockStatus: service.StockStatus(product)})
}

// PutProduct обрабатывает PUT /products/{id} — частичное обновление
func (h *Handler) PutProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Price != nil && *req.Price < 0 {
		writeError(w, http.StatusBadRequest, "price must be non-negative")
		return
	}

	product, err := h.store.UpdateProduct(r.Context(), id, service.ProductPatch{
		Code:     req.Code,
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Stock:    req.Stock,
		MinStock: req.MinStock,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct обрабатывает DELETE /products/{id}
// Отвечает 204 и для отсутствующего товара — удаление идемпотентно
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostStock обрабатывает POST /products/{id}/stock — ручная корректировка
func (h *Handler) PostStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req StockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Change == nil || *req.Change == 0 {
		writeError(w, http.StatusBadRequest, "change is required and must be non-zero")
		return
	}

	product, err := h.store.UpdateStock(r.Context(), id, *req.Change, req.Note)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// GetLowStock обрабатывает GET /stock/low
func (h *Handler) GetLowStock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.LowStockProducts())
}

// GetStockHistory обрабатывает GET /stock/history
func (h *Handler) GetStockHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.StockHistory())
}

// GetCart обрабатывает GET /cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CartResponse{
		Items: h.store.Cart(),
		Total: h.store.CartTotal(),
	})
}

// PostCartItem обрабатывает POST /cart/items — добавление товара в корзину
func (h *Handler) PostCartItem(w http.ResponseWriter, r *http.Request) {
	var req CartAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.ProductID == nil {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	if err := h.store.AddToCart(*req.ProductID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CartResponse{
		Items: h.store.Cart(),
		Total: h.store.CartTotal(),
	})
}

// PatchCartItem обрабатывает PATCH /cart/items/{index} — изменение количества
func (h *Handler) PatchCartItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart line index")
		return
	}

	var req CartQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Delta == nil {
		writeError(w, http.StatusBadRequest, "delta is required")
		return
	}

	if err := h.store.UpdateCartQuantity(index, *req.Delta); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CartResponse{
		Items: h.store.Cart(),
		Total: h.store.CartTotal(),
	})
}

// DeleteCartItem обрабатывает DELETE /cart/items/{index}
func (h *Handler) DeleteCartItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart line index")
		return
	}

	if err := h.store.RemoveFromCart(index); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCart обрабатывает DELETE /cart — очистка корзины
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	h.store.ClearCart()
	w.WriteHeader(http.StatusNoContent)
}

// PostCheckout обрабатывает POST /checkout — завершение продажи
func (h *Handler) PostCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Payment == nil || *req.Payment < 0 {
		writeError(w, http.StatusBadRequest, "payment is required and must be non-negative")
		return
	}

	tx, err := h.store.Checkout(r.Context(), *req.Payment)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.log(r).Info("checkout completed",
		zap.String("number", tx.TransactionNumber),
		zap.Int64("total", tx.Total),
		zap.Int64("change", tx.Change),
	)
	writeJSON(w, http.StatusCreated, tx)
}

// ListTransactions обрабатывает GET /transactions — новые первыми
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.ListTransactions())
}

// GetTransaction обрабатывает GET /transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	tx, err := h.store.GetTransaction(id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// GetToday обрабатывает GET /transactions/today
func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	transactions := h.store.TodayTransactions()
	writeJSON(w, http.StatusOK, TodayResponse{
		Transactions: transactions,
		Count:        len(transactions),
		TotalSales:   h.store.TodaySales(),
	})
}

// GetReportSummary обрабатывает GET /reports/summary
func (h *Handler) GetReportSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Report())
}

// GetTopProducts обрабатывает GET /reports/top?limit=
func (h *Handler) GetTopProducts(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	writeJSON(w, http.StatusOK, h.store.TopProducts(limit))
}

// pathID извлекает {id} из пути; пишет 400 при нечисловом значении
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// writeServiceError транслирует модель ошибок Store в HTTP статусы:
// not-found → 404, business-rule → 422, storage → 503
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrCartLineNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrNegativeStock),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInsufficientPayment):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		h.log(r).Error("storage unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		h.log(r).Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
