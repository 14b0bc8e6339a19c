package httpapi

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	healthhttp "github.com/shestoi/warungpos/internal/health/http"
	"github.com/shestoi/warungpos/internal/observability"
)

// NewRouter создаёт и настраивает HTTP роутер POS сервиса
// readiness - функция для проверки готовности сервиса (например, пинг БД).
// Если readiness возвращает false, health endpoint вернёт 503.
// logger используется для observability middleware (trace_id в логах).
func NewRouter(handler *Handler, readiness func() bool, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	// Observability: trace context + span на каждый запрос
	if logger != nil {
		router.Use(observability.HTTPMiddleware(logger))
	}

	router.Route("/products", func(r chi.Router) {
		r.Get("/", handler.ListProducts)
		r.Post("/", handler.PostProduct)
		r.Get("/{id}", handler.GetProduct)
		r.Put("/{id}", handler.PutProduct)
		r.Delete("/{id}", handler.DeleteProduct)
		r.Post("/{id}/stock", handler.PostStock)
	})

	router.Route("/stock", func(r chi.Router) {
		r.Get("/low", handler.GetLowStock)
		r.Get("/history", handler.GetStockHistory)
	})

	router.Route("/cart", func(r chi.Router) {
		r.Get("/", handler.GetCart)
		r.Delete("/", handler.DeleteCart)
		r.Post("/items", handler.PostCartItem)
		r.Patch("/items/{index}", handler.PatchCartItem)
		r.Delete("/items/{index}", handler.DeleteCartItem)
	})

	router.Post("/checkout", handler.PostCheckout)

	router.Route("/transactions", func(r chi.Router) {
		r.Get("/", handler.ListTransactions)
		r.Get("/today", handler.GetToday)
		r.Get("/{id}", handler.GetTransaction)
	})

	router.Route("/reports", func(r chi.Router) {
		r.Get("/summary", handler.GetReportSummary)
		r.Get("/top", handler.GetTopProducts)
	})

	// Health без middleware зависимостей
	router.Get("/health", healthhttp.Handler(readiness))

	return router
}
