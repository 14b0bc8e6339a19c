package service

import "context"

// SaleCompletedEvent содержит данные события завершённой продажи
type SaleCompletedEvent struct {
	TransactionID     int64
	TransactionNumber string
	Total             int64
	ItemCount         int
}

// SaleEventPublisher определяет интерфейс публикации событий продаж
// Store зависит от интерфейса, а не от конкретной реализации (Kafka, моки)
// Публикация fire-and-forget: ошибка публикации не отменяет продажу
type SaleEventPublisher interface {
	PublishSaleCompleted(ctx context.Context, event SaleCompletedEvent) error
}
