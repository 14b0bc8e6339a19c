package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shestoi/warungpos/internal/service"
)

// SaleEventPublisher реализует service.SaleEventPublisher используя Kafka
type SaleEventPublisher struct {
	logger *zap.Logger
	writer *kafka.Writer
	topic  string
}

// NewSaleEventPublisher создаёт новый Kafka publisher для событий продаж
func NewSaleEventPublisher(logger *zap.Logger, cfg Config) *SaleEventPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &SaleEventPublisher{
		logger: logger,
		writer: writer,
		topic:  cfg.Topic,
	}
}

// Close закрывает Kafka writer
func (p *SaleEventPublisher) Close() error {
	return p.writer.Close()
}

// PublishSaleCompleted публикует событие завершённой продажи в Kafka
func (p *SaleEventPublisher) PublishSaleCompleted(ctx context.Context, event service.SaleCompletedEvent) error {
	payload := map[string]interface{}{
		"event_id":           uuid.New().String(),
		"event_type":         "pos.sale.completed",
		"event_version":      1,
		"occurred_at":        time.Now().UTC().Format(time.RFC3339),
		"transaction_id":     event.TransactionID,
		"transaction_number": event.TransactionNumber,
		"total":              event.Total,
		"item_count":         event.ItemCount,
	}

	valueBytes, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal sale event",
			zap.Error(err),
			zap.String("number", event.TransactionNumber),
		)
		return err
	}

	message := kafka.Message{
		Key:   []byte(event.TransactionNumber),
		Value: valueBytes,
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.logger.Error("failed to publish sale event",
			zap.Error(err),
			zap.String("topic", p.topic),
			zap.String("number", event.TransactionNumber),
		)
		return err
	}

	p.logger.Info("sale event published",
		zap.String("topic", p.topic),
		zap.String("number", event.TransactionNumber),
		zap.Int64("total", event.Total),
	)

	return nil
}
