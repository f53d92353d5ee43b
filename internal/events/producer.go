package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes inventory notifications and order compensation
// events to the inventory topic.
type KafkaProducer struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewKafkaProducer(brokers []string, topic string, logger *zap.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newProducer(writer, topic, logger)
}

func newProducer(writer messageWriter, topic string, logger *zap.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer:  writer,
		topic:   topic,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

func (p *KafkaProducer) PublishInventoryEvent(ctx context.Context, event domain.InventoryEvent) error {
	return p.publish(ctx, event.EventID, stockKey(event.PharmacyID, event.DrugID), string(event.Type), event)
}

func (p *KafkaProducer) PublishStockDeductionFailed(ctx context.Context, event StockDeductionFailedEvent) error {
	event.Type = TypeStockDeductionFailed
	return p.publish(ctx, event.EventID, stockKey(event.PharmacyID, event.DrugID), event.Type, event)
}

func (p *KafkaProducer) publish(ctx context.Context, eventID, key, eventType string, payload interface{}) error {
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.Error(err))
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(err))
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	p.logger.Debug("Event published successfully",
		zap.String("event_id", eventID),
		zap.String("event_type", eventType),
		zap.String("key", key))

	return nil
}

func (p *KafkaProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// 같은 재고 레코드의 이벤트는 같은 파티션으로
func stockKey(pharmacyID, drugID string) string {
	return pharmacyID + ":" + drugID
}
