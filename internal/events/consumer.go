package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/metrics"
)

// StockAdjuster applies one order line under the inventory's retry contract.
type StockAdjuster interface {
	AdjustWithRetry(ctx context.Context, pharmacyID, drugID string, delta int) (*domain.InventoryRecord, error)
}

// 보상(컴펜세이션) 이벤트 발행용 인터페이스
type CompensationProducer interface {
	PublishStockDeductionFailed(ctx context.Context, event StockDeductionFailedEvent) error
}

const commitTimeout = 5 * time.Second

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConsumer struct {
	reader               messageReader
	stock                StockAdjuster
	compensationProducer CompensationProducer
	logger               *zap.Logger
	now                  func() time.Time
	done                 chan struct{}
}

func NewKafkaConsumer(brokers []string, topic, groupID string, stock StockAdjuster, logger *zap.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0,
	})
	return newConsumer(reader, stock, logger)
}

func newConsumer(reader messageReader, stock StockAdjuster, logger *zap.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader: reader,
		stock:  stock,
		logger: logger,
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// 런타임에 보상 프로듀서 주입
func (kc *KafkaConsumer) SetCompensationProducer(p CompensationProducer) {
	kc.compensationProducer = p
}

// Start consumes until ctx is cancelled.
func (kc *KafkaConsumer) Start(ctx context.Context) {
	kc.logger.Info("Kafka consumer started")
	go kc.consume(ctx)
}

// Stop waits for the consume loop to exit and closes the reader. The
// context passed to Start must already be cancelled.
func (kc *KafkaConsumer) Stop() error {
	kc.logger.Info("Stopping Kafka consumer")
	<-kc.done
	return kc.reader.Close()
}

func (kc *KafkaConsumer) consume(ctx context.Context) {
	defer close(kc.done)

	for {
		msg, err := kc.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				kc.logger.Info("Kafka consumer stopped")
				return
			}
			kc.logger.Error("Error reading message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if err := kc.processMessage(ctx, msg); err != nil {
			kc.logger.Error("Error processing message",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset))
		}

		// 라인별 차감은 이미 반영되었으므로 실패해도 커밋 (재처리 시 이중 차감 방지)
		kc.commit(msg)
	}
}

// commit outlives the consume context so a message processed during
// shutdown is still acknowledged.
func (kc *KafkaConsumer) commit(msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	if err := kc.reader.CommitMessages(ctx, msg); err != nil {
		kc.logger.Error("Error committing message",
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
	}
}

func (kc *KafkaConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	kc.logger.Info("Processing message",
		zap.String("topic", msg.Topic),
		zap.String("key", string(msg.Key)),
		zap.Int64("offset", msg.Offset))

	var event OrderPlacedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		metrics.OrderEvents.WithLabelValues("malformed").Inc()
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.Type != "" && event.Type != TypeOrderPlaced {
		metrics.OrderEvents.WithLabelValues("ignored").Inc()
		return nil
	}

	return kc.HandleOrderPlaced(ctx, event)
}

// HandleOrderPlaced deducts every line item independently. A failed line
// is compensated and does not stop the remaining lines.
func (kc *KafkaConsumer) HandleOrderPlaced(ctx context.Context, event OrderPlacedEvent) error {
	kc.logger.Info("Processing order placed event",
		zap.String("order_id", event.OrderID),
		zap.String("pharmacy_id", event.PharmacyID),
		zap.Int("items_count", len(event.Items)))

	var errs []error
	for _, item := range event.Items {
		record, err := kc.deduct(ctx, event.PharmacyID, item)
		if err != nil {
			kc.logger.Error("Failed to deduct stock",
				zap.String("drug_id", item.DrugID),
				zap.Int("quantity", item.Quantity),
				zap.String("order_id", event.OrderID),
				zap.Error(err))

			kc.compensate(ctx, event, item, err)
			errs = append(errs, fmt.Errorf("stock deduction failed for drug %s: %w", item.DrugID, err))
			continue
		}

		kc.logger.Info("Stock deducted successfully",
			zap.String("drug_id", item.DrugID),
			zap.Int("deducted", item.Quantity),
			zap.Int("new_stock", record.Quantity),
			zap.String("order_id", event.OrderID))
	}

	if len(errs) > 0 {
		metrics.OrderEvents.WithLabelValues("partial_failure").Inc()
		return errors.Join(errs...)
	}

	metrics.OrderEvents.WithLabelValues("ok").Inc()
	kc.logger.Info("Order processing completed",
		zap.String("order_id", event.OrderID),
		zap.String("request_id", event.RequestID))
	return nil
}

func (kc *KafkaConsumer) deduct(ctx context.Context, pharmacyID string, item OrderLine) (*domain.InventoryRecord, error) {
	if item.Quantity <= 0 {
		return nil, &domain.ValidationError{Field: "quantity", Message: "must be positive"}
	}
	return kc.stock.AdjustWithRetry(ctx, pharmacyID, item.DrugID, -item.Quantity)
}

func (kc *KafkaConsumer) compensate(ctx context.Context, event OrderPlacedEvent, item OrderLine, cause error) {
	if kc.compensationProducer == nil {
		return
	}

	err := kc.compensationProducer.PublishStockDeductionFailed(ctx, StockDeductionFailedEvent{
		EventID:    uuid.NewString(),
		Type:       TypeStockDeductionFailed,
		OrderID:    event.OrderID,
		PharmacyID: event.PharmacyID,
		DrugID:     item.DrugID,
		Quantity:   item.Quantity,
		Reason:     failureReason(cause),
		Timestamp:  kc.now().UTC(),
	})
	if err != nil {
		kc.logger.Error("Failed to publish compensation event", zap.Error(err))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNegativeQuantity):
		return "stock_insufficient"
	case errors.Is(err, domain.ErrNotFound):
		return "drug_not_stocked"
	case errors.Is(err, domain.ErrConflict):
		return "concurrent_update"
	case errors.Is(err, domain.ErrValidation):
		return "invalid_line"
	default:
		return "internal_error"
	}
}
