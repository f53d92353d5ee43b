package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/metrics"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/repository"
)

const DefaultMaxWriteRetries = 5

// InventoryEventPublisher receives stock notifications after successful
// quantity writes.
type InventoryEventPublisher interface {
	PublishInventoryEvent(ctx context.Context, event domain.InventoryEvent) error
}

type InventoryService struct {
	inventoryRepo repository.InventoryRepository
	drugRepo      repository.DrugRepository
	publisher     InventoryEventPublisher
	maxRetries    int
	logger        *zap.Logger
	now           func() time.Time
}

func NewInventoryService(inventoryRepo repository.InventoryRepository, drugRepo repository.DrugRepository, maxRetries int, logger *zap.Logger) *InventoryService {
	if maxRetries < 1 {
		maxRetries = DefaultMaxWriteRetries
	}
	return &InventoryService{
		inventoryRepo: inventoryRepo,
		drugRepo:      drugRepo,
		maxRetries:    maxRetries,
		logger:        logger,
		now:           time.Now,
	}
}

// 런타임에 이벤트 프로듀서 주입
func (s *InventoryService) SetPublisher(p InventoryEventPublisher) {
	s.publisher = p
}

// UpsertNew adds a drug to a pharmacy's inventory. An existing pair is a
// conflict and is left untouched.
func (s *InventoryService) UpsertNew(ctx context.Context, pharmacyID, drugID string, attrs domain.InventoryAttributes) (*domain.InventoryRecord, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}

	drug, err := s.drugRepo.GetDrug(ctx, drugID)
	if err != nil {
		return nil, err
	}
	if !drug.IsActive {
		return nil, domain.ErrNotFound
	}

	record := domain.NewInventoryRecord(pharmacyID, drugID, attrs, s.now().UTC())
	if err := s.inventoryRepo.CreateRecord(ctx, record); err != nil {
		metrics.InventoryWrites.WithLabelValues("create", resultLabel(err)).Inc()
		return nil, err
	}
	metrics.InventoryWrites.WithLabelValues("create", "ok").Inc()

	s.logger.Info("Inventory record created",
		zap.String("pharmacy_id", pharmacyID),
		zap.String("drug_id", drugID),
		zap.Int("quantity", record.Quantity))

	return record, nil
}

func (s *InventoryService) Get(ctx context.Context, pharmacyID, drugID string) (*domain.InventoryRecord, error) {
	return s.inventoryRepo.GetRecord(ctx, pharmacyID, drugID)
}

// AdjustQuantity applies delta only if the record is still at expectedVersion.
func (s *InventoryService) AdjustQuantity(ctx context.Context, pharmacyID, drugID string, delta int, expectedVersion int64) (*domain.InventoryRecord, error) {
	if delta == 0 {
		return nil, &domain.ValidationError{Field: "delta", Message: "must not be zero"}
	}

	record, err := s.inventoryRepo.AdjustQuantity(ctx, pharmacyID, drugID, delta, expectedVersion, s.now().UTC())
	metrics.InventoryWrites.WithLabelValues("adjust", resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock adjusted",
		zap.String("pharmacy_id", pharmacyID),
		zap.String("drug_id", drugID),
		zap.Int("delta", delta),
		zap.Int("new_stock", record.Quantity),
		zap.Int64("version", record.Version))

	s.publishStock(ctx, record, delta)
	return record, nil
}

// AdjustWithRetry re-reads and retries on stale writes, giving up with
// ErrConflict after maxRetries attempts.
func (s *InventoryService) AdjustWithRetry(ctx context.Context, pharmacyID, drugID string, delta int) (*domain.InventoryRecord, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		current, err := s.inventoryRepo.GetRecord(ctx, pharmacyID, drugID)
		if err != nil {
			return nil, err
		}

		record, err := s.AdjustQuantity(ctx, pharmacyID, drugID, delta, current.Version)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, domain.ErrStaleWrite) {
			return nil, err
		}

		s.logger.Debug("Stale inventory write, retrying",
			zap.String("pharmacy_id", pharmacyID),
			zap.String("drug_id", drugID),
			zap.Int("attempt", attempt))

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	s.logger.Warn("Inventory write retries exhausted",
		zap.String("pharmacy_id", pharmacyID),
		zap.String("drug_id", drugID),
		zap.Int("attempts", s.maxRetries))
	return nil, fmt.Errorf("%w: %d attempts on %s/%s lost to concurrent writers", domain.ErrConflict, s.maxRetries, pharmacyID, drugID)
}

func (s *InventoryService) SetPricing(ctx context.Context, pharmacyID, drugID string, price, discountPercent float64) (*domain.InventoryRecord, error) {
	if err := domain.ValidatePricing(price, discountPercent); err != nil {
		return nil, err
	}
	return s.update(ctx, "pricing", pharmacyID, drugID, repository.InventoryUpdate{
		Price:           &price,
		DiscountPercent: &discountPercent,
	})
}

func (s *InventoryService) SetAvailability(ctx context.Context, pharmacyID, drugID string, available bool) (*domain.InventoryRecord, error) {
	return s.update(ctx, "availability", pharmacyID, drugID, repository.InventoryUpdate{IsAvailable: &available})
}

func (s *InventoryService) SetStockLevels(ctx context.Context, pharmacyID, drugID string, min, max int) (*domain.InventoryRecord, error) {
	if err := domain.ValidateStockLevels(min, max); err != nil {
		return nil, err
	}
	return s.update(ctx, "levels", pharmacyID, drugID, repository.InventoryUpdate{
		MinStockLevel: &min,
		MaxStockLevel: &max,
	})
}

func (s *InventoryService) update(ctx context.Context, op, pharmacyID, drugID string, u repository.InventoryUpdate) (*domain.InventoryRecord, error) {
	record, err := s.inventoryRepo.UpdateRecord(ctx, pharmacyID, drugID, u, s.now().UTC())
	metrics.InventoryWrites.WithLabelValues(op, resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inventory record updated",
		zap.String("operation", op),
		zap.String("pharmacy_id", pharmacyID),
		zap.String("drug_id", drugID),
		zap.Int64("version", record.Version))

	return record, nil
}

func (s *InventoryService) ListByDrug(ctx context.Context, drugID string) ([]domain.InventoryRecord, error) {
	return s.inventoryRepo.ListByDrug(ctx, drugID)
}

func (s *InventoryService) ListByPharmacy(ctx context.Context, pharmacyID string) ([]domain.InventoryRecord, error) {
	return s.inventoryRepo.ListByPharmacy(ctx, pharmacyID)
}

func (s *InventoryService) ListLowStock(ctx context.Context, pharmacyID string) ([]domain.InventoryRecord, error) {
	records, err := s.inventoryRepo.ListByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}

	low := make([]domain.InventoryRecord, 0)
	for i := range records {
		if IsLowStock(&records[i]) {
			low = append(low, records[i])
		}
	}
	return low, nil
}

func IsLowStock(record *domain.InventoryRecord) bool {
	return record.IsLowStock()
}

// publishStock never fails the write it reports on.
func (s *InventoryService) publishStock(ctx context.Context, record *domain.InventoryRecord, delta int) {
	if s.publisher == nil {
		return
	}

	types := []domain.InventoryEventType{domain.EventStockChanged}
	if record.IsLowStock() {
		types = append(types, domain.EventLowStock)
	}

	for _, t := range types {
		event := domain.InventoryEvent{
			EventID:       uuid.NewString(),
			Type:          t,
			PharmacyID:    record.PharmacyID,
			DrugID:        record.DrugID,
			Delta:         delta,
			Quantity:      record.Quantity,
			MinStockLevel: record.MinStockLevel,
			Version:       record.Version,
			OccurredAt:    record.UpdatedAt,
		}
		if err := s.publisher.PublishInventoryEvent(ctx, event); err != nil {
			s.logger.Error("Failed to publish inventory event",
				zap.String("type", string(t)),
				zap.String("pharmacy_id", record.PharmacyID),
				zap.String("drug_id", record.DrugID),
				zap.Error(err))
		}
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrStaleWrite):
		return "stale"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
