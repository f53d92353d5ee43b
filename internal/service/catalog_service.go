package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/repository"
)

type CatalogService struct {
	drugRepo repository.DrugRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewCatalogService(drugRepo repository.DrugRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		drugRepo: drugRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// FindCandidates resolves a term and taxonomic filters to the ids of the
// active drugs that match.
func (s *CatalogService) FindCandidates(ctx context.Context, filter domain.DrugFilter) ([]string, error) {
	drugs, err := s.search(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(drugs))
	for _, drug := range drugs {
		ids = append(ids, drug.DrugID)
	}
	return ids, nil
}

// Search returns one page of matching drugs ordered by name, plus the total.
func (s *CatalogService) Search(ctx context.Context, filter domain.DrugFilter, page, pageSize int) ([]domain.Drug, int, error) {
	drugs, err := s.search(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	sort.SliceStable(drugs, func(i, j int) bool {
		a, b := strings.ToLower(drugs[i].Name), strings.ToLower(drugs[j].Name)
		if a != b {
			return a < b
		}
		return drugs[i].DrugID < drugs[j].DrugID
	})

	return paginate(drugs, page, pageSize), len(drugs), nil
}

func (s *CatalogService) search(ctx context.Context, filter domain.DrugFilter) ([]domain.Drug, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	drugs, err := s.drugRepo.SearchDrugs(ctx, filter)
	if err != nil {
		return nil, err
	}

	// 저장소 구현과 무관하게 활성 약품만 후보로 인정
	active := drugs[:0]
	for _, drug := range drugs {
		if drug.IsActive {
			active = append(active, drug)
		}
	}
	return active, nil
}

func (s *CatalogService) GetByID(ctx context.Context, drugID string) (*domain.Drug, error) {
	return s.drugRepo.GetDrug(ctx, drugID)
}

func (s *CatalogService) Create(ctx context.Context, req domain.DrugRequest) (*domain.Drug, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	drug := &domain.Drug{DrugID: uuid.NewString(), IsActive: true, CreatedAt: now}
	applyDrugRequest(drug, req, now)

	if err := s.drugRepo.CreateDrug(ctx, drug); err != nil {
		s.logger.Error("Failed to save drug",
			zap.String("drug_id", drug.DrugID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Drug created successfully",
		zap.String("drug_id", drug.DrugID),
		zap.String("name", drug.Name))

	return drug, nil
}

func (s *CatalogService) Update(ctx context.Context, drugID string, req domain.DrugRequest) (*domain.Drug, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	drug, err := s.drugRepo.GetDrug(ctx, drugID)
	if err != nil {
		return nil, err
	}

	applyDrugRequest(drug, req, s.now().UTC())
	if err := s.drugRepo.UpdateDrug(ctx, drug); err != nil {
		return nil, err
	}

	s.logger.Info("Drug updated", zap.String("drug_id", drugID))
	return drug, nil
}

// Deactivate soft-deletes a drug; it stays addressable by id but is never a
// search candidate again.
func (s *CatalogService) Deactivate(ctx context.Context, drugID string) error {
	drug, err := s.drugRepo.GetDrug(ctx, drugID)
	if err != nil {
		return err
	}
	if !drug.IsActive {
		return nil
	}

	drug.IsActive = false
	drug.UpdatedAt = s.now().UTC()
	if err := s.drugRepo.UpdateDrug(ctx, drug); err != nil {
		return err
	}

	s.logger.Info("Drug deactivated", zap.String("drug_id", drugID))
	return nil
}

func applyDrugRequest(drug *domain.Drug, req domain.DrugRequest, now time.Time) {
	drug.Name = strings.TrimSpace(req.Name)
	drug.GenericName = strings.TrimSpace(req.GenericName)
	drug.Brand = strings.TrimSpace(req.Brand)
	drug.Description = req.Description
	drug.Manufacturer = req.Manufacturer
	drug.Category = req.Category
	drug.Form = req.Form
	drug.Strength = req.Strength
	drug.PrescriptionRequired = req.PrescriptionRequired
	drug.UpdatedAt = now
}

// paginate returns the 1-based page of items.
func paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return []T{}
	}
	// 곱셈 전에 범위 확인 (page가 크면 오버플로)
	if page-1 >= (len(items)+pageSize-1)/pageSize {
		return []T{}
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
