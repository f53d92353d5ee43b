// Package memory holds in-process repositories used in local mode and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/repository"
)

var (
	_ repository.DrugRepository      = (*DrugRepository)(nil)
	_ repository.PharmacyRepository  = (*PharmacyRepository)(nil)
	_ repository.InventoryRepository = (*InventoryRepository)(nil)
)

type DrugRepository struct {
	mu    sync.RWMutex
	drugs map[string]domain.Drug
}

func NewDrugRepository() *DrugRepository {
	return &DrugRepository{drugs: make(map[string]domain.Drug)}
}

func (r *DrugRepository) CreateDrug(_ context.Context, drug *domain.Drug) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drugs[drug.DrugID]; ok {
		return domain.ErrConflict
	}
	drug.SearchText = domain.BuildSearchText(drug)
	r.drugs[drug.DrugID] = *drug
	return nil
}

func (r *DrugRepository) GetDrug(_ context.Context, drugID string) (*domain.Drug, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	drug, ok := r.drugs[drugID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &drug, nil
}

func (r *DrugRepository) UpdateDrug(_ context.Context, drug *domain.Drug) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drugs[drug.DrugID]; !ok {
		return domain.ErrNotFound
	}
	drug.SearchText = domain.BuildSearchText(drug)
	r.drugs[drug.DrugID] = *drug
	return nil
}

func (r *DrugRepository) SearchDrugs(_ context.Context, filter domain.DrugFilter) ([]domain.Drug, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Drug
	for _, drug := range r.drugs {
		if filter.Accept(&drug) {
			out = append(out, drug)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DrugID < out[j].DrugID })
	return out, nil
}

type PharmacyRepository struct {
	mu         sync.RWMutex
	pharmacies map[string]domain.Pharmacy
	byLicense  map[string]string
	byOwner    map[string]string
}

func NewPharmacyRepository() *PharmacyRepository {
	return &PharmacyRepository{
		pharmacies: make(map[string]domain.Pharmacy),
		byLicense:  make(map[string]string),
		byOwner:    make(map[string]string),
	}
}

func (r *PharmacyRepository) CreatePharmacy(_ context.Context, pharmacy *domain.Pharmacy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pharmacies[pharmacy.PharmacyID]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byLicense[pharmacy.LicenseNumber]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byOwner[pharmacy.OwnerID]; ok {
		return domain.ErrConflict
	}
	r.pharmacies[pharmacy.PharmacyID] = clonePharmacy(*pharmacy)
	r.byLicense[pharmacy.LicenseNumber] = pharmacy.PharmacyID
	r.byOwner[pharmacy.OwnerID] = pharmacy.PharmacyID
	return nil
}

func (r *PharmacyRepository) GetPharmacy(_ context.Context, pharmacyID string) (*domain.Pharmacy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pharmacy, ok := r.pharmacies[pharmacyID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := clonePharmacy(pharmacy)
	return &out, nil
}

func (r *PharmacyRepository) GetPharmacyByOwner(ctx context.Context, ownerID string) (*domain.Pharmacy, error) {
	r.mu.RLock()
	id, ok := r.byOwner[ownerID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.GetPharmacy(ctx, id)
}

func (r *PharmacyRepository) UpdatePharmacy(_ context.Context, pharmacy *domain.Pharmacy, expected domain.ApprovalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.pharmacies[pharmacy.PharmacyID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Status != expected {
		return domain.ErrInvalidTransition
	}
	r.pharmacies[pharmacy.PharmacyID] = clonePharmacy(*pharmacy)
	return nil
}

func (r *PharmacyRepository) ListPharmacies(_ context.Context, status domain.ApprovalStatus) ([]domain.Pharmacy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Pharmacy
	for _, pharmacy := range r.pharmacies {
		if status == "" || pharmacy.Status == status {
			out = append(out, clonePharmacy(pharmacy))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PharmacyID < out[j].PharmacyID })
	return out, nil
}

func clonePharmacy(p domain.Pharmacy) domain.Pharmacy {
	p.Certificates = append([]domain.Certificate(nil), p.Certificates...)
	if p.ApprovedAt != nil {
		at := *p.ApprovedAt
		p.ApprovedAt = &at
	}
	return p
}

type inventoryKey struct {
	pharmacyID string
	drugID     string
}

type InventoryRepository struct {
	mu      sync.RWMutex
	records map[inventoryKey]domain.InventoryRecord
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{records: make(map[inventoryKey]domain.InventoryRecord)}
}

func (r *InventoryRepository) CreateRecord(_ context.Context, record *domain.InventoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := inventoryKey{record.PharmacyID, record.DrugID}
	if _, ok := r.records[key]; ok {
		return domain.ErrConflict
	}
	r.records[key] = *record
	return nil
}

func (r *InventoryRepository) GetRecord(_ context.Context, pharmacyID, drugID string) (*domain.InventoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[inventoryKey{pharmacyID, drugID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

func (r *InventoryRepository) AdjustQuantity(_ context.Context, pharmacyID, drugID string, delta int, expectedVersion int64, now time.Time) (*domain.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := inventoryKey{pharmacyID, drugID}
	record, ok := r.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if record.Version != expectedVersion {
		return nil, domain.ErrStaleWrite
	}
	if record.Quantity+delta < 0 {
		return nil, domain.ErrNegativeQuantity
	}
	record.Quantity += delta
	record.Version++
	record.UpdatedAt = now
	if delta > 0 {
		at := now
		record.LastRestockedAt = &at
	}
	r.records[key] = record
	return &record, nil
}

func (r *InventoryRepository) UpdateRecord(_ context.Context, pharmacyID, drugID string, u repository.InventoryUpdate, now time.Time) (*domain.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := inventoryKey{pharmacyID, drugID}
	record, ok := r.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if u.Price != nil {
		record.Price = *u.Price
	}
	if u.DiscountPercent != nil {
		record.DiscountPercent = *u.DiscountPercent
	}
	if u.IsAvailable != nil {
		record.IsAvailable = *u.IsAvailable
	}
	if u.MinStockLevel != nil {
		record.MinStockLevel = *u.MinStockLevel
	}
	if u.MaxStockLevel != nil {
		record.MaxStockLevel = *u.MaxStockLevel
	}
	record.Version++
	record.UpdatedAt = now
	r.records[key] = record
	return &record, nil
}

func (r *InventoryRepository) ListByDrug(_ context.Context, drugID string) ([]domain.InventoryRecord, error) {
	return r.list(func(rec domain.InventoryRecord) bool { return rec.DrugID == drugID }), nil
}

func (r *InventoryRepository) ListByPharmacy(_ context.Context, pharmacyID string) ([]domain.InventoryRecord, error) {
	return r.list(func(rec domain.InventoryRecord) bool { return rec.PharmacyID == pharmacyID }), nil
}

func (r *InventoryRepository) list(keep func(domain.InventoryRecord) bool) []domain.InventoryRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.InventoryRecord
	for _, record := range r.records {
		if keep(record) {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PharmacyID != out[j].PharmacyID {
			return out[i].PharmacyID < out[j].PharmacyID
		}
		return out[i].DrugID < out[j].DrugID
	})
	return out
}
