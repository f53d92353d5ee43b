package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/geo"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/metrics"
)

// CatalogStore resolves search terms to drugs.
type CatalogStore interface {
	FindCandidates(ctx context.Context, filter domain.DrugFilter) ([]string, error)
	GetByID(ctx context.Context, drugID string) (*domain.Drug, error)
}

// PharmacyDirectory exposes the pharmacies search may show.
type PharmacyDirectory interface {
	GetEligible(ctx context.Context, pharmacyID string) (*domain.Pharmacy, error)
	DistanceFrom(pharmacy *domain.Pharmacy, origin domain.Coordinate) (float64, bool)
}

// InventoryLedger lists stock per drug.
type InventoryLedger interface {
	ListByDrug(ctx context.Context, drugID string) ([]domain.InventoryRecord, error)
}

type MatchConfig struct {
	Concurrency     int
	Timeout         time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

func (c MatchConfig) withDefaults() MatchConfig {
	if c.Concurrency < 1 {
		c.Concurrency = 8
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.DefaultPageSize < 1 {
		c.DefaultPageSize = domain.DefaultPageSize
	}
	if c.MaxPageSize < 1 {
		c.MaxPageSize = domain.MaxPageSize
	}
	if c.DefaultPageSize > c.MaxPageSize {
		c.DefaultPageSize = c.MaxPageSize
	}
	return c
}

// MatchService joins catalog, inventory and directory data into a ranked,
// paginated list of offers near the patient.
type MatchService struct {
	catalog   CatalogStore
	directory PharmacyDirectory
	inventory InventoryLedger
	cfg       MatchConfig
	logger    *zap.Logger
}

func NewMatchService(catalog CatalogStore, directory PharmacyDirectory, inventory InventoryLedger, cfg MatchConfig, logger *zap.Logger) *MatchService {
	return &MatchService{
		catalog:   catalog,
		directory: directory,
		inventory: inventory,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

type drugStock struct {
	drug    *domain.Drug
	records []domain.InventoryRecord
}

type match struct {
	result   domain.SearchResult
	distance float64
	known    bool
}

func (s *MatchService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	start := time.Now()
	resp, err := s.search(ctx, req)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchRequests.WithLabelValues(searchOutcome(err)).Inc()
	if err != nil {
		if errors.Is(err, domain.ErrTimeout) {
			s.logger.Warn("Search timed out",
				zap.String("term", req.Term),
				zap.Duration("timeout", s.cfg.Timeout))
		}
		return nil, err
	}
	metrics.SearchResults.Observe(float64(resp.TotalCount))
	return resp, nil
}

func (s *MatchService) search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	origin, err := req.Origin()
	if err != nil {
		return nil, err
	}
	page, pageSize := req.Pagination(s.cfg.DefaultPageSize, s.cfg.MaxPageSize)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	candidates, err := s.catalog.FindCandidates(ctx, req.Filter())
	if err != nil {
		return nil, timeoutOr(ctx, err)
	}
	if len(candidates) == 0 {
		return emptyResponse(page, pageSize), nil
	}

	stock, err := s.loadStock(ctx, candidates)
	if err != nil {
		return nil, timeoutOr(ctx, err)
	}

	pharmacies, err := s.loadPharmacies(ctx, stock)
	if err != nil {
		return nil, timeoutOr(ctx, err)
	}

	matches := s.join(req, origin, stock, pharmacies)
	rank(matches)

	total := len(matches)
	results := make([]domain.SearchResult, 0, pageSize)
	for _, m := range paginate(matches, page, pageSize) {
		results = append(results, m.result)
	}

	return &domain.SearchResponse{
		Results:    results,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// loadStock fetches each candidate drug and its inventory in parallel.
func (s *MatchService) loadStock(ctx context.Context, candidates []string) ([]drugStock, error) {
	stock := make([]drugStock, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, drugID := range candidates {
		i, drugID := i, drugID
		g.Go(func() error {
			drug, err := s.catalog.GetByID(gctx, drugID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return err
			}
			records, err := s.inventory.ListByDrug(gctx, drugID)
			if err != nil {
				return err
			}
			stock[i] = drugStock{drug: drug, records: records}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stock, nil
}

// loadPharmacies resolves every distinct pharmacy once. Ineligible and
// missing pharmacies are simply absent from the result.
func (s *MatchService) loadPharmacies(ctx context.Context, stock []drugStock) (map[string]*domain.Pharmacy, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, ds := range stock {
		for _, record := range ds.records {
			if _, ok := seen[record.PharmacyID]; !ok {
				seen[record.PharmacyID] = struct{}{}
				ids = append(ids, record.PharmacyID)
			}
		}
	}

	var mu sync.Mutex
	pharmacies := make(map[string]*domain.Pharmacy, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			pharmacy, err := s.directory.GetEligible(gctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrIneligible) || errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return err
			}
			mu.Lock()
			pharmacies[id] = pharmacy
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pharmacies, nil
}

func (s *MatchService) join(req domain.SearchRequest, origin domain.Coordinate, stock []drugStock, pharmacies map[string]*domain.Pharmacy) []match {
	stockOnly := req.StockOnly()
	var matches []match

	for _, ds := range stock {
		if ds.drug == nil || !ds.drug.IsActive {
			continue
		}
		for _, record := range ds.records {
			pharmacy, ok := pharmacies[record.PharmacyID]
			if !ok || !pharmacy.Eligible() {
				continue
			}

			distance, known := s.directory.DistanceFrom(pharmacy, origin)
			if req.RadiusKm != nil && (!known || !geo.WithinRadius(distance, *req.RadiusKm)) {
				continue
			}

			effective := record.EffectivePrice()
			if req.MaxPrice != nil && effective > *req.MaxPrice {
				continue
			}

			inStock := record.InStock()
			if stockOnly && !inStock {
				continue
			}

			result := domain.SearchResult{
				DrugID:            ds.drug.DrugID,
				DrugName:          ds.drug.Name,
				PharmacyID:        pharmacy.PharmacyID,
				PharmacyName:      pharmacy.Name,
				Price:             record.Price,
				EffectivePrice:    effective,
				InStock:           inStock,
				QuantityAvailable: record.Quantity,
			}
			if known {
				d := distance
				result.DistanceKm = &d
			}
			matches = append(matches, match{result: result, distance: distance, known: known})
		}
	}
	return matches
}

// rank orders by distance (unknown last), effective price, then names and
// ids so equal offers always come back in the same order.
func rank(matches []match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.known != b.known {
			return a.known
		}
		if a.known && a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.result.EffectivePrice != b.result.EffectivePrice {
			return a.result.EffectivePrice < b.result.EffectivePrice
		}
		an, bn := strings.ToLower(a.result.PharmacyName), strings.ToLower(b.result.PharmacyName)
		if an != bn {
			return an < bn
		}
		if a.result.DrugName != b.result.DrugName {
			return a.result.DrugName < b.result.DrugName
		}
		if a.result.PharmacyID != b.result.PharmacyID {
			return a.result.PharmacyID < b.result.PharmacyID
		}
		return a.result.DrugID < b.result.DrugID
	})
}

func emptyResponse(page, pageSize int) *domain.SearchResponse {
	return &domain.SearchResponse{
		Results:  []domain.SearchResult{},
		Page:     page,
		PageSize: pageSize,
	}
}

// timeoutOr reports the search deadline as ErrTimeout and passes other
// errors through.
func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return err
}

func searchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
