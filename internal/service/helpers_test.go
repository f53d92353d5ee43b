package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/repository/memory"
)

type fixture struct {
	catalog    *CatalogService
	pharmacies *PharmacyService
	inventory  *InventoryService
	match      *MatchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	drugs := memory.NewDrugRepository()

	f := &fixture{
		catalog:    NewCatalogService(drugs, logger),
		pharmacies: NewPharmacyService(memory.NewPharmacyRepository(), logger),
		inventory:  NewInventoryService(memory.NewInventoryRepository(), drugs, DefaultMaxWriteRetries, logger),
	}
	f.match = NewMatchService(f.catalog, f.pharmacies, f.inventory, MatchConfig{
		Concurrency: 4,
		Timeout:     2 * time.Second,
	}, logger)
	return f
}

func (f *fixture) drug(t *testing.T, name string) *domain.Drug {
	t.Helper()
	drug, err := f.catalog.Create(context.Background(), domain.DrugRequest{
		Name:     name,
		Category: domain.CategoryAnalgesics,
		Form:     domain.FormTablet,
	})
	require.NoError(t, err)
	return drug
}

// draftPharmacy creates a profile with a certificate attached, ready to
// submit.
func (f *fixture) draftPharmacy(t *testing.T, owner, name string, at *domain.Coordinate) *domain.Pharmacy {
	t.Helper()
	ctx := context.Background()

	_, err := f.pharmacies.Create(ctx, owner, domain.PharmacyProfile{Name: name, LicenseNumber: "LIC-" + owner})
	require.NoError(t, err)
	if at != nil {
		_, err = f.pharmacies.SetLocation(ctx, owner, *at)
		require.NoError(t, err)
	}
	p, err := f.pharmacies.AttachCertificate(ctx, owner, domain.CertificateRequest{Name: "license", FileRef: "files/" + owner + ".pdf"})
	require.NoError(t, err)
	return p
}

func (f *fixture) approvedPharmacy(t *testing.T, owner, name string, at *domain.Coordinate) *domain.Pharmacy {
	t.Helper()
	ctx := context.Background()

	p := f.draftPharmacy(t, owner, name, at)
	_, err := f.pharmacies.Submit(ctx, owner)
	require.NoError(t, err)
	p, err = f.pharmacies.Approve(ctx, p.PharmacyID, "admin-1")
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, pharmacyID, drugID string, quantity int, price, discount float64) *domain.InventoryRecord {
	t.Helper()
	record, err := f.inventory.UpsertNew(context.Background(), pharmacyID, drugID, domain.InventoryAttributes{
		Quantity:        quantity,
		Price:           price,
		DiscountPercent: discount,
		ExpiryDate:      time.Now().AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	return record
}

func ptr[T any](v T) *T { return &v }
