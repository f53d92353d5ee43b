package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
)

var drugColumns = []string{
	"drug_id", "name", "generic_name", "brand", "description", "manufacturer", "category", "form",
	"strength_value", "strength_unit", "prescription_required", "is_active", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*DrugRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDrugRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestDrugRepository_CreateDrug(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	drug := &domain.Drug{
		DrugID: "d1", Name: "Tylenol", Category: domain.CategoryAnalgesics, Form: domain.FormTablet,
		Strength: &domain.Strength{Value: 500, Unit: "mg"}, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO drugs")).
		WithArgs("d1", "Tylenol", "", "", "", "", "analgesics", "tablet",
			sql.NullFloat64{Float64: 500, Valid: true}, sql.NullString{String: "mg", Valid: true},
			false, true, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateDrug(context.Background(), drug))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugRepository_CreateDrugConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (drug_id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CreateDrug(context.Background(), &domain.Drug{DrugID: "d1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrugRepository_UpdateDrugNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE drugs SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateDrug(context.Background(), &domain.Drug{DrugID: "d1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDrugRepository_GetDrug(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM drugs WHERE drug_id = $1")).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(drugColumns).
			AddRow("d1", "Amoxil", "Amoxicillin", "", "", "", "antibiotics", "capsule", nil, nil, true, true, now, now))

	drug, err := repo.GetDrug(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "Amoxil", drug.Name)
	assert.Equal(t, domain.FormCapsule, drug.Form)
	assert.Nil(t, drug.Strength)

	mock.ExpectQuery(regexp.QuoteMeta("FROM drugs WHERE drug_id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetDrug(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDrugRepository_SearchDrugs(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active = TRUE AND (name ILIKE $1")).
		WithArgs("%amox%", "antibiotics").
		WillReturnRows(sqlmock.NewRows(drugColumns).
			AddRow("d1", "Amoxil", "Amoxicillin", "", "", "", "antibiotics", "capsule", 500.0, "mg", true, true, now, now))

	drugs, err := repo.SearchDrugs(context.Background(), domain.DrugFilter{Term: " amox ", Category: domain.CategoryAntibiotics})
	require.NoError(t, err)
	require.Len(t, drugs, 1)
	require.NotNil(t, drugs[0].Strength)
	assert.Equal(t, 500.0, drugs[0].Strength.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildWhere(t *testing.T) {
	rx := false
	min, max := 100.0, 200.0

	where, args := buildWhere(domain.DrugFilter{
		Term:                 "50%_off",
		Form:                 domain.FormTablet,
		PrescriptionRequired: &rx,
		MinStrength:          &min,
		MaxStrength:          &max,
	})

	assert.Equal(t, "is_active = TRUE"+
		" AND (name ILIKE $1 OR generic_name ILIKE $1 OR brand ILIKE $1 OR description ILIKE $1)"+
		" AND form = $2 AND prescription_required = $3 AND strength_value >= $4 AND strength_value <= $5", where)
	assert.Equal(t, []interface{}{`%50\%\_off%`, "tablet", false, 100.0, 200.0}, args)
}
