// Package postgres stores the drug catalog in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/repository"
)

var _ repository.DrugRepository = (*DrugRepository)(nil)

const schema = `CREATE TABLE IF NOT EXISTS drugs (
    drug_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    generic_name TEXT NOT NULL DEFAULT '',
    brand TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    manufacturer TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL,
    form TEXT NOT NULL,
    strength_value DOUBLE PRECISION,
    strength_unit TEXT,
    prescription_required BOOLEAN NOT NULL DEFAULT FALSE,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

const selectColumns = `drug_id, name, generic_name, brand, description, manufacturer, category, form,
strength_value, strength_unit, prescription_required, is_active, created_at, updated_at`

type drugRow struct {
	DrugID               string          `db:"drug_id"`
	Name                 string          `db:"name"`
	GenericName          string          `db:"generic_name"`
	Brand                string          `db:"brand"`
	Description          string          `db:"description"`
	Manufacturer         string          `db:"manufacturer"`
	Category             string          `db:"category"`
	Form                 string          `db:"form"`
	StrengthValue        sql.NullFloat64 `db:"strength_value"`
	StrengthUnit         sql.NullString  `db:"strength_unit"`
	PrescriptionRequired bool            `db:"prescription_required"`
	IsActive             bool            `db:"is_active"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

func (r drugRow) toDomain() domain.Drug {
	drug := domain.Drug{
		DrugID:               r.DrugID,
		Name:                 r.Name,
		GenericName:          r.GenericName,
		Brand:                r.Brand,
		Description:          r.Description,
		Manufacturer:         r.Manufacturer,
		Category:             domain.Category(r.Category),
		Form:                 domain.Form(r.Form),
		PrescriptionRequired: r.PrescriptionRequired,
		IsActive:             r.IsActive,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if r.StrengthValue.Valid {
		drug.Strength = &domain.Strength{Value: r.StrengthValue.Float64, Unit: r.StrengthUnit.String}
	}
	return drug
}

func strengthArgs(drug *domain.Drug) (sql.NullFloat64, sql.NullString) {
	if drug.Strength == nil {
		return sql.NullFloat64{}, sql.NullString{}
	}
	return sql.NullFloat64{Float64: drug.Strength.Value, Valid: true},
		sql.NullString{String: drug.Strength.Unit, Valid: true}
}

type DrugRepository struct {
	db *sqlx.DB
}

func NewDrugRepository(db *sqlx.DB) *DrugRepository {
	return &DrugRepository{db: db}
}

// Connect opens a lib/pq connection pool.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Migrate creates the catalog table when missing.
func (r *DrugRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (r *DrugRepository) CreateDrug(ctx context.Context, drug *domain.Drug) error {
	value, unit := strengthArgs(drug)
	res, err := r.db.ExecContext(ctx, `INSERT INTO drugs (drug_id, name, generic_name, brand, description, manufacturer,
category, form, strength_value, strength_unit, prescription_required, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (drug_id) DO NOTHING`,
		drug.DrugID, drug.Name, drug.GenericName, drug.Brand, drug.Description, drug.Manufacturer,
		string(drug.Category), string(drug.Form), value, unit, drug.PrescriptionRequired, drug.IsActive,
		drug.CreatedAt, drug.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert drug: %w", err)
	}
	return expectOneRow(res, domain.ErrConflict)
}

func (r *DrugRepository) UpdateDrug(ctx context.Context, drug *domain.Drug) error {
	value, unit := strengthArgs(drug)
	res, err := r.db.ExecContext(ctx, `UPDATE drugs SET name = $2, generic_name = $3, brand = $4, description = $5,
manufacturer = $6, category = $7, form = $8, strength_value = $9, strength_unit = $10,
prescription_required = $11, is_active = $12, updated_at = $13 WHERE drug_id = $1`,
		drug.DrugID, drug.Name, drug.GenericName, drug.Brand, drug.Description, drug.Manufacturer,
		string(drug.Category), string(drug.Form), value, unit, drug.PrescriptionRequired, drug.IsActive,
		drug.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update drug: %w", err)
	}
	return expectOneRow(res, domain.ErrNotFound)
}

func expectOneRow(res sql.Result, onZero error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return onZero
	}
	return nil
}

func (r *DrugRepository) GetDrug(ctx context.Context, drugID string) (*domain.Drug, error) {
	var row drugRow
	err := r.db.GetContext(ctx, &row, `SELECT `+selectColumns+` FROM drugs WHERE drug_id = $1`, drugID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get drug: %w", err)
	}
	drug := row.toDomain()
	return &drug, nil
}

// SearchDrugs translates the filter into a parameterised WHERE clause. User
// input only ever travels as bind arguments.
func (r *DrugRepository) SearchDrugs(ctx context.Context, filter domain.DrugFilter) ([]domain.Drug, error) {
	where, args := buildWhere(filter)

	var rows []drugRow
	query := `SELECT ` + selectColumns + ` FROM drugs WHERE ` + where + ` ORDER BY name, drug_id`
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search drugs: %w", err)
	}

	drugs := make([]domain.Drug, 0, len(rows))
	for _, row := range rows {
		drugs = append(drugs, row.toDomain())
	}
	return drugs, nil
}

func buildWhere(filter domain.DrugFilter) (string, []interface{}) {
	clauses := []string{"is_active = TRUE"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if term := strings.TrimSpace(filter.Term); term != "" {
		p := arg("%" + escapeLike(term) + "%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE %[1]s OR generic_name ILIKE %[1]s OR brand ILIKE %[1]s OR description ILIKE %[1]s)", p))
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = "+arg(string(filter.Category)))
	}
	if filter.Form != "" {
		clauses = append(clauses, "form = "+arg(string(filter.Form)))
	}
	if filter.PrescriptionRequired != nil {
		clauses = append(clauses, "prescription_required = "+arg(*filter.PrescriptionRequired))
	}
	if filter.MinStrength != nil {
		clauses = append(clauses, "strength_value >= "+arg(*filter.MinStrength))
	}
	if filter.MaxStrength != nil {
		clauses = append(clauses, "strength_value <= "+arg(*filter.MaxStrength))
	}

	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
