package domain

import "math"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// SearchRequest is the patient-facing query. Pointer fields are optional;
// InStockOnly defaults to true when nil.
type SearchRequest struct {
	Term                 string   `form:"term"`
	Category             Category `form:"category"`
	Form                 Form     `form:"form"`
	PrescriptionRequired *bool    `form:"prescription_required"`
	OriginLat            *float64 `form:"lat"`
	OriginLng            *float64 `form:"lng"`
	RadiusKm             *float64 `form:"radius_km"`
	MaxPrice             *float64 `form:"max_price"`
	InStockOnly          *bool    `form:"in_stock_only"`
	Page                 int      `form:"page"`
	PageSize             int      `form:"page_size"`
}

func (r SearchRequest) Origin() (Coordinate, error) {
	if r.OriginLat == nil || r.OriginLng == nil {
		return Coordinate{}, ErrInvalidOrigin
	}
	c := Coordinate{Lat: *r.OriginLat, Lng: *r.OriginLng}
	if !ValidCoordinate(c) {
		return Coordinate{}, ErrInvalidOrigin
	}
	return c, nil
}

func (r SearchRequest) Filter() DrugFilter {
	return DrugFilter{
		Term:                 r.Term,
		Category:             r.Category,
		Form:                 r.Form,
		PrescriptionRequired: r.PrescriptionRequired,
	}
}

func (r SearchRequest) StockOnly() bool {
	return r.InStockOnly == nil || *r.InStockOnly
}

// Validate checks every field except the catalog filter, which the catalog
// validates itself.
func (r SearchRequest) Validate() error {
	if _, err := r.Origin(); err != nil {
		return err
	}
	if r.RadiusKm != nil && (*r.RadiusKm < 0 || math.IsNaN(*r.RadiusKm) || math.IsInf(*r.RadiusKm, 0)) {
		return invalid("radius_km", "must be a finite non-negative number")
	}
	if r.MaxPrice != nil && (*r.MaxPrice < 0 || math.IsNaN(*r.MaxPrice) || math.IsInf(*r.MaxPrice, 0)) {
		return invalid("max_price", "must be a finite non-negative number")
	}
	if r.Page < 0 {
		return invalid("page", "cannot be negative")
	}
	if r.PageSize < 0 {
		return invalid("page_size", "cannot be negative")
	}
	return nil
}

// Pagination returns the 1-based page and the clamped page size.
func (r SearchRequest) Pagination(defaultSize, maxSize int) (int, int) {
	page, size := r.Page, r.PageSize
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	return page, size
}

type SearchResult struct {
	DrugID            string   `json:"drug_id"`
	DrugName          string   `json:"drug_name"`
	PharmacyID        string   `json:"pharmacy_id"`
	PharmacyName      string   `json:"pharmacy_name"`
	Price             float64  `json:"price"`
	EffectivePrice    float64  `json:"effective_price"`
	DistanceKm        *float64 `json:"distance_km"`
	InStock           bool     `json:"in_stock"`
	QuantityAvailable int      `json:"quantity_available"`
}

type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// ValidCoordinate reports whether c is a finite point on the globe.
func ValidCoordinate(c Coordinate) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
