package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultMinStockLevel = 10
	DefaultMaxStockLevel = 100
)

type InventoryRecord struct {
	PharmacyID      string     `dynamodbav:"pharmacy_id"                 json:"pharmacy_id"`
	DrugID          string     `dynamodbav:"drug_id"                     json:"drug_id"`
	Quantity        int        `dynamodbav:"quantity"                    json:"quantity"`
	Price           float64    `dynamodbav:"price"                       json:"price"`
	DiscountPercent float64    `dynamodbav:"discount_percent"            json:"discount_percent"`
	ExpiryDate      time.Time  `dynamodbav:"expiry_date"                 json:"expiry_date"`
	BatchNumber     string     `dynamodbav:"batch_number,omitempty"      json:"batch_number,omitempty"`
	Supplier        string     `dynamodbav:"supplier,omitempty"          json:"supplier,omitempty"`
	MinStockLevel   int        `dynamodbav:"min_stock_level"             json:"min_stock_level"`
	MaxStockLevel   int        `dynamodbav:"max_stock_level"             json:"max_stock_level"`
	IsAvailable     bool       `dynamodbav:"is_available"                json:"is_available"`
	Version         int64      `dynamodbav:"version"                     json:"version"`
	LastRestockedAt *time.Time `dynamodbav:"last_restocked_at,omitempty" json:"last_restocked_at,omitempty"`
	CreatedAt       time.Time  `dynamodbav:"created_at"                  json:"created_at"`
	UpdatedAt       time.Time  `dynamodbav:"updated_at"                  json:"updated_at"`
}

// EffectivePrice is the listed price after the discount is applied.
func (r *InventoryRecord) EffectivePrice() float64 {
	return EffectivePrice(r.Price, r.DiscountPercent)
}

func (r *InventoryRecord) IsLowStock() bool {
	return r.Quantity <= r.MinStockLevel
}

func (r *InventoryRecord) InStock() bool {
	return r.Quantity > 0 && r.IsAvailable
}

func EffectivePrice(price, discountPercent float64) float64 {
	factor := decimal.NewFromInt(100).Sub(decimal.NewFromFloat(discountPercent))
	value, _ := decimal.NewFromFloat(price).Mul(factor).Div(decimal.NewFromInt(100)).Float64()
	return value
}

func ValidatePricing(price, discountPercent float64) error {
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return invalid("price", "must be a finite non-negative number")
	}
	if discountPercent < 0 || discountPercent > 100 || math.IsNaN(discountPercent) {
		return invalid("discount_percent", "must be between 0 and 100")
	}
	return nil
}

func ValidateStockLevels(min, max int) error {
	if min < 0 {
		return invalid("min_stock_level", "cannot be negative")
	}
	if max < 0 {
		return invalid("max_stock_level", "cannot be negative")
	}
	if min > max {
		return invalid("min_stock_level", "cannot exceed max_stock_level")
	}
	return nil
}

type InventoryAttributes struct {
	Quantity        int       `json:"quantity"`
	Price           float64   `json:"price"`
	DiscountPercent float64   `json:"discount_percent"`
	ExpiryDate      time.Time `json:"expiry_date"      binding:"required"`
	BatchNumber     string    `json:"batch_number"`
	Supplier        string    `json:"supplier"`
	MinStockLevel   *int      `json:"min_stock_level"`
	MaxStockLevel   *int      `json:"max_stock_level"`
}

func (a InventoryAttributes) Validate() error {
	if a.Quantity < 0 {
		return invalid("quantity", "cannot be negative")
	}
	if err := ValidatePricing(a.Price, a.DiscountPercent); err != nil {
		return err
	}
	if a.ExpiryDate.IsZero() {
		return invalid("expiry_date", "is required")
	}
	min, max := a.levels()
	return ValidateStockLevels(min, max)
}

func (a InventoryAttributes) levels() (int, int) {
	min, max := DefaultMinStockLevel, DefaultMaxStockLevel
	if a.MinStockLevel != nil {
		min = *a.MinStockLevel
	}
	if a.MaxStockLevel != nil {
		max = *a.MaxStockLevel
	}
	return min, max
}

// NewInventoryRecord builds the first version of a record from validated
// attributes.
func NewInventoryRecord(pharmacyID, drugID string, a InventoryAttributes, now time.Time) *InventoryRecord {
	min, max := a.levels()
	return &InventoryRecord{
		PharmacyID:      pharmacyID,
		DrugID:          drugID,
		Quantity:        a.Quantity,
		Price:           a.Price,
		DiscountPercent: a.DiscountPercent,
		ExpiryDate:      a.ExpiryDate,
		BatchNumber:     a.BatchNumber,
		Supplier:        a.Supplier,
		MinStockLevel:   min,
		MaxStockLevel:   max,
		IsAvailable:     true,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

type AdjustQuantityRequest struct {
	Delta   int   `json:"delta"   binding:"required"`
	Version int64 `json:"version" binding:"required,min=1"`
}

type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type PricingRequest struct {
	Price           *float64 `json:"price"            binding:"required"`
	DiscountPercent *float64 `json:"discount_percent" binding:"required"`
}

type AvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

type StockLevelsRequest struct {
	MinStockLevel *int `json:"min_stock_level" binding:"required"`
	MaxStockLevel *int `json:"max_stock_level" binding:"required"`
}

type CreateInventoryRequest struct {
	DrugID string `json:"drug_id" binding:"required"`
	InventoryAttributes
}

type InventoryEventType string

const (
	EventStockChanged InventoryEventType = "stock_changed"
	EventLowStock     InventoryEventType = "low_stock"
)

// InventoryEvent is published after a quantity write lands.
type InventoryEvent struct {
	EventID       string             `json:"event_id"`
	Type          InventoryEventType `json:"type"`
	PharmacyID    string             `json:"pharmacy_id"`
	DrugID        string             `json:"drug_id"`
	Delta         int                `json:"delta"`
	Quantity      int                `json:"quantity"`
	MinStockLevel int                `json:"min_stock_level"`
	Version       int64              `json:"version"`
	OccurredAt    time.Time          `json:"occurred_at"`
}
