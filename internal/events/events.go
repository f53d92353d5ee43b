package events

import (
	"time"
)

const (
	TypeOrderPlaced          = "order_placed"
	TypeStockDeductionFailed = "stock_deduction_failed"
)

// order-service에서 발행하는 주문 이벤트
type OrderPlacedEvent struct {
	EventID    string      `json:"event_id"`
	Type       string      `json:"type"`
	OrderID    string      `json:"order_id"`
	PharmacyID string      `json:"pharmacy_id"`
	Items      []OrderLine `json:"items"`
	Timestamp  time.Time   `json:"timestamp"`
	RequestID  string      `json:"request_id,omitempty"`
}

type OrderLine struct {
	DrugID   string `json:"drug_id"`
	Quantity int    `json:"quantity"`
}

// 재고 차감 실패 보상 이벤트
type StockDeductionFailedEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	PharmacyID string    `json:"pharmacy_id"`
	DrugID     string    `json:"drug_id"`
	Quantity   int       `json:"quantity"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}
