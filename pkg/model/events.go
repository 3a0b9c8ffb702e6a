package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Envelope wraps every published event with identity and routing metadata.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// OrderEvent reports the outcome of a single order execution.
type OrderEvent struct {
	Exchange string           `json:"exchange"`
	Symbol   string           `json:"symbol"`
	Side     string           `json:"side"`
	Kind     string           `json:"kind"`
	Amount   decimal.Decimal  `json:"amount"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	OrderID  string           `json:"order_id,omitempty"`
	Status   string           `json:"status"`
	Reason   string           `json:"reason,omitempty"`
}

// HedgeEvent reports the outcome of a hedge open or unwind.
type HedgeEvent struct {
	Mode             string          `json:"mode"`
	Base             string          `json:"base"`
	Quote            string          `json:"quote"`
	ForeignExchange  string          `json:"foreign_exchange"`
	ForeignAmount    decimal.Decimal `json:"foreign_amount"`
	DomesticExchange string          `json:"domestic_exchange"`
	DomesticAmount   decimal.Decimal `json:"domestic_amount"`
	Status           string          `json:"status"`
	Note             string          `json:"note,omitempty"`
}
