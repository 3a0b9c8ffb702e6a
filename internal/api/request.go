package api

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonhyungLee/hookingauto/pkg/model"
)

// PriceRequest asks for the last traded price of a pair on one venue.
type PriceRequest struct {
	Exchange  string `json:"exchange"`
	Base      string `json:"base"`
	Quote     string `json:"quote"`
	IsFutures bool   `json:"is_futures,omitempty"`
	IsCoinM   bool   `json:"is_coinm,omitempty"`
}

func (r *PriceRequest) Validate() error {
	if r.Exchange == "" {
		return fmt.Errorf("exchange is required")
	}
	if r.Base == "" || r.Quote == "" {
		return fmt.Errorf("base and quote are required")
	}
	return nil
}

// toOrderRequest maps a price lookup onto the symbol/market machinery of
// an order request without ever being executed.
func (r *PriceRequest) toOrderRequest() *model.OrderRequest {
	return &model.OrderRequest{
		Exchange:  r.Exchange,
		Base:      r.Base,
		Quote:     r.Quote,
		IsFutures: r.IsFutures,
		IsCoinM:   r.IsCoinM,
	}
}

// OrderResponse is the success body for POST /order.
type OrderResponse struct {
	model.Result
	OrderID string           `json:"order_id,omitempty"`
	Symbol  string           `json:"symbol,omitempty"`
	Filled  *decimal.Decimal `json:"filled,omitempty"`
}

// HedgeResponse is the success body for POST /hedge.
type HedgeResponse struct {
	model.Result
	ForeignExchange  string           `json:"foreign_exchange,omitempty"`
	ForeignAmount    *decimal.Decimal `json:"foreign_amount,omitempty"`
	DomesticExchange string           `json:"domestic_exchange,omitempty"`
	DomesticAmount   *decimal.Decimal `json:"domestic_amount,omitempty"`
}

// PriceResponse is the success body for POST /price.
type PriceResponse struct {
	model.Result
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}
