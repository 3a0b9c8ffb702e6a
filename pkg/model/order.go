package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderKind is the execution style of an order.
type OrderKind string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
)

// Market classifies the venue variant an order trades on.
type Market int

const (
	MarketSpot Market = iota
	MarketLinear
	MarketCoinM
)

func (m Market) String() string {
	switch m {
	case MarketLinear:
		return "linear"
	case MarketCoinM:
		return "coinm"
	default:
		return "spot"
	}
}

// OrderRequest is one unit of trading intent received from a webhook.
//
// Side uses the original webhook grammar: bare "buy"/"sell" for spot,
// "entry/buy", "entry/sell", "close/buy", "close/sell" for derivatives.
// Exactly one of Amount/Percent must be set; the sizing engine enforces
// that and fills Amount (and AmountByPercent for percent-based sizing).
type OrderRequest struct {
	Exchange string    `json:"exchange"`
	Base     string    `json:"base"`
	Quote    string    `json:"quote"`
	Side     string    `json:"side"`
	Type     OrderKind `json:"type"`

	Amount  *decimal.Decimal `json:"amount,omitempty"`
	Percent *decimal.Decimal `json:"percent,omitempty"`
	Price   *decimal.Decimal `json:"price,omitempty"`

	Leverage *int `json:"leverage,omitempty"`

	IsFutures    bool             `json:"is_futures,omitempty"`
	IsCoinM      bool             `json:"is_coinm,omitempty"`
	IsSpot       bool             `json:"is_spot,omitempty"`
	IsContract   bool             `json:"is_contract,omitempty"`
	ContractSize *decimal.Decimal `json:"contract_size,omitempty"`

	// IsTotal sizes percent orders from the total balance instead of the
	// free balance.
	IsTotal bool `json:"is_total,omitempty"`

	// AmountByPercent records the quantity computed from percent sizing.
	// Audit only; never an input to further computation.
	AmountByPercent *decimal.Decimal `json:"amount_by_percent,omitempty"`
}

var validSides = map[string]bool{
	"buy":        true,
	"sell":       true,
	"entry/buy":  true,
	"entry/sell": true,
	"close/buy":  true,
	"close/sell": true,
}

// IsEntry reports whether the order opens a derivatives position.
func (r *OrderRequest) IsEntry() bool { return strings.HasPrefix(r.Side, "entry") }

// IsClose reports whether the order closes a derivatives position.
func (r *OrderRequest) IsClose() bool { return strings.HasPrefix(r.Side, "close") }

// IsBuy reports whether the exchange-facing side is buy.
func (r *OrderRequest) IsBuy() bool {
	return r.Side == "buy" || strings.HasSuffix(r.Side, "/buy")
}

// IsSell reports whether the exchange-facing side is sell.
func (r *OrderRequest) IsSell() bool {
	return r.Side == "sell" || strings.HasSuffix(r.Side, "/sell")
}

// OrderSide returns the bare buy/sell side sent to the exchange.
func (r *OrderRequest) OrderSide() string {
	if r.IsBuy() {
		return "buy"
	}
	return "sell"
}

// Market returns the venue variant the order trades on.
func (r *OrderRequest) Market() Market {
	if r.IsFutures {
		if r.IsCoinM {
			return MarketCoinM
		}
		return MarketLinear
	}
	return MarketSpot
}

// Symbol returns the ccxt unified symbol for the order's pair, e.g.
// "BTC/USDT" (spot), "BTC/USDT:USDT" (linear swap), "BTC/USD:BTC" (coinm).
func (r *OrderRequest) Symbol() string {
	base := strings.ToUpper(r.Base)
	quote := strings.ToUpper(r.Quote)
	switch r.Market() {
	case MarketLinear:
		return fmt.Sprintf("%s/%s:%s", base, quote, quote)
	case MarketCoinM:
		return fmt.Sprintf("%s/%s:%s", base, quote, base)
	default:
		return fmt.Sprintf("%s/%s", base, quote)
	}
}

// Validate checks field-shape invariants. Amount/percent exclusivity is
// deliberately left to the sizing engine so it holds for every caller,
// not only the webhook transport.
func (r *OrderRequest) Validate() error {
	if r.Exchange == "" {
		return fmt.Errorf("exchange is required")
	}
	if r.Base == "" || r.Quote == "" {
		return fmt.Errorf("base and quote are required")
	}
	if !validSides[r.Side] {
		return fmt.Errorf("unsupported side %q", r.Side)
	}
	if r.Type != OrderKindMarket && r.Type != OrderKindLimit {
		return fmt.Errorf("unsupported order type %q", r.Type)
	}
	if (r.IsEntry() || r.IsClose()) && !r.IsFutures {
		return fmt.Errorf("side %q requires is_futures", r.Side)
	}
	if r.IsSpot && r.IsFutures {
		return fmt.Errorf("is_spot and is_futures are mutually exclusive")
	}
	if r.Type == OrderKindLimit && r.Price == nil {
		return fmt.Errorf("price is required for limit orders")
	}
	if r.Type == OrderKindMarket && r.Price != nil {
		return fmt.Errorf("price is only valid for limit orders")
	}
	if r.Amount != nil && r.Amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if r.Percent != nil {
		if r.Percent.Sign() <= 0 || r.Percent.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("percent must be in (0, 100]")
		}
	}
	if r.IsContract != (r.ContractSize != nil) {
		return fmt.Errorf("contract_size must be set exactly when is_contract is set")
	}
	if r.ContractSize != nil && r.ContractSize.Sign() <= 0 {
		return fmt.Errorf("contract_size must be positive")
	}
	if r.Leverage != nil && *r.Leverage <= 0 {
		return fmt.Errorf("leverage must be positive")
	}
	return nil
}
