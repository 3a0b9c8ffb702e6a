package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// HedgeMode switches a hedge request between opening and unwinding.
type HedgeMode string

const (
	HedgeOn  HedgeMode = "ON"
	HedgeOff HedgeMode = "OFF"
)

// HedgeRequest asks for a two-exchange arbitrage position to be opened
// (ON) or unwound (OFF). Exchange names the foreign leg; the domestic
// leg venue is fixed by service configuration.
type HedgeRequest struct {
	Exchange string           `json:"exchange"`
	Base     string           `json:"base"`
	Quote    string           `json:"quote"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Leverage *int             `json:"leverage,omitempty"`
	Hedge    HedgeMode        `json:"hedge"`
}

// Validate checks the request shape. Opening requires an explicit amount;
// unwinding is sized from the ledger.
func (r *HedgeRequest) Validate() error {
	if r.Exchange == "" {
		return fmt.Errorf("exchange is required")
	}
	if r.Base == "" || r.Quote == "" {
		return fmt.Errorf("base and quote are required")
	}
	switch r.Hedge {
	case HedgeOn:
		if r.Amount == nil || r.Amount.Sign() <= 0 {
			return fmt.Errorf("hedge ON requires a positive amount")
		}
	case HedgeOff:
	default:
		return fmt.Errorf("hedge must be ON or OFF")
	}
	if r.Leverage != nil && *r.Leverage <= 0 {
		return fmt.Errorf("leverage must be positive")
	}
	return nil
}
