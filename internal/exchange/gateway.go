package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/wonhyungLee/hookingauto/pkg/model"
)

// PositionSide labels one side of an open futures position. Venues in
// one-way mode report "both" with a signed size.
type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
	PositionBoth  PositionSide = "both"
)

// Position is one open futures position row as reported by the venue.
// Size is signed when Side is PositionBoth, positive otherwise.
type Position struct {
	Symbol string
	Side   PositionSide
	Size   decimal.Decimal
}

// OrderParams describes one order-create call.
type OrderParams struct {
	Symbol string
	Kind   model.OrderKind
	Side   string
	Amount decimal.Decimal
	Price  *decimal.Decimal
	Params map[string]any
}

// OrderResult is the venue's answer to an order-create call.
type OrderResult struct {
	ID     string
	Filled decimal.Decimal
	Cost   decimal.Decimal
	Price  decimal.Decimal
}

// Gateway is the capability contract against one exchange account on one
// market variant. Implementations own connectivity, precision metadata
// and venue quirks; callers own sizing and orchestration.
type Gateway interface {
	// Name returns the exchange identifier, e.g. "BINANCE".
	Name() string

	// LastPrice returns the last traded price for symbol.
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// FreeBalance returns the free balance for asset. The boolean is
	// false when the venue reports no balance for the asset at all.
	FreeBalance(ctx context.Context, asset string) (decimal.Decimal, bool, error)

	// TotalBalance is FreeBalance over the total (free + held) balance.
	TotalBalance(ctx context.Context, asset string) (decimal.Decimal, bool, error)

	// OpenPositions returns the open futures positions for symbol.
	OpenPositions(ctx context.Context, symbol string) ([]Position, error)

	// QuantizeAmount rounds amount to the venue's precision rule for symbol.
	QuantizeAmount(ctx context.Context, symbol string, amount decimal.Decimal) (decimal.Decimal, error)

	// SetLeverage sets the account leverage for symbol.
	SetLeverage(ctx context.Context, leverage int, symbol string) error

	// CreateOrder places one live order.
	CreateOrder(ctx context.Context, p OrderParams) (*OrderResult, error)
}
