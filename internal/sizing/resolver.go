package sizing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wonhyungLee/hookingauto/internal/exchange"
	"github.com/wonhyungLee/hookingauto/pkg/model"
)

var (
	hundred = decimal.NewFromInt(100)

	// Linear and spot percent-of-balance buys set aside half a point of
	// the requested percent for fees and slippage. The haircut is part
	// of the sizing contract; it is not configurable.
	haircut = decimal.NewFromFloat(0.5)
)

// Resolver turns an order request plus live account data into a concrete
// tradable quantity. It is the only component that mutates an
// OrderRequest: on success the resolved quantity is written back to
// Amount (and AmountByPercent for percent sizing).
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Resolve computes the tradable quantity for req against gw, quantized
// to the venue's precision rule. No order is placed; every failure here
// is side-effect free.
func (r *Resolver) Resolve(ctx context.Context, req *model.OrderRequest, gw exchange.Gateway) (decimal.Decimal, error) {
	var (
		qty       decimal.Decimal
		byPercent bool
		err       error
	)

	switch {
	case req.Amount != nil && req.Percent != nil:
		return decimal.Zero, ErrAmountPercentBoth
	case req.Amount != nil:
		qty, err = r.fromAmount(ctx, req, gw)
	case req.Percent != nil:
		qty, err = r.fromPercent(ctx, req, gw)
		byPercent = true
	default:
		return decimal.Zero, ErrNoSizing
	}
	if err != nil {
		return decimal.Zero, err
	}

	qty, err = gw.QuantizeAmount(ctx, req.Symbol(), qty)
	if err != nil {
		return decimal.Zero, err
	}

	req.Amount = &qty
	if byPercent {
		req.AmountByPercent = &qty
	}

	r.logger.Debug("sizing.resolved",
		zap.String("exchange", gw.Name()),
		zap.String("symbol", req.Symbol()),
		zap.String("side", req.Side),
		zap.Bool("by_percent", byPercent),
		zap.String("quantity", qty.String()))

	return qty, nil
}

// fromAmount handles fixed-quantity sizing. Contract-quantity instruments
// express size in whole contracts, so the base amount is converted
// through the current price and floored.
func (r *Resolver) fromAmount(ctx context.Context, req *model.OrderRequest, gw exchange.Gateway) (decimal.Decimal, error) {
	if !req.IsContract {
		return *req.Amount, nil
	}
	price, err := gw.LastPrice(ctx, req.Symbol())
	if err != nil {
		return decimal.Zero, err
	}
	return req.Amount.Mul(price).Div(*req.ContractSize).Floor(), nil
}

func (r *Resolver) fromPercent(ctx context.Context, req *model.OrderRequest, gw exchange.Gateway) (decimal.Decimal, error) {
	pct := *req.Percent

	switch {
	case req.IsEntry() || (r.isSpot(req) && req.IsBuy()):
		return r.entrySize(ctx, req, gw, pct)

	case req.IsClose():
		size, err := r.positionSize(ctx, req, gw)
		if err != nil {
			return decimal.Zero, err
		}
		return size.Mul(pct).Div(hundred), nil

	case r.isSpot(req) && req.IsSell():
		free, err := r.balance(ctx, req, gw, req.Base)
		if err != nil {
			return decimal.Zero, err
		}
		return free.Mul(pct).Div(hundred), nil

	default:
		return decimal.Zero, fmt.Errorf("sizing: unsupported side %q for percent sizing", req.Side)
	}
}

// entrySize sizes a futures entry or spot buy from the account balance.
func (r *Resolver) entrySize(ctx context.Context, req *model.OrderRequest, gw exchange.Gateway, pct decimal.Decimal) (decimal.Decimal, error) {
	// Coin-margined entries are collateralized in the base asset and
	// sized from it directly.
	if req.IsCoinM {
		freeBase, err := r.balance(ctx, req, gw, req.Base)
		if err != nil {
			return decimal.Zero, err
		}
		if !req.IsContract {
			return freeBase.Mul(pct).Div(hundred), nil
		}
		price, err := gw.LastPrice(ctx, req.Symbol())
		if err != nil {
			return decimal.Zero, err
		}
		return freeBase.Mul(pct).Div(hundred).Mul(price).Div(*req.ContractSize).Floor(), nil
	}

	// Linear futures and spot buys spend the quote asset, minus the
	// fee/slippage haircut.
	freeQuote, err := r.balance(ctx, req, gw, req.Quote)
	if err != nil {
		return decimal.Zero, err
	}
	cash := freeQuote.Mul(pct.Sub(haircut)).Div(hundred)
	price, err := gw.LastPrice(ctx, req.Symbol())
	if err != nil {
		return decimal.Zero, err
	}
	if req.IsContract {
		return cash.Div(price).Div(*req.ContractSize).Floor(), nil
	}
	return cash.Div(price), nil
}

// balance fetches the free (or total, when requested) balance for asset.
// A missing or zero balance is a sizing failure, not a zero quantity.
func (r *Resolver) balance(ctx context.Context, req *model.OrderRequest, gw exchange.Gateway, asset string) (decimal.Decimal, error) {
	var (
		value decimal.Decimal
		found bool
		err   error
	)
	if req.IsTotal {
		value, found, err = gw.TotalBalance(ctx, asset)
	} else {
		value, found, err = gw.FreeBalance(ctx, asset)
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !found || value.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrFreeBalance, asset, gw.Name())
	}
	return value, nil
}

// positionSize resolves the open position a close order unwinds.
// Closing a buy-side order needs a short position; closing a sell-side
// order needs a long one.
func (r *Resolver) positionSize(ctx context.Context, req *model.OrderRequest, gw exchange.Gateway) (decimal.Decimal, error) {
	positions, err := gw.OpenPositions(ctx, req.Symbol())
	if err != nil {
		return decimal.Zero, err
	}
	if len(positions) == 0 {
		return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrNoPosition, req.Symbol(), gw.Name())
	}

	var longSize, shortSize decimal.Decimal
	for _, pos := range positions {
		switch pos.Side {
		case exchange.PositionLong:
			longSize = pos.Size
		case exchange.PositionShort:
			shortSize = pos.Size
		case exchange.PositionBoth:
			// One-way mode: the sign carries the direction.
			if pos.Size.Sign() > 0 {
				longSize = pos.Size
			} else if pos.Size.Sign() < 0 {
				shortSize = pos.Size.Abs()
			}
		}
	}

	if req.IsBuy() {
		if shortSize.IsZero() {
			return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrNoShortPosition, req.Symbol(), gw.Name())
		}
		return shortSize, nil
	}
	if longSize.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrNoLongPosition, req.Symbol(), gw.Name())
	}
	return longSize, nil
}

// isSpot treats any non-futures order as spot; the flag in the request
// is advisory.
func (r *Resolver) isSpot(req *model.OrderRequest) bool {
	return req.IsSpot || !req.IsFutures
}
