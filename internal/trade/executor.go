package trade

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wonhyungLee/hookingauto/internal/exchange"
	"github.com/wonhyungLee/hookingauto/internal/sizing"
	"github.com/wonhyungLee/hookingauto/internal/submit"
	"github.com/wonhyungLee/hookingauto/pkg/model"
)

// Executor turns validated order requests into live exchange orders:
// resolve the quantity, then submit with the flow's retry budget.
type Executor struct {
	exchanges *exchange.Registry
	resolver  *sizing.Resolver
	submitter submit.Submitter
	logger    *zap.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(exchanges *exchange.Registry, resolver *sizing.Resolver, submitter submit.Submitter, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		exchanges: exchanges,
		resolver:  resolver,
		submitter: submitter,
		logger:    logger,
	}
}

// Execute dispatches req to the matching flow.
func (e *Executor) Execute(ctx context.Context, req *model.OrderRequest) (*exchange.OrderResult, error) {
	e.logger.Info("trade.execute",
		zap.String("exchange", req.Exchange),
		zap.String("symbol", req.Symbol()),
		zap.String("type", string(req.Type)),
		zap.String("side", req.Side))

	switch req.Type {
	case model.OrderKindMarket:
		switch {
		case req.IsEntry():
			return e.MarketEntry(ctx, req)
		case req.IsClose():
			return e.MarketClose(ctx, req)
		case req.IsBuy():
			return e.MarketBuy(ctx, req)
		case req.IsSell():
			return e.MarketSell(ctx, req)
		}
	case model.OrderKindLimit:
		switch {
		case req.IsEntry():
			return e.LimitEntry(ctx, req)
		case req.IsClose():
			return e.LimitClose(ctx, req)
		case req.IsBuy():
			return e.LimitBuy(ctx, req)
		case req.IsSell():
			return e.LimitSell(ctx, req)
		}
	}
	return nil, fmt.Errorf("trade: unsupported order type %q side %q", req.Type, req.Side)
}

// MarketEntry opens a futures position at market. A resolved quantity of
// zero is rejected before anything reaches the venue.
func (e *Executor) MarketEntry(ctx context.Context, req *model.OrderRequest) (*exchange.OrderResult, error) {
	gw, err := e.exchanges.Gateway(req.Exchange, req.Market())
	if err != nil {
		return nil, err
	}

	qty, err := e.resolver.Resolve(ctx, req, gw)
	if err != nil {
		return nil, err
	}
	if qty.IsZero() {
		return nil, fmt.Errorf("%w: %s on %s", sizing.ErrZeroAmount, req.Symbol(), gw.Name())
	}

	if req.Leverage != nil {
		if err := gw.SetLeverage(ctx, *req.Leverage, req.Symbol()); err != nil {
			return nil, err
		}
	}

	return e.submitter.Submit(ctx, gw, exchange.OrderParams{
		Symbol: req.Symbol(),
		Kind:   model.OrderKindMarket,
		Side:   req.OrderSide(),
		Amount: qty.Abs(),
	}, submit.MarketFlowAttempts)
}

// MarketClose reduces an open futures position at market.
func (e *Executor) MarketClose(ctx context.Context, req *model.OrderRequest) (*exchange.OrderResult, error) {
	gw, err := e.exchanges.Gateway(req.Exchange, req.Market())
	if err != nil {
		return nil, err
	}

	qty, err := e.resolver.Resolve(ctx, req, gw)
	if err != nil {
		return nil, err
	}

	return e.submitter.Submit(ctx, gw, exchange.OrderParams{
		Symbol: req.Symbol(),
		Kind:   model.OrderKindMarket,
		Side:   req.OrderSide(),
		Amount: qty.Abs(),
		Params: map[string]any{"reduceOnly": true},
	}, submit.MarketFlowAttempts)
}

// MarketBuy places a plain market buy.
func (e *Executor) MarketBuy(ctx context.Context, req *model.OrderRequest) (*exchange.OrderResult, error) {
	return e.simpleOrder(ctx, req, model.OrderKindMarket, nil)
}

// MarketSell places a plain market sell.
func (e *Executor) MarketSell(ctx context.Context, req *model.OrderRequest) (*exchange.OrderResult, error) {
	return e.simpleOrder(ctx, req, model.OrderKindMarket, nil)
}

// LimitEntry opens a futures position at a limit price.
func (e *Executor) LimitEntry(ctx context.Context, req *model.OrderRequest) (*exchange.OrderResult, error) {
	gw, err := e.exchanges.Gateway(req.Exchange, req.Market())
	if err != nil {
		return nil, err
	}

	qty, err := e.resolver.Resolve(ctx, req, gw)
	if err != nil {
		return nil, err
	}
	if qty.IsZero() {
		return nil, fmt.Errorf("%w: %s on %s", sizing.ErrZeroAmount, req.Symbol(), gw.Name())
	}

	if req.Leverage != nil {
		if err := gw.SetLeverage(ctx, *req.Leverage, req.Symbol()); err != nil {
			return nil, err
		}
	}

	return e.submitter.Submit(ctx, gw, exchange.OrderParams{
		Symbol: req.Symbol(),
		Kind:   model.OrderKindLimit,
		Side:   req.OrderSide(),
		Amount: qty.Abs(),
		Price:  req.Price,
	}, submit.SimpleFlowAttempts)
}

// LimitClose reduces an open futures position at a limit price.
func (e *Executor) LimitClose(ctx context.Context, req *model.OrderRequest) (*exchange.OrderResult, error) {
	gw, err := e.exchanges.Gateway(req.Exchange, req.Market())
	if err != nil {
		return nil, err
	}

	qty, err := e.resolver.Resolve(ctx, req, gw)
	if err != nil {
		return nil, err
	}

	return e.submitter.Submit(ctx, gw, exchange.OrderParams{
		Symbol: req.Symbol(),
		Kind:   model.OrderKindLimit,
		Side:   req.OrderSide(),
		Amount: qty.Abs(),
		Price:  req.Price,
		Params: map[string]any{"reduceOnly": true},
	}, submit.SimpleFlowAttempts)
}

// LimitBuy places a plain limit buy.
func (e *Executor) LimitBuy(ctx context.Context, req *model.OrderRequest) (*exchange.OrderResult, error) {
	return e.simpleOrder(ctx, req, model.OrderKindLimit, req.Price)
}

// LimitSell places a plain limit sell.
func (e *Executor) LimitSell(ctx context.Context, req *model.OrderRequest) (*exchange.OrderResult, error) {
	return e.simpleOrder(ctx, req, model.OrderKindLimit, req.Price)
}

func (e *Executor) simpleOrder(ctx context.Context, req *model.OrderRequest, kind model.OrderKind, price *decimal.Decimal) (*exchange.OrderResult, error) {
	gw, err := e.exchanges.Gateway(req.Exchange, req.Market())
	if err != nil {
		return nil, err
	}

	qty, err := e.resolver.Resolve(ctx, req, gw)
	if err != nil {
		return nil, err
	}

	return e.submitter.Submit(ctx, gw, exchange.OrderParams{
		Symbol: req.Symbol(),
		Kind:   kind,
		Side:   req.OrderSide(),
		Amount: qty.Abs(),
		Price:  price,
	}, submit.SimpleFlowAttempts)
}
