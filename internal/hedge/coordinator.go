package hedge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wonhyungLee/hookingauto/internal/exchange"
	"github.com/wonhyungLee/hookingauto/pkg/model"
)

// Leg names for error reporting.
const (
	LegForeign  = "foreign"
	LegDomestic = "domestic"
)

// LegError tags a hedge failure with the leg it happened on.
type LegError struct {
	Leg string
	Err error
}

func (e *LegError) Error() string {
	return fmt.Sprintf("hedge %s leg failed: %v", e.Leg, e.Err)
}

func (e *LegError) Unwrap() error { return e.Err }

// Outcome summarizes a completed hedge flow.
type Outcome struct {
	Mode             model.HedgeMode
	Base             string
	ForeignExchange  string
	DomesticExchange string
	ForeignAmount    decimal.Decimal
	DomesticAmount   decimal.Decimal
	Note             string
}

// orderExecutor is the slice of the trade executor the coordinator uses.
type orderExecutor interface {
	Execute(ctx context.Context, req *model.OrderRequest) (*exchange.OrderResult, error)
}

// Coordinator orchestrates two-exchange hedges: a short futures entry on
// the foreign venue paired with a spot buy on the domestic venue, with
// compensation when the second leg fails. Flows for the same base are
// serialized; the ledger is read fresh on every flow.
type Coordinator struct {
	exec             orderExecutor
	ledger           Ledger
	domesticExchange string
	domesticQuote    string
	logger           *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCoordinator creates a Coordinator. domesticExchange/domesticQuote
// name the venue and currency of the domestic leg, e.g. UPBIT/KRW.
func NewCoordinator(exec orderExecutor, ledger Ledger, domesticExchange, domesticQuote string, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		exec:             exec,
		ledger:           ledger,
		domesticExchange: strings.ToUpper(domesticExchange),
		domesticQuote:    strings.ToUpper(domesticQuote),
		logger:           logger,
		locks:            make(map[string]*sync.Mutex),
	}
}

func (c *Coordinator) baseLock(base string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := strings.ToUpper(base)
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}

// Run dispatches a validated hedge request to the open or close flow.
func (c *Coordinator) Run(ctx context.Context, req *model.HedgeRequest) (*Outcome, error) {
	if req.Hedge == model.HedgeOn {
		return c.Open(ctx, req)
	}
	return c.Close(ctx, req)
}

// Open executes the hedge-open state machine: short the base on the
// foreign venue, record it, buy the same quantity on the domestic venue,
// record that too. A domestic failure unwinds the foreign exposure for
// the whole ledger aggregate and reports failure.
func (c *Coordinator) Open(ctx context.Context, req *model.HedgeRequest) (*Outcome, error) {
	lock := c.baseLock(req.Base)
	lock.Lock()
	defer lock.Unlock()

	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("hedge: open requires a positive amount")
	}

	foreignEx := strings.ToUpper(req.Exchange)
	leverage := 1
	if req.Leverage != nil {
		leverage = *req.Leverage
	}

	c.logger.Info("hedge.open.started",
		zap.String("base", req.Base),
		zap.String("foreign", foreignEx),
		zap.String("domestic", c.domesticExchange),
		zap.String("amount", req.Amount.String()))

	foreignRes, err := c.exec.Execute(ctx, &model.OrderRequest{
		Exchange:  req.Exchange,
		Base:      req.Base,
		Quote:     req.Quote,
		Side:      "entry/sell",
		Type:      model.OrderKindMarket,
		IsFutures: true,
		Amount:    req.Amount,
		Leverage:  &leverage,
	})
	if err != nil {
		c.logger.Error("hedge.open.foreign_leg_failed", zap.String("base", req.Base), zap.Error(err))
		return nil, &LegError{Leg: LegForeign, Err: err}
	}

	foreignFill := foreignRes.Filled
	if foreignFill.IsZero() {
		foreignFill = *req.Amount
	}
	if _, err := c.ledger.Create(ctx, Record{
		Exchange: foreignEx,
		Base:     strings.ToUpper(req.Base),
		Quote:    strings.ToUpper(req.Quote),
		Amount:   foreignFill,
	}); err != nil {
		// The short is live but unrecorded. Surface loudly rather than
		// guessing at repair.
		c.logger.Error("hedge.open.record_foreign_failed", zap.String("base", req.Base), zap.Error(err))
		return nil, &LegError{Leg: LegForeign, Err: fmt.Errorf("record foreign leg: %w", err)}
	}

	domesticRes, err := c.exec.Execute(ctx, &model.OrderRequest{
		Exchange: c.domesticExchange,
		Base:     req.Base,
		Quote:    c.domesticQuote,
		Side:     "buy",
		Type:     model.OrderKindMarket,
		Amount:   &foreignFill,
	})
	if err != nil {
		c.logger.Warn("hedge.open.domestic_leg_failed",
			zap.String("base", req.Base), zap.Error(err))
		if compErr := c.compensate(ctx, foreignEx, req); compErr != nil {
			return nil, &LegError{Leg: LegDomestic, Err: fmt.Errorf("%w (compensation also failed: %v)", err, compErr)}
		}
		return nil, &LegError{Leg: LegDomestic, Err: err}
	}

	domesticFill := domesticRes.Filled
	if domesticFill.IsZero() {
		domesticFill = foreignFill
	}
	if _, err := c.ledger.Create(ctx, Record{
		Exchange: c.domesticExchange,
		Base:     strings.ToUpper(req.Base),
		Quote:    c.domesticQuote,
		Amount:   domesticFill,
	}); err != nil {
		c.logger.Error("hedge.open.record_domestic_failed", zap.String("base", req.Base), zap.Error(err))
		return nil, &LegError{Leg: LegDomestic, Err: fmt.Errorf("record domestic leg: %w", err)}
	}

	c.logger.Info("hedge.open.succeeded",
		zap.String("base", req.Base),
		zap.String("foreign_filled", foreignFill.String()),
		zap.String("domestic_filled", domesticFill.String()))

	return &Outcome{
		Mode:             model.HedgeOn,
		Base:             strings.ToUpper(req.Base),
		ForeignExchange:  foreignEx,
		DomesticExchange: c.domesticExchange,
		ForeignAmount:    foreignFill,
		DomesticAmount:   domesticFill,
	}, nil
}

// compensate unwinds the foreign exposure after a domestic-leg failure:
// close the full ledger aggregate on the foreign venue, then delete the
// rows that were summed. Rows survive when the close itself fails, so
// the exposure stays visible.
func (c *Coordinator) compensate(ctx context.Context, foreignEx string, req *model.HedgeRequest) error {
	rows, err := c.ledger.ListByBase(ctx, req.Base)
	if err != nil {
		return fmt.Errorf("list ledger: %w", err)
	}
	agg, ok := AggregateByExchange(rows)[foreignEx]
	if !ok || agg.Amount.IsZero() {
		return fmt.Errorf("no foreign exposure recorded for %s/%s", foreignEx, req.Base)
	}

	c.logger.Warn("hedge.compensate.started",
		zap.String("base", req.Base),
		zap.String("exchange", foreignEx),
		zap.String("aggregate", agg.Amount.String()))

	if _, err := c.exec.Execute(ctx, &model.OrderRequest{
		Exchange:  foreignEx,
		Base:      req.Base,
		Quote:     req.Quote,
		Side:      "close/buy",
		Type:      model.OrderKindMarket,
		IsFutures: true,
		Amount:    &agg.Amount,
	}); err != nil {
		return fmt.Errorf("compensating close: %w", err)
	}

	for _, id := range agg.IDs {
		if err := c.ledger.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete record %s: %w", id, err)
		}
	}

	c.logger.Info("hedge.compensate.succeeded", zap.String("base", req.Base))
	return nil
}

// Close executes the hedge-close state machine: size each leg to its own
// ledger aggregate, close the foreign short, sell the domestic holding,
// and delete exactly the rows that were summed.
func (c *Coordinator) Close(ctx context.Context, req *model.HedgeRequest) (*Outcome, error) {
	lock := c.baseLock(req.Base)
	lock.Lock()
	defer lock.Unlock()

	foreignEx := strings.ToUpper(req.Exchange)

	rows, err := c.ledger.ListByBase(ctx, req.Base)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	aggs := AggregateByExchange(rows)
	foreignAgg := aggs[foreignEx]
	domesticAgg := aggs[c.domesticExchange]

	outcome := &Outcome{
		Mode:             model.HedgeOff,
		Base:             strings.ToUpper(req.Base),
		ForeignExchange:  foreignEx,
		DomesticExchange: c.domesticExchange,
		ForeignAmount:    foreignAgg.Amount,
		DomesticAmount:   domesticAgg.Amount,
	}

	switch {
	case foreignAgg.Amount.IsZero() && domesticAgg.Amount.IsZero():
		outcome.Note = "nothing to unwind"
		c.logger.Info("hedge.close.noop", zap.String("base", req.Base))
		return outcome, nil

	case foreignAgg.Amount.IsZero() || domesticAgg.Amount.IsZero():
		// One venue carries exposure with no counterpart. Surfaced, not
		// auto-repaired.
		outcome.Note = "unbalanced ledger: one leg has no open exposure"
		c.logger.Warn("hedge.close.unbalanced",
			zap.String("base", req.Base),
			zap.String("foreign", foreignAgg.Amount.String()),
			zap.String("domestic", domesticAgg.Amount.String()))
		return outcome, nil
	}

	c.logger.Info("hedge.close.started",
		zap.String("base", req.Base),
		zap.String("foreign", foreignAgg.Amount.String()),
		zap.String("domestic", domesticAgg.Amount.String()))

	if _, err := c.exec.Execute(ctx, &model.OrderRequest{
		Exchange:  foreignEx,
		Base:      req.Base,
		Quote:     req.Quote,
		Side:      "close/buy",
		Type:      model.OrderKindMarket,
		IsFutures: true,
		Amount:    &foreignAgg.Amount,
	}); err != nil {
		c.logger.Error("hedge.close.foreign_leg_failed", zap.String("base", req.Base), zap.Error(err))
		return nil, &LegError{Leg: LegForeign, Err: err}
	}
	for _, id := range foreignAgg.IDs {
		if err := c.ledger.Delete(ctx, id); err != nil {
			return nil, &LegError{Leg: LegForeign, Err: fmt.Errorf("delete record %s: %w", id, err)}
		}
	}

	if _, err := c.exec.Execute(ctx, &model.OrderRequest{
		Exchange: c.domesticExchange,
		Base:     req.Base,
		Quote:    c.domesticQuote,
		Side:     "sell",
		Type:     model.OrderKindMarket,
		Amount:   &domesticAgg.Amount,
	}); err != nil {
		c.logger.Error("hedge.close.domestic_leg_failed", zap.String("base", req.Base), zap.Error(err))
		return nil, &LegError{Leg: LegDomestic, Err: err}
	}
	for _, id := range domesticAgg.IDs {
		if err := c.ledger.Delete(ctx, id); err != nil {
			return nil, &LegError{Leg: LegDomestic, Err: fmt.Errorf("delete record %s: %w", id, err)}
		}
	}

	c.logger.Info("hedge.close.succeeded", zap.String("base", req.Base))
	return outcome, nil
}
