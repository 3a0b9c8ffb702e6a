package hedge

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonhyungLee/hookingauto/internal/exchange"
	"github.com/wonhyungLee/hookingauto/pkg/model"
)

type execResponse struct {
	res *exchange.OrderResult
	err error
}

type scriptedExecutor struct {
	t         *testing.T
	responses []execResponse
	calls     []model.OrderRequest
}

func (s *scriptedExecutor) Execute(ctx context.Context, req *model.OrderRequest) (*exchange.OrderResult, error) {
	s.calls = append(s.calls, *req)
	if len(s.responses) == 0 {
		s.t.Fatalf("unexpected Execute call: %s %s on %s", req.Type, req.Side, req.Exchange)
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r.res, r.err
}

func filled(amount string) execResponse {
	return execResponse{res: &exchange.OrderResult{ID: "order-1", Filled: dec(amount)}}
}

func failed(msg string) execResponse {
	return execResponse{err: errors.New(msg)}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestCoordinator(t *testing.T, responses ...execResponse) (*Coordinator, *scriptedExecutor, *MemoryLedger) {
	exec := &scriptedExecutor{t: t, responses: responses}
	ledger := NewMemoryLedger()
	c := NewCoordinator(exec, ledger, "UPBIT", "KRW", nil)
	return c, exec, ledger
}

func seed(t *testing.T, ledger *MemoryLedger, exchangeName, base, quote, amount string) {
	t.Helper()
	_, err := ledger.Create(context.Background(), Record{
		Exchange: exchangeName, Base: base, Quote: quote, Amount: dec(amount),
	})
	require.NoError(t, err)
}

// ─── aggregation ──────────────────────────────────────────────────────────────

func TestAggregateByExchange(t *testing.T) {
	records := []Record{
		{ID: "a", Exchange: "BINANCE", Base: "BTC", Amount: dec("1.5")},
		{ID: "b", Exchange: "binance", Base: "BTC", Amount: dec("0.5")},
		{ID: "c", Exchange: "UPBIT", Base: "BTC", Amount: dec("2")},
	}

	aggs := AggregateByExchange(records)
	require.Len(t, aggs, 2)
	assert.True(t, aggs["BINANCE"].Amount.Equal(dec("2")))
	assert.ElementsMatch(t, []string{"a", "b"}, aggs["BINANCE"].IDs)
	assert.True(t, aggs["UPBIT"].Amount.Equal(dec("2")))
	assert.Equal(t, []string{"c"}, aggs["UPBIT"].IDs)
}

// ─── hedge open ───────────────────────────────────────────────────────────────

func TestOpen_BothLegsSucceed(t *testing.T) {
	c, exec, ledger := newTestCoordinator(t,
		filled("1.0"), // foreign entry/sell
		filled("1.0"), // domestic buy
	)

	req := &model.HedgeRequest{
		Exchange: "BINANCE", Base: "BTC", Quote: "USDT",
		Amount: decPtr("1.0"), Hedge: model.HedgeOn,
	}

	out, err := c.Open(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.ForeignAmount.Equal(dec("1.0")))
	assert.True(t, out.DomesticAmount.Equal(dec("1.0")))

	require.Len(t, exec.calls, 2)
	foreign := exec.calls[0]
	assert.Equal(t, "BINANCE", foreign.Exchange)
	assert.Equal(t, "entry/sell", foreign.Side)
	assert.Equal(t, model.OrderKindMarket, foreign.Type)
	assert.True(t, foreign.IsFutures)
	require.NotNil(t, foreign.Leverage)
	assert.Equal(t, 1, *foreign.Leverage, "leverage defaults to 1 when unset")

	domestic := exec.calls[1]
	assert.Equal(t, "UPBIT", domestic.Exchange)
	assert.Equal(t, "KRW", domestic.Quote)
	assert.Equal(t, "buy", domestic.Side)
	assert.False(t, domestic.IsFutures)
	require.NotNil(t, domestic.Amount)
	assert.True(t, domestic.Amount.Equal(dec("1.0")), "domestic leg sized to foreign fill")

	rows, err := ledger.ListByBase(context.Background(), "BTC")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	aggs := AggregateByExchange(rows)
	assert.True(t, aggs["BINANCE"].Amount.Equal(dec("1.0")))
	assert.True(t, aggs["UPBIT"].Amount.Equal(dec("1.0")))
}

func TestOpen_RequestedLeveragePassedThrough(t *testing.T) {
	c, exec, _ := newTestCoordinator(t, filled("1.0"), filled("1.0"))

	lev := 3
	req := &model.HedgeRequest{
		Exchange: "BINANCE", Base: "BTC", Quote: "USDT",
		Amount: decPtr("1.0"), Leverage: &lev, Hedge: model.HedgeOn,
	}

	_, err := c.Open(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, exec.calls[0].Leverage)
	assert.Equal(t, 3, *exec.calls[0].Leverage)
}

func TestOpen_WithoutAmountFailsBeforeAnyLeg(t *testing.T) {
	c, exec, ledger := newTestCoordinator(t)

	req := &model.HedgeRequest{
		Exchange: "BINANCE", Base: "BTC", Quote: "USDT", Hedge: model.HedgeOn,
	}

	_, err := c.Open(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, exec.calls)
	assert.Zero(t, ledger.Len())
}

func TestOpen_ForeignLegFailureLeavesLedgerUntouched(t *testing.T) {
	c, exec, ledger := newTestCoordinator(t, failed("venue down"))

	req := &model.HedgeRequest{
		Exchange: "BINANCE", Base: "BTC", Quote: "USDT",
		Amount: decPtr("1.0"), Hedge: model.HedgeOn,
	}

	_, err := c.Open(context.Background(), req)
	var legErr *LegError
	require.ErrorAs(t, err, &legErr)
	assert.Equal(t, LegForeign, legErr.Leg)
	assert.Len(t, exec.calls, 1)
	assert.Zero(t, ledger.Len())
}

func TestOpen_DomesticFailureCompensatesFullAggregate(t *testing.T) {
	c, exec, ledger := newTestCoordinator(t,
		filled("1.0"),               // foreign entry/sell
		failed("krw market halted"), // domestic buy
		filled("1.0"),               // compensating close
	)

	req := &model.HedgeRequest{
		Exchange: "BINANCE", Base: "BTC", Quote: "USDT",
		Amount: decPtr("1.0"), Hedge: model.HedgeOn,
	}

	_, err := c.Open(context.Background(), req)
	var legErr *LegError
	require.ErrorAs(t, err, &legErr)
	assert.Equal(t, LegDomestic, legErr.Leg)

	require.Len(t, exec.calls, 3)
	comp := exec.calls[2]
	assert.Equal(t, "BINANCE", comp.Exchange)
	assert.Equal(t, "close/buy", comp.Side)
	assert.True(t, comp.IsFutures)
	require.NotNil(t, comp.Amount)
	assert.True(t, comp.Amount.Equal(dec("1.0")), "compensation sized to the full foreign aggregate")

	assert.Zero(t, ledger.Len(), "ledger must be empty after compensation")
}

func TestOpen_CompensationFailureKeepsForeignRows(t *testing.T) {
	c, _, ledger := newTestCoordinator(t,
		filled("1.0"),
		failed("krw market halted"),
		failed("close rejected"),
	)

	req := &model.HedgeRequest{
		Exchange: "BINANCE", Base: "BTC", Quote: "USDT",
		Amount: decPtr("1.0"), Hedge: model.HedgeOn,
	}

	_, err := c.Open(context.Background(), req)
	require.Error(t, err)
	assert.ErrorContains(t, err, "compensation also failed")
	assert.Equal(t, 1, ledger.Len(), "exposure stays recorded when the close fails")
}

// ─── hedge close ──────────────────────────────────────────────────────────────

func TestClose_BothAggregatesZeroIsNoop(t *testing.T) {
	c, exec, _ := newTestCoordinator(t)

	req := &model.HedgeRequest{
		Exchange: "BINANCE", Base: "BTC", Quote: "USDT", Hedge: model.HedgeOff,
	}

	out, err := c.Close(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "nothing to unwind", out.Note)
	assert.Empty(t, exec.calls)
}

func TestClose_ClosesEachLegForItsOwnAggregate(t *testing.T) {
	c, exec, ledger := newTestCoordinator(t,
		filled("2.0"), // foreign close/buy
		filled("2.0"), // domestic sell
	)
	seed(t, ledger, "BINANCE", "BTC", "USDT", "1.5")
	seed(t, ledger, "BINANCE", "BTC", "USDT", "0.5")
	seed(t, ledger, "UPBIT", "BTC", "KRW", "2.0")
	seed(t, ledger, "BINANCE", "ETH", "USDT", "7") // different base, untouched

	req := &model.HedgeRequest{
		Exchange: "BINANCE", Base: "BTC", Quote: "USDT", Hedge: model.HedgeOff,
	}

	out, err := c.Close(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, out.ForeignAmount.Equal(dec("2.0")))
	assert.True(t, out.DomesticAmount.Equal(dec("2.0")))

	require.Len(t, exec.calls, 2)
	foreign := exec.calls[0]
	assert.Equal(t, "BINANCE", foreign.Exchange)
	assert.Equal(t, "close/buy", foreign.Side)
	require.NotNil(t, foreign.Amount)
	assert.True(t, foreign.Amount.Equal(dec("2.0")))

	domestic := exec.calls[1]
	assert.Equal(t, "UPBIT", domestic.Exchange)
	assert.Equal(t, "sell", domestic.Side)
	require.NotNil(t, domestic.Amount)
	assert.True(t, domestic.Amount.Equal(dec("2.0")))

	rows, err := ledger.ListByBase(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Empty(t, rows, "exactly the summed BTC rows are deleted")

	eth, err := ledger.ListByBase(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Len(t, eth, 1, "other bases keep their rows")
}

func TestClose_DegenerateOneSidedLedgerIsInformational(t *testing.T) {
	c, exec, ledger := newTestCoordinator(t)
	seed(t, ledger, "BINANCE", "BTC", "USDT", "1.0")

	req := &model.HedgeRequest{
		Exchange: "BINANCE", Base: "BTC", Quote: "USDT", Hedge: model.HedgeOff,
	}

	out, err := c.Close(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, out.Note, "unbalanced")
	assert.Empty(t, exec.calls, "degenerate state submits nothing")
	assert.Equal(t, 1, ledger.Len(), "degenerate state deletes nothing")
}

func TestClose_ForeignLegFailurePreservesRows(t *testing.T) {
	c, _, ledger := newTestCoordinator(t, failed("venue down"))
	seed(t, ledger, "BINANCE", "BTC", "USDT", "1.0")
	seed(t, ledger, "UPBIT", "BTC", "KRW", "1.0")

	req := &model.HedgeRequest{
		Exchange: "BINANCE", Base: "BTC", Quote: "USDT", Hedge: model.HedgeOff,
	}

	_, err := c.Close(context.Background(), req)
	var legErr *LegError
	require.ErrorAs(t, err, &legErr)
	assert.Equal(t, LegForeign, legErr.Leg)
	assert.Equal(t, 2, ledger.Len())
}
