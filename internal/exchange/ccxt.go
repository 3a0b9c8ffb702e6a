package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wonhyungLee/hookingauto/internal/rate"
	"github.com/wonhyungLee/hookingauto/pkg/config"
	"github.com/wonhyungLee/hookingauto/pkg/model"
)

// ccxtClient is the slice of the generated ccxt API this gateway needs.
type ccxtClient interface {
	FetchTicker(symbol string, options ...ccxt.FetchTickerOptions) (ccxt.Ticker, error)
	FetchBalance(params ...interface{}) (ccxt.Balances, error)
	FetchPositions(options ...ccxt.FetchPositionsOptions) ([]ccxt.Position, error)
	CreateOrder(symbol string, typeVar string, side string, amount float64, options ...ccxt.CreateOrderOptions) (ccxt.Order, error)
	SetLeverage(leverage int64, options ...ccxt.SetLeverageOptions) (map[string]interface{}, error)
	AmountToPrecision(symbol string, amount interface{}) string
}

// CCXTGateway implements Gateway on top of one ccxt client. One instance
// is constructed per exchange account per market variant; nothing here
// mutates client defaults between requests.
type CCXTGateway struct {
	name    string
	market  model.Market
	client  ccxtClient
	limiter *rate.Manager
	logger  *zap.Logger

	loadMarkets func() error

	marketsMu     sync.Mutex
	marketsLoaded bool
}

func newCCXTGateway(name string, market model.Market, client ccxtClient, load func() error, limiter *rate.Manager, logger *zap.Logger) *CCXTGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CCXTGateway{
		name:        strings.ToUpper(name),
		market:      market,
		client:      client,
		limiter:     limiter,
		logger:      logger,
		loadMarkets: load,
	}
}

func binanceUserConfig(keys config.ExchangeKeys, defaultType string) map[string]interface{} {
	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             defaultType,
		},
	}
	if keys.APIKey != "" {
		userConfig["apiKey"] = keys.APIKey
	}
	if keys.APISecret != "" {
		userConfig["secret"] = keys.APISecret
	}
	return userConfig
}

// NewBinanceSpot constructs the Binance spot gateway.
func NewBinanceSpot(keys config.ExchangeKeys, sandbox bool, limiter *rate.Manager, logger *zap.Logger) *CCXTGateway {
	ex := ccxt.NewBinance(binanceUserConfig(keys, "spot"))
	if sandbox {
		ex.SetSandboxMode(true)
	}
	load := func() error { _, err := ex.LoadMarkets(); return err }
	return newCCXTGateway("BINANCE", model.MarketSpot, ex, load, limiter, logger)
}

// NewBinanceUSDM constructs the Binance USDⓈ-M (linear) futures gateway.
func NewBinanceUSDM(keys config.ExchangeKeys, sandbox bool, limiter *rate.Manager, logger *zap.Logger) *CCXTGateway {
	ex := ccxt.NewBinanceusdm(binanceUserConfig(keys, "swap"))
	if sandbox {
		ex.SetSandboxMode(true)
	}
	load := func() error { _, err := ex.LoadMarkets(); return err }
	return newCCXTGateway("BINANCE", model.MarketLinear, ex, load, limiter, logger)
}

// NewBinanceCoinM constructs the Binance COIN-M (coin-margined) futures gateway.
func NewBinanceCoinM(keys config.ExchangeKeys, sandbox bool, limiter *rate.Manager, logger *zap.Logger) *CCXTGateway {
	ex := ccxt.NewBinancecoinm(binanceUserConfig(keys, "delivery"))
	if sandbox {
		ex.SetSandboxMode(true)
	}
	load := func() error { _, err := ex.LoadMarkets(); return err }
	return newCCXTGateway("BINANCE", model.MarketCoinM, ex, load, limiter, logger)
}

// NewUpbit constructs the Upbit spot gateway.
func NewUpbit(keys config.ExchangeKeys, limiter *rate.Manager, logger *zap.Logger) *CCXTGateway {
	userConfig := map[string]interface{}{"enableRateLimit": true}
	if keys.APIKey != "" {
		userConfig["apiKey"] = keys.APIKey
	}
	if keys.APISecret != "" {
		userConfig["secret"] = keys.APISecret
	}
	ex := ccxt.NewUpbit(userConfig)
	load := func() error { _, err := ex.LoadMarkets(); return err }
	return newCCXTGateway("UPBIT", model.MarketSpot, ex, load, limiter, logger)
}

// Name returns the exchange identifier.
func (g *CCXTGateway) Name() string { return g.name }

func (g *CCXTGateway) prepare(ctx context.Context) error {
	if err := g.ensureMarketsLoaded(); err != nil {
		return err
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, g.name); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (g *CCXTGateway) ensureMarketsLoaded() error {
	if g.marketsLoaded {
		return nil
	}
	g.marketsMu.Lock()
	defer g.marketsMu.Unlock()
	if g.marketsLoaded {
		return nil
	}
	if err := g.loadMarkets(); err != nil {
		return fmt.Errorf("%s: load markets: %w", g.name, err)
	}
	g.marketsLoaded = true
	g.logger.Info("exchange.markets_loaded",
		zap.String("exchange", g.name),
		zap.String("market", g.market.String()))
	return nil
}

// LastPrice returns the last traded price for symbol.
func (g *CCXTGateway) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := g.prepare(ctx); err != nil {
		return decimal.Zero, err
	}
	ticker, err := g.client.FetchTicker(symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: fetch ticker %s: %w", g.name, symbol, err)
	}
	if ticker.Last == nil {
		return decimal.Zero, fmt.Errorf("%s: no last price for %s", g.name, symbol)
	}
	return decimal.NewFromFloat(*ticker.Last), nil
}

// FreeBalance returns the free balance for asset.
func (g *CCXTGateway) FreeBalance(ctx context.Context, asset string) (decimal.Decimal, bool, error) {
	return g.balance(ctx, asset, false)
}

// TotalBalance returns the total (free + held) balance for asset.
func (g *CCXTGateway) TotalBalance(ctx context.Context, asset string) (decimal.Decimal, bool, error) {
	return g.balance(ctx, asset, true)
}

func (g *CCXTGateway) balance(ctx context.Context, asset string, total bool) (decimal.Decimal, bool, error) {
	if err := g.prepare(ctx); err != nil {
		return decimal.Zero, false, err
	}
	balances, err := g.client.FetchBalance()
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%s: fetch balance: %w", g.name, err)
	}
	table := balances.Free
	if total {
		table = balances.Total
	}
	if table == nil {
		return decimal.Zero, false, nil
	}
	v, ok := table[strings.ToUpper(asset)]
	if !ok || v == nil {
		return decimal.Zero, false, nil
	}
	return decimal.NewFromFloat(*v), true, nil
}

// OpenPositions returns the nonzero open positions for symbol. Rows in
// one-way mode come back as PositionBoth with a signed size; hedge-mode
// rows come back as long/short with positive sizes.
func (g *CCXTGateway) OpenPositions(ctx context.Context, symbol string) ([]Position, error) {
	if err := g.prepare(ctx); err != nil {
		return nil, err
	}
	raw, err := g.client.FetchPositions()
	if err != nil {
		return nil, fmt.Errorf("%s: fetch positions: %w", g.name, err)
	}

	var positions []Position
	for _, rawPos := range raw {
		posSymbol := derefString(rawPos.Symbol)
		if posSymbol == "" || !strings.EqualFold(posSymbol, symbol) {
			continue
		}
		pos, ok := normalizePosition(posSymbol, rawPos)
		if !ok {
			continue
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

func normalizePosition(symbol string, rawPos ccxt.Position) (Position, bool) {
	size := derefFloat(rawPos.Contracts)
	side := strings.ToLower(strings.TrimSpace(derefString(rawPos.Side)))

	// One-way accounts report positionSide BOTH with a signed amount in
	// the raw payload rather than a unified side.
	if side == "" && rawPos.Info != nil {
		if ps, ok := rawPos.Info["positionSide"].(string); ok && strings.EqualFold(ps, "BOTH") {
			signed := parseNumeric(rawPos.Info["positionAmt"])
			if signed == 0 {
				return Position{}, false
			}
			return Position{Symbol: symbol, Side: PositionBoth, Size: decimal.NewFromFloat(signed)}, true
		}
	}

	if size == 0 {
		return Position{}, false
	}
	switch side {
	case "long":
		return Position{Symbol: symbol, Side: PositionLong, Size: decimal.NewFromFloat(size)}, true
	case "short":
		return Position{Symbol: symbol, Side: PositionShort, Size: decimal.NewFromFloat(size)}, true
	default:
		return Position{Symbol: symbol, Side: PositionBoth, Size: decimal.NewFromFloat(size)}, true
	}
}

// QuantizeAmount rounds amount to the venue precision rule for symbol.
func (g *CCXTGateway) QuantizeAmount(ctx context.Context, symbol string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := g.ensureMarketsLoaded(); err != nil {
		return decimal.Zero, err
	}
	quantized := g.client.AmountToPrecision(symbol, amount.InexactFloat64())
	out, err := decimal.NewFromString(quantized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: quantize %s for %s: %w", g.name, amount, symbol, err)
	}
	return out, nil
}

// SetLeverage sets the account leverage for symbol.
func (g *CCXTGateway) SetLeverage(ctx context.Context, leverage int, symbol string) error {
	if err := g.prepare(ctx); err != nil {
		return err
	}
	if _, err := g.client.SetLeverage(int64(leverage), ccxt.WithSetLeverageSymbol(symbol)); err != nil {
		return fmt.Errorf("%s: set leverage %d for %s: %w", g.name, leverage, symbol, err)
	}
	return nil
}

// CreateOrder places one live order and normalizes the fill report.
func (g *CCXTGateway) CreateOrder(ctx context.Context, p OrderParams) (*OrderResult, error) {
	if err := g.prepare(ctx); err != nil {
		return nil, err
	}

	var opts []ccxt.CreateOrderOptions
	if p.Price != nil {
		opts = append(opts, ccxt.WithCreateOrderPrice(p.Price.InexactFloat64()))
	}
	if len(p.Params) > 0 {
		opts = append(opts, ccxt.WithCreateOrderParams(p.Params))
	}

	order, err := g.client.CreateOrder(p.Symbol, string(p.Kind), p.Side, p.Amount.InexactFloat64(), opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: create order %s %s %s: %w", g.name, p.Symbol, p.Side, p.Amount, err)
	}

	filled := derefFloat(order.Filled)
	if filled == 0 {
		filled = derefFloat(order.Amount)
	}
	price := derefFloat(order.Average)
	if price == 0 {
		price = derefFloat(order.Price)
	}

	result := &OrderResult{
		ID:     derefString(order.Id),
		Filled: decimal.NewFromFloat(filled),
		Cost:   decimal.NewFromFloat(derefFloat(order.Cost)),
		Price:  decimal.NewFromFloat(price),
	}

	g.logger.Info("exchange.order_created",
		zap.String("exchange", g.name),
		zap.String("symbol", p.Symbol),
		zap.String("side", p.Side),
		zap.String("kind", string(p.Kind)),
		zap.String("amount", p.Amount.String()),
		zap.String("order_id", result.ID))

	return result, nil
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func parseNumeric(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case *float64:
		if v != nil {
			return *v
		}
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}
