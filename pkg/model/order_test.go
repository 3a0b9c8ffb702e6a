package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func amt(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func lev(v int) *int { return &v }

func TestOrderRequest_Validate(t *testing.T) {
	valid := OrderRequest{
		Exchange: "BINANCE",
		Base:     "BTC",
		Quote:    "USDT",
		Side:     "buy",
		Type:     OrderKindMarket,
		Amount:   amt("1"),
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got error: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(r *OrderRequest)
		wantErr string
	}{
		{
			name:    "missing exchange",
			mutate:  func(r *OrderRequest) { r.Exchange = "" },
			wantErr: "exchange is required",
		},
		{
			name:    "missing base",
			mutate:  func(r *OrderRequest) { r.Base = "" },
			wantErr: "base and quote are required",
		},
		{
			name:    "missing quote",
			mutate:  func(r *OrderRequest) { r.Quote = "" },
			wantErr: "base and quote are required",
		},
		{
			name:    "unknown side",
			mutate:  func(r *OrderRequest) { r.Side = "hold" },
			wantErr: `unsupported side "hold"`,
		},
		{
			name:    "empty side",
			mutate:  func(r *OrderRequest) { r.Side = "" },
			wantErr: `unsupported side ""`,
		},
		{
			name:    "unknown order type",
			mutate:  func(r *OrderRequest) { r.Type = "stop" },
			wantErr: `unsupported order type "stop"`,
		},
		{
			name:    "entry without is_futures",
			mutate:  func(r *OrderRequest) { r.Side = "entry/buy" },
			wantErr: `side "entry/buy" requires is_futures`,
		},
		{
			name:    "close without is_futures",
			mutate:  func(r *OrderRequest) { r.Side = "close/sell" },
			wantErr: `side "close/sell" requires is_futures`,
		},
		{
			name: "is_spot and is_futures together",
			mutate: func(r *OrderRequest) {
				r.IsSpot = true
				r.IsFutures = true
			},
			wantErr: "is_spot and is_futures are mutually exclusive",
		},
		{
			name:    "limit without price",
			mutate:  func(r *OrderRequest) { r.Type = OrderKindLimit },
			wantErr: "price is required for limit orders",
		},
		{
			name:    "market with price",
			mutate:  func(r *OrderRequest) { r.Price = amt("40000") },
			wantErr: "price is only valid for limit orders",
		},
		{
			name:    "zero amount",
			mutate:  func(r *OrderRequest) { r.Amount = amt("0") },
			wantErr: "amount must be positive",
		},
		{
			name:    "negative amount",
			mutate:  func(r *OrderRequest) { r.Amount = amt("-1") },
			wantErr: "amount must be positive",
		},
		{
			name: "zero percent",
			mutate: func(r *OrderRequest) {
				r.Amount = nil
				r.Percent = amt("0")
			},
			wantErr: "percent must be in (0, 100]",
		},
		{
			name: "negative percent",
			mutate: func(r *OrderRequest) {
				r.Amount = nil
				r.Percent = amt("-5")
			},
			wantErr: "percent must be in (0, 100]",
		},
		{
			name: "percent above 100",
			mutate: func(r *OrderRequest) {
				r.Amount = nil
				r.Percent = amt("100.01")
			},
			wantErr: "percent must be in (0, 100]",
		},
		{
			name: "percent of exactly 100 accepted",
			mutate: func(r *OrderRequest) {
				r.Amount = nil
				r.Percent = amt("100")
			},
		},
		{
			name:    "is_contract without contract_size",
			mutate:  func(r *OrderRequest) { r.IsContract = true },
			wantErr: "contract_size must be set exactly when is_contract is set",
		},
		{
			name:    "contract_size without is_contract",
			mutate:  func(r *OrderRequest) { r.ContractSize = amt("100") },
			wantErr: "contract_size must be set exactly when is_contract is set",
		},
		{
			name: "zero contract_size",
			mutate: func(r *OrderRequest) {
				r.IsContract = true
				r.ContractSize = amt("0")
			},
			wantErr: "contract_size must be positive",
		},
		{
			name: "negative contract_size",
			mutate: func(r *OrderRequest) {
				r.IsContract = true
				r.ContractSize = amt("-100")
			},
			wantErr: "contract_size must be positive",
		},
		{
			name:    "zero leverage",
			mutate:  func(r *OrderRequest) { r.Leverage = lev(0) },
			wantErr: "leverage must be positive",
		},
		{
			name:    "negative leverage",
			mutate:  func(r *OrderRequest) { r.Leverage = lev(-3) },
			wantErr: "leverage must be positive",
		},
		{
			name:   "sell side accepted",
			mutate: func(r *OrderRequest) { r.Side = "sell" },
		},
		{
			name: "entry with is_futures accepted",
			mutate: func(r *OrderRequest) {
				r.Side = "entry/sell"
				r.IsFutures = true
			},
		},
		{
			name: "close with is_futures accepted",
			mutate: func(r *OrderRequest) {
				r.Side = "close/buy"
				r.IsFutures = true
			},
		},
		{
			name: "limit with price accepted",
			mutate: func(r *OrderRequest) {
				r.Type = OrderKindLimit
				r.Price = amt("40000")
			},
		},
		{
			name: "contract sizing accepted",
			mutate: func(r *OrderRequest) {
				r.Side = "entry/buy"
				r.IsFutures = true
				r.IsCoinM = true
				r.IsContract = true
				r.ContractSize = amt("100")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid // copy
			tt.mutate(&r)
			err := r.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestOrderRequest_Symbol(t *testing.T) {
	tests := []struct {
		name string
		req  OrderRequest
		want string
	}{
		{
			name: "spot",
			req:  OrderRequest{Base: "btc", Quote: "usdt"},
			want: "BTC/USDT",
		},
		{
			name: "linear swap",
			req:  OrderRequest{Base: "BTC", Quote: "USDT", IsFutures: true},
			want: "BTC/USDT:USDT",
		},
		{
			name: "coin-margined",
			req:  OrderRequest{Base: "BTC", Quote: "USD", IsFutures: true, IsCoinM: true},
			want: "BTC/USD:BTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Symbol(); got != tt.want {
				t.Errorf("Symbol() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOrderRequest_SideHelpers(t *testing.T) {
	tests := []struct {
		side      string
		entry     bool
		close     bool
		orderSide string
	}{
		{side: "buy", orderSide: "buy"},
		{side: "sell", orderSide: "sell"},
		{side: "entry/buy", entry: true, orderSide: "buy"},
		{side: "entry/sell", entry: true, orderSide: "sell"},
		{side: "close/buy", close: true, orderSide: "buy"},
		{side: "close/sell", close: true, orderSide: "sell"},
	}

	for _, tt := range tests {
		t.Run(tt.side, func(t *testing.T) {
			r := OrderRequest{Side: tt.side}
			if r.IsEntry() != tt.entry {
				t.Errorf("IsEntry() = %v, want %v", r.IsEntry(), tt.entry)
			}
			if r.IsClose() != tt.close {
				t.Errorf("IsClose() = %v, want %v", r.IsClose(), tt.close)
			}
			if r.OrderSide() != tt.orderSide {
				t.Errorf("OrderSide() = %q, want %q", r.OrderSide(), tt.orderSide)
			}
		})
	}
}
