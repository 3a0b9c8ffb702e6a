package model

import "testing"

func TestHedgeRequest_Validate(t *testing.T) {
	valid := HedgeRequest{
		Exchange: "BINANCE",
		Base:     "BTC",
		Quote:    "USDT",
		Amount:   amt("1.0"),
		Hedge:    HedgeOn,
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got error: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(r *HedgeRequest)
		wantErr string
	}{
		{
			name:    "missing exchange",
			mutate:  func(r *HedgeRequest) { r.Exchange = "" },
			wantErr: "exchange is required",
		},
		{
			name:    "missing base",
			mutate:  func(r *HedgeRequest) { r.Base = "" },
			wantErr: "base and quote are required",
		},
		{
			name:    "missing quote",
			mutate:  func(r *HedgeRequest) { r.Quote = "" },
			wantErr: "base and quote are required",
		},
		{
			name:    "empty mode",
			mutate:  func(r *HedgeRequest) { r.Hedge = "" },
			wantErr: "hedge must be ON or OFF",
		},
		{
			name:    "lowercase mode rejected",
			mutate:  func(r *HedgeRequest) { r.Hedge = "on" },
			wantErr: "hedge must be ON or OFF",
		},
		{
			name:    "unknown mode",
			mutate:  func(r *HedgeRequest) { r.Hedge = "TOGGLE" },
			wantErr: "hedge must be ON or OFF",
		},
		{
			name:    "on without amount",
			mutate:  func(r *HedgeRequest) { r.Amount = nil },
			wantErr: "hedge ON requires a positive amount",
		},
		{
			name:    "on with zero amount",
			mutate:  func(r *HedgeRequest) { r.Amount = amt("0") },
			wantErr: "hedge ON requires a positive amount",
		},
		{
			name:    "on with negative amount",
			mutate:  func(r *HedgeRequest) { r.Amount = amt("-1") },
			wantErr: "hedge ON requires a positive amount",
		},
		{
			name:    "zero leverage",
			mutate:  func(r *HedgeRequest) { r.Leverage = lev(0) },
			wantErr: "leverage must be positive",
		},
		{
			name:    "negative leverage",
			mutate:  func(r *HedgeRequest) { r.Leverage = lev(-2) },
			wantErr: "leverage must be positive",
		},
		{
			name: "off without amount accepted",
			mutate: func(r *HedgeRequest) {
				r.Hedge = HedgeOff
				r.Amount = nil
			},
		},
		{
			name:   "off keeps an amount accepted",
			mutate: func(r *HedgeRequest) { r.Hedge = HedgeOff },
		},
		{
			name:   "on with leverage accepted",
			mutate: func(r *HedgeRequest) { r.Leverage = lev(5) },
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
