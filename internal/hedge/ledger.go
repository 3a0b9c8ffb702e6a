package hedge

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one open, unhedged quantity on one exchange for a base/quote
// pair. Rows are immutable once created; they are only ever deleted.
type Record struct {
	ID        string
	Exchange  string
	Base      string
	Quote     string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Ledger is the append/list/delete store of hedge-leg records. There is
// no update operation. The coordinator treats the store as the sole
// source of truth for open hedge exposure and never caches aggregates
// across invocations.
type Ledger interface {
	// Create appends a record and returns it with its store-assigned id.
	Create(ctx context.Context, rec Record) (Record, error)

	// ListByBase returns every open record for the base asset.
	ListByBase(ctx context.Context, base string) ([]Record, error)

	// Delete removes one record by id.
	Delete(ctx context.Context, id string) error
}

// Aggregate is the summed open exposure on one exchange together with
// the ids of the rows that were summed.
type Aggregate struct {
	Amount decimal.Decimal
	IDs    []string
}

// AggregateByExchange folds records into a per-exchange aggregate.
// Computed on read, never stored.
func AggregateByExchange(records []Record) map[string]Aggregate {
	out := make(map[string]Aggregate, 2)
	for _, rec := range records {
		key := strings.ToUpper(rec.Exchange)
		agg := out[key]
		agg.Amount = agg.Amount.Add(rec.Amount)
		agg.IDs = append(agg.IDs, rec.ID)
		out[key] = agg
	}
	return out
}
