package sizing

import "errors"

// Sizing and position-lookup failures. All of them fire before any order
// is placed, so callers may retry the whole request safely.
var (
	ErrAmountPercentBoth = errors.New("sizing: amount and percent are both set")
	ErrNoSizing          = errors.New("sizing: neither amount nor percent is set")
	ErrFreeBalance       = errors.New("sizing: free balance unavailable")
	ErrNoPosition        = errors.New("sizing: no open position")
	ErrNoLongPosition    = errors.New("sizing: no long position to close")
	ErrNoShortPosition   = errors.New("sizing: no short position to close")

	// ErrZeroAmount marks a resolved quantity of zero; such orders are
	// never submitted.
	ErrZeroAmount = errors.New("sizing: resolved amount is zero")
)
