package types

import "time"

// TradeRecord captures one closed round trip for a single asset. Records are
// created on the close transition and immutable once appended to the trade log.
type TradeRecord struct {
	ID          string    `csv:"id"`
	Asset       string    `csv:"asset"`
	EntryTime   time.Time `csv:"entry_time"`
	ExitTime    time.Time `csv:"exit_time"`
	EntryPrice  float64   `csv:"entry_price"`
	ExitPrice   float64   `csv:"exit_price"`
	Quantity    float64   `csv:"quantity"`
	RealizedPnL float64   `csv:"realized_pnl"`
	Fees        float64   `csv:"fees"`
}

// Win reports whether the trade realized a positive profit.
func (t TradeRecord) Win() bool {
	return t.RealizedPnL > 0
}
