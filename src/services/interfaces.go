package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/username/krakenpnl/src/kraken"
	"github.com/username/krakenpnl/src/models"
	"github.com/username/krakenpnl/src/processors"
)

// ExchangeClient is the slice of the exchange API the PnL service depends
// on. Satisfied by *kraken.Client; tests substitute a fake.
type ExchangeClient interface {
	TradesHistory(ctx context.Context, userref *int64) ([]kraken.TradeRecord, error)
	ClosedOrders(ctx context.Context, userref *int64) (map[string]kraken.OrderRecord, error)
	TickerPrice(ctx context.Context, pair string) (decimal.Decimal, error)
}

// ComputeRequest describes one PnL computation.
type ComputeRequest struct {
	Pair    string
	UserRef *int64
	Tier    string
	Window  processors.Window
}

// PnLService defines the interface for the core computation logic.
type PnLService interface {
	// Compute produces the FIFO PnL report for one pair. It is a pure
	// function of the fetched history, the current price, and the window:
	// re-running it on unchanged inputs yields identical output.
	Compute(ctx context.Context, req ComputeRequest) (*models.PnLReport, error)

	// Trades returns the normalized, chronologically sorted trade stream
	// that Compute would process, for listing and CSV export.
	Trades(ctx context.Context, req ComputeRequest) ([]models.Trade, error)
}
