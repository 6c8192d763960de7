package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an executed fill.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Trade is the unified, normalized representation of a single executed fill.
// The normalizer is responsible for populating every field from the raw
// exchange record; downstream components never look at raw payloads.
type Trade struct {
	TxID      string          `json:"txid"`       // Exchange-assigned fill id; dedup key and timestamp tie-breaker
	OrderTxID string          `json:"order_txid"` // Id of the order this fill belongs to
	Pair      string          `json:"pair"`
	Time      time.Time       `json:"time"`
	Side      Side            `json:"side"`
	Price     decimal.Decimal `json:"price"`  // Quote currency per unit of base
	Volume    decimal.Decimal `json:"volume"` // Base currency quantity
	Cost      decimal.Decimal `json:"cost"`   // Price × Volume in quote currency
	Fee       decimal.Decimal `json:"fee"`    // Quote currency
}

// Lot is the remaining, unconsumed portion of a historical buy. The fee paid
// on the originating buy is amortized into UnitCost so that partial
// consumption carries a proportional fee share.
type Lot struct {
	AcquiredAt time.Time       `json:"acquired_at"`
	TxID       string          `json:"txid"`
	Remaining  decimal.Decimal `json:"remaining_volume"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
}

// CostBasis returns the total acquisition cost carried by the unsold portion.
func (l Lot) CostBasis() decimal.Decimal {
	return l.UnitCost.Mul(l.Remaining)
}

// LotMatch records one lot portion consumed by a sell. Kept on the
// RealizedEvent for auditability; reporting only ever uses the event totals.
type LotMatch struct {
	AcquiredAt time.Time       `json:"acquired_at"`
	BuyTxID    string          `json:"buy_txid"`
	Volume     decimal.Decimal `json:"volume"`
	CostBasis  decimal.Decimal `json:"cost_basis"`
}

// RealizedEvent is emitted once per sell trade, with cost basis and proceeds
// aggregated across every lot the sell consumed.
type RealizedEvent struct {
	Pair          string          `json:"pair"`
	SellTxID      string          `json:"sell_txid"`
	SellTime      time.Time       `json:"sell_time"`
	MatchedVolume decimal.Decimal `json:"matched_volume"`
	Proceeds      decimal.Decimal `json:"proceeds"`   // Price × volume net of the sell-side fee
	CostBasis     decimal.Decimal `json:"cost_basis"` // Sum of unit cost × volume over consumed portions
	Gain          decimal.Decimal `json:"gain"`       // Proceeds − CostBasis
	Matches       []LotMatch      `json:"matches,omitempty"`
}

// OpenPosition is the lot queue left after processing the full trade history.
type OpenPosition struct {
	Pair string `json:"pair"`
	Lots []Lot  `json:"lots"`
}

// TotalVolume is the account's net balance of the base currency.
func (p OpenPosition) TotalVolume() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range p.Lots {
		total = total.Add(lot.Remaining)
	}
	return total
}

// TotalCostBasis is the acquisition cost of everything still held.
func (p OpenPosition) TotalCostBasis() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range p.Lots {
		total = total.Add(lot.CostBasis())
	}
	return total
}

// WeightedAvgUnitCost returns total cost basis over total volume, or zero for
// an empty position.
func (p OpenPosition) WeightedAvgUnitCost() decimal.Decimal {
	volume := p.TotalVolume()
	if volume.IsZero() {
		return decimal.Zero
	}
	return p.TotalCostBasis().Div(volume)
}
