package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PnLReport is the final output of a compute run: tax-relevant figures for one
// pair, with realized figures restricted to the reporting window and the open
// position valued at the current market price.
type PnLReport struct {
	Pair         string          `json:"pair"`
	Tier         string          `json:"tier"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	WindowStart  *time.Time      `json:"window_start,omitempty"`
	WindowEnd    *time.Time      `json:"window_end,omitempty"`

	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	Balance       decimal.Decimal `json:"balance"`

	TotalBuyVolumeBase   decimal.Decimal `json:"total_buy_volume_base"`
	TotalBuyVolumeQuote  decimal.Decimal `json:"total_buy_volume_quote"`
	TotalSellVolumeBase  decimal.Decimal `json:"total_sell_volume_base"`
	TotalSellVolumeQuote decimal.Decimal `json:"total_sell_volume_quote"`

	TotalCostOfSoldAssets  decimal.Decimal `json:"total_cost_of_sold_assets"`
	TotalValueOfSoldAssets decimal.Decimal `json:"total_value_of_sold_assets"`

	RealizedEvents []RealizedEvent `json:"realized_events,omitempty"`
	OpenLots       []Lot           `json:"open_lots,omitempty"`
}
