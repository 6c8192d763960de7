package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/krakenpnl/src/models"
)

// Aggregate walks the ledger output and produces the report figures.
//
// Realized PnL and the sold-asset cost/value totals cover only events whose
// sell timestamp falls inside the window. Buy/sell volume totals cover only
// trades inside the window. Unrealized PnL and balance are never windowed:
// the open position is a point-in-time snapshot after the full history, not a
// windowed aggregate. Pure read of ledger output plus one external price.
func Aggregate(
	trades []models.Trade,
	events []models.RealizedEvent,
	position models.OpenPosition,
	currentPrice decimal.Decimal,
	window Window,
) models.PnLReport {
	report := models.PnLReport{
		Pair:         position.Pair,
		CurrentPrice: currentPrice,

		RealizedPnL:            decimal.Zero,
		Balance:                position.TotalVolume(),
		TotalBuyVolumeBase:     decimal.Zero,
		TotalBuyVolumeQuote:    decimal.Zero,
		TotalSellVolumeBase:    decimal.Zero,
		TotalSellVolumeQuote:   decimal.Zero,
		TotalCostOfSoldAssets:  decimal.Zero,
		TotalValueOfSoldAssets: decimal.Zero,

		RealizedEvents: events,
		OpenLots:       position.Lots,
	}
	if !window.Start.IsZero() {
		start := window.Start
		report.WindowStart = &start
	}
	if !window.End.IsZero() {
		end := window.End
		report.WindowEnd = &end
	}

	for _, event := range events {
		if !window.Contains(event.SellTime) {
			continue
		}
		report.RealizedPnL = report.RealizedPnL.Add(event.Gain)
		report.TotalCostOfSoldAssets = report.TotalCostOfSoldAssets.Add(event.CostBasis)
		report.TotalValueOfSoldAssets = report.TotalValueOfSoldAssets.Add(event.Proceeds)
	}

	for _, trade := range trades {
		if !window.Contains(trade.Time) {
			continue
		}
		switch trade.Side {
		case models.Buy:
			report.TotalBuyVolumeBase = report.TotalBuyVolumeBase.Add(trade.Volume)
			report.TotalBuyVolumeQuote = report.TotalBuyVolumeQuote.Add(trade.Cost)
		case models.Sell:
			report.TotalSellVolumeBase = report.TotalSellVolumeBase.Add(trade.Volume)
			report.TotalSellVolumeQuote = report.TotalSellVolumeQuote.Add(trade.Cost)
		}
	}

	report.UnrealizedPnL = currentPrice.Sub(position.WeightedAvgUnitCost()).Mul(position.TotalVolume())
	return report
}
