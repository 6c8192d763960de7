package processors

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/krakenpnl/src/kraken"
	"github.com/username/krakenpnl/src/models"
)

// MalformedRecordError reports a raw record missing a required field or
// carrying an unparseable value. Normalization cannot proceed safely, so the
// run aborts.
type MalformedRecordError struct {
	TxID  string
	Field string
	Value string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed trade record %s: field %q has invalid value %q", e.TxID, e.Field, e.Value)
}

// NormalizeFills converts raw fills into a deduplicated, chronologically
// sorted trade stream for one pair. closedTxIDs, when non-nil, restricts the
// stream to fills whose order appears in the set (the order-reference scope);
// a nil set keeps everything. rates supplies the taker rate used when a raw
// record does not report an explicit fee. Pure transformation, no side
// effects.
func NormalizeFills(records []kraken.TradeRecord, pair string, closedTxIDs map[string]bool, rates FeeRates) ([]models.Trade, error) {
	seen := make(map[string]bool, len(records))
	trades := make([]models.Trade, 0, len(records))

	for _, rec := range records {
		if rec.Pair != pair {
			continue
		}
		if seen[rec.TxID] {
			continue
		}
		seen[rec.TxID] = true
		if closedTxIDs != nil && !closedTxIDs[rec.OrderTxID] {
			continue
		}

		trade, err := normalizeRecord(rec, rates)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	sort.Slice(trades, func(i, j int) bool {
		if trades[i].Time.Equal(trades[j].Time) {
			// Stable secondary key so equal-timestamp fills order
			// deterministically.
			return trades[i].TxID < trades[j].TxID
		}
		return trades[i].Time.Before(trades[j].Time)
	})
	return trades, nil
}

func normalizeRecord(rec kraken.TradeRecord, rates FeeRates) (models.Trade, error) {
	if rec.Time <= 0 || math.IsNaN(rec.Time) {
		return models.Trade{}, &MalformedRecordError{TxID: rec.TxID, Field: "time", Value: fmt.Sprintf("%v", rec.Time)}
	}

	var side models.Side
	switch rec.Side {
	case "buy":
		side = models.Buy
	case "sell":
		side = models.Sell
	default:
		return models.Trade{}, &MalformedRecordError{TxID: rec.TxID, Field: "type", Value: rec.Side}
	}

	price, err := parsePositiveDecimal(rec.Price)
	if err != nil {
		return models.Trade{}, &MalformedRecordError{TxID: rec.TxID, Field: "price", Value: rec.Price}
	}
	volume, err := parsePositiveDecimal(rec.Volume)
	if err != nil {
		return models.Trade{}, &MalformedRecordError{TxID: rec.TxID, Field: "vol", Value: rec.Volume}
	}

	var fee decimal.Decimal
	if rec.Fee == "" {
		// Fee not reported by the exchange: fall back to the tier's taker
		// rate on the quote value of the fill.
		fee = price.Mul(volume).Mul(rates.Taker)
	} else {
		fee, err = decimal.NewFromString(rec.Fee)
		if err != nil || fee.IsNegative() {
			return models.Trade{}, &MalformedRecordError{TxID: rec.TxID, Field: "fee", Value: rec.Fee}
		}
	}

	cost := price.Mul(volume)
	if rec.Cost != "" {
		if parsed, err := decimal.NewFromString(rec.Cost); err == nil {
			cost = parsed
		}
	}

	sec, frac := math.Modf(rec.Time)
	return models.Trade{
		TxID:      rec.TxID,
		OrderTxID: rec.OrderTxID,
		Pair:      rec.Pair,
		Time:      time.Unix(int64(sec), int64(frac*1e9)).UTC(),
		Side:      side,
		Price:     price,
		Volume:    volume,
		Cost:      cost,
		Fee:       fee,
	}, nil
}

func parsePositiveDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive value")
	}
	return d, nil
}
