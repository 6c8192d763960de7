package processors

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/krakenpnl/src/models"
)

// InsufficientInventoryError reports a sell whose volume exceeds the total
// remaining lot volume at that point in the history. This is never clamped:
// it signals missing history or external transfers not represented in the
// fetched trades.
type InsufficientInventoryError struct {
	Pair      string
	TxID      string
	Time      time.Time
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for sell %s (%s) at %s: selling %s with only %s remaining",
		e.TxID, e.Pair, e.Time.UTC().Format(time.RFC3339), e.Requested, e.Available)
}

// OutOfOrderTradeError reports a violation of the non-decreasing-timestamp
// invariant. Silently re-sorting would hide a data integrity problem, so the
// run aborts instead.
type OutOfOrderTradeError struct {
	Pair     string
	TxID     string
	Time     time.Time
	PrevTime time.Time
}

func (e *OutOfOrderTradeError) Error() string {
	return fmt.Sprintf("out-of-order trade %s (%s): %s precedes previously processed %s",
		e.TxID, e.Pair, e.Time.UTC().Format(time.RFC3339), e.PrevTime.UTC().Format(time.RFC3339))
}

// Ledger is the FIFO cost-basis matching engine for one pair. It exclusively
// owns the queue of open buy lots; buys append lots, sells consume from the
// front, oldest first. State is scoped to one compute run.
type Ledger struct {
	pair     string
	lots     []models.Lot
	events   []models.RealizedEvent
	lastTime time.Time
}

// NewLedger creates an empty ledger for the given pair.
func NewLedger(pair string) *Ledger {
	return &Ledger{pair: pair}
}

// Process runs the full chronological trade history through the ledger. The
// history must start at the first-ever trade for the pair, not at the
// reporting window, or cost bases inside the window will be wrong.
func (l *Ledger) Process(trades []models.Trade) error {
	for _, trade := range trades {
		if err := l.ProcessTrade(trade); err != nil {
			return err
		}
	}
	return nil
}

// ProcessTrade applies a single fill to the ledger state.
func (l *Ledger) ProcessTrade(trade models.Trade) error {
	if trade.Time.Before(l.lastTime) {
		return &OutOfOrderTradeError{Pair: l.pair, TxID: trade.TxID, Time: trade.Time, PrevTime: l.lastTime}
	}
	l.lastTime = trade.Time

	switch trade.Side {
	case models.Buy:
		l.processBuy(trade)
		return nil
	case models.Sell:
		return l.processSell(trade)
	default:
		return fmt.Errorf("trade %s (%s): unsupported side %q", trade.TxID, l.pair, trade.Side)
	}
}

func (l *Ledger) processBuy(trade models.Trade) {
	// Amortize the buy fee across the lot volume so any partial consumption
	// carries its proportional fee share.
	unitCost := trade.Price.Mul(trade.Volume).Add(trade.Fee).Div(trade.Volume)
	l.lots = append(l.lots, models.Lot{
		AcquiredAt: trade.Time,
		TxID:       trade.TxID,
		Remaining:  trade.Volume,
		UnitCost:   unitCost,
	})
}

func (l *Ledger) processSell(trade models.Trade) error {
	available := decimal.Zero
	for _, lot := range l.lots {
		available = available.Add(lot.Remaining)
	}
	if trade.Volume.GreaterThan(available) {
		return &InsufficientInventoryError{
			Pair:      l.pair,
			TxID:      trade.TxID,
			Time:      trade.Time,
			Requested: trade.Volume,
			Available: available,
		}
	}

	remaining := trade.Volume
	costBasis := decimal.Zero
	var matches []models.LotMatch

	for remaining.IsPositive() {
		front := &l.lots[0]
		consumed := decimal.Min(front.Remaining, remaining)
		portionCost := front.UnitCost.Mul(consumed)

		costBasis = costBasis.Add(portionCost)
		matches = append(matches, models.LotMatch{
			AcquiredAt: front.AcquiredAt,
			BuyTxID:    front.TxID,
			Volume:     consumed,
			CostBasis:  portionCost,
		})

		front.Remaining = front.Remaining.Sub(consumed)
		remaining = remaining.Sub(consumed)
		if front.Remaining.IsZero() {
			l.lots = l.lots[1:]
		}
	}

	proceeds := trade.Price.Mul(trade.Volume).Sub(trade.Fee)
	l.events = append(l.events, models.RealizedEvent{
		Pair:          l.pair,
		SellTxID:      trade.TxID,
		SellTime:      trade.Time,
		MatchedVolume: trade.Volume,
		Proceeds:      proceeds,
		CostBasis:     costBasis,
		Gain:          proceeds.Sub(costBasis),
		Matches:       matches,
	})
	return nil
}

// Events returns the ordered realized-gain events emitted so far.
func (l *Ledger) Events() []models.RealizedEvent {
	return l.events
}

// OpenPosition returns the remaining lot queue as a point-in-time snapshot.
func (l *Ledger) OpenPosition() models.OpenPosition {
	lots := make([]models.Lot, len(l.lots))
	copy(lots, l.lots)
	return models.OpenPosition{Pair: l.pair, Lots: lots}
}
