package processors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnknownTier is returned when a fee tier outside the recognized set is
// requested. Callers must validate the tier at the boundary, before any
// ledger work begins.
var ErrUnknownTier = errors.New("unknown fee tier")

// FeeRates holds the effective maker/taker rates for an account tier,
// expressed as fractions (0.0026 = 0.26%).
type FeeRates struct {
	Maker decimal.Decimal
	Taker decimal.Decimal
}

// feeSchedule maps account tiers to their maker/taker rates. A fixed lookup
// table: the tier set is a small closed enumeration.
var feeSchedule = map[string]FeeRates{
	"starter":      {Maker: decimal.NewFromFloat(0.0025), Taker: decimal.NewFromFloat(0.0040)},
	"intermediate": {Maker: decimal.NewFromFloat(0.0020), Taker: decimal.NewFromFloat(0.0035)},
	"pro":          {Maker: decimal.NewFromFloat(0.0016), Taker: decimal.NewFromFloat(0.0026)},
}

// ResolveFeeRates returns the fee rates for the given tier. The taker rate is
// used when a raw fill does not report an explicit fee.
func ResolveFeeRates(tier string) (FeeRates, error) {
	rates, ok := feeSchedule[tier]
	if !ok {
		return FeeRates{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return rates, nil
}
