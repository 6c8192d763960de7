package processors

import (
	"errors"
	"testing"
)

func TestResolveFeeRatesKnownTiers(t *testing.T) {
	for _, tier := range []string{"starter", "intermediate", "pro"} {
		rates, err := ResolveFeeRates(tier)
		if err != nil {
			t.Fatalf("ResolveFeeRates(%q) returned error: %v", tier, err)
		}
		if !rates.Taker.IsPositive() || !rates.Maker.IsPositive() {
			t.Errorf("tier %q has non-positive rates: maker=%s taker=%s", tier, rates.Maker, rates.Taker)
		}
		if rates.Maker.GreaterThan(rates.Taker) {
			t.Errorf("tier %q maker rate %s exceeds taker rate %s", tier, rates.Maker, rates.Taker)
		}
	}
}

func TestResolveFeeRatesUnknownTier(t *testing.T) {
	for _, tier := range []string{"", "gold", "STARTER"} {
		_, err := ResolveFeeRates(tier)
		if !errors.Is(err, ErrUnknownTier) {
			t.Errorf("ResolveFeeRates(%q) = %v, want ErrUnknownTier", tier, err)
		}
	}
}
