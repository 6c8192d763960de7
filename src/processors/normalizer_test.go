package processors

import (
	"errors"
	"testing"

	"github.com/username/krakenpnl/src/kraken"
	"github.com/username/krakenpnl/src/models"
)

func testRates(t *testing.T) FeeRates {
	t.Helper()
	rates, err := ResolveFeeRates("starter")
	if err != nil {
		t.Fatalf("resolving starter tier: %v", err)
	}
	return rates
}

func rawFill(txid, ordertxid string, ts float64, side, price, vol, fee string) kraken.TradeRecord {
	return kraken.TradeRecord{
		TxID:      txid,
		OrderTxID: ordertxid,
		Pair:      "XXBTZEUR",
		Time:      ts,
		Side:      side,
		Price:     price,
		Volume:    vol,
		Fee:       fee,
	}
}

func TestNormalizeFillsSortsAndDeduplicates(t *testing.T) {
	records := []kraken.TradeRecord{
		rawFill("T3", "O3", 3000, "sell", "120", "1", "0.1"),
		rawFill("T1", "O1", 1000, "buy", "100", "1", "0.1"),
		rawFill("T2", "O2", 2000, "buy", "110", "1", "0.1"),
		rawFill("T1", "O1", 1000, "buy", "100", "1", "0.1"), // duplicate fill id
	}

	trades, err := NormalizeFills(records, "XXBTZEUR", nil, testRates(t))
	if err != nil {
		t.Fatalf("NormalizeFills returned error: %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("got %d trades, want 3 (duplicate must be dropped)", len(trades))
	}
	for i, want := range []string{"T1", "T2", "T3"} {
		if trades[i].TxID != want {
			t.Errorf("trades[%d] = %s, want %s", i, trades[i].TxID, want)
		}
	}
}

func TestNormalizeFillsTimestampTieBreak(t *testing.T) {
	records := []kraken.TradeRecord{
		rawFill("TB", "O1", 1000, "buy", "100", "1", "0"),
		rawFill("TA", "O1", 1000, "buy", "100", "1", "0"),
	}

	trades, err := NormalizeFills(records, "XXBTZEUR", nil, testRates(t))
	if err != nil {
		t.Fatalf("NormalizeFills returned error: %v", err)
	}
	if trades[0].TxID != "TA" || trades[1].TxID != "TB" {
		t.Errorf("tie-break order = %s, %s; want TA, TB", trades[0].TxID, trades[1].TxID)
	}
}

func TestNormalizeFillsFiltersPair(t *testing.T) {
	other := rawFill("T9", "O9", 500, "buy", "1", "1", "0")
	other.Pair = "XETHZEUR"
	records := []kraken.TradeRecord{
		other,
		rawFill("T1", "O1", 1000, "buy", "100", "1", "0.1"),
	}

	trades, err := NormalizeFills(records, "XXBTZEUR", nil, testRates(t))
	if err != nil {
		t.Fatalf("NormalizeFills returned error: %v", err)
	}
	if len(trades) != 1 || trades[0].TxID != "T1" {
		t.Fatalf("pair filter failed: %+v", trades)
	}
}

func TestNormalizeFillsOrderReferenceScope(t *testing.T) {
	records := []kraken.TradeRecord{
		rawFill("T1", "O1", 1000, "buy", "100", "1", "0.1"),
		rawFill("T2", "O2", 2000, "buy", "110", "1", "0.1"),
	}
	scope := map[string]bool{"O2": true}

	trades, err := NormalizeFills(records, "XXBTZEUR", scope, testRates(t))
	if err != nil {
		t.Fatalf("NormalizeFills returned error: %v", err)
	}
	if len(trades) != 1 || trades[0].TxID != "T2" {
		t.Fatalf("order reference scope failed: %+v", trades)
	}
}

func TestNormalizeFillsMalformedRecords(t *testing.T) {
	cases := []struct {
		name  string
		rec   kraken.TradeRecord
		field string
	}{
		{"missing price", rawFill("T1", "O1", 1000, "buy", "", "1", "0"), "price"},
		{"missing volume", rawFill("T1", "O1", 1000, "buy", "100", "", "0"), "vol"},
		{"zero volume", rawFill("T1", "O1", 1000, "buy", "100", "0", "0"), "vol"},
		{"missing time", rawFill("T1", "O1", 0, "buy", "100", "1", "0"), "time"},
		{"bad side", rawFill("T1", "O1", 1000, "short", "100", "1", "0"), "type"},
		{"negative fee", rawFill("T1", "O1", 1000, "buy", "100", "1", "-1"), "fee"},
	}

	for _, tc := range cases {
		_, err := NormalizeFills([]kraken.TradeRecord{tc.rec}, "XXBTZEUR", nil, testRates(t))
		var malformed *MalformedRecordError
		if !errors.As(err, &malformed) {
			t.Errorf("%s: got %v, want MalformedRecordError", tc.name, err)
			continue
		}
		if malformed.Field != tc.field {
			t.Errorf("%s: error field = %q, want %q", tc.name, malformed.Field, tc.field)
		}
		if malformed.TxID != "T1" {
			t.Errorf("%s: error txid = %q, want T1", tc.name, malformed.TxID)
		}
	}
}

func TestNormalizeFillsFeeFallbackToTakerRate(t *testing.T) {
	records := []kraken.TradeRecord{
		rawFill("T1", "O1", 1000, "buy", "100", "2", ""),
	}
	rates := testRates(t)

	trades, err := NormalizeFills(records, "XXBTZEUR", nil, rates)
	if err != nil {
		t.Fatalf("NormalizeFills returned error: %v", err)
	}

	// price * volume * taker
	want := dec("100").Mul(dec("2")).Mul(rates.Taker)
	if !trades[0].Fee.Equal(want) {
		t.Errorf("fallback fee = %s, want %s", trades[0].Fee, want)
	}
}

func TestNormalizeFillsParsesTimestamp(t *testing.T) {
	records := []kraken.TradeRecord{
		rawFill("T1", "O1", 1688671200.5, "buy", "100", "1", "0"),
	}

	trades, err := NormalizeFills(records, "XXBTZEUR", nil, testRates(t))
	if err != nil {
		t.Fatalf("NormalizeFills returned error: %v", err)
	}
	got := trades[0].Time
	if got.Unix() != 1688671200 || got.Nanosecond() != 500000000 {
		t.Errorf("parsed time = %s (unix %d.%09d), want 1688671200.5s", got, got.Unix(), got.Nanosecond())
	}
	if trades[0].Side != models.Buy {
		t.Errorf("side = %s, want buy", trades[0].Side)
	}
}
