package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/username/krakenpnl/src/models"
)

const separatorWidth = 80

// PrintSummary writes the human-readable report. Presentation only: every
// figure arrives as an exact decimal from the core.
func PrintSummary(w io.Writer, report *models.PnLReport) {
	sep := strings.Repeat("*", separatorWidth)
	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "FIFO PnL report for %s (tier: %s)\n", report.Pair, report.Tier)
	if report.WindowStart != nil || report.WindowEnd != nil {
		fmt.Fprintf(w, "Window: %s .. %s\n", formatBound(report.WindowStart), formatBound(report.WindowEnd))
	} else {
		fmt.Fprintln(w, "Window: all history")
	}
	fmt.Fprintln(w, sep)

	fmt.Fprintf(w, "Realized PnL:              %s\n", report.RealizedPnL)
	fmt.Fprintf(w, "Unrealized PnL:            %s\n", report.UnrealizedPnL)
	fmt.Fprintf(w, "Balance:                   %s\n", report.Balance)
	fmt.Fprintf(w, "Current price:             %s\n", report.CurrentPrice)
	fmt.Fprintln(w, sep)

	fmt.Fprintf(w, "Total buy volume (base):   %s\n", report.TotalBuyVolumeBase)
	fmt.Fprintf(w, "Total buy volume (quote):  %s\n", report.TotalBuyVolumeQuote)
	fmt.Fprintf(w, "Total sell volume (base):  %s\n", report.TotalSellVolumeBase)
	fmt.Fprintf(w, "Total sell volume (quote): %s\n", report.TotalSellVolumeQuote)
	fmt.Fprintf(w, "Cost of sold assets:       %s\n", report.TotalCostOfSoldAssets)
	fmt.Fprintf(w, "Value of sold assets:      %s\n", report.TotalValueOfSoldAssets)
	fmt.Fprintln(w, sep)
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "(unbounded)"
	}
	return t.UTC().Format(time.RFC3339)
}

// WriteTradesCSV exports the normalized trade stream to a CSV file.
func WriteTradesCSV(path string, trades []models.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv file %s: %w", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"txid", "ordertxid", "pair", "time", "side", "price", "volume", "cost", "fee"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, t := range trades {
		row := []string{
			t.TxID,
			t.OrderTxID,
			t.Pair,
			t.Time.UTC().Format(time.RFC3339),
			string(t.Side),
			t.Price.String(),
			t.Volume.String(),
			t.Cost.String(),
			t.Fee.String(),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing csv row for trade %s: %w", t.TxID, err)
		}
	}
	return writer.Error()
}
