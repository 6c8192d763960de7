package kraken

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/username/krakenpnl/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func testClient(baseURL string) *Client {
	return NewClient(Config{
		APIKey:    "test-key",
		APISecret: base64.StdEncoding.EncodeToString([]byte("test-secret")),
		BaseURL:   baseURL,
		Timeout:   5 * time.Second,
		Tier:      "pro",
	})
}

func TestTradesHistoryPaginates(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/0/private/TradesHistory" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("API-Key") != "test-key" {
			t.Error("missing API-Key header")
		}
		if r.Header.Get("API-Sign") == "" {
			t.Error("missing API-Sign header")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if r.PostForm.Get("nonce") == "" {
			t.Error("missing nonce in post data")
		}

		ofs := r.PostForm.Get("ofs")
		requests = append(requests, ofs)

		trades := make(map[string]TradeRecord)
		pageStart := 0
		fmt.Sscanf(ofs, "%d", &pageStart)
		pageLen := 50
		if pageStart == 50 {
			pageLen = 10
		}
		for i := 0; i < pageLen; i++ {
			id := fmt.Sprintf("TX-%04d", pageStart+i)
			trades[id] = TradeRecord{
				OrderTxID: "O1",
				Pair:      "XXBTZEUR",
				Time:      float64(1000 + pageStart + i),
				Side:      "buy",
				Price:     "100",
				Volume:    "1",
				Fee:       "0.1",
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"error":  []string{},
			"result": map[string]any{"trades": trades, "count": 60},
		})
	}))
	defer server.Close()

	records, err := testClient(server.URL).TradesHistory(context.Background(), nil)
	if err != nil {
		t.Fatalf("TradesHistory returned error: %v", err)
	}
	if len(records) != 60 {
		t.Errorf("got %d records, want 60", len(records))
	}
	if len(requests) != 2 || requests[0] != "0" || requests[1] != "50" {
		t.Errorf("pagination offsets = %v, want [0 50]", requests)
	}
	for _, rec := range records {
		if rec.TxID == "" {
			t.Fatal("record missing txid attached from the response map key")
		}
	}
}

func TestTradesHistoryForwardsUserref(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if got := r.PostForm.Get("userref"); got != "42" {
			t.Errorf("userref = %q, want 42", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"error":  []string{},
			"result": map[string]any{"trades": map[string]TradeRecord{}, "count": 0},
		})
	}))
	defer server.Close()

	ref := int64(42)
	if _, err := testClient(server.URL).TradesHistory(context.Background(), &ref); err != nil {
		t.Fatalf("TradesHistory returned error: %v", err)
	}
}

func TestTradesHistoryAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": []string{"EAPI:Invalid key"},
		})
	}))
	defer server.Close()

	_, err := testClient(server.URL).TradesHistory(context.Background(), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %v, want APIError", err)
	}
	if apiErr.Endpoint != "TradesHistory" {
		t.Errorf("endpoint = %s, want TradesHistory", apiErr.Endpoint)
	}
}

func TestClosedOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/0/private/ClosedOrders" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"error": []string{},
			"result": map[string]any{
				"closed": map[string]OrderRecord{
					"O1": {Status: "closed"},
					"O2": {Status: "closed"},
				},
				"count": 2,
			},
		})
	}))
	defer server.Close()

	ref := int64(7)
	orders, err := testClient(server.URL).ClosedOrders(context.Background(), &ref)
	if err != nil {
		t.Fatalf("ClosedOrders returned error: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("got %d orders, want 2", len(orders))
	}
	if _, ok := orders["O1"]; !ok {
		t.Error("missing order O1")
	}
}

func TestTickerPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if got := r.URL.Query().Get("pair"); got != "XXBTZEUR" {
			t.Errorf("pair = %q, want XXBTZEUR", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"error": []string{},
			"result": map[string]any{
				"XXBTZEUR": map[string]any{"c": []string{"64250.10000", "0.01000000"}},
			},
		})
	}))
	defer server.Close()

	price, err := testClient(server.URL).TickerPrice(context.Background(), "XXBTZEUR")
	if err != nil {
		t.Fatalf("TickerPrice returned error: %v", err)
	}
	if price.String() != "64250.1" {
		t.Errorf("price = %s, want 64250.1", price)
	}
}

func TestPaginationDelay(t *testing.T) {
	cases := map[string]time.Duration{
		"starter":      7 * time.Second,
		"intermediate": 4 * time.Second,
		"pro":          2 * time.Second,
		"unknown":      7 * time.Second,
	}
	for tier, want := range cases {
		if got := PaginationDelay(tier); got != want {
			t.Errorf("PaginationDelay(%q) = %s, want %s", tier, got, want)
		}
	}
}

func TestSignIsDeterministic(t *testing.T) {
	c := testClient("http://unused")

	sig1, err := c.sign("/0/private/TradesHistory", "nonce=1&ofs=0", "1")
	if err != nil {
		t.Fatalf("sign returned error: %v", err)
	}
	sig2, err := c.sign("/0/private/TradesHistory", "nonce=1&ofs=0", "1")
	if err != nil {
		t.Fatalf("sign returned error: %v", err)
	}
	if sig1 != sig2 {
		t.Error("same inputs must produce the same signature")
	}

	sig3, err := c.sign("/0/private/TradesHistory", "nonce=2&ofs=0", "2")
	if err != nil {
		t.Fatalf("sign returned error: %v", err)
	}
	if sig1 == sig3 {
		t.Error("different nonces must produce different signatures")
	}

	if _, err := base64.StdEncoding.DecodeString(sig1); err != nil {
		t.Errorf("signature is not valid base64: %v", err)
	}
}
