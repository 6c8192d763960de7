package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/krakenpnl/src/logger"
	"golang.org/x/time/rate"
)

const pageSize = 50

// tierDelays maps the account's API tier to the delay between paginated
// private calls. Kraken's call counter decays slower on lower tiers.
var tierDelays = map[string]time.Duration{
	"starter":      7 * time.Second,
	"intermediate": 4 * time.Second,
	"pro":          2 * time.Second,
}

// PaginationDelay returns the inter-page delay for a tier, defaulting to the
// most conservative value for anything unrecognized.
func PaginationDelay(tier string) time.Duration {
	if d, ok := tierDelays[tier]; ok {
		return d
	}
	return tierDelays["starter"]
}

// APIError is a non-empty error array in a Kraken response body.
type APIError struct {
	Endpoint string
	Errors   []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kraken %s: %v", e.Endpoint, e.Errors)
}

// Config holds the settings needed to construct a Client.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
	Tier      string
}

// Client talks to the Kraken REST API. Private calls are signed with the
// account's API key pair; paginated fetches are throttled per the account
// tier so the exchange-side call counter is never exhausted.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Kraken API client for the given tier.
func NewClient(cfg Config) *Client {
	return &Client{
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		baseURL:   cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		// Burst of 1: every paginated call waits out the full tier delay.
		limiter: rate.NewLimiter(rate.Every(PaginationDelay(cfg.Tier)), 1),
	}
}

// sign produces the API-Sign header value:
// base64(HMAC-SHA512(base64decode(secret), path + SHA256(nonce + postdata))).
func (c *Client) sign(path, postData, nonce string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(c.apiSecret)
	if err != nil {
		return "", fmt.Errorf("decoding api secret: %w", err)
	}
	digest := sha256.Sum256([]byte(nonce + postData))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (c *Client) private(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	nonce := strconv.FormatInt(time.Now().UnixNano()/10, 10)
	params.Set("nonce", nonce)
	postData := params.Encode()

	signature, err := c.sign(path, postData, nonce)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(postData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("API-Sign", signature)

	return c.do(req, path)
}

func (c *Client) public(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request to %s returned status %d", path, resp.StatusCode)
	}
	return body, nil
}

// TradesHistory fetches the account's complete trade history, paginated in
// pages of 50. No start/end bounds are sent: a correct FIFO cost basis needs
// the history from account inception, and reporting windows are applied
// downstream. userref, when non-nil, is forwarded to the API.
func (c *Client) TradesHistory(ctx context.Context, userref *int64) ([]TradeRecord, error) {
	var all []TradeRecord
	offset := 0

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		params := url.Values{}
		params.Set("ofs", strconv.Itoa(offset))
		if userref != nil {
			params.Set("userref", strconv.FormatInt(*userref, 10))
		}

		body, err := c.private(ctx, "/0/private/TradesHistory", params)
		if err != nil {
			return nil, err
		}
		var parsed tradesHistoryResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decoding TradesHistory response: %w", err)
		}
		if len(parsed.Error) > 0 {
			return nil, &APIError{Endpoint: "TradesHistory", Errors: parsed.Error}
		}
		if parsed.Result == nil {
			return nil, fmt.Errorf("TradesHistory response missing result")
		}

		for txid, rec := range parsed.Result.Trades {
			rec.TxID = txid
			all = append(all, rec)
		}
		logger.L.Info("Fetched trades page", "fetched", len(all), "total", parsed.Result.Count)

		if parsed.Result.Count <= offset+pageSize {
			return all, nil
		}
		offset += pageSize
	}
}

// ClosedOrders fetches all closed orders, paginated like TradesHistory. The
// caller uses the returned txid set to scope trades to an order reference.
func (c *Client) ClosedOrders(ctx context.Context, userref *int64) (map[string]OrderRecord, error) {
	closed := make(map[string]OrderRecord)
	offset := 0

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		params := url.Values{}
		params.Set("ofs", strconv.Itoa(offset))
		if userref != nil {
			params.Set("userref", strconv.FormatInt(*userref, 10))
		}

		body, err := c.private(ctx, "/0/private/ClosedOrders", params)
		if err != nil {
			return nil, err
		}
		var parsed closedOrdersResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decoding ClosedOrders response: %w", err)
		}
		if len(parsed.Error) > 0 {
			return nil, &APIError{Endpoint: "ClosedOrders", Errors: parsed.Error}
		}
		if parsed.Result == nil {
			return nil, fmt.Errorf("ClosedOrders response missing result")
		}

		for txid, rec := range parsed.Result.Closed {
			rec.TxID = txid
			closed[txid] = rec
		}
		logger.L.Info("Fetched closed orders page", "fetched", len(closed), "total", parsed.Result.Count)

		if parsed.Result.Count <= len(closed) {
			return closed, nil
		}
		offset += pageSize
	}
}

// TickerPrice returns the last traded price for the pair from the public
// Ticker endpoint.
func (c *Client) TickerPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("pair", pair)

	body, err := c.public(ctx, "/0/public/Ticker", params)
	if err != nil {
		return decimal.Zero, err
	}
	var parsed tickerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("decoding Ticker response: %w", err)
	}
	if len(parsed.Error) > 0 {
		return decimal.Zero, &APIError{Endpoint: "Ticker", Errors: parsed.Error}
	}

	// Kraken may answer under an aliased pair name; a single-pair request
	// yields a single-entry map either way.
	for _, info := range parsed.Result {
		if len(info.Close) == 0 {
			break
		}
		price, err := decimal.NewFromString(info.Close[0])
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing ticker price %q: %w", info.Close[0], err)
		}
		return price, nil
	}
	return decimal.Zero, fmt.Errorf("no ticker data returned for pair %s", pair)
}
