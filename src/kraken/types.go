package kraken

// TradeRecord is one raw fill as returned by the TradesHistory endpoint.
// Numeric fields arrive as strings; the normalizer owns their parsing.
type TradeRecord struct {
	TxID      string  `json:"-"` // Map key in the API response, attached by the client
	OrderTxID string  `json:"ordertxid"`
	Pair      string  `json:"pair"`
	Time      float64 `json:"time"` // Unix seconds with fractional part
	Side      string  `json:"type"`
	OrderType string  `json:"ordertype"`
	Price     string  `json:"price"`
	Cost      string  `json:"cost"`
	Fee       string  `json:"fee"`
	Volume    string  `json:"vol"`
}

type tradesHistoryResult struct {
	Trades map[string]TradeRecord `json:"trades"`
	Count  int                    `json:"count"`
}

type tradesHistoryResponse struct {
	Error  []string             `json:"error"`
	Result *tradesHistoryResult `json:"result"`
}

// OrderRecord is one closed order as returned by the ClosedOrders endpoint.
// Only the transaction id (the map key) is used, to scope trades to a user
// reference; the descriptive fields are kept for logging.
type OrderRecord struct {
	TxID    string  `json:"-"`
	Status  string  `json:"status"`
	UserRef *int64  `json:"userref"`
	Volume  string  `json:"vol"`
	Opened  float64 `json:"opentm"`
	Closed  float64 `json:"closetm"`
}

type closedOrdersResult struct {
	Closed map[string]OrderRecord `json:"closed"`
	Count  int                    `json:"count"`
}

type closedOrdersResponse struct {
	Error  []string            `json:"error"`
	Result *closedOrdersResult `json:"result"`
}

type tickerInfo struct {
	// c holds [last trade price, lot volume].
	Close []string `json:"c"`
}

type tickerResponse struct {
	Error  []string              `json:"error"`
	Result map[string]tickerInfo `json:"result"`
}
