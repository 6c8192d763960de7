package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/krakenpnl/src/kraken"
	"github.com/username/krakenpnl/src/logger"
	"github.com/username/krakenpnl/src/models"
	"github.com/username/krakenpnl/src/processors"
	"github.com/username/krakenpnl/src/store"
)

const (
	ckRawTrades    = "raw_trades_%s"
	ckClosedOrders = "closed_orders_%s"
	ckReport       = "report_%s_%s_%s_%d_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type pnlServiceImpl struct {
	client        ExchangeClient
	tradeStore    *store.TradeStore // nil when the local cache is disabled
	tradeCacheTTL time.Duration
	memCache      *cache.Cache
}

// NewPnLService wires the exchange client, the optional local trade cache,
// and an in-process memo cache into a PnLService.
func NewPnLService(client ExchangeClient, tradeStore *store.TradeStore, tradeCacheTTL time.Duration, memCache *cache.Cache) PnLService {
	return &pnlServiceImpl{
		client:        client,
		tradeStore:    tradeStore,
		tradeCacheTTL: tradeCacheTTL,
		memCache:      memCache,
	}
}

func (s *pnlServiceImpl) Compute(ctx context.Context, req ComputeRequest) (*models.PnLReport, error) {
	// Tier is validated before any fetch or ledger work begins.
	rates, err := processors.ResolveFeeRates(req.Tier)
	if err != nil {
		return nil, err
	}

	reportKey := fmt.Sprintf(ckReport, req.Pair, store.Scope(req.UserRef), req.Tier,
		req.Window.Start.Unix(), req.Window.End.Unix())
	if cached, found := s.memCache.Get(reportKey); found {
		return cached.(*models.PnLReport), nil
	}

	trades, err := s.normalizedTrades(ctx, req, rates)
	if err != nil {
		return nil, err
	}

	ledger := processors.NewLedger(req.Pair)
	if err := ledger.Process(trades); err != nil {
		return nil, err
	}

	currentPrice, err := s.client.TickerPrice(ctx, req.Pair)
	if err != nil {
		return nil, fmt.Errorf("fetching current price for %s: %w", req.Pair, err)
	}

	report := processors.Aggregate(trades, ledger.Events(), ledger.OpenPosition(), currentPrice, req.Window)
	report.Tier = req.Tier

	s.memCache.Set(reportKey, &report, cache.DefaultExpiration)
	return &report, nil
}

func (s *pnlServiceImpl) Trades(ctx context.Context, req ComputeRequest) ([]models.Trade, error) {
	rates, err := processors.ResolveFeeRates(req.Tier)
	if err != nil {
		return nil, err
	}
	return s.normalizedTrades(ctx, req, rates)
}

func (s *pnlServiceImpl) normalizedTrades(ctx context.Context, req ComputeRequest, rates processors.FeeRates) ([]models.Trade, error) {
	records, err := s.rawTrades(ctx, req.UserRef)
	if err != nil {
		return nil, err
	}

	closedTxIDs, err := s.closedOrderScope(ctx, req.UserRef)
	if err != nil {
		return nil, err
	}

	return processors.NormalizeFills(records, req.Pair, closedTxIDs, rates)
}

// rawTrades returns the account's full raw trade history, consulting the
// in-process cache, then the local SQLite cache, and only then the exchange.
func (s *pnlServiceImpl) rawTrades(ctx context.Context, userref *int64) ([]kraken.TradeRecord, error) {
	scope := store.Scope(userref)
	memKey := fmt.Sprintf(ckRawTrades, scope)
	if cached, found := s.memCache.Get(memKey); found {
		return cached.([]kraken.TradeRecord), nil
	}

	if s.tradeStore != nil {
		records, fetchedAt, err := s.tradeStore.LoadTrades(scope)
		switch {
		case err == nil && time.Since(fetchedAt) <= s.tradeCacheTTL:
			logger.L.Info("Using locally cached trade history", "scope", scope, "trades", len(records), "fetchedAt", fetchedAt)
			s.memCache.Set(memKey, records, cache.DefaultExpiration)
			return records, nil
		case err == nil:
			logger.L.Info("Local trade cache is stale, refetching", "scope", scope, "fetchedAt", fetchedAt)
		case !errors.Is(err, store.ErrCacheMiss):
			logger.L.Warn("Failed to read local trade cache, refetching", "scope", scope, "error", err)
		}
	}

	logger.L.Info("Fetching trade history from exchange", "scope", scope)
	records, err := s.client.TradesHistory(ctx, userref)
	if err != nil {
		return nil, fmt.Errorf("fetching trade history: %w", err)
	}

	if s.tradeStore != nil {
		if err := s.tradeStore.SaveTrades(scope, records, time.Now().UTC()); err != nil {
			logger.L.Warn("Failed to persist trade history to local cache", "scope", scope, "error", err)
		}
	}
	s.memCache.Set(memKey, records, cache.DefaultExpiration)
	return records, nil
}

// closedOrderScope returns the set of order txids the trade stream must be
// restricted to, or nil when no user reference is given.
func (s *pnlServiceImpl) closedOrderScope(ctx context.Context, userref *int64) (map[string]bool, error) {
	if userref == nil {
		return nil, nil
	}

	scope := store.Scope(userref)
	memKey := fmt.Sprintf(ckClosedOrders, scope)
	if cached, found := s.memCache.Get(memKey); found {
		return cached.(map[string]bool), nil
	}

	orders, err := s.client.ClosedOrders(ctx, userref)
	if err != nil {
		return nil, fmt.Errorf("fetching closed orders: %w", err)
	}
	txids := make(map[string]bool, len(orders))
	for txid := range orders {
		txids[txid] = true
	}

	s.memCache.Set(memKey, txids, cache.DefaultExpiration)
	return txids, nil
}
