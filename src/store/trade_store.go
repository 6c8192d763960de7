package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/username/krakenpnl/src/kraken"
)

// ErrCacheMiss is returned when no cached history exists for a scope.
var ErrCacheMiss = errors.New("no cached trade history")

// TradeStore persists raw fetched trade history in the local SQLite cache so
// repeat runs do not refetch the full history from the exchange. It caches
// inputs only; computed reports are never persisted.
type TradeStore struct {
	db *sql.DB
}

// NewTradeStore wraps an open database handle.
func NewTradeStore(db *sql.DB) *TradeStore {
	return &TradeStore{db: db}
}

// Scope derives the cache scope key for a fetch. Histories fetched with a
// user reference are a subset of the full history, so they are cached
// separately.
func Scope(userref *int64) string {
	if userref == nil {
		return "all"
	}
	return "userref:" + strconv.FormatInt(*userref, 10)
}

// SaveTrades replaces the cached history for a scope with the given records
// and stamps the fetch time.
func (s *TradeStore) SaveTrades(scope string, records []kraken.TradeRecord, fetchedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting trade cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM trade_cache WHERE scope = ?`, scope); err != nil {
		return fmt.Errorf("clearing trade cache for scope %s: %w", scope, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO trade_cache (txid, scope, ordertxid, pair, time, side, ordertype, price, cost, fee, vol)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing trade cache insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.TxID, scope, rec.OrderTxID, rec.Pair, rec.Time,
			rec.Side, rec.OrderType, rec.Price, rec.Cost, rec.Fee, rec.Volume); err != nil {
			return fmt.Errorf("caching trade %s: %w", rec.TxID, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO trade_cache_meta (scope, fetched_at) VALUES (?, ?)
		ON CONFLICT(scope) DO UPDATE SET fetched_at = excluded.fetched_at`,
		scope, fetchedAt.Unix()); err != nil {
		return fmt.Errorf("stamping trade cache for scope %s: %w", scope, err)
	}

	return tx.Commit()
}

// LoadTrades returns the cached history for a scope and when it was fetched.
// Returns ErrCacheMiss when the scope has never been cached; staleness is the
// caller's decision.
func (s *TradeStore) LoadTrades(scope string) ([]kraken.TradeRecord, time.Time, error) {
	var fetchedUnix int64
	err := s.db.QueryRow(`SELECT fetched_at FROM trade_cache_meta WHERE scope = ?`, scope).Scan(&fetchedUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrCacheMiss
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading trade cache meta for scope %s: %w", scope, err)
	}

	rows, err := s.db.Query(`
		SELECT txid, ordertxid, pair, time, side, ordertype, price, cost, fee, vol
		FROM trade_cache WHERE scope = ? ORDER BY time, txid`, scope)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading trade cache for scope %s: %w", scope, err)
	}
	defer rows.Close()

	var records []kraken.TradeRecord
	for rows.Next() {
		var rec kraken.TradeRecord
		if err := rows.Scan(&rec.TxID, &rec.OrderTxID, &rec.Pair, &rec.Time,
			&rec.Side, &rec.OrderType, &rec.Price, &rec.Cost, &rec.Fee, &rec.Volume); err != nil {
			return nil, time.Time{}, fmt.Errorf("scanning cached trade: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterating trade cache: %w", err)
	}

	return records, time.Unix(fetchedUnix, 0).UTC(), nil
}
