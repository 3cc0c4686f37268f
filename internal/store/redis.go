package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/onseju/matching-service/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and refresh or invalidate the cache;
// reads check Redis first then fall back to the primary.
//
// A read that loads from the primary before an insert and writes its result
// after the insert's invalidation re-caches the older list. Such entries
// live at most ttl.
type CachedStore struct {
	primary Store
	rdb     redis.Cmdable
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb redis.Cmdable, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through ---

func (s *CachedStore) InsertTrade(ctx context.Context, t *model.TradeRecord) error {
	if err := s.primary.InsertTrade(ctx, t); err != nil {
		return err
	}
	keys := []string{companyTradesKey(t.CompanyCode)}
	if t.BuyAccountID != nil {
		keys = append(keys, accountTradesKey(*t.BuyAccountID))
	}
	if t.SellAccountID != nil {
		keys = append(keys, accountTradesKey(*t.SellAccountID))
	}
	s.rdb.Del(ctx, keys...)
	s.rdb.Set(ctx, lastPriceKey(t.CompanyCode), t.Price.String(), s.ttl)
	return nil
}

// --- Read-through ---

func (s *CachedStore) GetTradesByCompany(ctx context.Context, companyCode string) ([]model.TradeRecord, error) {
	key := companyTradesKey(companyCode)
	if trades, ok := s.cachedTrades(ctx, key); ok {
		return trades, nil
	}

	trades, err := s.primary.GetTradesByCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	s.cacheTrades(ctx, key, trades)
	return trades, nil
}

func (s *CachedStore) GetTradesByAccount(ctx context.Context, accountID int64) ([]model.TradeRecord, error) {
	key := accountTradesKey(accountID)
	if trades, ok := s.cachedTrades(ctx, key); ok {
		return trades, nil
	}

	trades, err := s.primary.GetTradesByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s.cacheTrades(ctx, key, trades)
	return trades, nil
}

func (s *CachedStore) GetLastPrice(ctx context.Context, companyCode string) (decimal.Decimal, error) {
	if v, err := s.rdb.Get(ctx, lastPriceKey(companyCode)).Result(); err == nil {
		if price, err := decimal.NewFromString(v); err == nil {
			return price, nil
		}
	}

	price, err := s.primary.GetLastPrice(ctx, companyCode)
	if err != nil {
		return decimal.Zero, err
	}
	s.rdb.Set(ctx, lastPriceKey(companyCode), price.String(), s.ttl)
	return price, nil
}

// --- Cache helpers ---

func (s *CachedStore) cachedTrades(ctx context.Context, key string) ([]model.TradeRecord, bool) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var trades []model.TradeRecord
	if json.Unmarshal(data, &trades) != nil {
		return nil, false
	}
	return trades, true
}

func (s *CachedStore) cacheTrades(ctx context.Context, key string, trades []model.TradeRecord) {
	if data, err := json.Marshal(trades); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func companyTradesKey(code string) string { return fmt.Sprintf("trades:company:%s", code) }
func accountTradesKey(id int64) string     { return fmt.Sprintf("trades:account:%d", id) }
func lastPriceKey(code string) string      { return fmt.Sprintf("price:last:%s", code) }
