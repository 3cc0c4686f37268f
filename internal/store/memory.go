package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/onseju/matching-service/internal/model"
)

// MemoryStore implements Store with an in-memory slice. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu     sync.RWMutex
	trades []model.TradeRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) InsertTrade(_ context.Context, rec *model.TradeRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("store: trade record without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, *rec)
	return nil
}

func (s *MemoryStore) GetTradesByCompany(_ context.Context, companyCode string) ([]model.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.TradeRecord
	for _, t := range s.trades {
		if t.CompanyCode == companyCode {
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetTradesByAccount(_ context.Context, accountID int64) ([]model.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.TradeRecord
	for i := range s.trades {
		if involves(&s.trades[i], accountID) {
			result = append(result, s.trades[i])
		}
	}
	return result, nil
}

func (s *MemoryStore) GetLastPrice(_ context.Context, companyCode string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.trades) - 1; i >= 0; i-- {
		if s.trades[i].CompanyCode == companyCode {
			return s.trades[i].Price, nil
		}
	}
	return decimal.Zero, ErrNoTrades
}
