package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/shopspring/decimal"

	"github.com/onseju/matching-service/internal/model"
)

var (
	tradePrefix = []byte("trade/")
	tradeUpper  = []byte("trade/~")
)

// PebbleStore keeps the trade ledger in an embedded Pebble database. Records
// are stored under "trade/<seq>" in insertion order.
type PebbleStore struct {
	db *pebble.DB

	mu  sync.Mutex
	seq uint64
}

// OpenPebbleStore opens (or creates) the ledger at dir and resumes the
// sequence after the last stored record.
func OpenPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	s := &PebbleStore{db: db}

	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: tradePrefix, UpperBound: tradeUpper})
	if err != nil {
		db.Close()
		return nil, err
	}
	if iter.Last() {
		if s.seq, err = parseTradeKey(iter.Key()); err != nil {
			iter.Close()
			db.Close()
			return nil, err
		}
	}
	if err := iter.Close(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

func (s *PebbleStore) InsertTrade(_ context.Context, t *model.TradeRecord) error {
	if t.ID == "" {
		return errors.New("store: trade id is required")
	}
	val, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode trade: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Set(tradeKey(s.seq+1), val, pebble.Sync); err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	s.seq++
	return nil
}

func (s *PebbleStore) GetTradesByCompany(_ context.Context, companyCode string) ([]model.TradeRecord, error) {
	return s.scan(func(rec *model.TradeRecord) bool {
		return rec.CompanyCode == companyCode
	})
}

func (s *PebbleStore) GetTradesByAccount(_ context.Context, accountID int64) ([]model.TradeRecord, error) {
	return s.scan(func(rec *model.TradeRecord) bool {
		return involves(rec, accountID)
	})
}

func (s *PebbleStore) GetLastPrice(_ context.Context, companyCode string) (decimal.Decimal, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: tradePrefix, UpperBound: tradeUpper})
	if err != nil {
		return decimal.Zero, err
	}
	defer iter.Close()

	for iter.Last(); iter.Valid(); iter.Prev() {
		var rec model.TradeRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return decimal.Zero, fmt.Errorf("decode trade: %w", err)
		}
		if rec.CompanyCode == companyCode {
			return rec.Price, nil
		}
	}
	if err := iter.Error(); err != nil {
		return decimal.Zero, err
	}
	return decimal.Zero, ErrNoTrades
}

func (s *PebbleStore) scan(keep func(*model.TradeRecord) bool) ([]model.TradeRecord, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: tradePrefix, UpperBound: tradeUpper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []model.TradeRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var rec model.TradeRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decode trade: %w", err)
		}
		if keep(&rec) {
			out = append(out, rec)
		}
	}
	return out, iter.Error()
}

func tradeKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("trade/%020d", seq))
}

func parseTradeKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, tradePrefix)), "%d", &seq)
	return seq, err
}
