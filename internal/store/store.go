// Package store defines the persistence interface for the trade ledger.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), Pebble (embedded journal) and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/onseju/matching-service/internal/model"
)

// ErrNoTrades is returned when a company has not traded yet.
var ErrNoTrades = errors.New("store: no trades recorded")

// Store persists trade executions. Records are append-only.
type Store interface {
	// InsertTrade appends an immutable trade record.
	InsertTrade(ctx context.Context, rec *model.TradeRecord) error

	// GetTradesByCompany returns all trades for a company, oldest first.
	GetTradesByCompany(ctx context.Context, companyCode string) ([]model.TradeRecord, error)

	// GetTradesByAccount returns all trades where the account was on
	// either side, oldest first.
	GetTradesByAccount(ctx context.Context, accountID int64) ([]model.TradeRecord, error)

	// GetLastPrice returns the price of the company's most recent trade.
	GetLastPrice(ctx context.Context, companyCode string) (decimal.Decimal, error)
}

func involves(rec *model.TradeRecord, accountID int64) bool {
	return (rec.BuyAccountID != nil && *rec.BuyAccountID == accountID) ||
		(rec.SellAccountID != nil && *rec.SellAccountID == accountID)
}
