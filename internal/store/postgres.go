package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/onseju/matching-service/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS trade_history (
	seq             BIGSERIAL PRIMARY KEY,
	id              TEXT    NOT NULL UNIQUE,
	company_code    TEXT    NOT NULL,
	buy_order_id    BIGINT  NOT NULL,
	buy_account_id  BIGINT,
	sell_order_id   BIGINT  NOT NULL,
	sell_account_id BIGINT,
	quantity        NUMERIC NOT NULL,
	price           NUMERIC NOT NULL,
	trade_at        BIGINT  NOT NULL
);
CREATE INDEX IF NOT EXISTS trade_history_company_idx ON trade_history (company_code, seq);
CREATE INDEX IF NOT EXISTS trade_history_buy_account_idx ON trade_history (buy_account_id);
CREATE INDEX IF NOT EXISTS trade_history_sell_account_idx ON trade_history (sell_account_id);
`

const selectTrade = `SELECT id, company_code, buy_order_id, buy_account_id,
	        sell_order_id, sell_account_id,
	        quantity::TEXT, price::TEXT, trade_at
	 FROM trade_history`

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Quantities and prices are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the trade_history table and its indexes if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertTrade(ctx context.Context, t *model.TradeRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trade_history (id, company_code, buy_order_id, buy_account_id,
		                            sell_order_id, sell_account_id, quantity, price, trade_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::NUMERIC, $8::NUMERIC, $9)`,
		t.ID, t.CompanyCode, t.BuyOrderID, t.BuyAccountID,
		t.SellOrderID, t.SellAccountID,
		t.Quantity.String(), t.Price.String(), t.TradeAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetTradesByCompany(ctx context.Context, companyCode string) ([]model.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, selectTrade+` WHERE company_code = $1 ORDER BY seq`, companyCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *PostgresStore) GetTradesByAccount(ctx context.Context, accountID int64) ([]model.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		selectTrade+` WHERE buy_account_id = $1 OR sell_account_id = $1 ORDER BY seq`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *PostgresStore) GetLastPrice(ctx context.Context, companyCode string) (decimal.Decimal, error) {
	var priceS string
	err := s.pool.QueryRow(ctx,
		`SELECT price::TEXT FROM trade_history WHERE company_code = $1 ORDER BY seq DESC LIMIT 1`,
		companyCode).Scan(&priceS)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrNoTrades
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("last price %s: %w", companyCode, err)
	}
	return decimal.NewFromString(priceS)
}

// pgxRows is the subset of pgx.Rows used by scanTrades.
type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTrades(rows pgxRows) ([]model.TradeRecord, error) {
	var trades []model.TradeRecord
	for rows.Next() {
		var t model.TradeRecord
		var qtyS, priceS string

		if err := rows.Scan(&t.ID, &t.CompanyCode, &t.BuyOrderID, &t.BuyAccountID,
			&t.SellOrderID, &t.SellAccountID, &qtyS, &priceS, &t.TradeAt); err != nil {
			return nil, err
		}

		var err error
		if t.Quantity, err = decimal.NewFromString(qtyS); err != nil {
			return nil, fmt.Errorf("trade %s quantity: %w", t.ID, err)
		}
		if t.Price, err = decimal.NewFromString(priceS); err != nil {
			return nil, fmt.Errorf("trade %s price: %w", t.ID, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
