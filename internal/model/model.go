// Package model defines the core domain types shared across the matching service.
// All prices and quantities use shopspring/decimal, never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type combines the side and the execution style of an order.
type Type string

const (
	LimitBuy   Type = "LIMIT_BUY"
	LimitSell  Type = "LIMIT_SELL"
	MarketBuy  Type = "MARKET_BUY"
	MarketSell Type = "MARKET_SELL"
)

// Valid reports whether t is one of the four known order types.
func (t Type) Valid() bool {
	switch t {
	case LimitBuy, LimitSell, MarketBuy, MarketSell:
		return true
	}
	return false
}

// IsMarket reports whether t executes against available liquidity only.
func (t Type) IsMarket() bool {
	return t == MarketBuy || t == MarketSell
}

// IsSell reports whether t is on the sell side.
func (t Type) IsSell() bool {
	return t == MarketSell || t == LimitSell
}

// Market returns the market type on the same side as t.
func (t Type) Market() Type {
	if t.IsSell() {
		return MarketSell
	}
	return MarketBuy
}

// Status is the lifecycle state of an order. It only moves forward.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusComplete Status = "COMPLETE"
)

// Price is an exact decimal price. Two prices are equal when their numeric
// values are equal, so "50000" and "50000.00" denote the same level.
type Price struct {
	value decimal.Decimal
}

// NewPrice wraps a decimal amount.
func NewPrice(v decimal.Decimal) Price {
	return Price{value: v}
}

// Value returns the wrapped decimal.
func (p Price) Value() decimal.Decimal { return p.value }

// IsHigherThan reports whether p is strictly greater than other.
func (p Price) IsHigherThan(other Price) bool {
	return p.value.GreaterThan(other.value)
}

// Cmp compares by numeric value: -1, 0 or +1.
func (p Price) Cmp(other Price) int {
	return p.value.Cmp(other.value)
}

// Equal compares by numeric value.
func (p Price) Equal(other Price) bool {
	return p.value.Equal(other.value)
}

func (p Price) String() string { return p.value.String() }

// Order is a trading order submitted to the matching engine. It is mutated
// only by the book that owns it (remaining quantity and status).
type Order struct {
	ID                int64           `json:"id"`
	CompanyCode       string          `json:"company_code"`
	Type              Type            `json:"type"`
	Status            Status          `json:"status"`
	TotalQuantity     decimal.Decimal `json:"total_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Price             decimal.Decimal `json:"price"` // zero for market orders
	CreatedAt         time.Time       `json:"created_at"`
	AccountID         *int64          `json:"account_id,omitempty"`
}

// NewOrder creates an active order with its full quantity remaining.
func NewOrder(id int64, companyCode string, typ Type, price, quantity decimal.Decimal, createdAt time.Time, accountID *int64) *Order {
	if typ.IsMarket() {
		price = decimal.Zero
	}
	return &Order{
		ID:                id,
		CompanyCode:       companyCode,
		Type:              typ,
		Status:            StatusActive,
		TotalQuantity:     quantity,
		RemainingQuantity: quantity,
		Price:             price,
		CreatedAt:         createdAt,
		AccountID:         accountID,
	}
}

func (o *Order) IsSellType() bool   { return o.Type.IsSell() }
func (o *Order) IsMarketType() bool { return o.Type.IsMarket() }

// LimitPrice returns the order's quoted price as a book key.
func (o *Order) LimitPrice() Price { return NewPrice(o.Price) }

// HasSameAccount reports whether o belongs to otherAccountID. An absent
// account on either side never matches.
func (o *Order) HasSameAccount(otherAccountID *int64) bool {
	if o.AccountID == nil || otherAccountID == nil {
		return false
	}
	return *o.AccountID == *otherAccountID
}

// DecreaseRemainingQuantity subtracts qty from the remaining quantity,
// flooring at zero.
func (o *Order) DecreaseRemainingQuantity(qty decimal.Decimal) {
	o.RemainingQuantity = o.RemainingQuantity.Sub(qty)
	if o.RemainingQuantity.IsNegative() {
		o.RemainingQuantity = decimal.Zero
	}
}

// HasRemainingQuantity reports whether anything is left to fill.
func (o *Order) HasRemainingQuantity() bool {
	return !o.RemainingQuantity.IsZero()
}

// CalculateMatchQuantity is the quantity executed when o pairs with other.
func (o *Order) CalculateMatchQuantity(other *Order) decimal.Decimal {
	return decimal.Min(o.RemainingQuantity, other.RemainingQuantity)
}

// CheckAndChangeStatus marks the order complete once nothing remains.
func (o *Order) CheckAndChangeStatus() {
	if o.RemainingQuantity.IsZero() {
		o.Status = StatusComplete
	}
}

// ChangeToMarket converts a limit order into a market order on the same side.
func (o *Order) ChangeToMarket() {
	o.Type = o.Type.Market()
	o.Price = decimal.Zero
}

// TradeExecution is an immutable record of one pairwise match.
type TradeExecution struct {
	CompanyCode   string          `json:"company_code"`
	BuyOrderID    int64           `json:"buy_order_id"`
	BuyAccountID  *int64          `json:"buy_account_id,omitempty"`
	SellOrderID   int64           `json:"sell_order_id"`
	SellAccountID *int64          `json:"sell_account_id,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	TradeAt       int64           `json:"trade_at"` // epoch seconds
}

// TradeRecord is a persisted TradeExecution in the trade ledger.
type TradeRecord struct {
	ID string `json:"id" db:"id"`
	TradeExecution
}
