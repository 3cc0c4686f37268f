package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func acct(id int64) *int64 { return &id }

func TestPrice_EqualByValue(t *testing.T) {
	a := NewPrice(decimal.RequireFromString("50000"))
	b := NewPrice(decimal.RequireFromString("50000.00"))
	if !a.Equal(b) {
		t.Errorf("expected %s == %s", a, b)
	}
	if a.Cmp(b) != 0 {
		t.Errorf("expected Cmp 0, got %d", a.Cmp(b))
	}
	if a.IsHigherThan(b) || b.IsHigherThan(a) {
		t.Error("equal prices must not be higher than each other")
	}
}

func TestPrice_IsHigherThan(t *testing.T) {
	if !NewPrice(d(50000.5)).IsHigherThan(NewPrice(d(50000))) {
		t.Error("50000.5 should be higher than 50000")
	}
}

func TestNewOrder_MarketZeroesPrice(t *testing.T) {
	o := NewOrder(1, "005930", MarketBuy, d(50000), d(10), time.Now(), nil)
	if !o.Price.IsZero() {
		t.Errorf("market order price should be 0, got %s", o.Price)
	}
	if o.Status != StatusActive {
		t.Errorf("expected ACTIVE, got %s", o.Status)
	}
	if !o.RemainingQuantity.Equal(d(10)) {
		t.Errorf("expected remaining 10, got %s", o.RemainingQuantity)
	}
}

func TestOrder_HasSameAccount(t *testing.T) {
	o := NewOrder(1, "005930", LimitBuy, d(100), d(1), time.Now(), acct(7))

	if !o.HasSameAccount(acct(7)) {
		t.Error("same account should match")
	}
	if o.HasSameAccount(acct(8)) {
		t.Error("different account should not match")
	}
	if o.HasSameAccount(nil) {
		t.Error("absent account should never match")
	}

	anon := NewOrder(2, "005930", LimitBuy, d(100), d(1), time.Now(), nil)
	if anon.HasSameAccount(acct(7)) {
		t.Error("order without account should never match")
	}
}

func TestOrder_DecreaseRemainingQuantity_FloorsAtZero(t *testing.T) {
	o := NewOrder(1, "005930", LimitSell, d(100), d(5), time.Now(), nil)
	o.DecreaseRemainingQuantity(d(7))
	if !o.RemainingQuantity.IsZero() {
		t.Errorf("expected remaining 0, got %s", o.RemainingQuantity)
	}
	if o.HasRemainingQuantity() {
		t.Error("no quantity should remain")
	}
}

func TestOrder_CheckAndChangeStatus(t *testing.T) {
	o := NewOrder(1, "005930", LimitSell, d(100), d(5), time.Now(), nil)

	o.DecreaseRemainingQuantity(d(2))
	o.CheckAndChangeStatus()
	if o.Status != StatusActive {
		t.Errorf("partially filled order should stay ACTIVE, got %s", o.Status)
	}

	o.DecreaseRemainingQuantity(d(3))
	o.CheckAndChangeStatus()
	o.CheckAndChangeStatus()
	if o.Status != StatusComplete {
		t.Errorf("filled order should be COMPLETE, got %s", o.Status)
	}
}

func TestOrder_CalculateMatchQuantity(t *testing.T) {
	a := NewOrder(1, "005930", LimitBuy, d(100), d(10), time.Now(), nil)
	b := NewOrder(2, "005930", LimitSell, d(100), d(3.5), time.Now(), nil)
	if q := a.CalculateMatchQuantity(b); !q.Equal(d(3.5)) {
		t.Errorf("expected 3.5, got %s", q)
	}
	if q := b.CalculateMatchQuantity(a); !q.Equal(d(3.5)) {
		t.Errorf("expected 3.5, got %s", q)
	}
}

func TestOrder_ChangeToMarket(t *testing.T) {
	sell := NewOrder(1, "005930", LimitSell, d(100), d(1), time.Now(), nil)
	sell.ChangeToMarket()
	if sell.Type != MarketSell || !sell.Price.IsZero() {
		t.Errorf("expected MARKET_SELL @ 0, got %s @ %s", sell.Type, sell.Price)
	}

	buy := NewOrder(2, "005930", LimitBuy, d(100), d(1), time.Now(), nil)
	buy.ChangeToMarket()
	if buy.Type != MarketBuy || !buy.IsMarketType() || buy.IsSellType() {
		t.Errorf("expected MARKET_BUY, got %s", buy.Type)
	}
}

func TestType_Valid(t *testing.T) {
	for _, typ := range []Type{LimitBuy, LimitSell, MarketBuy, MarketSell} {
		if !typ.Valid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if Type("STOP_BUY").Valid() {
		t.Error("STOP_BUY should be invalid")
	}
}
