package book

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/onseju/matching-service/internal/model"
)

// A market buy sweeping the ask side must fill in price, then arrival,
// then size order, and every fill must move both sides by the same amount.
func TestProperty_MarketSweepFollowsPriority(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := newTestBook()
		n := rapid.IntRange(1, 30).Draw(t, "orders")

		resting := make(map[int64]*model.Order, n)
		before := make(map[int64]decimal.Decimal, n)
		available := decimal.Zero
		for i := 1; i <= n; i++ {
			price := rapid.IntRange(95, 105).Draw(t, "price")
			qty := rapid.IntRange(1, 20).Draw(t, "qty")
			offset := rapid.IntRange(0, 5).Draw(t, "offset")
			o := model.NewOrder(int64(i), "005930", model.LimitSell,
				decimal.NewFromInt(int64(price)), decimal.NewFromInt(int64(qty)),
				t0.Add(time.Duration(offset)*time.Second), acct(int64(i)))
			b.Received(o)
			resting[o.ID] = o
			before[o.ID] = o.RemainingQuantity
			available = available.Add(o.RemainingQuantity)
		}

		want := decimal.NewFromInt(int64(rapid.IntRange(1, 400).Draw(t, "want")))
		buy := model.NewOrder(int64(n+1), "005930", model.MarketBuy, decimal.Zero, want, t0.Add(time.Hour), acct(0))
		trades := b.Received(buy)

		filled := decimal.Zero
		var prev *model.Order
		for _, tr := range trades {
			sell := resting[tr.SellOrderID]
			if sell == nil {
				t.Fatalf("unknown sell order %d", tr.SellOrderID)
			}
			if !tr.Price.Equal(sell.Price) {
				t.Fatalf("market fill must print resting price %s, got %s", sell.Price, tr.Price)
			}
			if tr.Quantity.GreaterThan(before[sell.ID]) {
				t.Fatalf("fill %s exceeds resting remaining %s", tr.Quantity, before[sell.ID])
			}
			if prev != nil && prev.ID != sell.ID {
				if c := prev.Price.Cmp(sell.Price); c > 0 || (c == 0 && !byArrival(prev, sell)) {
					t.Fatalf("order %d filled before higher-priority order %d", prev.ID, sell.ID)
				}
			}
			prev = sell
			filled = filled.Add(tr.Quantity)
		}

		if !filled.Equal(decimal.Min(want, available)) {
			t.Fatalf("filled %s, expected min(%s, %s)", filled, want, available)
		}
		if !buy.RemainingQuantity.Equal(want.Sub(filled)) {
			t.Fatalf("buy remaining %s, expected %s", buy.RemainingQuantity, want.Sub(filled))
		}

		restingLeft := decimal.Zero
		for id, o := range resting {
			if o.RemainingQuantity.IsNegative() || o.RemainingQuantity.GreaterThan(before[id]) {
				t.Fatalf("order %d remaining out of range: %s", id, o.RemainingQuantity)
			}
			if (o.Status == model.StatusComplete) != o.RemainingQuantity.IsZero() {
				t.Fatalf("order %d status %s with remaining %s", id, o.Status, o.RemainingQuantity)
			}
			restingLeft = restingLeft.Add(o.RemainingQuantity)
		}
		if !available.Sub(restingLeft).Equal(filled) {
			t.Fatalf("resting side lost %s, buyer got %s", available.Sub(restingLeft), filled)
		}
	})
}

// A limit order never executes at any price other than its own.
func TestProperty_LimitTradesOnlyAtOwnPrice(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := newTestBook()
		n := rapid.IntRange(1, 20).Draw(t, "orders")
		for i := 1; i <= n; i++ {
			price := rapid.IntRange(98, 102).Draw(t, "price")
			b.Received(model.NewOrder(int64(i), "005930", model.LimitBuy,
				decimal.NewFromInt(int64(price)), decimal.NewFromInt(1), t0, acct(int64(i))))
		}

		price := decimal.NewFromInt(int64(rapid.IntRange(98, 102).Draw(t, "sellPrice")))
		sell := model.NewOrder(int64(n+1), "005930", model.LimitSell, price, decimal.NewFromInt(3), t0, acct(0))
		for _, tr := range b.Received(sell) {
			if !tr.Price.Equal(price) {
				t.Fatalf("limit sell at %s traded at %s", price, tr.Price)
			}
		}
	})
}
