package book

import (
	"time"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/onseju/matching-service/internal/model"
)

// btreeDegree is the fan-out used for every tree in the book.
const btreeDegree = 16

// OrderStorage holds the resting orders at one exact price. Orders are kept
// in matching priority: earliest CreatedAt first, then larger TotalQuantity,
// then lower ID. All three keys are immutable, so an order never moves
// while it rests.
type OrderStorage struct {
	price  model.Price
	orders *btree.BTreeG[*model.Order]
	now    func() time.Time
}

func newOrderStorage(price model.Price, now func() time.Time) *OrderStorage {
	return &OrderStorage{
		price:  price,
		orders: btree.NewG[*model.Order](btreeDegree, byArrival),
		now:    now,
	}
}

func byArrival(a, b *model.Order) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	if c := a.TotalQuantity.Cmp(b.TotalQuantity); c != 0 {
		return c > 0
	}
	return a.ID < b.ID
}

// Price returns the level's price.
func (s *OrderStorage) Price() model.Price { return s.price }

// IsEmpty reports whether no order rests at this level.
func (s *OrderStorage) IsEmpty() bool { return s.orders.Len() == 0 }

// Len returns the number of resting orders.
func (s *OrderStorage) Len() int { return s.orders.Len() }

// RemainingQuantity sums the remaining quantity of every resting order.
func (s *OrderStorage) RemainingQuantity() decimal.Decimal {
	total := decimal.Zero
	s.orders.Ascend(func(o *model.Order) bool {
		total = total.Add(o.RemainingQuantity)
		return true
	})
	return total
}

// Orders returns the resting orders in matching priority.
func (s *OrderStorage) Orders() []*model.Order {
	out := make([]*model.Order, 0, s.orders.Len())
	s.orders.Ascend(func(o *model.Order) bool {
		out = append(out, o)
		return true
	})
	return out
}

// Add rests an order at this level. An order whose CreatedAt, TotalQuantity
// and ID all equal a resting order's is rejected and the resting order kept.
func (s *OrderStorage) Add(order *model.Order) error {
	if !order.HasRemainingQuantity() {
		return ErrOrderFilled
	}
	if s.orders.Has(order) {
		return ErrDuplicateOrder
	}
	s.orders.ReplaceOrInsert(order)
	return nil
}

// Match pairs the incoming order with the first resting order that does not
// share its account, fills both by the smaller remaining quantity and drops
// the resting order once it is complete. The incoming order is never added
// here.
func (s *OrderStorage) Match(incoming *model.Order) (model.TradeExecution, error) {
	if !incoming.HasRemainingQuantity() {
		return model.TradeExecution{}, ErrOrderFilled
	}

	var counter *model.Order
	s.orders.Ascend(func(o *model.Order) bool {
		if o.HasSameAccount(incoming.AccountID) {
			return true
		}
		counter = o
		return false
	})
	if counter == nil {
		return model.TradeExecution{}, ErrNoCounterparty
	}

	matched := incoming.CalculateMatchQuantity(counter)
	incoming.DecreaseRemainingQuantity(matched)
	counter.DecreaseRemainingQuantity(matched)
	incoming.CheckAndChangeStatus()
	counter.CheckAndChangeStatus()

	if !counter.HasRemainingQuantity() {
		s.orders.Delete(counter)
	}

	return s.execution(incoming, counter, matched), nil
}

// execution builds the trade record. A market aggressor trades at the
// resting price; a limit aggressor always prints its own price.
func (s *OrderStorage) execution(incoming, counter *model.Order, matched decimal.Decimal) model.TradeExecution {
	price := incoming.Price
	if incoming.IsMarketType() {
		price = counter.Price
	}

	buy, sell := incoming, counter
	if incoming.IsSellType() {
		buy, sell = counter, incoming
	}

	return model.TradeExecution{
		CompanyCode:   incoming.CompanyCode,
		BuyOrderID:    buy.ID,
		BuyAccountID:  buy.AccountID,
		SellOrderID:   sell.ID,
		SellAccountID: sell.AccountID,
		Quantity:      matched,
		Price:         price,
		TradeAt:       s.now().Unix(),
	}
}
