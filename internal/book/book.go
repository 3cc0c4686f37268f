// Package book implements the per-company order book: price levels of
// resting orders on each side and the matching of incoming orders against
// them under price-time priority.
//
// A CompanyOrderBook serializes every operation behind one mutex, so orders
// for the same company are matched strictly one after another. Books for
// different companies share nothing.
package book

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/onseju/matching-service/internal/model"
)

// Option configures a CompanyOrderBook.
type Option func(*CompanyOrderBook)

// WithPolicy sets the policy used to convert marketable limit orders.
func WithPolicy(p MarketablePolicy) Option {
	return func(b *CompanyOrderBook) {
		if p != nil {
			b.policy = p
		}
	}
}

// WithClock overrides the clock used to stamp trade executions.
func WithClock(now func() time.Time) Option {
	return func(b *CompanyOrderBook) {
		if now != nil {
			b.now = now
		}
	}
}

// CompanyOrderBook holds the resting orders of one company.
type CompanyOrderBook struct {
	mu          sync.Mutex
	deliverMu   sync.Mutex // taken before mu is released; keeps deliveries in match order
	companyCode string
	sellOrders  *btree.BTreeG[*OrderStorage] // lowest price first
	buyOrders   *btree.BTreeG[*OrderStorage] // highest price first
	policy      MarketablePolicy
	now         func() time.Time
}

// New creates an empty book for companyCode.
func New(companyCode string, opts ...Option) *CompanyOrderBook {
	b := &CompanyOrderBook{
		companyCode: companyCode,
		sellOrders: btree.NewG[*OrderStorage](btreeDegree, func(x, y *OrderStorage) bool {
			return x.price.Cmp(y.price) < 0
		}),
		buyOrders: btree.NewG[*OrderStorage](btreeDegree, func(x, y *OrderStorage) bool {
			return x.price.Cmp(y.price) > 0
		}),
		policy: NeverMarketable{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CompanyCode returns the company this book belongs to.
func (b *CompanyOrderBook) CompanyCode() string { return b.companyCode }

// Received matches order against the book and returns the executions in
// the order they happened. A limit order's unfilled remainder rests at its
// own price; a market order's remainder is dropped.
func (b *CompanyOrderBook) Received(order *model.Order) []model.TradeExecution {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.received(order)
}

// Submit converts order to a market order when the policy finds it
// marketable, then matches it. Both steps run in one critical section.
func (b *CompanyOrderBook) Submit(order *model.Order) []model.TradeExecution {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isMarketable(order) {
		order.ChangeToMarket()
	}
	return b.received(order)
}

// SubmitAndDeliver is Submit followed by deliver(trades). Deliveries for this
// book run one at a time in the order the matches happened: the delivery
// lock is acquired before the book lock is released.
func (b *CompanyOrderBook) SubmitAndDeliver(order *model.Order, deliver func([]model.TradeExecution)) []model.TradeExecution {
	b.mu.Lock()
	if b.isMarketable(order) {
		order.ChangeToMarket()
	}
	trades := b.received(order)
	b.deliverMu.Lock()
	b.mu.Unlock()

	defer b.deliverMu.Unlock()
	deliver(trades)
	return trades
}

// IsSellOrderBelowMarketPrice reports whether a limit sell is quoted below
// the current best bid according to the book's policy.
func (b *CompanyOrderBook) IsSellOrderBelowMarketPrice(order *model.Order) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.policy.IsSellOrderBelowMarketPrice(order, bestOf(b.buyOrders))
}

// IsBuyOrderAboveMarketPrice reports whether a limit buy is quoted above
// the current best ask according to the book's policy.
func (b *CompanyOrderBook) IsBuyOrderAboveMarketPrice(order *model.Order) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.policy.IsBuyOrderAboveMarketPrice(order, bestOf(b.sellOrders))
}

func (b *CompanyOrderBook) isMarketable(order *model.Order) bool {
	if order.IsMarketType() {
		return false
	}
	if order.IsSellType() {
		return b.policy.IsSellOrderBelowMarketPrice(order, bestOf(b.buyOrders))
	}
	return b.policy.IsBuyOrderAboveMarketPrice(order, bestOf(b.sellOrders))
}

func (b *CompanyOrderBook) received(order *model.Order) []model.TradeExecution {
	var results []model.TradeExecution
	if order.IsMarketType() {
		results = b.processMarketOrder(order)
	} else {
		results = b.processLimitOrder(order)
	}
	order.CheckAndChangeStatus()
	return results
}

// processMarketOrder walks the opposite side best price first until the
// order is filled or the side is exhausted.
func (b *CompanyOrderBook) processMarketOrder(order *model.Order) []model.TradeExecution {
	var results []model.TradeExecution
	b.counterSide(order).Ascend(func(level *OrderStorage) bool {
		results = matchLevel(level, order, results)
		return order.HasRemainingQuantity()
	})
	return results
}

// processLimitOrder trades only at the order's exact price, then rests
// whatever is left on its own side.
func (b *CompanyOrderBook) processLimitOrder(order *model.Order) []model.TradeExecution {
	var results []model.TradeExecution
	if level, ok := b.counterSide(order).Get(b.probe(order.LimitPrice())); ok {
		results = matchLevel(level, order, results)
	}
	if order.HasRemainingQuantity() {
		b.addRemaining(order)
	}
	return results
}

func matchLevel(level *OrderStorage, order *model.Order, results []model.TradeExecution) []model.TradeExecution {
	for order.HasRemainingQuantity() && !level.IsEmpty() {
		trade, err := level.Match(order)
		if err != nil {
			break
		}
		results = append(results, trade)
	}
	return results
}

func (b *CompanyOrderBook) addRemaining(order *model.Order) {
	side := b.sameSide(order)
	price := order.LimitPrice()
	level, ok := side.Get(b.probe(price))
	if !ok {
		level = newOrderStorage(price, b.now)
		side.ReplaceOrInsert(level)
	}
	if err := level.Add(order); err != nil {
		slog.Warn("order not rested",
			"company", b.companyCode,
			"order_id", order.ID,
			"price", price.String(),
			"err", err,
		)
	}
}

func (b *CompanyOrderBook) counterSide(order *model.Order) *btree.BTreeG[*OrderStorage] {
	if order.IsSellType() {
		return b.buyOrders
	}
	return b.sellOrders
}

func (b *CompanyOrderBook) sameSide(order *model.Order) *btree.BTreeG[*OrderStorage] {
	if order.IsSellType() {
		return b.sellOrders
	}
	return b.buyOrders
}

func (b *CompanyOrderBook) probe(price model.Price) *OrderStorage {
	return &OrderStorage{price: price}
}

// bestOf returns the price of the first non-empty level, or nil.
func bestOf(side *btree.BTreeG[*OrderStorage]) *model.Price {
	var best *model.Price
	side.Ascend(func(level *OrderStorage) bool {
		if level.IsEmpty() {
			return true
		}
		p := level.price
		best = &p
		return false
	})
	return best
}

// Level is an aggregated view of one non-empty price level.
type Level struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Orders   int             `json:"orders"`
}

// Depth is a snapshot of both sides in matching priority.
type Depth struct {
	CompanyCode string  `json:"company_code"`
	Bids        []Level `json:"bids"`
	Asks        []Level `json:"asks"`
}

// Depth returns up to limit non-empty levels per side. limit <= 0 means all.
func (b *CompanyOrderBook) Depth(limit int) Depth {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Depth{
		CompanyCode: b.companyCode,
		Bids:        levels(b.buyOrders, limit),
		Asks:        levels(b.sellOrders, limit),
	}
}

func levels(side *btree.BTreeG[*OrderStorage], limit int) []Level {
	out := []Level{}
	side.Ascend(func(level *OrderStorage) bool {
		if level.IsEmpty() {
			return true
		}
		out = append(out, Level{
			Price:    level.price.Value(),
			Quantity: level.RemainingQuantity(),
			Orders:   level.Len(),
		})
		return limit <= 0 || len(out) < limit
	})
	return out
}

// BestBid returns the highest price with resting buy orders.
func (b *CompanyOrderBook) BestBid() (model.Price, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p := bestOf(b.buyOrders); p != nil {
		return *p, true
	}
	return model.Price{}, false
}

// BestAsk returns the lowest price with resting sell orders.
func (b *CompanyOrderBook) BestAsk() (model.Price, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p := bestOf(b.sellOrders); p != nil {
		return *p, true
	}
	return model.Price{}, false
}
