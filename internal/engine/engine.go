// Package engine routes incoming orders to the order book of their company
// and hands every resulting trade execution to a Publisher.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/onseju/matching-service/internal/book"
	"github.com/onseju/matching-service/internal/metrics"
	"github.com/onseju/matching-service/internal/model"
)

// Publisher receives trade executions one at a time, per company in match
// order. The engine neither waits for acknowledgment nor retries;
// implementations own their failures. Publish must not submit orders for
// the company it is publishing.
type Publisher interface {
	Publish(ctx context.Context, trade model.TradeExecution)
}

// BookFactory supplies a fresh, empty book for a company.
type BookFactory func(companyCode string) *book.CompanyOrderBook

// DefaultBookFactory builds books with the given options.
func DefaultBookFactory(opts ...book.Option) BookFactory {
	return func(companyCode string) *book.CompanyOrderBook {
		return book.New(companyCode, opts...)
	}
}

// MatchingEngine owns one book per company code. Books are created on the
// first order for a code and live as long as the engine.
type MatchingEngine struct {
	mu         sync.RWMutex
	orderBooks map[string]*book.CompanyOrderBook
	factory    BookFactory
	publisher  Publisher
}

// New creates an engine. A nil factory falls back to DefaultBookFactory().
func New(publisher Publisher, factory BookFactory) *MatchingEngine {
	if factory == nil {
		factory = DefaultBookFactory()
	}
	return &MatchingEngine{
		orderBooks: make(map[string]*book.CompanyOrderBook),
		factory:    factory,
		publisher:  publisher,
	}
}

// ProcessOrder matches order against its company's book and publishes each
// execution in the order it was produced. Publishing for one company is
// serialized in match order across concurrent callers. The executions are
// also returned to the caller.
func (e *MatchingEngine) ProcessOrder(ctx context.Context, order *model.Order) []model.TradeExecution {
	start := time.Now()
	orderType := string(order.Type)

	orderBook := e.getOrCreateOrderBook(order.CompanyCode)
	return orderBook.SubmitAndDeliver(order, func(results []model.TradeExecution) {
		metrics.OrdersReceived.WithLabelValues(orderType).Inc()
		metrics.MatchLatency.WithLabelValues(orderType).Observe(time.Since(start).Seconds())

		for _, trade := range results {
			slog.Info("trade executed",
				"company", trade.CompanyCode,
				"buy_order", trade.BuyOrderID,
				"sell_order", trade.SellOrderID,
				"qty", trade.Quantity.String(),
				"price", trade.Price.String(),
			)
			if e.publisher != nil {
				e.publisher.Publish(ctx, trade)
			}
		}
	})
}

// Book returns the book for companyCode if one exists.
func (e *MatchingEngine) Book(companyCode string) (*book.CompanyOrderBook, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.orderBooks[companyCode]
	return b, ok
}

// Companies lists every company with a book, sorted.
func (e *MatchingEngine) Companies() []string {
	e.mu.RLock()
	codes := make([]string, 0, len(e.orderBooks))
	for code := range e.orderBooks {
		codes = append(codes, code)
	}
	e.mu.RUnlock()
	sort.Strings(codes)
	return codes
}

func (e *MatchingEngine) getOrCreateOrderBook(companyCode string) *book.CompanyOrderBook {
	e.mu.RLock()
	b, ok := e.orderBooks[companyCode]
	e.mu.RUnlock()
	if ok {
		return b
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok = e.orderBooks[companyCode]; !ok {
		b = e.factory(companyCode)
		e.orderBooks[companyCode] = b
		metrics.ActiveBooks.Set(float64(len(e.orderBooks)))
		slog.Info("order book created", "company", companyCode)
	}
	return b
}
