// Package publish delivers trade executions produced by the engine to the
// ledger, the metrics registry, Kafka and live WebSocket clients.
package publish

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/onseju/matching-service/internal/engine"
	"github.com/onseju/matching-service/internal/metrics"
	"github.com/onseju/matching-service/internal/model"
	"github.com/onseju/matching-service/internal/store"
)

// Fanout forwards each trade to every publisher in order.
type Fanout []engine.Publisher

func (f Fanout) Publish(ctx context.Context, trade model.TradeExecution) {
	for _, p := range f {
		p.Publish(ctx, trade)
	}
}

// StorePublisher appends every trade to the trade ledger.
type StorePublisher struct {
	store store.Store
}

func NewStorePublisher(st store.Store) *StorePublisher {
	return &StorePublisher{store: st}
}

func (p *StorePublisher) Publish(ctx context.Context, trade model.TradeExecution) {
	rec := &model.TradeRecord{
		ID:             uuid.New().String(),
		TradeExecution: trade,
	}
	// The ledger write must outlive a cancelled request.
	if err := p.store.InsertTrade(context.WithoutCancel(ctx), rec); err != nil {
		metrics.PublishFailures.WithLabelValues("store").Inc()
		slog.Error("failed to record trade",
			"company", trade.CompanyCode,
			"buy_order", trade.BuyOrderID,
			"sell_order", trade.SellOrderID,
			"err", err,
		)
	}
}

// MetricsPublisher counts executions and matched volume per company.
type MetricsPublisher struct{}

func (MetricsPublisher) Publish(_ context.Context, trade model.TradeExecution) {
	metrics.TradesExecuted.WithLabelValues(trade.CompanyCode).Inc()
	metrics.MatchedVolume.WithLabelValues(trade.CompanyCode).Add(trade.Quantity.InexactFloat64())
}
