package book

import "github.com/onseju/matching-service/internal/model"

// MarketablePolicy decides whether a newly submitted limit order already
// crosses the opposite best price and should be converted to a market
// order before it reaches the book. A nil best price means that side of
// the book is empty.
type MarketablePolicy interface {
	IsSellOrderBelowMarketPrice(order *model.Order, bestBid *model.Price) bool
	IsBuyOrderAboveMarketPrice(order *model.Order, bestAsk *model.Price) bool
}

// NeverMarketable never converts. It is the default policy.
type NeverMarketable struct{}

func (NeverMarketable) IsSellOrderBelowMarketPrice(*model.Order, *model.Price) bool { return false }
func (NeverMarketable) IsBuyOrderAboveMarketPrice(*model.Order, *model.Price) bool  { return false }

// BestPriceMarketable converts a limit sell quoted strictly below the best
// bid, and a limit buy quoted strictly above the best ask.
type BestPriceMarketable struct{}

func (BestPriceMarketable) IsSellOrderBelowMarketPrice(order *model.Order, bestBid *model.Price) bool {
	if bestBid == nil || order.IsMarketType() || !order.IsSellType() {
		return false
	}
	return bestBid.IsHigherThan(order.LimitPrice())
}

func (BestPriceMarketable) IsBuyOrderAboveMarketPrice(order *model.Order, bestAsk *model.Price) bool {
	if bestAsk == nil || order.IsMarketType() || order.IsSellType() {
		return false
	}
	return order.LimitPrice().IsHigherThan(*bestAsk)
}
