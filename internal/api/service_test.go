package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/onseju/matching-service/internal/api"
	"github.com/onseju/matching-service/internal/book"
	"github.com/onseju/matching-service/internal/engine"
	"github.com/onseju/matching-service/internal/model"
	"github.com/onseju/matching-service/internal/publish"
	"github.com/onseju/matching-service/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func acct(id int64) *int64 { return &id }

// newTestEnv wires an engine that records trades into an in-memory ledger.
func newTestEnv(t *testing.T) (*store.MemoryStore, chi.Router) {
	t.Helper()
	ms := store.NewMemoryStore()
	eng := engine.New(publish.NewStorePublisher(ms), nil)
	svc := api.NewService(eng, ms)

	r := chi.NewRouter()
	r.Route("/api/v1", svc.Routes)
	return ms, r
}

func submit(t *testing.T, router chi.Router, req api.OrderRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/api/v1/matching", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)
	return w
}

func get(router chi.Router, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func limitReq(id int64, typ model.Type, price, qty float64, account int64) api.OrderRequest {
	return api.OrderRequest{
		ID:          id,
		CompanyCode: "005930",
		Type:        typ,
		Quantity:    d(qty),
		Price:       d(price),
		AccountID:   acct(account),
	}
}

// --- Order submission tests ---

func TestSubmitOrder_RestsThenMatches(t *testing.T) {
	_, router := newTestEnv(t)

	w := submit(t, router, limitReq(1, model.LimitSell, 50000, 10, 1))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.OrderResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Trades) != 0 || resp.Order.Status != model.StatusActive {
		t.Fatalf("sell should rest, got %+v", resp)
	}

	w = submit(t, router, limitReq(2, model.LimitBuy, 50000, 4, 2))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp = api.OrderResponse{}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(resp.Trades))
	}
	tr := resp.Trades[0]
	if tr.BuyOrderID != 2 || tr.SellOrderID != 1 || !tr.Quantity.Equal(d(4)) || !tr.Price.Equal(d(50000)) {
		t.Errorf("unexpected trade %+v", tr)
	}
	if resp.Order.Status != model.StatusComplete || !resp.Order.RemainingQuantity.IsZero() {
		t.Errorf("buy should be complete, got %+v", resp.Order)
	}
}

func TestSubmitOrder_MarketOrderIgnoresPrice(t *testing.T) {
	_, router := newTestEnv(t)
	submit(t, router, limitReq(1, model.LimitSell, 51000, 3, 1))

	w := submit(t, router, api.OrderRequest{
		ID:          2,
		CompanyCode: "005930",
		Type:        model.MarketBuy,
		Quantity:    d(5),
		AccountID:   acct(2),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.OrderResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Trades) != 1 || !resp.Trades[0].Price.Equal(d(51000)) {
		t.Fatalf("expected fill at resting price, got %+v", resp.Trades)
	}
	if !resp.Order.RemainingQuantity.Equal(d(2)) {
		t.Errorf("expected 2 unfilled, got %s", resp.Order.RemainingQuantity)
	}
}

func TestSubmitOrder_Validation(t *testing.T) {
	_, router := newTestEnv(t)

	tests := []struct {
		name string
		req  api.OrderRequest
		want string
	}{
		{"missing id", api.OrderRequest{CompanyCode: "005930", Type: model.LimitBuy, Quantity: d(1), Price: d(1)}, "id"},
		{"bad type", api.OrderRequest{ID: 1, CompanyCode: "005930", Type: "STOP_BUY", Quantity: d(1), Price: d(1)}, "type"},
		{"bad code", api.OrderRequest{ID: 1, CompanyCode: "SAMSUNG", Type: model.LimitBuy, Quantity: d(1), Price: d(1)}, "company code"},
		{"zero quantity", api.OrderRequest{ID: 1, CompanyCode: "005930", Type: model.LimitBuy, Price: d(1)}, "quantity"},
		{"limit without price", api.OrderRequest{ID: 1, CompanyCode: "005930", Type: model.LimitSell, Quantity: d(1)}, "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := submit(t, router, tt.req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("expected error mentioning %q, got %s", tt.want, w.Body.String())
			}
		})
	}
}

func TestSubmitOrder_InvalidBody(t *testing.T) {
	_, router := newTestEnv(t)

	for _, body := range []string{"", "not json"} {
		req := httptest.NewRequest("POST", "/api/v1/matching", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

// --- Query tests ---

func TestGetDepth(t *testing.T) {
	_, router := newTestEnv(t)
	submit(t, router, limitReq(1, model.LimitBuy, 49000, 2, 1))
	submit(t, router, limitReq(2, model.LimitBuy, 49500, 3, 2))
	submit(t, router, limitReq(3, model.LimitSell, 50500, 1, 3))

	w := get(router, "/api/v1/books/005930/depth?limit=1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var depth book.Depth
	json.NewDecoder(w.Body).Decode(&depth)
	if len(depth.Bids) != 1 || !depth.Bids[0].Price.Equal(d(49500)) {
		t.Errorf("expected best bid level 49500, got %+v", depth.Bids)
	}
	if len(depth.Asks) != 1 || !depth.Asks[0].Quantity.Equal(d(1)) {
		t.Errorf("unexpected asks %+v", depth.Asks)
	}
}

func TestGetDepth_UnknownBook(t *testing.T) {
	_, router := newTestEnv(t)

	w := get(router, "/api/v1/books/000660/depth")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"bids":[]`) {
		t.Errorf("expected empty bids, got %s", w.Body.String())
	}

	if w := get(router, "/api/v1/books/000660/depth?limit=-1"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative limit, got %d", w.Code)
	}
}

func TestGetPrice(t *testing.T) {
	_, router := newTestEnv(t)
	submit(t, router, limitReq(1, model.LimitSell, 50000, 5, 1))
	submit(t, router, limitReq(2, model.LimitBuy, 50000, 2, 2))
	submit(t, router, limitReq(3, model.LimitBuy, 49000, 1, 3))

	w := get(router, "/api/v1/books/005930/price")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp api.PriceResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.BestBid == nil || !resp.BestBid.Equal(d(49000)) {
		t.Errorf("expected best bid 49000, got %v", resp.BestBid)
	}
	if resp.BestAsk == nil || !resp.BestAsk.Equal(d(50000)) {
		t.Errorf("expected best ask 50000, got %v", resp.BestAsk)
	}
	if resp.LastPrice == nil || !resp.LastPrice.Equal(d(50000)) {
		t.Errorf("expected last price 50000, got %v", resp.LastPrice)
	}
}

func TestGetPrice_NoTrades(t *testing.T) {
	_, router := newTestEnv(t)

	w := get(router, "/api/v1/books/005930/price")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "last_price") {
		t.Errorf("last price should be omitted, got %s", w.Body.String())
	}
}

func TestGetTrades_ByCompanyAndAccount(t *testing.T) {
	_, router := newTestEnv(t)
	submit(t, router, limitReq(1, model.LimitSell, 50000, 5, 10))
	submit(t, router, limitReq(2, model.LimitBuy, 50000, 2, 20))
	submit(t, router, limitReq(3, model.LimitBuy, 50000, 3, 30))

	w := get(router, "/api/v1/trades/005930")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var trades []model.TradeRecord
	json.NewDecoder(w.Body).Decode(&trades)
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].BuyOrderID != 2 || trades[1].BuyOrderID != 3 {
		t.Errorf("trades out of order: %+v", trades)
	}

	w = get(router, "/api/v1/accounts/30/trades")
	trades = nil
	json.NewDecoder(w.Body).Decode(&trades)
	if len(trades) != 1 || trades[0].BuyOrderID != 3 {
		t.Errorf("expected only account 30's trade, got %+v", trades)
	}

	if w := get(router, "/api/v1/accounts/abc/trades"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric account, got %d", w.Code)
	}
	if w := get(router, "/api/v1/trades/000660"); w.Body.String() != "[]\n" {
		t.Errorf("expected empty list, got %q", w.Body.String())
	}
}
