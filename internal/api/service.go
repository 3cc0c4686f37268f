// Package api provides the HTTP handlers for submitting orders to the
// matching engine and querying books and the trade ledger.
//
// All prices and quantities use shopspring/decimal, never float64.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/onseju/matching-service/internal/book"
	"github.com/onseju/matching-service/internal/engine"
	"github.com/onseju/matching-service/internal/instrument"
	"github.com/onseju/matching-service/internal/model"
	"github.com/onseju/matching-service/internal/store"
)

// Service exposes the engine and the trade ledger over HTTP.
type Service struct {
	engine   *engine.MatchingEngine
	store    store.Store
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates the HTTP service.
func NewService(eng *engine.MatchingEngine, st store.Store) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		engine:   eng,
		store:    st,
		validate: v,
		now:      time.Now,
	}
}

// Routes mounts every handler on r.
func (s *Service) Routes(r chi.Router) {
	r.Post("/matching", s.SubmitOrder)
	r.Get("/books/{companyCode}/depth", s.GetDepth)
	r.Get("/books/{companyCode}/price", s.GetPrice)
	r.Get("/trades/{companyCode}", s.GetTradesByCompany)
	r.Get("/accounts/{accountID}/trades", s.GetTradesByAccount)
}

// --- Request/Response types ---

// OrderRequest is the JSON body for POST /matching.
type OrderRequest struct {
	ID          int64           `json:"id" validate:"required"`
	CompanyCode string          `json:"company_code" validate:"required"`
	Type        model.Type      `json:"type" validate:"required,oneof=LIMIT_BUY LIMIT_SELL MARKET_BUY MARKET_SELL"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"` // ignored for market orders
	AccountID   *int64          `json:"account_id,omitempty"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"` // defaults to now
}

// OrderResponse is the JSON body returned from POST /matching.
type OrderResponse struct {
	Order  *model.Order           `json:"order"`
	Trades []model.TradeExecution `json:"trades"`
}

// PriceResponse is the JSON body returned from GET /books/{companyCode}/price.
type PriceResponse struct {
	CompanyCode string           `json:"company_code"`
	BestBid     *decimal.Decimal `json:"best_bid,omitempty"`
	BestAsk     *decimal.Decimal `json:"best_ask,omitempty"`
	LastPrice   *decimal.Decimal `json:"last_price,omitempty"`
}

// --- HTTP Handlers ---

// SubmitOrder handles POST /api/v1/matching
// Matches the order against its company's book and returns the executions.
func (s *Service) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		writeError(w, "empty request body", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.validate.Struct(req); err != nil {
		writeError(w, validationMessage(err), http.StatusBadRequest)
		return
	}
	code, err := instrument.ParseCompanyCode(req.CompanyCode)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.Quantity.IsPositive() {
		writeError(w, "quantity must be positive", http.StatusBadRequest)
		return
	}
	if !req.Type.IsMarket() && !req.Price.IsPositive() {
		writeError(w, "price must be positive for limit orders", http.StatusBadRequest)
		return
	}

	createdAt := s.now().UTC()
	if req.CreatedAt != nil {
		createdAt = req.CreatedAt.UTC()
	}
	order := model.NewOrder(req.ID, code, req.Type, req.Price, req.Quantity, createdAt, req.AccountID)

	trades := s.engine.ProcessOrder(r.Context(), order)
	if trades == nil {
		trades = []model.TradeExecution{}
	}

	slog.Info("order processed",
		"order_id", order.ID,
		"company", order.CompanyCode,
		"type", string(order.Type),
		"status", string(order.Status),
		"remaining", order.RemainingQuantity.String(),
		"trades", len(trades),
	)

	writeJSON(w, http.StatusOK, OrderResponse{Order: order, Trades: trades})
}

// GetDepth handles GET /api/v1/books/{companyCode}/depth?limit=N
func (s *Service) GetDepth(w http.ResponseWriter, r *http.Request) {
	code, err := instrument.ParseCompanyCode(chi.URLParam(r, "companyCode"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
	}

	depth := book.Depth{CompanyCode: code, Bids: []book.Level{}, Asks: []book.Level{}}
	if b, ok := s.engine.Book(code); ok {
		depth = b.Depth(limit)
	}
	writeJSON(w, http.StatusOK, depth)
}

// GetPrice handles GET /api/v1/books/{companyCode}/price
// Returns best bid, best ask and the last traded price when known.
func (s *Service) GetPrice(w http.ResponseWriter, r *http.Request) {
	code, err := instrument.ParseCompanyCode(chi.URLParam(r, "companyCode"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := PriceResponse{CompanyCode: code}
	if b, ok := s.engine.Book(code); ok {
		if p, ok := b.BestBid(); ok {
			v := p.Value()
			resp.BestBid = &v
		}
		if p, ok := b.BestAsk(); ok {
			v := p.Value()
			resp.BestAsk = &v
		}
	}

	last, err := s.store.GetLastPrice(r.Context(), code)
	switch {
	case err == nil:
		resp.LastPrice = &last
	case !errors.Is(err, store.ErrNoTrades):
		writeError(w, "failed to load last price", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetTradesByCompany handles GET /api/v1/trades/{companyCode}
func (s *Service) GetTradesByCompany(w http.ResponseWriter, r *http.Request) {
	code, err := instrument.ParseCompanyCode(chi.URLParam(r, "companyCode"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	trades, err := s.store.GetTradesByCompany(r.Context(), code)
	if err != nil {
		writeError(w, "failed to load trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.TradeRecord{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// GetTradesByAccount handles GET /api/v1/accounts/{accountID}/trades
func (s *Service) GetTradesByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		writeError(w, "account id must be an integer", http.StatusBadRequest)
		return
	}

	trades, err := s.store.GetTradesByAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, "failed to load trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.TradeRecord{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
