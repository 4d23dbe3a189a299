package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/samvad-hq/data-api-gateway/internal/upstream"
)

// Upstream endpoints.
const (
	pathIndicatorsAll = "/api/v1/analysis/indicators/all"
	pathPrices        = "/api/v1/analysis/prices/"
	pathIndicator     = "/api/v1/analysis/indicators/"
	pathHoldings      = "/api/portfolio/holdings"
	pathOrder         = "/api/portfolio/order"
)

// Forwarder sends one request upstream and returns its JSON body.
type Forwarder interface {
	Do(ctx context.Context, req upstream.Request) (json.RawMessage, error)
}

// OrderRequest is the body of a place-order call. Field order fixes the
// encoded key order.
type OrderRequest struct {
	Symbol          string  `json:"symbol"`
	Exchange        string  `json:"exchange"`
	OrderType       string  `json:"orderType"`
	TransactionType string  `json:"transactionType"`
	Quantity        int     `json:"quantity"`
	Price           float64 `json:"price"`
	ProductType     string  `json:"productType"`
}

// Service maps each gateway operation onto a single upstream request.
type Service struct {
	up Forwarder
}

// NewService builds a Service over up.
func NewService(up Forwarder) *Service {
	return &Service{up: up}
}

// FetchIndicators returns the indicator table for all symbols.
func (s *Service) FetchIndicators(ctx context.Context) (json.RawMessage, error) {
	return s.up.Do(ctx, upstream.Request{Method: http.MethodGet, Path: pathIndicatorsAll})
}

// FetchPrices returns price history for symbol.
func (s *Service) FetchPrices(ctx context.Context, symbol string) (json.RawMessage, error) {
	return s.up.Do(ctx, upstream.Request{Method: http.MethodGet, Path: pathPrices + upstream.Segment(symbol)})
}

// FetchHoldings returns the portfolio holdings.
func (s *Service) FetchHoldings(ctx context.Context) (json.RawMessage, error) {
	return s.up.Do(ctx, upstream.Request{Method: http.MethodGet, Path: pathHoldings})
}

// PlaceOrder submits an order.
func (s *Service) PlaceOrder(ctx context.Context, order OrderRequest) (json.RawMessage, error) {
	return s.up.Do(ctx, upstream.Request{Method: http.MethodPost, Path: pathOrder, Body: order})
}

// CancelOrder cancels orderID.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	return s.up.Do(ctx, upstream.Request{Method: http.MethodDelete, Path: pathOrder + "/" + upstream.Segment(orderID)})
}

// FetchEnrichedIndicator returns indicators for symbol, optionally as of date.
// An empty date sends no query string.
func (s *Service) FetchEnrichedIndicator(ctx context.Context, symbol, date string) (json.RawMessage, error) {
	req := upstream.Request{Method: http.MethodGet, Path: pathIndicator + upstream.Segment(symbol)}
	if date != "" {
		req.Query = map[string]string{"date": date}
	}
	return s.up.Do(ctx, req)
}
