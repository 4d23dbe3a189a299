package gateway

import (
	"context"
	"encoding/json"
)

// Tool names exposed to the calling runtime.
const (
	ToolFetchIndicators        = "fetch_indicators"
	ToolFetchPrices            = "fetch_prices"
	ToolFetchHoldings          = "fetch_holdings"
	ToolPlaceOrder             = "place_order"
	ToolCancelOrder            = "cancel_order"
	ToolFetchEnrichedIndicator = "fetch_enriched_indicator"
)

// Tools returns the fixed tool set bound to s.
func (s *Service) Tools() []Tool {
	return []Tool{
		{
			Name:        ToolFetchIndicators,
			Description: "Proxy: GET /api/v1/analysis/indicators/all. Returns upstream JSON verbatim.",
			Handler: func(ctx context.Context, _ Args) (json.RawMessage, error) {
				return s.FetchIndicators(ctx)
			},
		},
		{
			Name:        ToolFetchPrices,
			Description: "Proxy: GET /api/v1/analysis/prices/{symbol}. Returns upstream JSON verbatim.",
			Params: []Param{
				{Name: "symbol", Kind: KindString, Required: true, Description: "Trading symbol, e.g. TCS"},
			},
			Handler: func(ctx context.Context, args Args) (json.RawMessage, error) {
				symbol, err := args.String("symbol")
				if err != nil {
					return nil, err
				}
				return s.FetchPrices(ctx, symbol)
			},
		},
		{
			Name:        ToolFetchHoldings,
			Description: "Proxy: GET /api/portfolio/holdings. Returns upstream JSON verbatim.",
			Handler: func(ctx context.Context, _ Args) (json.RawMessage, error) {
				return s.FetchHoldings(ctx)
			},
		},
		{
			Name:        ToolPlaceOrder,
			Description: "Proxy: POST /api/portfolio/order. Returns upstream JSON verbatim.",
			Params: []Param{
				{Name: "symbol", Kind: KindString, Required: true, Description: "Trading symbol"},
				{Name: "exchange", Kind: KindString, Required: true, Description: "Exchange, e.g. NSE"},
				{Name: "order_type", Kind: KindString, Required: true, Description: "MARKET or LIMIT"},
				{Name: "transaction_type", Kind: KindString, Required: true, Description: "BUY or SELL"},
				{Name: "quantity", Kind: KindInteger, Required: true, Description: "Number of shares"},
				{Name: "price", Kind: KindNumber, Required: true, Description: "Limit price"},
				{Name: "product_type", Kind: KindString, Required: true, Description: "Product type, e.g. CNC or INTRADAY"},
			},
			Handler: func(ctx context.Context, args Args) (json.RawMessage, error) {
				order, err := bindOrder(args)
				if err != nil {
					return nil, err
				}
				return s.PlaceOrder(ctx, order)
			},
		},
		{
			Name:        ToolCancelOrder,
			Description: "Proxy: DELETE /api/portfolio/order/{order_id}. Returns upstream JSON verbatim.",
			Params: []Param{
				{Name: "order_id", Kind: KindString, Required: true, Description: "Upstream order identifier"},
			},
			Handler: func(ctx context.Context, args Args) (json.RawMessage, error) {
				id, err := args.String("order_id")
				if err != nil {
					return nil, err
				}
				return s.CancelOrder(ctx, id)
			},
		},
		{
			Name:        ToolFetchEnrichedIndicator,
			Description: "Proxy: GET /api/v1/analysis/indicators/{symbol}. Returns upstream JSON verbatim.",
			Params: []Param{
				{Name: "symbol", Kind: KindString, Required: true, Description: "Trading symbol"},
				{Name: "date", Kind: KindString, Description: "Optional as-of date, e.g. 2024-01-01"},
			},
			Handler: func(ctx context.Context, args Args) (json.RawMessage, error) {
				symbol, err := args.String("symbol")
				if err != nil {
					return nil, err
				}
				date, err := args.String("date")
				if err != nil {
					return nil, err
				}
				return s.FetchEnrichedIndicator(ctx, symbol, date)
			},
		},
	}
}

func bindOrder(args Args) (OrderRequest, error) {
	var (
		o   OrderRequest
		err error
	)
	if o.Symbol, err = args.String("symbol"); err != nil {
		return o, err
	}
	if o.Exchange, err = args.String("exchange"); err != nil {
		return o, err
	}
	if o.OrderType, err = args.String("order_type"); err != nil {
		return o, err
	}
	if o.TransactionType, err = args.String("transaction_type"); err != nil {
		return o, err
	}
	if o.Quantity, err = args.Int("quantity"); err != nil {
		return o, err
	}
	if o.Price, err = args.Float("price"); err != nil {
		return o, err
	}
	if o.ProductType, err = args.String("product_type"); err != nil {
		return o, err
	}
	return o, nil
}
