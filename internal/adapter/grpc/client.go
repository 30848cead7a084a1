package grpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/replay-broker/internal/domain"
)

// Client is a typed client of the replay service
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a new Client over an established connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePortfolio opens a portfolio and returns it with the series interval
func (c *Client) CreatePortfolio(ctx context.Context, base, quote decimal.Decimal, opts ...grpc.CallOption) (domain.Portfolio, int64, error) {
	out, err := c.invoke(ctx, MethodCreatePortfolio, map[string]any{
		fieldBase:  base.String(),
		fieldQuote: quote.String(),
	}, opts...)
	if err != nil {
		return domain.Portfolio{}, 0, err
	}

	p, err := portfolioFromStruct(out.GetFields()[fieldPortfolio].GetStructValue())
	if err != nil {
		return domain.Portfolio{}, 0, err
	}
	interval, err := requireTimestamp(out, fieldInterval)
	if err != nil {
		return domain.Portfolio{}, 0, err
	}
	return p, interval, nil
}

// GetPortfolio fetches a portfolio
func (c *Client) GetPortfolio(ctx context.Context, id uuid.UUID, opts ...grpc.CallOption) (domain.Portfolio, error) {
	out, err := c.invoke(ctx, MethodGetPortfolio, map[string]any{fieldID: id.String()}, opts...)
	if err != nil {
		return domain.Portfolio{}, err
	}
	return portfolioFromStruct(out.GetFields()[fieldPortfolio].GetStructValue())
}

// GetCurrentMarket fetches the global market sample
func (c *Client) GetCurrentMarket(ctx context.Context, opts ...grpc.CallOption) (domain.PricePoint, error) {
	out, err := c.invoke(ctx, MethodGetCurrentMarket, map[string]any{}, opts...)
	if err != nil {
		return domain.PricePoint{}, err
	}

	ts, err := requireTimestamp(out, fieldTime)
	if err != nil {
		return domain.PricePoint{}, err
	}
	price, err := decimalField(out, fieldPrice)
	if err != nil {
		return domain.PricePoint{}, err
	}
	return domain.PricePoint{Time: ts, Price: price}, nil
}

// GetPrice quotes the price at the given time, or advances the portfolio clock when at is nil.
// It returns the quoted sample and the series interval.
func (c *Client) GetPrice(ctx context.Context, id uuid.UUID, at *int64, opts ...grpc.CallOption) (domain.PricePoint, int64, error) {
	fields := map[string]any{fieldID: id.String()}
	if at != nil {
		fields[fieldTime] = *at
	}

	out, err := c.invoke(ctx, MethodGetPrice, fields, opts...)
	if err != nil {
		return domain.PricePoint{}, 0, err
	}

	ts, err := requireTimestamp(out, fieldTime)
	if err != nil {
		return domain.PricePoint{}, 0, err
	}
	price, err := decimalField(out, fieldPrice)
	if err != nil {
		return domain.PricePoint{}, 0, err
	}
	interval, err := requireTimestamp(out, fieldInterval)
	if err != nil {
		return domain.PricePoint{}, 0, err
	}
	return domain.PricePoint{Time: ts, Price: price}, interval, nil
}

// Buy spends total quote units at the portfolio's current price
func (c *Client) Buy(ctx context.Context, id uuid.UUID, total decimal.Decimal, opts ...grpc.CallOption) (domain.Portfolio, error) {
	return c.order(ctx, MethodBuy, id, total, opts...)
}

// Sell sells total base units at the portfolio's current price
func (c *Client) Sell(ctx context.Context, id uuid.UUID, total decimal.Decimal, opts ...grpc.CallOption) (domain.Portfolio, error) {
	return c.order(ctx, MethodSell, id, total, opts...)
}

func (c *Client) order(ctx context.Context, method string, id uuid.UUID, total decimal.Decimal, opts ...grpc.CallOption) (domain.Portfolio, error) {
	out, err := c.invoke(ctx, method, map[string]any{
		fieldID:    id.String(),
		fieldTotal: total.String(),
	}, opts...)
	if err != nil {
		return domain.Portfolio{}, err
	}
	return portfolioFromStruct(out.GetFields()[fieldPortfolio].GetStructValue())
}

// ListPortfolioIDs fetches every registered portfolio identifier
func (c *Client) ListPortfolioIDs(ctx context.Context, opts ...grpc.CallOption) ([]uuid.UUID, error) {
	out, err := c.invoke(ctx, MethodListPortfolioIDs, map[string]any{}, opts...)
	if err != nil {
		return nil, err
	}

	values := out.GetFields()[fieldIDs].GetListValue().GetValues()
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("invalid portfolio id %q: %w", v.GetStringValue(), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetOrderHistory fetches the portfolio's order log in append order
func (c *Client) GetOrderHistory(ctx context.Context, id uuid.UUID, opts ...grpc.CallOption) ([]domain.OrderRecord, error) {
	out, err := c.invoke(ctx, MethodGetOrderHistory, map[string]any{fieldID: id.String()}, opts...)
	if err != nil {
		return nil, err
	}

	values := out.GetFields()[fieldOrders].GetListValue().GetValues()
	records := make([]domain.OrderRecord, 0, len(values))
	for _, v := range values {
		record, err := orderFromStruct(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
