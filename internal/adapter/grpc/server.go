package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/replay-broker/internal/domain"
	"github.com/simaogato/replay-broker/internal/usecase/execution"
	"github.com/simaogato/replay-broker/internal/usecase/market"
	"github.com/simaogato/replay-broker/internal/usecase/portfolio"
)

// Server implements the ReplayService gRPC server
type Server struct {
	PortfolioService *portfolio.PortfolioService
	MarketService    *market.MarketService
	ExecutionService *execution.ExecutionService
}

var _ ReplayServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	portfolioService *portfolio.PortfolioService,
	marketService *market.MarketService,
	executionService *execution.ExecutionService,
) *Server {
	return &Server{
		PortfolioService: portfolioService,
		MarketService:    marketService,
		ExecutionService: executionService,
	}
}

// CreatePortfolio handles the CreatePortfolio RPC
func (s *Server) CreatePortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	base, err := requireAmount(req, fieldBase)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid base: %v", err)
	}

	quote, err := requireAmount(req, fieldQuote)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid quote: %v", err)
	}

	result, err := s.PortfolioService.CreatePortfolio(ctx, base, quote)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		fieldID:        result.Portfolio.ID.String(),
		fieldPortfolio: portfolioToMap(result.Portfolio),
		fieldInterval:  result.Interval,
	})
}

// GetPortfolio handles the GetPortfolio RPC
func (s *Server) GetPortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireID(req, fieldID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	p, err := s.PortfolioService.GetPortfolio(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		fieldPortfolio: portfolioToMap(*p),
	})
}

// GetCurrentMarket handles the GetCurrentMarket RPC
func (s *Server) GetCurrentMarket(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	point := s.MarketService.GetCurrentMarket()

	return newStruct(map[string]any{
		fieldTime:  point.Time,
		fieldPrice: point.Price.String(),
	})
}

// GetPrice handles the GetPrice RPC.
// Without a time it advances the portfolio's clock by one interval.
func (s *Server) GetPrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireID(req, fieldID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	at, err := optionalTimestamp(req, fieldTime)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	quote, err := s.MarketService.GetPriceAt(ctx, id, at)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		fieldTime:     quote.Time,
		fieldPrice:    quote.Price.String(),
		fieldInterval: quote.Interval,
	})
}

// Buy handles the Buy RPC. The total is in quote asset units.
func (s *Server) Buy(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.executeOrder(ctx, req, s.ExecutionService.ExecuteBuy)
}

// Sell handles the Sell RPC. The total is in base asset units.
func (s *Server) Sell(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.executeOrder(ctx, req, s.ExecutionService.ExecuteSell)
}

// ListPortfolioIDs handles the ListPortfolioIDs RPC
func (s *Server) ListPortfolioIDs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ids := s.PortfolioService.ListPortfolioIDs(ctx)

	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id.String())
	}

	return newStruct(map[string]any{
		fieldIDs: values,
	})
}

// GetOrderHistory handles the GetOrderHistory RPC
func (s *Server) GetOrderHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireID(req, fieldID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	records, err := s.PortfolioService.GetOrderHistory(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	orders := make([]any, 0, len(records))
	for _, record := range records {
		orders = append(orders, orderToMap(record))
	}

	return newStruct(map[string]any{
		fieldOrders: orders,
	})
}

type orderFunc func(ctx context.Context, id uuid.UUID, total decimal.Decimal) (*domain.Portfolio, error)

func (s *Server) executeOrder(ctx context.Context, req *structpb.Struct, execute orderFunc) (*structpb.Struct, error) {
	id, err := requireID(req, fieldID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	total, err := requireAmount(req, fieldTotal)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid total: %v", err)
	}

	p, err := execute(ctx, id, total)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		fieldPortfolio: portfolioToMap(*p),
	})
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrMalformedInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrUnknownTimestamp):
		return status.Error(codes.OutOfRange, err.Error())
	case errors.Is(err, execution.ErrZeroPrice):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, domain.ErrPersistence):
		return status.Error(codes.Internal, err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Error(codes.Internal, err.Error())
}
