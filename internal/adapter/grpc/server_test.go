package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/replay-broker/internal/adapter/repository/filesystem"
	"github.com/simaogato/replay-broker/internal/adapter/repository/memory"
	"github.com/simaogato/replay-broker/internal/domain"
	"github.com/simaogato/replay-broker/internal/usecase/execution"
	"github.com/simaogato/replay-broker/internal/usecase/market"
	"github.com/simaogato/replay-broker/internal/usecase/portfolio"
	"github.com/simaogato/replay-broker/internal/usecase/valuation"
)

// startServer runs the replay service over an in-memory listener on the
// 3-sample scenario series
func startServer(t *testing.T) (*Client, *grpc.ClientConn) {
	t.Helper()

	series, err := domain.LoadPriceSeries([][]string{
		{"1000", "100.0"},
		{"1075", "101.0"},
		{"1150", "99.5"},
	})
	require.NoError(t, err)

	store := memory.NewPortfolioStore()
	orderLog := filesystem.NewOrderLog(filesystem.NewLayout(t.TempDir()))
	valuationService := valuation.NewValuationService(series)
	logger := zap.NewNop()

	server := NewServer(
		portfolio.NewPortfolioService(store, series, valuationService, orderLog, logger),
		market.NewMarketService(store, series, valuationService, orderLog, logger),
		execution.NewExecutionService(store, series, valuationService, orderLog, logger),
	)

	lis := bufconn.Listen(1024 * 1024)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logger)))
	RegisterReplayServiceServer(grpcServer, server)
	go func() {
		_ = grpcServer.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		grpcServer.Stop()
	})

	return NewClient(conn), conn
}

func TestServer_Scenario(t *testing.T) {
	ctx := context.Background()
	client, _ := startServer(t)

	p, interval, err := client.CreatePortfolio(ctx, decimal.Zero, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(75), interval)
	assert.Equal(t, int64(1000), p.CurrentTime)
	assert.True(t, decimal.NewFromInt(1000).Equal(p.Value))
	assert.NotEmpty(t, p.StoragePath)

	p, err = client.Buy(ctx, p.ID, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(p.BaseAssetTotal), "base %s", p.BaseAssetTotal)
	assert.True(t, decimal.NewFromInt(500).Equal(p.QuoteAssetTotal), "quote %s", p.QuoteAssetTotal)
	assert.Equal(t, int64(1075), p.CurrentTime)
	assert.True(t, decimal.NewFromInt(1005).Equal(p.Value), "value %s", p.Value)

	first, err := client.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	second, err := client.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, p.CurrentTime, first.CurrentTime)

	history, err := client.GetOrderHistory(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.OrderKindBuy, history[0].Kind)
	assert.Equal(t, int64(1000), history[0].Time)
	assert.True(t, decimal.NewFromInt(100).Equal(history[0].Price))
	assert.True(t, decimal.NewFromInt(1005).Equal(history[0].Portfolio.Value))

	p, err = client.Sell(ctx, p.ID, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, int64(1150), p.CurrentTime)
	// 500 + 5 * 101
	assert.True(t, decimal.NewFromInt(1005).Equal(p.QuoteAssetTotal), "quote %s", p.QuoteAssetTotal)

	// The series is exhausted
	_, err = client.Buy(ctx, p.ID, decimal.NewFromInt(1))
	assert.Equal(t, codes.OutOfRange, status.Code(err))

	after, err := client.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, after)
}

func TestServer_MarketQueries(t *testing.T) {
	ctx := context.Background()
	client, _ := startServer(t)

	point, err := client.GetCurrentMarket(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), point.Time)
	assert.True(t, decimal.NewFromInt(100).Equal(point.Price))

	p, _, err := client.CreatePortfolio(ctx, decimal.NewFromInt(1), decimal.Zero)
	require.NoError(t, err)

	at := int64(1150)
	quote, interval, err := client.GetPrice(ctx, p.ID, &at)
	require.NoError(t, err)
	assert.Equal(t, int64(75), interval)
	assert.True(t, decimal.RequireFromString("99.5").Equal(quote.Price))

	unchanged, err := client.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), unchanged.CurrentTime)

	quote, _, err = client.GetPrice(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1075), quote.Time)
	assert.True(t, decimal.NewFromInt(101).Equal(quote.Price))

	advanced, err := client.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1075), advanced.CurrentTime)
	assert.True(t, decimal.NewFromInt(101).Equal(advanced.Value))

	between := int64(1010)
	_, _, err = client.GetPrice(ctx, p.ID, &between)
	assert.Equal(t, codes.OutOfRange, status.Code(err))
}

func TestServer_ListPortfolioIDs(t *testing.T) {
	ctx := context.Background()
	client, _ := startServer(t)

	ids, err := client.ListPortfolioIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	want := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		p, _, err := client.CreatePortfolio(ctx, decimal.Zero, decimal.NewFromInt(int64(i)))
		require.NoError(t, err)
		want = append(want, p.ID)
	}

	ids, err = client.ListPortfolioIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, ids)
}

func TestServer_InvalidRequests(t *testing.T) {
	ctx := context.Background()
	client, conn := startServer(t)

	p, _, err := client.CreatePortfolio(ctx, decimal.Zero, decimal.NewFromInt(1000))
	require.NoError(t, err)

	tests := []struct {
		name         string
		method       string
		fields       map[string]any
		expectedCode codes.Code
	}{
		{name: "create without quote", method: MethodCreatePortfolio, fields: map[string]any{"base": "1"}, expectedCode: codes.InvalidArgument},
		{name: "create with non numeric base", method: MethodCreatePortfolio, fields: map[string]any{"base": "lots", "quote": "1"}, expectedCode: codes.InvalidArgument},
		{name: "create with number instead of string", method: MethodCreatePortfolio, fields: map[string]any{"base": 1.5, "quote": "1"}, expectedCode: codes.InvalidArgument},
		{name: "get without id", method: MethodGetPortfolio, fields: map[string]any{}, expectedCode: codes.InvalidArgument},
		{name: "get with malformed id", method: MethodGetPortfolio, fields: map[string]any{"id": "not-a-uuid"}, expectedCode: codes.InvalidArgument},
		{name: "get unknown id", method: MethodGetPortfolio, fields: map[string]any{"id": uuid.NewString()}, expectedCode: codes.NotFound},
		{name: "buy unknown id", method: MethodBuy, fields: map[string]any{"id": uuid.NewString(), "total": "1"}, expectedCode: codes.NotFound},
		{name: "buy with NaN total", method: MethodBuy, fields: map[string]any{"id": p.ID.String(), "total": "NaN"}, expectedCode: codes.InvalidArgument},
		{name: "sell without total", method: MethodSell, fields: map[string]any{"id": p.ID.String()}, expectedCode: codes.InvalidArgument},
		{name: "price with fractional time", method: MethodGetPrice, fields: map[string]any{"id": p.ID.String(), "time": 1000.5}, expectedCode: codes.InvalidArgument},
		{name: "price with string time", method: MethodGetPrice, fields: map[string]any{"id": p.ID.String(), "time": "1000"}, expectedCode: codes.InvalidArgument},
		{name: "history unknown id", method: MethodGetOrderHistory, fields: map[string]any{"id": uuid.NewString()}, expectedCode: codes.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := structpb.NewStruct(tt.fields)
			require.NoError(t, err)

			err = conn.Invoke(ctx, "/"+ServiceName+"/"+tt.method, in, new(structpb.Struct))
			assert.Equal(t, tt.expectedCode, status.Code(err), "error: %v", err)
		})
	}

	// Rejected orders leave the portfolio untouched
	after, err := client.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, after)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode codes.Code
	}{
		{name: "not found", err: fmt.Errorf("lookup: %w", domain.ErrNotFound), expectedCode: codes.NotFound},
		{name: "invalid amount", err: domain.ErrInvalidAmount, expectedCode: codes.InvalidArgument},
		{name: "malformed input", err: domain.ErrMalformedInput, expectedCode: codes.InvalidArgument},
		{name: "unknown timestamp", err: fmt.Errorf("advance: %w", domain.ErrUnknownTimestamp), expectedCode: codes.OutOfRange},
		{name: "zero price", err: execution.ErrZeroPrice, expectedCode: codes.FailedPrecondition},
		{name: "persistence", err: fmt.Errorf("%w: disk full", domain.ErrPersistence), expectedCode: codes.Internal},
		{name: "cancelled", err: fmt.Errorf("append: %w", context.Canceled), expectedCode: codes.Canceled},
		{name: "status passthrough", err: status.Error(codes.AlreadyExists, "dup"), expectedCode: codes.AlreadyExists},
		{name: "unknown", err: errors.New("boom"), expectedCode: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedCode, status.Code(mapError(tt.err)))
		})
	}

	assert.NoError(t, mapError(nil))
}
