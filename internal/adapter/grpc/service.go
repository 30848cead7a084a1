package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "replay.v1.ReplayService"

// Method names of the replay service
const (
	MethodCreatePortfolio  = "CreatePortfolio"
	MethodGetPortfolio     = "GetPortfolio"
	MethodGetCurrentMarket = "GetCurrentMarket"
	MethodGetPrice         = "GetPrice"
	MethodBuy              = "Buy"
	MethodSell             = "Sell"
	MethodListPortfolioIDs = "ListPortfolioIDs"
	MethodGetOrderHistory  = "GetOrderHistory"
)

// ReplayServiceServer is the server API of the replay service.
// Every message is a google.protobuf.Struct.
type ReplayServiceServer interface {
	CreatePortfolio(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPortfolio(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCurrentMarket(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPrice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Buy(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Sell(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPortfolioIDs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrderHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterReplayServiceServer registers srv on s
func RegisterReplayServiceServer(s grpc.ServiceRegistrar, srv ReplayServiceServer) {
	s.RegisterService(&ReplayServiceDesc, srv)
}

// ReplayServiceDesc is the grpc.ServiceDesc for the replay service
var ReplayServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReplayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodCreatePortfolio, Handler: unaryHandler(MethodCreatePortfolio, ReplayServiceServer.CreatePortfolio)},
		{MethodName: MethodGetPortfolio, Handler: unaryHandler(MethodGetPortfolio, ReplayServiceServer.GetPortfolio)},
		{MethodName: MethodGetCurrentMarket, Handler: unaryHandler(MethodGetCurrentMarket, ReplayServiceServer.GetCurrentMarket)},
		{MethodName: MethodGetPrice, Handler: unaryHandler(MethodGetPrice, ReplayServiceServer.GetPrice)},
		{MethodName: MethodBuy, Handler: unaryHandler(MethodBuy, ReplayServiceServer.Buy)},
		{MethodName: MethodSell, Handler: unaryHandler(MethodSell, ReplayServiceServer.Sell)},
		{MethodName: MethodListPortfolioIDs, Handler: unaryHandler(MethodListPortfolioIDs, ReplayServiceServer.ListPortfolioIDs)},
		{MethodName: MethodGetOrderHistory, Handler: unaryHandler(MethodGetOrderHistory, ReplayServiceServer.GetOrderHistory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "replay/v1/replay.proto",
}

type unaryMethod func(ReplayServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a server method to grpc.MethodHandler, running it through
// the server's interceptor chain when one is installed
func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method

	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReplayServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReplayServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
