package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "splitpay.v1.SplitPayService"

// SplitPayServiceServer is the server API for SplitPayService.
// Requests and responses are JSON-shaped structpb.Struct messages carrying the
// same field names as the HTTP API. Struct numbers are doubles, so integer
// amounts are limited to ±(2^53-1); requests carrying larger numbers are rejected
// with InvalidArgument. Use the HTTP API for amounts beyond that range.
type SplitPayServiceServer interface {
	GenerateSplit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AggregateRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterExecution(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(SplitPayServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(SplitPayServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(s, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod returns the "/service/method" path of an RPC
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ServiceDesc describes SplitPayService for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SplitPayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GenerateSplit", SplitPayServiceServer.GenerateSplit),
		unaryHandler("CreateOrder", SplitPayServiceServer.CreateOrder),
		unaryHandler("GetOrder", SplitPayServiceServer.GetOrder),
		unaryHandler("ListOrders", SplitPayServiceServer.ListOrders),
		unaryHandler("UpdateItem", SplitPayServiceServer.UpdateItem),
		unaryHandler("AggregateRecords", SplitPayServiceServer.AggregateRecords),
		unaryHandler("RegisterExecution", SplitPayServiceServer.RegisterExecution),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "splitpay/v1/splitpay.proto",
}

// RegisterSplitPayServiceServer registers srv on s
func RegisterSplitPayServiceServer(s grpc.ServiceRegistrar, srv SplitPayServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls SplitPayService methods over a connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a client for SplitPayService
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with in and returns the response message
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
