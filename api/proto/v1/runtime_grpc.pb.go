package pb

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
	structpb "google.golang.org/protobuf/types/known/structpb"
)

const _ = grpc.SupportPackageIsVersion9

const (
	Runtime_Ready_FullMethodName    = "/tablebridge.v1.Runtime/Ready"
	Runtime_Resolve_FullMethodName  = "/tablebridge.v1.Runtime/Resolve"
	Runtime_Constant_FullMethodName = "/tablebridge.v1.Runtime/Constant"
	Runtime_Invoke_FullMethodName   = "/tablebridge.v1.Runtime/Invoke"
	Runtime_Release_FullMethodName  = "/tablebridge.v1.Runtime/Release"
)

type RuntimeClient interface {
	Ready(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Resolve(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Constant(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Invoke(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Release(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type runtimeClient struct {
	cc grpc.ClientConnInterface
}

func NewRuntimeClient(cc grpc.ClientConnInterface) RuntimeClient {
	return &runtimeClient{cc}
}

func (c *runtimeClient) call(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, cOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *runtimeClient) Ready(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, Runtime_Ready_FullMethodName, in, opts)
}

func (c *runtimeClient) Resolve(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, Runtime_Resolve_FullMethodName, in, opts)
}

func (c *runtimeClient) Constant(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, Runtime_Constant_FullMethodName, in, opts)
}

func (c *runtimeClient) Invoke(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, Runtime_Invoke_FullMethodName, in, opts)
}

func (c *runtimeClient) Release(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, Runtime_Release_FullMethodName, in, opts)
}

type RuntimeServer interface {
	Ready(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Resolve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Constant(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Invoke(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Release(context.Context, *structpb.Struct) (*structpb.Struct, error)
	mustEmbedUnimplementedRuntimeServer()
}

type UnimplementedRuntimeServer struct{}

func (UnimplementedRuntimeServer) Ready(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Ready not implemented")
}
func (UnimplementedRuntimeServer) Resolve(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Resolve not implemented")
}
func (UnimplementedRuntimeServer) Constant(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Constant not implemented")
}
func (UnimplementedRuntimeServer) Invoke(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Invoke not implemented")
}
func (UnimplementedRuntimeServer) Release(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Release not implemented")
}
func (UnimplementedRuntimeServer) mustEmbedUnimplementedRuntimeServer() {}
func (UnimplementedRuntimeServer) testEmbeddedByValue()                 {}

type UnsafeRuntimeServer interface {
	mustEmbedUnimplementedRuntimeServer()
}

func RegisterRuntimeServer(s grpc.ServiceRegistrar, srv RuntimeServer) {
	if t, ok := srv.(interface{ testEmbeddedByValue() }); ok {
		t.testEmbeddedByValue()
	}
	s.RegisterService(&Runtime_ServiceDesc, srv)
}

func unaryHandler(fullMethod string, call func(RuntimeServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RuntimeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(RuntimeServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var Runtime_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "tablebridge.v1.Runtime",
	HandlerType: (*RuntimeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Ready",
			Handler:    unaryHandler(Runtime_Ready_FullMethodName, RuntimeServer.Ready),
		},
		{
			MethodName: "Resolve",
			Handler:    unaryHandler(Runtime_Resolve_FullMethodName, RuntimeServer.Resolve),
		},
		{
			MethodName: "Constant",
			Handler:    unaryHandler(Runtime_Constant_FullMethodName, RuntimeServer.Constant),
		},
		{
			MethodName: "Invoke",
			Handler:    unaryHandler(Runtime_Invoke_FullMethodName, RuntimeServer.Invoke),
		},
		{
			MethodName: "Release",
			Handler:    unaryHandler(Runtime_Release_FullMethodName, RuntimeServer.Release),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "v1/runtime.proto",
}
