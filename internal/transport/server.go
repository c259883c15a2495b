// Package transport carries a foreign.Runtime over gRPC: Server exposes one,
// Client implements foreign.Runtime against a remote Server.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	pb "tablebridge/api/proto/v1"
	"tablebridge/foreign"
	"tablebridge/internal/logging"
	"tablebridge/internal/telemetry"
)

type Server struct {
	grpc *grpc.Server
	lis  net.Listener
}

// StartServer listens on port and registers rt. Call Serve to accept.
func StartServer(port int, rt foreign.Runtime) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return NewServer(lis, rt), nil
}

// NewServer serves rt on an existing listener.
func NewServer(lis net.Listener, rt foreign.Runtime) *Server {
	s := &Server{
		grpc: grpc.NewServer(grpc.ChainUnaryInterceptor(observe)),
		lis:  lis,
	}
	pb.RegisterRuntimeServer(s.grpc, &runtimeService{rt: rt})
	return s
}

func (s *Server) Addr() net.Addr { return s.lis.Addr() }

func (s *Server) Serve() error {
	return s.grpc.Serve(s.lis)
}

func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

func observe(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	resp, err := next(ctx, req)
	method := info.FullMethod[strings.LastIndexByte(info.FullMethod, '/')+1:]
	telemetry.ObserveCall("rpc."+method, err)
	if err != nil {
		logging.With("transport").Debug("rpc failed", "method", method, "err", err)
	}
	return resp, err
}

type runtimeService struct {
	pb.UnimplementedRuntimeServer
	rt foreign.Runtime
}

func (s *runtimeService) Ready(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"ready": structpb.NewBoolValue(s.rt.Ready()),
	}}, nil
}

func (s *runtimeService) Resolve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	h, err := s.rt.Resolve(ctx, in.GetFields()["name"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return reply("handle", h)
}

func (s *runtimeService) Constant(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ns, err := handleField(in, "namespace")
	if err != nil {
		return nil, err
	}
	v, err := s.rt.Constant(ctx, ns, in.GetFields()["name"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return reply("value", v)
}

func (s *runtimeService) Invoke(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ns, err := handleField(in, "namespace")
	if err != nil {
		return nil, err
	}
	args, err := decodeList(in.GetFields()["args"].GetListValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	v, err := s.rt.Invoke(ctx, ns, in.GetFields()["method"].GetStringValue(), args...)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply("value", v)
}

func (s *runtimeService) Release(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	h, err := handleField(in, "handle")
	if err != nil {
		return nil, err
	}
	if err := s.rt.Release(ctx, h); err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{}, nil
}

func handleField(in *structpb.Struct, key string) (foreign.Handle, error) {
	v, err := Decode(in.GetFields()[key])
	if err != nil {
		return foreign.Handle{}, status.Error(codes.InvalidArgument, err.Error())
	}
	h, ok := v.(foreign.Handle)
	if !ok {
		return foreign.Handle{}, status.Errorf(codes.InvalidArgument, "%s: want handle, got %T", key, v)
	}
	return h, nil
}

func reply(key string, v any) (*structpb.Struct, error) {
	enc, err := Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{key: enc}}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, foreign.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, foreign.ErrNotReady):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Unknown, err.Error())
}
