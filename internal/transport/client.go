package transport

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	pb "tablebridge/api/proto/v1"
	"tablebridge/foreign"
)

// Client is a foreign.Runtime backed by a remote Server.
type Client struct {
	cc           *grpc.ClientConn
	rpc          pb.RuntimeClient
	readyTimeout time.Duration
}

var _ foreign.Runtime = (*Client)(nil)

type ClientOption func(*clientOptions)

type clientOptions struct {
	readyTimeout time.Duration
	dial         []grpc.DialOption
}

// WithReadyTimeout bounds the Ready call, which has no context of its own.
func WithReadyTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.readyTimeout = d }
}

func WithDialOptions(opts ...grpc.DialOption) ClientOption {
	return func(o *clientOptions) { o.dial = append(o.dial, opts...) }
}

// Dial connects lazily to addr; the first call establishes the connection.
func Dial(addr string, opts ...ClientOption) (*Client, error) {
	o := clientOptions{readyTimeout: 2 * time.Second}
	for _, fn := range opts {
		fn(&o)
	}
	dial := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, o.dial...)
	cc, err := grpc.NewClient(addr, dial...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, rpc: pb.NewRuntimeClient(cc), readyTimeout: o.readyTimeout}, nil
}

func (c *Client) Close() error { return c.cc.Close() }

// Ready reports false when the server is unreachable.
func (c *Client) Ready() bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.readyTimeout)
	defer cancel()
	out, err := c.rpc.Ready(ctx, &structpb.Struct{})
	if err != nil {
		return false
	}
	return out.GetFields()["ready"].GetBoolValue()
}

func (c *Client) Resolve(ctx context.Context, name string) (foreign.Handle, error) {
	out, err := c.rpc.Resolve(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		"name": structpb.NewStringValue(name),
	}})
	if err != nil {
		return foreign.Handle{}, fromStatus(err)
	}
	v, err := Decode(out.GetFields()["handle"])
	if err != nil {
		return foreign.Handle{}, err
	}
	h, ok := v.(foreign.Handle)
	if !ok {
		return foreign.Handle{}, fmt.Errorf("transport: resolve %s: want handle, got %T", name, v)
	}
	return h, nil
}

func (c *Client) Constant(ctx context.Context, ns foreign.Handle, name string) (any, error) {
	nsv, err := Encode(ns)
	if err != nil {
		return nil, err
	}
	out, err := c.rpc.Constant(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		"namespace": nsv,
		"name":      structpb.NewStringValue(name),
	}})
	if err != nil {
		return nil, fromStatus(err)
	}
	return Decode(out.GetFields()["value"])
}

func (c *Client) Invoke(ctx context.Context, ns foreign.Handle, method string, args ...any) (any, error) {
	nsv, err := Encode(ns)
	if err != nil {
		return nil, err
	}
	av, err := encodeArgs(args)
	if err != nil {
		return nil, fmt.Errorf("transport: %s: %w", method, err)
	}
	out, err := c.rpc.Invoke(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		"namespace": nsv,
		"method":    structpb.NewStringValue(method),
		"args":      av,
	}})
	if err != nil {
		return nil, fromStatus(err)
	}
	return Decode(out.GetFields()["value"])
}

func (c *Client) Release(ctx context.Context, h foreign.Handle) error {
	hv, err := Encode(h)
	if err != nil {
		return err
	}
	if _, err := c.rpc.Release(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{"handle": hv}}); err != nil {
		return fromStatus(err)
	}
	return nil
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", foreign.ErrNotFound, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", foreign.ErrNotReady, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, st.Message())
	}
	return err
}
