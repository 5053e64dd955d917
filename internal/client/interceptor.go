package client

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/danmuck/mapdlctl/internal/observability"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// CallCounter counts every RPC issued on a connection and records the
// outcome. Calls are otherwise forwarded untouched.
type CallCounter struct {
	target string
	n      atomic.Int64
}

func NewCallCounter(target string) *CallCounter {
	return &CallCounter{target: target}
}

func (c *CallCounter) Count() int64 {
	return c.n.Load()
}

func (c *CallCounter) UnaryInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		c.n.Add(1)
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		observability.RecordRPC(c.target, shortMethod(method), status.Code(err).String(), time.Since(start))
		return err
	}
}

// StreamInterceptor counts stream creation. The recorded duration covers
// stream setup only.
func (c *CallCounter) StreamInterceptor() grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		c.n.Add(1)
		start := time.Now()
		stream, err := streamer(ctx, desc, cc, method, opts...)
		observability.RecordRPC(c.target, shortMethod(method), status.Code(err).String(), time.Since(start))
		return stream, err
	}
}

// shortMethod turns "/pkg.Service/Method" into "Method".
func shortMethod(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[i+1:]
	}
	return full
}
