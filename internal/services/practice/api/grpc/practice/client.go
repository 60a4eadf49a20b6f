package practice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls ServiceName over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with a request document built from fields.
func (c *Client) Call(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchProblem calls MethodFetchProblem.
func (c *Client) FetchProblem(ctx context.Context, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, MethodFetchProblem, fields, opts...)
}

// SubmitAnswer calls MethodSubmitAnswer.
func (c *Client) SubmitAnswer(ctx context.Context, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, MethodSubmitAnswer, fields, opts...)
}

// UpgradeSector calls MethodUpgradeSector.
func (c *Client) UpgradeSector(ctx context.Context, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, MethodUpgradeSector, fields, opts...)
}

// GetProgress calls MethodGetProgress.
func (c *Client) GetProgress(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, MethodGetProgress, nil, opts...)
}

// ListSectors calls MethodListSectors.
func (c *Client) ListSectors(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, MethodListSectors, nil, opts...)
}

// ListLeaderboard calls MethodListLeaderboard.
func (c *Client) ListLeaderboard(ctx context.Context, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, MethodListLeaderboard, fields, opts...)
}
