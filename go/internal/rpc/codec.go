// Package rpc holds the connect plumbing shared by the judging services:
// a JSON codec for plain Go messages, the action result envelope and the
// mapping from business errors to results and connect codes.
package rpc

import (
	"context"
	"encoding/json"

	"connectrpc.com/connect"
)

// Codec marshals messages as plain JSON. It replaces connect's default
// "json" codec, which only accepts protobuf messages.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// Empty is the request of calls that take no arguments.
type Empty struct{}

// NewUnaryHandler builds a connect handler that speaks the JSON codec.
func NewUnaryHandler[Req, Res any](
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts ...connect.HandlerOption,
) *connect.Handler {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	return connect.NewUnaryHandler(procedure, fn, opts...)
}

// NewClient builds a connect client for a procedure served by NewUnaryHandler.
func NewClient[Req, Res any](httpClient connect.HTTPClient, url string, opts ...connect.ClientOption) *connect.Client[Req, Res] {
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return connect.NewClient[Req, Res](httpClient, url, opts...)
}
