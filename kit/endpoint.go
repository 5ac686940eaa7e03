// Package kit holds the transport-neutral endpoint shape shared by the weaver
// tool surfaces, and the adapters that expose endpoints over MCP.
package kit

import "context"

// Endpoint is a single operation with a decoded request.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so that the first one is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
