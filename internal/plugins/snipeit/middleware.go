package snipeit

import (
	"context"

	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
)

// BearerMiddleware returns a Kratos client middleware that sends key as a
// bearer token and asks for JSON replies. An empty key sends no
// Authorization header.
func BearerMiddleware(key string) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			if tr, ok := transport.FromClientContext(ctx); ok {
				tr.RequestHeader().Set("Accept", "application/json")
				if key != "" {
					tr.RequestHeader().Set("Authorization", "Bearer "+key)
				}
			}
			return handler(ctx, req)
		}
	}
}
