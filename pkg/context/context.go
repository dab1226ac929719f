package context

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

type requestIDKey struct{}

// RequestIDHeader names both the HTTP header and the fiber local holding the id.
const RequestIDHeader = "X-Request-ID"

const unknownRequestID = "unknown"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDKey{}).(string)
	if !ok || requestID == "" {
		return unknownRequestID
	}
	return requestID
}

// FromFiberCtx returns the request's user context tagged with its request id.
// Requests that skipped the request id middleware fall back to the raw header.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if GetRequestID(ctx) != unknownRequestID {
		return ctx
	}

	requestID, ok := c.Locals(RequestIDHeader).(string)
	if !ok || requestID == "" {
		requestID = c.Get(RequestIDHeader)
	}
	if requestID == "" {
		requestID = unknownRequestID
	}

	return WithRequestID(ctx, requestID)
}
