package middleware

import (
	"time"

	contextPkg "classlens/pkg/context"
	"classlens/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

const RequestIDKey = contextPkg.RequestIDHeader

const maxRequestIDLength = 64

// NewRequestIDMiddleware trusts a caller supplied X-Request-ID of sane length and
// mints a ULID otherwise. The id is echoed back and attached to the user context.
func NewRequestIDMiddleware() fiber.Handler {
	u := utils.New()

	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDKey)

		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID, _ = u.NewULIDFromTimestamp(time.Now())
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)
		c.SetUserContext(contextPkg.WithRequestID(c.UserContext(), requestID))

		return c.Next()
	}
}
