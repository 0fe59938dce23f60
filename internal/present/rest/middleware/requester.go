package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/deedledger/deedledger"
	"github.com/deedledger/deedledger/internal/domain"
)

var tracer = otel.Tracer("requester")

// RequesterMiddleware surfaces the caller identity forwarded by the account
// store. Signature verification already happened upstream; an absent or
// malformed header just leaves the request anonymous and the handlers reject
// operations that need an identity.
type RequesterMiddleware struct{}

func NewRequesterMiddleware() *RequesterMiddleware {
	return &RequesterMiddleware{}
}

func (m *RequesterMiddleware) IdentifyRequester(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Requester.Middleware.IdentifyRequester")
		defer span.End()

		requester := c.Request().Header.Get(domain.RequesterHeader)
		if requester != "" && deedledger.IsAddress(requester) {
			ctx = context.WithValue(ctx, domain.RequesterCtxKey, requester)
			span.SetAttributes(attribute.String("RequesterAddress", requester))
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
