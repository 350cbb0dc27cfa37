package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/post-scheduler/internal/observability"
	apperrors "github.com/spec-kit/post-scheduler/pkg/util/errorutil"
)

// RegisterMiddlewares tags each request with an id, bounds its context, logs it
// and renders failures in the error envelope.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestid.New())
	if timeout > 0 {
		app.Use(requestTimeout(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorEnvelope(logger, metrics))
}

// requestTimeout bounds the user context of ordinary requests.
// Live channel upgrades stay open for the life of the client and are left alone.
func requestTimeout(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorEnvelope(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.String("request_id", requestID(c)),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}
			err = writeError(c, logger, metrics, err)
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) error {
	domainErr := apperrors.ToDomainError(err)
	metrics.RecordError(c.Path(), c.Method(), domainErr.Code)

	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed", zap.String("request_id", requestID(c)), zap.String("path", c.Path()), zap.Error(domainErr))
	}
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
