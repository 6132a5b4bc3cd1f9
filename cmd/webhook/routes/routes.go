package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/pledgekit/patronage/cmd/webhook/handlers"
)

// Register wires all webhook-service routes.
func Register(e *echo.Echo, wh *handlers.WebhookHandler, ph *handlers.PatronHandler, webhookMiddleware ...echo.MiddlewareFunc) {
	e.POST("/webhook", wh.Receive, webhookMiddleware...) // POST /webhook
	e.GET("/check_patron/:username", ph.Check)           // GET /check_patron/alice
}
