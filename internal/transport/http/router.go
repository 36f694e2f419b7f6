package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/studiobook/payments-service/internal/config"
	"github.com/studiobook/payments-service/internal/service"
	"github.com/studiobook/payments-service/internal/webhook"
)

// NewRouter builds the gin engine. HandleMethodNotAllowed makes non-POST
// requests on the webhook path answer 405 instead of 404.
func NewRouter(v *webhook.Verifier, d *webhook.Dispatcher, accounts *service.AccountService, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(LoggingMiddleware(log))
	RegisterHandlers(r, v, d, accounts, rl)
	return r
}
