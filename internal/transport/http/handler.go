package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studiobook/payments-service/internal/config"
	"github.com/studiobook/payments-service/internal/service"
	"github.com/studiobook/payments-service/internal/webhook"
)

// RegisterHandlers mounts the webhook entry point and the dashboard API.
// The webhook path sits outside the rate-limited group.
func RegisterHandlers(r *gin.Engine, v *webhook.Verifier, d *webhook.Dispatcher, accounts *service.AccountService, rl config.RateLimitConfig) {
	r.POST("/v1/webhooks/stripe", webhookHandler(v, d))

	api := r.Group("/v1", RateLimitMiddleware(rl.RPS, rl.Burst))
	{
		api.GET("/businesses/:id/payments/onboarding-status", onboardingStatusHandler(accounts))
	}
}

// webhookHandler is the single chokepoint for provider deliveries: read the
// raw body, verify the signature over it, then dispatch. 401 rejects bad
// signatures before any parsing; a dispatch error answers 500 so the
// provider redelivers; everything else acknowledges with 200.
func webhookHandler(v *webhook.Verifier, d *webhook.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
			return
		}
		event, err := v.Verify(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
			return
		}
		if err := d.Dispatch(c, event); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

func onboardingStatusHandler(svc *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid business id"})
			return
		}
		st, err := svc.OnboardingStatus(c, uint(id))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNoIntegration):
				c.JSON(http.StatusNotFound, gin.H{"error": service.ErrNoIntegration.Error()})
			case errors.Is(err, service.ErrProviderUnavailable):
				c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, st)
	}
}
