package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resto_back_end/internal/database"

	"github.com/gin-gonic/gin"
)

const (
	// Limites par endpoint
	PaymentLinkMaxAttempts = 5
	APIMaxRequests         = 100 // Par minute pour les endpoints généraux

	PaymentLinkCooldown = 1 * time.Minute
	APICooldown         = 1 * time.Minute
)

// PaymentLinkRateLimit limite les créations de lien de paiement par IP —
// chaque appel part chez le prestataire, inutile de le laisser marteler.
func PaymentLinkRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		key := "payment_link:" + c.ClientIP()

		requests, _ := database.Redis.Get(ctx, key).Int()
		if requests >= PaymentLinkMaxAttempts {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       true,
				"message":     "Trop de demandes de paiement. Réessayez dans 1 minute",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		pipe := database.Redis.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, PaymentLinkCooldown)
		pipe.Exec(ctx)

		c.Next()
	}
}

// APIRateLimit limite les requêtes générales par IP
func APIRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		key := "api_requests:" + c.ClientIP()

		requests, _ := database.Redis.Get(ctx, key).Int()
		if requests >= APIMaxRequests {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de requêtes. Réessayez dans 1 minute",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		pipe := database.Redis.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, APICooldown)
		pipe.Exec(ctx)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", APIMaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", APIMaxRequests-requests-1))

		c.Next()
	}
}
