package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

// Handler returns the gin handler for POST deliveries.
func (c *Consumer) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		eventID := ulid.Make().String()
		ctx.Header("X-Event-ID", eventID)

		defer func() {
			if r := recover(); r != nil {
				c.logger.Error().
					Str("event_id", eventID).
					Interface("panic", r).
					Msg("Webhook handler panicked")
				ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
			}
		}()

		body, err := ctx.GetRawData()
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		outcome, err := c.handle(ctx.Request.Context(), eventID, body, ctx.GetHeader(SignatureHeader))
		if err != nil {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		ctx.JSON(http.StatusOK, gin.H{"status": "OK", "outcome": outcome})
	}
}
