package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pbezama/admin-panel-back/internal/events"
)

// VerifyWebhook answers Meta's subscription handshake. Both the Meta
// and the WhatsApp endpoints use the same verify token.
func VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == deps.VerifyToken {
		deps.Logger.Info("Webhook subscription verified")
		c.String(http.StatusOK, challenge)
		return
	}

	deps.Logger.WithField("mode", mode).Warn("Webhook verification rejected")
	c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
}

// HandleMetaWebhook receives Instagram and Facebook change
// notifications. It always acknowledges with 200: a non-2xx answer
// makes Meta retry and eventually disable the subscription, which is
// worse than dropping a malformed payload.
func HandleMetaWebhook(c *gin.Context) {
	if deps.RateLimiter != nil && !deps.RateLimiter.Allow(c.ClientIP()) {
		countRejected("meta", "rate_limited")
		c.JSON(http.StatusOK, gin.H{"status": "throttled"})
		return
	}

	var payload events.MetaPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		deps.Logger.WithError(err).Warn("Failed to parse Meta webhook payload")
		countRejected("meta", "bad_payload")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	countWebhook("meta", payload.Object)

	normalized := deps.Normalizer.Meta(&payload)
	for _, ev := range normalized {
		deps.Pipeline.Process(c.Request.Context(), ev)
	}

	c.JSON(http.StatusOK, gin.H{"status": "received", "events": len(normalized)})
}

// HandleWhatsAppWebhook receives WhatsApp Business messages, which for
// this service are approval decisions from assignees.
func HandleWhatsAppWebhook(c *gin.Context) {
	if deps.RateLimiter != nil && !deps.RateLimiter.Allow(c.ClientIP()) {
		countRejected("whatsapp", "rate_limited")
		c.JSON(http.StatusOK, gin.H{"status": "throttled"})
		return
	}

	var payload events.WhatsAppPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		deps.Logger.WithError(err).Warn("Failed to parse WhatsApp webhook payload")
		countRejected("whatsapp", "bad_payload")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	countWebhook("whatsapp", payload.Object)

	normalized := deps.Normalizer.WhatsApp(&payload)
	for _, ev := range normalized {
		deps.Pipeline.Process(c.Request.Context(), ev)
	}

	c.JSON(http.StatusOK, gin.H{"status": "received", "events": len(normalized)})
}
