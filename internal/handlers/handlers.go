package handlers

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Pbezama/admin-panel-back/internal/events"
	"github.com/Pbezama/admin-panel-back/internal/guard"
	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

// Pipeline consumes normalized events.
type Pipeline interface {
	Process(ctx context.Context, ev events.InboundEvent)
}

// Metrics holds Prometheus metrics for the handlers
type Metrics struct {
	WebhooksReceived *prometheus.CounterVec
	WebhooksRejected *prometheus.CounterVec
}

// Dependencies holds all external dependencies for handlers
type Dependencies struct {
	Logger       logging.Logger
	Metrics      *Metrics
	Normalizer   *events.Normalizer
	Pipeline     Pipeline
	Guard        *guard.Guard
	RateLimiter  *WebhookRateLimiter
	VerifyToken  string
	ServiceToken string
}

var deps Dependencies

// Init initializes the handlers with dependencies
func Init(d Dependencies) {
	deps = d
	deps.Logger.Info("Handlers initialized")
}

func countWebhook(source, status string) {
	if deps.Metrics != nil && deps.Metrics.WebhooksReceived != nil {
		deps.Metrics.WebhooksReceived.WithLabelValues(source, status).Inc()
	}
}

func countRejected(source, reason string) {
	if deps.Metrics != nil && deps.Metrics.WebhooksRejected != nil {
		deps.Metrics.WebhooksRejected.WithLabelValues(source, reason).Inc()
	}
}
