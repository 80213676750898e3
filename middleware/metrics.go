package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	botEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_total",
			Help: "Inbound gateway events by type",
		},
		[]string{"event"},
	)

	intentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_intents_total",
			Help: "Classified text messages by intent",
		},
		[]string{"intent"},
	)

	assistantCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_calls_total",
			Help: "Assistant completions by outcome",
		},
		[]string{"outcome"},
	)

	assistantCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_call_duration_seconds",
			Help:    "Assistant completion latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)

	invoicesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invoices_issued_total",
			Help: "Invoices sent to buyers",
		},
	)

	preCheckoutDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "precheckout_decisions_total",
			Help: "Pre-checkout answers by decision",
		},
		[]string{"decision"},
	)

	fulfillmentOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_outcomes_total",
			Help: "Successful-payment handling by outcome",
		},
		[]string{"outcome"},
	)

	notificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of operator notifications sent",
		},
		[]string{"event_type"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(botEventsTotal)
	prometheus.MustRegister(intentsTotal)
	prometheus.MustRegister(assistantCallsTotal)
	prometheus.MustRegister(assistantCallDuration)
	prometheus.MustRegister(invoicesIssuedTotal)
	prometheus.MustRegister(preCheckoutDecisionsTotal)
	prometheus.MustRegister(fulfillmentOutcomesTotal)
	prometheus.MustRegister(notificationsSentTotal)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordEvent(event string) {
	botEventsTotal.WithLabelValues(event).Inc()
}

func RecordIntent(intent string) {
	intentsTotal.WithLabelValues(intent).Inc()
}

func RecordAssistantCall(outcome string, elapsed time.Duration) {
	assistantCallsTotal.WithLabelValues(outcome).Inc()
	assistantCallDuration.Observe(elapsed.Seconds())
}

func RecordInvoiceIssued() {
	invoicesIssuedTotal.Inc()
}

func RecordPreCheckout(decision string) {
	preCheckoutDecisionsTotal.WithLabelValues(decision).Inc()
}

func RecordFulfillment(outcome string) {
	fulfillmentOutcomesTotal.WithLabelValues(outcome).Inc()
}

func RecordNotificationSent(eventType string) {
	notificationsSentTotal.WithLabelValues(eventType).Inc()
}
