// Package router turns free text into a reply: canned answers for the
// common cases, the purchase affordance, or a delegated assistant answer.
package router

import (
	"context"
	"html"

	"shopbot-svc/middleware"
	"shopbot-svc/models"

	"go.uber.org/zap"
)

// Assistant answers a free-text prompt. Any error means "no answer".
type Assistant interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Response is what the bot sends back for one message.
type Response struct {
	Intent IntentKind
	Text   string
	Markup *models.Markup
}

type Router struct {
	product   models.Product
	assistant Assistant
	limiter   Limiter
	logger    *zap.Logger
}

func New(product models.Product, assistant Assistant, limiter Limiter, logger *zap.Logger) *Router {
	if limiter == nil {
		limiter = NoLimiter{}
	}
	return &Router{
		product:   product,
		assistant: assistant,
		limiter:   limiter,
		logger:    logger,
	}
}

// Respond classifies text and builds the reply. It always returns a
// response; assistant failures become DegradedReply.
func (r *Router) Respond(ctx context.Context, buyerID int64, text string) Response {
	intent := Classify(text)
	middleware.RecordIntent(intent.Kind.String())

	switch intent.Kind {
	case Start:
		return r.Welcome()
	case Greeting:
		return Response{Intent: Greeting, Text: greetingReply}
	case SafetyInquiry:
		return Response{Intent: SafetyInquiry, Text: safetyReply}
	case PurchaseInquiry:
		return Response{Intent: PurchaseInquiry, Text: priceReply(r.product), Markup: BuyMarkup(r.product)}
	case AssistantTrigger:
		return Response{Intent: AssistantTrigger, Text: r.delegate(ctx, buyerID, intent.RawText)}
	default:
		return Response{Intent: Unmatched, Text: fallbackReply}
	}
}

// Welcome is the reply to /start.
func (r *Router) Welcome() Response {
	return Response{Intent: Start, Text: welcomeReply(r.product), Markup: BuyMarkup(r.product)}
}

func (r *Router) delegate(ctx context.Context, buyerID int64, prompt string) string {
	if r.assistant == nil {
		return DegradedReply
	}
	if !r.limiter.Allow(buyerID) {
		r.logger.Info("Assistant rate limit reached",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.Int64("buyer_id", buyerID),
		)
		return DegradedReply
	}

	reply, err := r.assistant.Complete(ctx, prompt)
	if err != nil {
		r.logger.Warn("Assistant unavailable, sending degraded reply",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.Int64("buyer_id", buyerID),
			zap.Error(err),
		)
		return DegradedReply
	}
	return html.EscapeString(reply)
}
