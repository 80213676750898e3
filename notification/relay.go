// Package notification tells the operator about purchases that need a human.
package notification

import (
	"context"
	"fmt"
	"html"

	"shopbot-svc/middleware"
	"shopbot-svc/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TextSender delivers a message to a chat.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string, markup *models.Markup) error
}

// Relay forwards rejected payments to the operator chat. Every other event
// type is logged and dropped.
type Relay struct {
	sender         TextSender
	operatorChatID int64
	logger         *zap.Logger
}

// NewRelay returns a relay. With operatorChatID zero the relay only logs.
func NewRelay(sender TextSender, operatorChatID int64, logger *zap.Logger) *Relay {
	return &Relay{
		sender:         sender,
		operatorChatID: operatorChatID,
		logger:         logger,
	}
}

// Publish lets the relay stand in for a broker when none is configured.
func (r *Relay) Publish(ctx context.Context, event models.PurchaseEvent) error {
	return r.Notify(ctx, event)
}

func (r *Relay) Notify(ctx context.Context, event models.PurchaseEvent) error {
	if event.EventType != models.EventPaymentRejected {
		return nil
	}

	ctx, span := otel.Tracer("notification").Start(ctx, "NotifyOperator")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.type", string(event.EventType)),
		attribute.Int64("buyer.id", event.BuyerID),
	)

	traceID := middleware.GetTraceID(ctx)
	if r.operatorChatID == 0 {
		r.logger.Warn("Rejected payment needs manual review",
			zap.String("trace_id", traceID),
			zap.Int64("buyer_id", event.BuyerID),
			zap.String("payload_token", event.PayloadToken),
			zap.Int64("amount", event.Amount),
			zap.String("reason", event.Reason),
		)
		return nil
	}

	if err := r.sender.SendText(ctx, r.operatorChatID, operatorMessage(event), nil); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to notify operator: %w", err)
	}

	middleware.RecordNotificationSent(string(event.EventType))
	r.logger.Info("Operator notified",
		zap.String("trace_id", traceID),
		zap.Int64("buyer_id", event.BuyerID),
		zap.String("payload_token", event.PayloadToken),
	)
	return nil
}

func operatorMessage(event models.PurchaseEvent) string {
	return fmt.Sprintf("⚠️ <b>Payment needs review</b>\n\n"+
		"Buyer: <code>%d</code>\n"+
		"Payload: <code>%s</code>\n"+
		"Amount: %d %s\n"+
		"Reason: %s",
		event.BuyerID,
		html.EscapeString(event.PayloadToken),
		event.Amount, html.EscapeString(event.Currency),
		html.EscapeString(event.Reason))
}
