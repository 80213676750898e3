package handlers

import (
	"context"
	"fmt"

	"shopbot-svc/middleware"
	"shopbot-svc/models"
	"shopbot-svc/purchase"
	"shopbot-svc/router"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Gateway is the outbound side of the messaging transport.
type Gateway interface {
	SendText(ctx context.Context, buyerID int64, text string, markup *models.Markup) error
	SendInvoice(ctx context.Context, buyerID int64, invoice models.Invoice) error
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool, reason string) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

const (
	invoiceFailedReply = "😔 Не получилось выставить счёт. Попробуй ещё раз через минуту."
	rejectedReply      = "⚠️ Оплату не удалось подтвердить автоматически. Мы уже разбираемся " +
		"и свяжемся с тобой, деньги не потеряются."
	preCheckoutDeclinedMessage = "Счёт устарел или изменился. Нажми /start и оформи покупку заново."
)

func deliveryReply(title, url string) string {
	return fmt.Sprintf("✅ <b>Оплата прошла! Спасибо за покупку.</b>\n\n"+
		"🎮 Вот твой <b>%s</b>:\n%s\n\n"+
		"📌 Сохрани ссылку — она не истекает.", title, url)
}

// Dispatcher routes gateway events to the purchase controller or the intent
// router and sends the results back through the gateway.
type Dispatcher struct {
	gateway   Gateway
	purchases *purchase.Controller
	router    *router.Router
	logger    *zap.Logger
}

func NewDispatcher(gateway Gateway, purchases *purchase.Controller, r *router.Router, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		gateway:   gateway,
		purchases: purchases,
		router:    r,
		logger:    logger,
	}
}

// Dispatch handles one event. Gateway failures are logged and not retried.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.Event) {
	name := eventName(event)
	ctx, span := otel.Tracer("dispatcher").Start(ctx, "Dispatch."+name)
	defer span.End()
	span.SetAttributes(
		attribute.String("event.type", name),
		attribute.Int64("buyer.id", event.Buyer()),
	)
	middleware.RecordEvent(name)

	var err error
	switch e := event.(type) {
	case models.StartCommand:
		err = d.reply(ctx, e.BuyerID, d.router.Welcome())
	case models.ButtonPress:
		err = d.handleButton(ctx, e)
	case models.PreCheckoutQuery:
		decision := d.purchases.HandlePreCheckout(ctx, e.PreCheckout())
		reason := ""
		if !decision.Approve {
			reason = preCheckoutDeclinedMessage
		}
		err = d.gateway.AnswerPreCheckout(ctx, e.QueryID, decision.Approve, reason)
	case models.SuccessfulPayment:
		err = d.handlePayment(ctx, e)
	case models.TextMessage:
		err = d.reply(ctx, e.BuyerID, d.router.Respond(ctx, e.BuyerID, e.Text))
	default:
		d.logger.Warn("Unknown event type", zap.String("event_type", fmt.Sprintf("%T", event)))
		return
	}

	if err != nil {
		span.RecordError(err)
		d.logger.Error("Gateway call failed",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("event_type", name),
			zap.Int64("buyer_id", event.Buyer()),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) reply(ctx context.Context, buyerID int64, resp router.Response) error {
	return d.gateway.SendText(ctx, buyerID, resp.Text, resp.Markup)
}

func (d *Dispatcher) handleButton(ctx context.Context, e models.ButtonPress) error {
	if e.CallbackID != "" {
		if err := d.gateway.AnswerCallback(ctx, e.CallbackID); err != nil {
			d.logger.Warn("Failed to answer callback", zap.String("callback_id", e.CallbackID), zap.Error(err))
		}
	}
	if e.Action != models.ActionBuy {
		d.logger.Debug("Ignoring button", zap.String("action", e.Action))
		return nil
	}

	if _, err := d.purchases.InitiatePurchase(ctx, e.BuyerID); err != nil {
		d.logger.Error("Failed to issue invoice", zap.Int64("buyer_id", e.BuyerID), zap.Error(err))
		return d.gateway.SendText(ctx, e.BuyerID, invoiceFailedReply, nil)
	}
	return nil
}

func (d *Dispatcher) handlePayment(ctx context.Context, e models.SuccessfulPayment) error {
	outcome := d.purchases.HandlePayment(ctx, e)
	switch outcome.Kind {
	case purchase.Delivered:
		return d.gateway.SendText(ctx, e.BuyerID, deliveryReply(d.purchases.Product().Title, outcome.DeliveryURL), nil)
	case purchase.AlreadyDelivered:
		return nil
	default:
		return d.gateway.SendText(ctx, e.BuyerID, rejectedReply, nil)
	}
}

func eventName(event models.Event) string {
	switch event.(type) {
	case models.StartCommand:
		return "start_command"
	case models.ButtonPress:
		return "button_press"
	case models.PreCheckoutQuery:
		return "pre_checkout_query"
	case models.SuccessfulPayment:
		return "successful_payment"
	case models.TextMessage:
		return "text_message"
	default:
		return "unknown"
	}
}
