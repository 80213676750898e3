package purchase

import (
	"context"
	"fmt"
	"time"

	"shopbot-svc/middleware"
	"shopbot-svc/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultLedgerRetention = 72 * time.Hour

// InvoiceSender is the part of the messaging gateway the controller needs.
type InvoiceSender interface {
	SendInvoice(ctx context.Context, buyerID int64, invoice models.Invoice) error
}

// EventPublisher receives a PurchaseEvent for every state transition.
type EventPublisher interface {
	Publish(ctx context.Context, event models.PurchaseEvent) error
}

type Option func(*Controller)

func WithPublisher(p EventPublisher) Option {
	return func(c *Controller) { c.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithLedgerRetention(d time.Duration) Option {
	return func(c *Controller) { c.retention = d }
}

// Controller runs the invoice → pre-checkout → fulfillment protocol for the
// single product.
type Controller struct {
	product   models.Product
	invoices  InvoiceSender
	store     FulfillmentStore
	publisher EventPublisher
	async     *asyncPublisher
	tokens    TokenSource
	ledger    *ledger
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewController(product models.Product, invoices InvoiceSender, store FulfillmentStore, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		product:   product,
		invoices:  invoices,
		store:     store,
		retention: defaultLedgerRetention,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ledger = newLedger(c.retention, c.now)
	if c.publisher != nil {
		c.async = newAsyncPublisher(c.publisher, asyncQueueSize, logger)
	}
	return c
}

// Close flushes pre-checkout events still waiting to be published.
func (c *Controller) Close() {
	if c.async != nil {
		c.async.close()
	}
}

func (c *Controller) Product() models.Product { return c.product }

// State reports where token is in its lifecycle as seen by this process.
func (c *Controller) State(token string) TokenState {
	return c.ledger.state(token)
}

// InitiatePurchase mints a payload token and asks the gateway to present an
// invoice for it. Nothing is recorded as paid.
func (c *Controller) InitiatePurchase(ctx context.Context, buyerID int64) (models.PurchaseRequest, error) {
	ctx, span := otel.Tracer("purchase").Start(ctx, "InitiatePurchase")
	defer span.End()

	req := models.PurchaseRequest{
		BuyerID:      buyerID,
		ProductID:    models.ProductID,
		Amount:       c.product.Price,
		Currency:     c.product.CurrencyCode,
		PayloadToken: c.tokens.Next(buyerID),
	}
	span.SetAttributes(
		attribute.Int64("buyer.id", buyerID),
		attribute.String("payload.token", req.PayloadToken),
	)

	invoice := models.Invoice{
		Title:        c.product.Title,
		Description:  c.product.Description,
		PayloadToken: req.PayloadToken,
		Amount:       req.Amount,
		Currency:     req.Currency,
	}
	if err := c.invoices.SendInvoice(ctx, buyerID, invoice); err != nil {
		span.RecordError(err)
		return req, &TransportError{Op: "send invoice", Err: err}
	}

	c.ledger.advance(req.PayloadToken, StateInvoiced)
	middleware.RecordInvoiceIssued()
	c.logger.Info("Invoice issued",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.Int64("buyer_id", buyerID),
		zap.String("payload_token", req.PayloadToken),
		zap.Int64("amount", req.Amount),
	)
	c.publish(ctx, models.PurchaseEvent{
		EventType:    models.EventInvoiceIssued,
		BuyerID:      buyerID,
		PayloadToken: req.PayloadToken,
		Amount:       req.Amount,
		Currency:     req.Currency,
	})
	return req, nil
}

// HandlePreCheckout decides whether the provider may finalize the charge.
// It only compares against in-memory state and must stay that way: the
// provider gives a few seconds to answer. The resulting event is queued, not
// published inline.
func (c *Controller) HandlePreCheckout(ctx context.Context, event models.PreCheckoutEvent) Decision {
	ctx, span := otel.Tracer("purchase").Start(ctx, "HandlePreCheckout")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("buyer.id", event.BuyerID),
		attribute.String("payload.token", event.PayloadToken),
		attribute.Int64("amount", event.Amount),
	)

	decision := c.preCheckoutDecision(event)
	span.SetAttributes(attribute.String("precheckout.decision", decision.String()))

	eventType := models.EventPreCheckoutApproved
	if decision.Approve {
		c.ledger.advance(event.PayloadToken, StatePreCheckoutApproved)
	} else {
		eventType = models.EventPreCheckoutDeclined
		if decision.Reason != ReasonAlreadyDelivered {
			c.ledger.advance(event.PayloadToken, StatePreCheckoutDeclined)
		}
	}

	middleware.RecordPreCheckout(decision.String())
	c.logger.Info("Pre-checkout answered",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("query_id", event.QueryID),
		zap.Int64("buyer_id", event.BuyerID),
		zap.String("payload_token", event.PayloadToken),
		zap.Int64("amount", event.Amount),
		zap.Bool("approve", decision.Approve),
		zap.String("reason", decision.Reason),
	)
	c.publishAsync(ctx, models.PurchaseEvent{
		EventType:    eventType,
		BuyerID:      event.BuyerID,
		PayloadToken: event.PayloadToken,
		Amount:       event.Amount,
		Currency:     event.Currency,
		Reason:       decision.Reason,
	})
	return decision
}

func (c *Controller) preCheckoutDecision(event models.PreCheckoutEvent) Decision {
	if !recognized(event.PayloadToken, event.BuyerID) {
		return decline(ReasonUnknownPurchase)
	}
	switch c.ledger.state(event.PayloadToken) {
	case StateDelivered:
		return decline(ReasonAlreadyDelivered)
	case StatePreCheckoutDeclined:
		return decline(ReasonUnknownPurchase)
	}
	if event.Currency != "" && event.Currency != c.product.CurrencyCode {
		return decline(ReasonCurrencyMismatch)
	}
	if event.Amount != c.product.Price {
		return decline(ReasonAmountMismatch)
	}
	return approve()
}

// HandleSuccessfulPayment is the idempotency gate for fulfillment.
func (c *Controller) HandleSuccessfulPayment(ctx context.Context, buyerID int64, token string, amount int64) FulfillmentOutcome {
	return c.HandlePayment(ctx, models.SuccessfulPayment{
		BuyerID:      buyerID,
		PayloadToken: token,
		Amount:       amount,
	})
}

// HandlePayment is HandleSuccessfulPayment with the provider's currency and
// charge id attached.
func (c *Controller) HandlePayment(ctx context.Context, payment models.SuccessfulPayment) FulfillmentOutcome {
	ctx, span := otel.Tracer("purchase").Start(ctx, "HandleSuccessfulPayment")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("buyer.id", payment.BuyerID),
		attribute.String("payload.token", payment.PayloadToken),
		attribute.Int64("amount", payment.Amount),
	)

	outcome := c.fulfill(ctx, payment)
	span.SetAttributes(attribute.String("fulfillment.outcome", outcome.Kind.String()))
	middleware.RecordFulfillment(outcome.Kind.String())

	event := models.PurchaseEvent{
		BuyerID:      payment.BuyerID,
		PayloadToken: payment.PayloadToken,
		Amount:       payment.Amount,
		Currency:     payment.Currency,
		Reason:       outcome.Reason,
	}
	fields := []zap.Field{
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.Int64("buyer_id", payment.BuyerID),
		zap.String("payload_token", payment.PayloadToken),
		zap.Int64("amount", payment.Amount),
		zap.String("charge_id", payment.ChargeID),
	}

	switch outcome.Kind {
	case Delivered:
		event.EventType = models.EventPaymentDelivered
		c.logger.Info("Purchase delivered", fields...)
	case AlreadyDelivered:
		event.EventType = models.EventPaymentDuplicate
		c.logger.Info("Duplicate payment notice ignored", fields...)
	default:
		event.EventType = models.EventPaymentRejected
		c.logger.Error("Payment rejected, operator attention required",
			append(fields, zap.String("reason", outcome.Reason))...)
	}
	c.publish(ctx, event)
	return outcome
}

func (c *Controller) fulfill(ctx context.Context, payment models.SuccessfulPayment) FulfillmentOutcome {
	token := payment.PayloadToken

	exists, err := c.store.Exists(ctx, token)
	if err != nil {
		c.logger.Error("Fulfillment lookup failed", zap.String("payload_token", token), zap.Error(err))
		return c.reject(token, ReasonStoreUnavailable)
	}
	if exists {
		c.ledger.advance(token, StateDelivered)
		return FulfillmentOutcome{Kind: AlreadyDelivered}
	}

	state := c.ledger.state(token)
	if !recognized(token, payment.BuyerID) || state == StatePreCheckoutDeclined {
		return c.reject(token, ReasonUnrecognized)
	}
	// Invoiced means this process issued the invoice and never approved it.
	// A token the ledger does not know (after a restart) is let through.
	if state == StateInvoiced {
		return FulfillmentOutcome{Kind: Rejected, Reason: ReasonNotApproved}
	}
	if reason, err := c.validate(payment); err != nil {
		c.logger.Warn("Payment does not match product", zap.String("payload_token", token), zap.Error(err))
		return c.reject(token, reason)
	}

	inserted, err := c.store.Insert(ctx, models.FulfillmentRecord{
		BuyerID:      payment.BuyerID,
		PayloadToken: token,
		Amount:       payment.Amount,
		ChargeID:     payment.ChargeID,
		DeliveredAt:  c.now().UTC(),
	})
	if err != nil {
		c.logger.Error("Fulfillment insert failed", zap.String("payload_token", token), zap.Error(err))
		return c.reject(token, ReasonStoreUnavailable)
	}

	c.ledger.advance(token, StateDelivered)
	if !inserted {
		return FulfillmentOutcome{Kind: AlreadyDelivered}
	}
	return FulfillmentOutcome{Kind: Delivered, DeliveryURL: c.product.DeliveryURL}
}

func (c *Controller) validate(payment models.SuccessfulPayment) (string, error) {
	if payment.Currency != "" && payment.Currency != c.product.CurrencyCode {
		return ReasonCurrencyMismatch, fmt.Errorf("%w: currency %q, want %q", ErrValidation, payment.Currency, c.product.CurrencyCode)
	}
	if payment.Amount != c.product.Price {
		return ReasonAmountMismatch, fmt.Errorf("%w: amount %d, want %d", ErrValidation, payment.Amount, c.product.Price)
	}
	return "", nil
}

// reject leaves the token without a fulfillment record so a corrected
// redelivery can still succeed.
func (c *Controller) reject(token, reason string) FulfillmentOutcome {
	c.ledger.advance(token, StateRejected)
	return FulfillmentOutcome{Kind: Rejected, Reason: reason}
}

func (c *Controller) publish(ctx context.Context, event models.PurchaseEvent) {
	if c.publisher == nil {
		return
	}
	event.OccurredAt = c.now().UTC()
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Error("Failed to publish purchase event",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("event_type", string(event.EventType)),
			zap.String("payload_token", event.PayloadToken),
			zap.Error(err),
		)
	}
}

func (c *Controller) publishAsync(ctx context.Context, event models.PurchaseEvent) {
	if c.async == nil {
		return
	}
	event.OccurredAt = c.now().UTC()
	if !c.async.enqueue(ctx, event) {
		c.logger.Warn("Purchase event dropped, publish queue full",
			zap.String("event_type", string(event.EventType)),
			zap.String("payload_token", event.PayloadToken),
		)
	}
}
