package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"shopbot-svc/assistant"
	"shopbot-svc/models"
	"shopbot-svc/purchase"
	"shopbot-svc/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type sentText struct {
	buyerID int64
	text    string
	markup  *models.Markup
}

type preCheckoutAnswer struct {
	queryID string
	ok      bool
	reason  string
}

type fakeGateway struct {
	mu         sync.Mutex
	texts      []sentText
	invoices   []models.Invoice
	answers    []preCheckoutAnswer
	callbacks  []string
	invoiceErr error
}

func (g *fakeGateway) SendText(_ context.Context, buyerID int64, text string, markup *models.Markup) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.texts = append(g.texts, sentText{buyerID: buyerID, text: text, markup: markup})
	return nil
}

func (g *fakeGateway) SendInvoice(_ context.Context, _ int64, invoice models.Invoice) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.invoiceErr != nil {
		return g.invoiceErr
	}
	g.invoices = append(g.invoices, invoice)
	return nil
}

func (g *fakeGateway) AnswerPreCheckout(_ context.Context, queryID string, ok bool, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, preCheckoutAnswer{queryID: queryID, ok: ok, reason: reason})
	return nil
}

func (g *fakeGateway) AnswerCallback(_ context.Context, callbackID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callbacks = append(g.callbacks, callbackID)
	return nil
}

type timeoutAssistant struct{ calls int }

func (a *timeoutAssistant) Complete(context.Context, string) (string, error) {
	a.calls++
	return "", &assistant.Error{Kind: assistant.Timeout, Err: context.DeadlineExceeded}
}

var testProduct = models.Product{
	Title:        "GAMEBooster",
	Description:  "PC optimiser",
	Price:        50,
	CurrencyCode: models.CurrencyStars,
	DeliveryURL:  "https://example.com/gamebooster",
}

func setupDispatcherTest(t *testing.T) (*Dispatcher, *fakeGateway, *purchase.MemoryStore, *timeoutAssistant) {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	gateway := &fakeGateway{}
	store := purchase.NewMemoryStore()
	a := &timeoutAssistant{}
	controller := purchase.NewController(testProduct, gateway, store, logger)
	r := router.New(testProduct, a, nil, logger)
	return NewDispatcher(gateway, controller, r, logger), gateway, store, a
}

func TestDispatch_Start(t *testing.T) {
	d, gateway, _, _ := setupDispatcherTest(t)

	d.Dispatch(context.Background(), models.StartCommand{BuyerID: 5})

	require.Len(t, gateway.texts, 1)
	assert.EqualValues(t, 5, gateway.texts[0].buyerID)
	assert.Contains(t, gateway.texts[0].text, "50")
	require.NotNil(t, gateway.texts[0].markup)
	assert.Equal(t, models.ActionBuy, gateway.texts[0].markup.Buttons[0].Action)
}

func TestDispatch_FullPurchase(t *testing.T) {
	d, gateway, store, _ := setupDispatcherTest(t)
	ctx := context.Background()

	d.Dispatch(ctx, models.ButtonPress{BuyerID: 5, Action: models.ActionBuy, CallbackID: "cb1"})
	assert.Equal(t, []string{"cb1"}, gateway.callbacks)
	require.Len(t, gateway.invoices, 1)
	invoice := gateway.invoices[0]
	assert.EqualValues(t, 50, invoice.Amount)
	assert.Equal(t, models.CurrencyStars, invoice.Currency)

	d.Dispatch(ctx, models.PreCheckoutQuery{
		QueryID: "q1", BuyerID: 5, PayloadToken: invoice.PayloadToken, Amount: 50, Currency: models.CurrencyStars,
	})
	require.Len(t, gateway.answers, 1)
	assert.Equal(t, preCheckoutAnswer{queryID: "q1", ok: true}, gateway.answers[0])

	payment := models.SuccessfulPayment{
		BuyerID: 5, PayloadToken: invoice.PayloadToken, Amount: 50, Currency: models.CurrencyStars, ChargeID: "ch1",
	}
	d.Dispatch(ctx, payment)
	require.Len(t, gateway.texts, 1)
	assert.Contains(t, gateway.texts[0].text, testProduct.DeliveryURL)

	// a redelivered notice sends nothing new
	d.Dispatch(ctx, payment)
	assert.Len(t, gateway.texts, 1)
	assert.Equal(t, 1, store.Len())
}

func TestDispatch_PreCheckoutDecline(t *testing.T) {
	d, gateway, _, _ := setupDispatcherTest(t)
	ctx := context.Background()

	d.Dispatch(ctx, models.ButtonPress{BuyerID: 5, Action: models.ActionBuy})
	require.Len(t, gateway.invoices, 1)

	d.Dispatch(ctx, models.PreCheckoutQuery{
		QueryID: "q1", BuyerID: 5, PayloadToken: gateway.invoices[0].PayloadToken, Amount: 1, Currency: models.CurrencyStars,
	})
	require.Len(t, gateway.answers, 1)
	assert.False(t, gateway.answers[0].ok)
	assert.Equal(t, preCheckoutDeclinedMessage, gateway.answers[0].reason)
	assert.Empty(t, gateway.callbacks)
}

func TestDispatch_RejectedPaymentGetsPoliteReply(t *testing.T) {
	d, gateway, store, _ := setupDispatcherTest(t)

	d.Dispatch(context.Background(), models.SuccessfulPayment{BuyerID: 5, PayloadToken: "forged", Amount: 50})

	require.Len(t, gateway.texts, 1)
	assert.Equal(t, rejectedReply, gateway.texts[0].text)
	assert.Equal(t, 0, store.Len())
}

func TestDispatch_InvoiceFailure(t *testing.T) {
	d, gateway, _, _ := setupDispatcherTest(t)
	gateway.invoiceErr = errors.New("telegram: Bad Request")

	d.Dispatch(context.Background(), models.ButtonPress{BuyerID: 5, Action: models.ActionBuy})

	require.Len(t, gateway.texts, 1)
	assert.Equal(t, invoiceFailedReply, gateway.texts[0].text)
}

func TestDispatch_UnknownButtonIgnored(t *testing.T) {
	d, gateway, _, _ := setupDispatcherTest(t)

	d.Dispatch(context.Background(), models.ButtonPress{BuyerID: 5, Action: "refund", CallbackID: "cb"})

	assert.Equal(t, []string{"cb"}, gateway.callbacks)
	assert.Empty(t, gateway.invoices)
	assert.Empty(t, gateway.texts)
}

func TestDispatch_TextMessages(t *testing.T) {
	d, gateway, _, a := setupDispatcherTest(t)
	ctx := context.Background()

	d.Dispatch(ctx, models.TextMessage{BuyerID: 5, Text: "hello"})
	d.Dispatch(ctx, models.TextMessage{BuyerID: 5, Text: "my fps is low, help"})

	require.Len(t, gateway.texts, 2)
	assert.NotEqual(t, router.DegradedReply, gateway.texts[0].text)
	assert.Equal(t, router.DegradedReply, gateway.texts[1].text)
	assert.Equal(t, 1, a.calls)
}
