package notification

import (
	"context"
	"errors"
	"testing"

	"shopbot-svc/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type sent struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent []sent
	err  error
}

func (s *fakeSender) SendText(_ context.Context, chatID int64, text string, _ *models.Markup) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sent{chatID: chatID, text: text})
	return nil
}

func rejected() models.PurchaseEvent {
	return models.PurchaseEvent{
		EventType:    models.EventPaymentRejected,
		BuyerID:      42,
		PayloadToken: "gb:42:1:abc",
		Amount:       50,
		Currency:     "XTR",
		Reason:       "fulfillment store unavailable",
	}
}

func TestNotify_RejectedPaymentReachesOperator(t *testing.T) {
	sender := &fakeSender{}
	relay := NewRelay(sender, 1000, zaptest.NewLogger(t))

	require.NoError(t, relay.Notify(context.Background(), rejected()))

	require.Len(t, sender.sent, 1)
	assert.EqualValues(t, 1000, sender.sent[0].chatID)
	assert.Contains(t, sender.sent[0].text, "gb:42:1:abc")
	assert.Contains(t, sender.sent[0].text, "fulfillment store unavailable")
}

func TestNotify_IgnoresOtherEvents(t *testing.T) {
	sender := &fakeSender{}
	relay := NewRelay(sender, 1000, zaptest.NewLogger(t))

	for _, et := range []models.PurchaseEventType{
		models.EventInvoiceIssued,
		models.EventPreCheckoutApproved,
		models.EventPaymentDelivered,
		models.EventPaymentDuplicate,
	} {
		require.NoError(t, relay.Publish(context.Background(), models.PurchaseEvent{EventType: et}))
	}
	assert.Empty(t, sender.sent)
}

func TestNotify_NoOperatorConfigured(t *testing.T) {
	sender := &fakeSender{}
	relay := NewRelay(sender, 0, zaptest.NewLogger(t))

	require.NoError(t, relay.Notify(context.Background(), rejected()))
	assert.Empty(t, sender.sent)
}

func TestNotify_SendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("chat not found")}
	relay := NewRelay(sender, 1000, zaptest.NewLogger(t))

	err := relay.Notify(context.Background(), rejected())
	assert.ErrorIs(t, err, sender.err)
}

func TestOperatorMessageEscapesFields(t *testing.T) {
	event := rejected()
	event.PayloadToken = "<script>"
	assert.Contains(t, operatorMessage(event), "&lt;script&gt;")
}
