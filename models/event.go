package models

// ActionBuy is the callback data carried by the inline buy button.
const ActionBuy = "buy"

// Event is one inbound update from the messaging gateway.
type Event interface {
	Buyer() int64
	isEvent()
}

type StartCommand struct {
	BuyerID int64
}

type ButtonPress struct {
	BuyerID    int64
	Action     string
	CallbackID string
}

type PreCheckoutQuery struct {
	QueryID      string
	BuyerID      int64
	PayloadToken string
	Amount       int64
	Currency     string
}

type SuccessfulPayment struct {
	BuyerID      int64
	PayloadToken string
	Amount       int64
	Currency     string
	ChargeID     string
}

type TextMessage struct {
	BuyerID int64
	Text    string
}

func (e StartCommand) Buyer() int64      { return e.BuyerID }
func (e ButtonPress) Buyer() int64       { return e.BuyerID }
func (e PreCheckoutQuery) Buyer() int64  { return e.BuyerID }
func (e SuccessfulPayment) Buyer() int64 { return e.BuyerID }
func (e TextMessage) Buyer() int64       { return e.BuyerID }

func (StartCommand) isEvent()      {}
func (ButtonPress) isEvent()       {}
func (PreCheckoutQuery) isEvent()  {}
func (SuccessfulPayment) isEvent() {}
func (TextMessage) isEvent()       {}

// PreCheckout converts the gateway query into the controller's event shape.
func (q PreCheckoutQuery) PreCheckout() PreCheckoutEvent {
	return PreCheckoutEvent{
		QueryID:      q.QueryID,
		PayloadToken: q.PayloadToken,
		BuyerID:      q.BuyerID,
		Amount:       q.Amount,
		Currency:     q.Currency,
	}
}

type Button struct {
	Text   string
	Action string
}

// Markup is an optional inline keyboard attached to an outgoing message.
type Markup struct {
	Buttons []Button
}
