package models

import "time"

type PurchaseEventType string

const (
	EventInvoiceIssued       PurchaseEventType = "invoice_issued"
	EventPreCheckoutApproved PurchaseEventType = "precheckout_approved"
	EventPreCheckoutDeclined PurchaseEventType = "precheckout_declined"
	EventPaymentDelivered    PurchaseEventType = "payment_delivered"
	EventPaymentDuplicate    PurchaseEventType = "payment_duplicate"
	EventPaymentRejected     PurchaseEventType = "payment_rejected"
)

type PurchaseRequest struct {
	BuyerID      int64  `json:"buyer_id"`
	ProductID    string `json:"product_id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	PayloadToken string `json:"payload_token"`
}

type PreCheckoutEvent struct {
	QueryID      string `json:"query_id"`
	PayloadToken string `json:"payload_token"`
	BuyerID      int64  `json:"buyer_id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// FulfillmentRecord marks a payload token as paid and delivered.
type FulfillmentRecord struct {
	BuyerID      int64     `json:"buyer_id"`
	PayloadToken string    `json:"payload_token"`
	Amount       int64     `json:"amount"`
	ChargeID     string    `json:"charge_id,omitempty"`
	DeliveredAt  time.Time `json:"delivered_at"`
}

type Invoice struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	PayloadToken string `json:"payload_token"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// PurchaseEvent is published at every purchase state transition. Rejected
// payments are the ones an operator has to look at.
type PurchaseEvent struct {
	EventType    PurchaseEventType `json:"event_type"`
	BuyerID      int64             `json:"buyer_id"`
	PayloadToken string            `json:"payload_token"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}
