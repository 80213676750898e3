package purchase

type Decision struct {
	Approve bool
	Reason  string
}

func approve() Decision { return Decision{Approve: true} }

func decline(reason string) Decision { return Decision{Reason: reason} }

func (d Decision) String() string {
	if d.Approve {
		return "approve"
	}
	return "decline"
}

type OutcomeKind int

const (
	Delivered OutcomeKind = iota + 1
	AlreadyDelivered
	Rejected
)

func (k OutcomeKind) String() string {
	switch k {
	case Delivered:
		return "delivered"
	case AlreadyDelivered:
		return "already_delivered"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// FulfillmentOutcome is the result of a successful-payment notice.
// DeliveryURL is set only for Delivered, Reason only for Rejected.
type FulfillmentOutcome struct {
	Kind        OutcomeKind
	DeliveryURL string
	Reason      string
}

const (
	ReasonAmountMismatch   = "amount mismatch"
	ReasonCurrencyMismatch = "currency mismatch"
	ReasonUnknownPurchase  = "unknown purchase"
	ReasonAlreadyDelivered = "already delivered"
	ReasonUnrecognized     = "unrecognized token"
	ReasonNotApproved      = "pre-checkout not approved"
	ReasonStoreUnavailable = "fulfillment store unavailable"
)
