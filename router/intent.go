package router

type IntentKind int

const (
	Unmatched IntentKind = iota
	Start
	Greeting
	SafetyInquiry
	PurchaseInquiry
	AssistantTrigger
)

func (k IntentKind) String() string {
	switch k {
	case Start:
		return "start"
	case Greeting:
		return "greeting"
	case SafetyInquiry:
		return "safety_inquiry"
	case PurchaseInquiry:
		return "purchase_inquiry"
	case AssistantTrigger:
		return "assistant_trigger"
	default:
		return "unmatched"
	}
}

// Intent is the classification of one message. RawText is kept only for
// AssistantTrigger, which forwards the user's words unchanged.
type Intent struct {
	Kind    IntentKind
	RawText string
}
