package booking

// PaymentEventKind identifies an asynchronous payment-intent event from the provider.
type PaymentEventKind string

const (
	EventPaymentSucceeded      PaymentEventKind = "payment_intent.succeeded"
	EventPaymentFailed         PaymentEventKind = "payment_intent.payment_failed"
	EventPaymentRequiresAction PaymentEventKind = "payment_intent.requires_action"
	EventPaymentCanceled       PaymentEventKind = "payment_intent.canceled"
)

// Transition is the absolute state a payment event assigns to its booking.
// A nil PaymentStatus leaves the payment status unchanged.
type Transition struct {
	Status        Status
	PaymentStatus *PaymentStatus
}

func paymentStatus(s PaymentStatus) *PaymentStatus { return &s }

// TransitionFor maps an event kind to the booking state it assigns. Unknown kinds report false.
func TransitionFor(kind PaymentEventKind) (Transition, bool) {
	switch kind {
	case EventPaymentSucceeded:
		return Transition{Status: StatusConfirmed, PaymentStatus: paymentStatus(PaymentSucceeded)}, true
	case EventPaymentFailed:
		return Transition{Status: StatusPaymentFailed, PaymentStatus: paymentStatus(PaymentFailed)}, true
	case EventPaymentRequiresAction:
		return Transition{Status: StatusRequiresAction}, true
	case EventPaymentCanceled:
		return Transition{Status: StatusCancelled, PaymentStatus: paymentStatus(PaymentCancelled)}, true
	default:
		return Transition{}, false
	}
}
