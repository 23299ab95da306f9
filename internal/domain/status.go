package domain

// Status is the stable internal code of an order's lifecycle state. Display
// labels live in Label and may change without affecting transitions.
type Status string

const (
	StatusNew              Status = "new"
	StatusAwaitingPayment  Status = "awaiting_payment"
	StatusPaymentConfirmed Status = "payment_confirmed"
	StatusPaymentRejected  Status = "payment_rejected"
	StatusReadyToShip      Status = "ready_to_ship"
	StatusShipped          Status = "shipped"
	StatusDelivered        Status = "delivered"
	StatusCancelled        Status = "cancelled"
)

// transitions is the order status graph. Cancellation is reachable from
// every non-terminal state.
var transitions = map[Status][]Status{
	StatusNew:              {StatusReadyToShip, StatusCancelled},
	StatusAwaitingPayment:  {StatusPaymentConfirmed, StatusPaymentRejected, StatusCancelled},
	StatusPaymentConfirmed: {StatusReadyToShip, StatusCancelled},
	StatusReadyToShip:      {StatusShipped, StatusCancelled},
	StatusShipped:          {StatusDelivered, StatusCancelled},
}

var labels = map[Status]string{
	StatusNew:              "Нове",
	StatusAwaitingPayment:  "Очікується підтвердження оплати",
	StatusPaymentConfirmed: "Оплату підтверджено",
	StatusPaymentRejected:  "Оплата відхилена",
	StatusReadyToShip:      "Готово до відправки",
	StatusShipped:          "Відправлено",
	StatusDelivered:        "Доставлено",
	StatusCancelled:        "Відхилено",
}

// AllStatuses lists the vocabulary in lifecycle order.
var AllStatuses = []Status{
	StatusNew, StatusAwaitingPayment, StatusPaymentConfirmed, StatusPaymentRejected,
	StatusReadyToShip, StatusShipped, StatusDelivered, StatusCancelled,
}

// TerminalStatuses lists the states with no outgoing transitions.
var TerminalStatuses = []Status{StatusDelivered, StatusCancelled, StatusPaymentRejected}

// Valid reports whether s belongs to the status vocabulary.
func (s Status) Valid() bool {
	_, ok := labels[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Label is the customer-facing display string.
func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return "Невідомий"
}

// CanTransition reports whether the graph has an edge from -> to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Progress describes which fulfilment steps a status has completed. It is
// derived from the status alone.
type Progress struct {
	Ready     bool
	Shipped   bool
	Delivered bool
}

// ProgressOf maps a status onto the ready/shipped/delivered steps.
func ProgressOf(s Status) Progress {
	switch s {
	case StatusReadyToShip:
		return Progress{Ready: true}
	case StatusShipped:
		return Progress{Ready: true, Shipped: true}
	case StatusDelivered:
		return Progress{Ready: true, Shipped: true, Delivered: true}
	default:
		return Progress{}
	}
}
