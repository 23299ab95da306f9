// Package command parses inline-button callback data into a closed set of
// typed commands.
//
// Callback payloads are plain strings of the shape <verb>_<subject>_<id...>
// (for example "order_ready_42" or "approve_payment_100_42"). Parse is the
// only place that splits these strings; handlers switch on the returned
// concrete type. Each command's String method produces the exact payload
// Parse accepts, so keyboards are built from the same types.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tbourn/merch-order-bot/internal/domain"
)

// ErrUnknown is returned for payloads that match no command.
var ErrUnknown = errors.New("unknown command")

// Command is a parsed callback payload.
type Command interface {
	fmt.Stringer
	command()
}

// OrderVerb is an admin action on a single order.
type OrderVerb string

const (
	VerbReady     OrderVerb = "ready"
	VerbSent      OrderVerb = "sent"
	VerbDelivered OrderVerb = "delivered"
	VerbCancel    OrderVerb = "cancel"
	VerbDetails   OrderVerb = "details"
	VerbCreateTTN OrderVerb = "create_ttn"
)

// OrderAction targets one order from its admin control message.
type OrderAction struct {
	Verb    OrderVerb
	OrderID uint
}

// PaymentDecision approves or rejects a card payment receipt.
type PaymentDecision struct {
	Approve bool
	UserID  int64
	OrderID uint
}

// DiscountDecision approves or rejects a discount proof.
type DiscountDecision struct {
	Approve bool
	Kind    domain.DiscountKind
	UserID  int64
}

// SupportReply opens the admin reply dialog for an issue.
type SupportReply struct {
	IssueID uint
}

// SenderCity picks the sender city in the shipment wizard.
type SenderCity struct {
	City string // "kyiv" or "kharkiv"
}

// PayerChoice picks who pays for delivery in the shipment wizard.
type PayerChoice struct {
	CashOnDelivery bool
}

// ShipmentConfirm submits the wizard summary, or rewinds to the branch step.
type ShipmentConfirm struct {
	Confirm bool
}

// SelectSize picks a size. Chart requests the size chart instead.
type SelectSize struct {
	Size  string
	Chart bool
}

// ToggleOption flips one print option; Next leaves the options screen.
type ToggleOption struct {
	Option domain.Option
	Next   bool
}

// Browse moves through the catalog.
type Browse struct {
	Color bool // colors of the current product rather than products
	Step  int  // +1 or -1
}

// SelectProduct chooses the product currently on screen.
type SelectProduct struct{}

// ChoosePayment picks the payment method.
type ChoosePayment struct {
	Method domain.PaymentMethod
}

// PaidConfirmed is pressed by a card customer after transferring.
type PaidConfirmed struct{}

// InfoTopic is a static informational screen.
type InfoTopic string

const (
	InfoDelivery InfoTopic = "how_delivery"
	InfoNoop     InfoTopic = "noop"
)

// Info shows static content or does nothing.
type Info struct {
	Topic InfoTopic
}

// SupportFeedback is the customer's answer to "was your issue resolved".
type SupportFeedback struct {
	Resolved bool
}

func (OrderAction) command()      {}
func (PaymentDecision) command()  {}
func (DiscountDecision) command() {}
func (SupportReply) command()     {}
func (SenderCity) command()       {}
func (PayerChoice) command()      {}
func (ShipmentConfirm) command()  {}
func (SelectSize) command()       {}
func (ToggleOption) command()     {}
func (Browse) command()           {}
func (SelectProduct) command()    {}
func (ChoosePayment) command()    {}
func (PaidConfirmed) command()    {}
func (Info) command()             {}
func (SupportFeedback) command()  {}

func (c OrderAction) String() string {
	if c.Verb == VerbCreateTTN {
		return fmt.Sprintf("order_create_ttn_%d", c.OrderID)
	}
	return fmt.Sprintf("order_%s_%d", c.Verb, c.OrderID)
}

func (c PaymentDecision) String() string {
	return fmt.Sprintf("%s_payment_%d_%d", decision(c.Approve), c.UserID, c.OrderID)
}

func (c DiscountDecision) String() string {
	return fmt.Sprintf("%s_%s_%d", decision(c.Approve), c.Kind, c.UserID)
}

func (c SupportReply) String() string { return fmt.Sprintf("support_reply_%d", c.IssueID) }

func (c SenderCity) String() string { return "sender_city_" + c.City }

func (c PayerChoice) String() string {
	if c.CashOnDelivery {
		return "payer_cod"
	}
	return "payer_sender"
}

func (c ShipmentConfirm) String() string {
	if c.Confirm {
		return "confirm_create_ttn"
	}
	return "re_enter_ttn"
}

func (c SelectSize) String() string {
	if c.Chart {
		return "size_chart"
	}
	return "size_" + c.Size
}

func (c ToggleOption) String() string {
	if c.Next {
		return "options_next"
	}
	return "option_" + string(c.Option)
}

func (c Browse) String() string {
	dir := "next"
	if c.Step < 0 {
		dir = "prev"
	}
	if c.Color {
		return dir + "_color"
	}
	return dir + "_product"
}

func (SelectProduct) String() string { return "select_product" }

func (c ChoosePayment) String() string {
	if c.Method == domain.PaymentCard {
		return "payment_card"
	}
	return "payment_post"
}

func (PaidConfirmed) String() string { return "paid_confirmed" }

func (c Info) String() string { return string(c.Topic) }

func (c SupportFeedback) String() string {
	if c.Resolved {
		return "support_resolved"
	}
	return "support_more_question"
}

func decision(approve bool) string {
	if approve {
		return "approve"
	}
	return "reject"
}

// fixed maps payloads without arguments to their command.
var fixed = map[string]Command{
	"payer_cod":             PayerChoice{CashOnDelivery: true},
	"payer_sender":          PayerChoice{},
	"confirm_create_ttn":    ShipmentConfirm{Confirm: true},
	"re_enter_ttn":          ShipmentConfirm{},
	"size_chart":            SelectSize{Chart: true},
	"options_next":          ToggleOption{Next: true},
	"next_product":          Browse{Step: 1},
	"prev_product":          Browse{Step: -1},
	"next_color":            Browse{Color: true, Step: 1},
	"prev_color":            Browse{Color: true, Step: -1},
	"select_product":        SelectProduct{},
	"payment_card":          ChoosePayment{Method: domain.PaymentCard},
	"payment_post":          ChoosePayment{Method: domain.PaymentCash},
	"paid_confirmed":        PaidConfirmed{},
	"how_delivery":          Info{Topic: InfoDelivery},
	"noop":                  Info{Topic: InfoNoop},
	"support_resolved":      SupportFeedback{Resolved: true},
	"support_more_question": SupportFeedback{},
}

// Parse converts a callback payload into a Command. Any payload that does not
// match exactly one known shape yields ErrUnknown.
func Parse(data string) (Command, error) {
	data = strings.TrimSpace(data)
	if c, ok := fixed[data]; ok {
		return c, nil
	}

	switch {
	case strings.HasPrefix(data, "order_create_ttn_"):
		id, err := parseID(strings.TrimPrefix(data, "order_create_ttn_"))
		if err != nil {
			return nil, unknown(data)
		}
		return OrderAction{Verb: VerbCreateTTN, OrderID: id}, nil

	case strings.HasPrefix(data, "order_"):
		verb, rest, ok := strings.Cut(strings.TrimPrefix(data, "order_"), "_")
		if !ok {
			return nil, unknown(data)
		}
		switch OrderVerb(verb) {
		case VerbReady, VerbSent, VerbDelivered, VerbCancel, VerbDetails:
		default:
			return nil, unknown(data)
		}
		id, err := parseID(rest)
		if err != nil {
			return nil, unknown(data)
		}
		return OrderAction{Verb: OrderVerb(verb), OrderID: id}, nil

	case strings.HasPrefix(data, "approve_"), strings.HasPrefix(data, "reject_"):
		return parseDecision(data)

	case strings.HasPrefix(data, "support_reply_"):
		id, err := parseID(strings.TrimPrefix(data, "support_reply_"))
		if err != nil {
			return nil, unknown(data)
		}
		return SupportReply{IssueID: id}, nil

	case strings.HasPrefix(data, "sender_city_"):
		city := strings.TrimPrefix(data, "sender_city_")
		if city != "kyiv" && city != "kharkiv" {
			return nil, unknown(data)
		}
		return SenderCity{City: city}, nil

	case strings.HasPrefix(data, "size_"):
		size := strings.TrimPrefix(data, "size_")
		if !domain.ValidSize(size) {
			return nil, unknown(data)
		}
		return SelectSize{Size: size}, nil

	case strings.HasPrefix(data, "option_"):
		opt := domain.Option(strings.TrimPrefix(data, "option_"))
		switch opt {
		case domain.OptionMadeInUkraine, domain.OptionBackText, domain.OptionBackPrint,
			domain.OptionCollar, domain.OptionSleeveText:
			return ToggleOption{Option: opt}, nil
		}
		return nil, unknown(data)
	}
	return nil, unknown(data)
}

func parseDecision(data string) (Command, error) {
	verb, rest, _ := strings.Cut(data, "_")
	approve := verb == "approve"

	kind, args, ok := strings.Cut(rest, "_")
	if !ok {
		return nil, unknown(data)
	}
	if kind == "payment" {
		uid, oid, ok := strings.Cut(args, "_")
		if !ok {
			return nil, unknown(data)
		}
		u, err := strconv.ParseInt(uid, 10, 64)
		if err != nil {
			return nil, unknown(data)
		}
		o, err := parseID(oid)
		if err != nil {
			return nil, unknown(data)
		}
		return PaymentDecision{Approve: approve, UserID: u, OrderID: o}, nil
	}

	dk := domain.DiscountKind(kind)
	if !dk.Valid() {
		return nil, unknown(data)
	}
	u, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return nil, unknown(data)
	}
	return DiscountDecision{Approve: approve, Kind: dk, UserID: u}, nil
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, ErrUnknown
	}
	return uint(n), nil
}

func unknown(data string) error {
	return fmt.Errorf("%w: %q", ErrUnknown, data)
}
