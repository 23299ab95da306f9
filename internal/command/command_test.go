package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/merch-order-bot/internal/domain"
)

func TestParse_Known(t *testing.T) {
	cases := map[string]Command{
		"order_ready_42":          OrderAction{Verb: VerbReady, OrderID: 42},
		"order_sent_7":            OrderAction{Verb: VerbSent, OrderID: 7},
		"order_delivered_7":       OrderAction{Verb: VerbDelivered, OrderID: 7},
		"order_cancel_1":          OrderAction{Verb: VerbCancel, OrderID: 1},
		"order_details_3":         OrderAction{Verb: VerbDetails, OrderID: 3},
		"order_create_ttn_9":      OrderAction{Verb: VerbCreateTTN, OrderID: 9},
		"approve_payment_100_42":  PaymentDecision{Approve: true, UserID: 100, OrderID: 42},
		"reject_payment_100_42":   PaymentDecision{UserID: 100, OrderID: 42},
		"approve_ubd_555":         DiscountDecision{Approve: true, Kind: domain.DiscountUBD, UserID: 555},
		"reject_repost_555":       DiscountDecision{Kind: domain.DiscountRepost, UserID: 555},
		"support_reply_12":        SupportReply{IssueID: 12},
		"sender_city_kharkiv":     SenderCity{City: "kharkiv"},
		"payer_cod":               PayerChoice{CashOnDelivery: true},
		"payer_sender":            PayerChoice{},
		"confirm_create_ttn":      ShipmentConfirm{Confirm: true},
		"re_enter_ttn":            ShipmentConfirm{},
		"size_XXL":                SelectSize{Size: "XXL"},
		"size_chart":              SelectSize{Chart: true},
		"option_back_print":       ToggleOption{Option: domain.OptionBackPrint},
		"options_next":            ToggleOption{Next: true},
		"prev_color":              Browse{Color: true, Step: -1},
		"next_product":            Browse{Step: 1},
		"select_product":          SelectProduct{},
		"payment_card":            ChoosePayment{Method: domain.PaymentCard},
		"payment_post":            ChoosePayment{Method: domain.PaymentCash},
		"paid_confirmed":          PaidConfirmed{},
		"how_delivery":            Info{Topic: InfoDelivery},
		"noop":                    Info{Topic: InfoNoop},
		"support_more_question":   SupportFeedback{},
		"  order_ready_42  ":      OrderAction{Verb: VerbReady, OrderID: 42},
		"approve_payment_-100_42": PaymentDecision{Approve: true, UserID: -100, OrderID: 42},
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParse_Unknown(t *testing.T) {
	for _, in := range []string{
		"", "order", "order_ready", "order_ready_x", "order_ready_0", "order_fly_1",
		"approve_payment_1", "approve_payment_x_1", "approve_gift_1", "reject_ubd_",
		"support_reply_", "sender_city_lviv", "size_XS", "option_glitter", "hello",
	} {
		_, err := Parse(in)
		assert.True(t, errors.Is(err, ErrUnknown), "%q should be unknown, got %v", in, err)
	}
}

func TestString_RoundTripsThroughParse(t *testing.T) {
	cmds := []Command{
		OrderAction{Verb: VerbCancel, OrderID: 5},
		OrderAction{Verb: VerbCreateTTN, OrderID: 5},
		PaymentDecision{Approve: false, UserID: 9, OrderID: 5},
		DiscountDecision{Approve: true, Kind: domain.DiscountRepost, UserID: 9},
		SupportReply{IssueID: 3},
		SenderCity{City: "kyiv"},
		SelectSize{Size: "M"},
		ToggleOption{Option: domain.OptionCollar},
		Browse{Step: -1},
	}
	for _, c := range cmds {
		got, err := Parse(c.String())
		require.NoError(t, err, c.String())
		assert.Equal(t, c, got)
	}
}

func TestString_Payloads(t *testing.T) {
	assert.Equal(t, "order_ready_42", OrderAction{Verb: VerbReady, OrderID: 42}.String())
	assert.Equal(t, "approve_payment_100_42", PaymentDecision{Approve: true, UserID: 100, OrderID: 42}.String())
	assert.Equal(t, "reject_ubd_7", DiscountDecision{Kind: domain.DiscountUBD, UserID: 7}.String())
}
