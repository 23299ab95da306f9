package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tbourn/merch-order-bot/internal/command"
	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/messenger"
)

func labels(kb messenger.Keyboard) []string {
	var out []string
	for _, row := range kb.Inline {
		for _, b := range row {
			out = append(out, b.Text)
		}
	}
	return out
}

func TestControlsFor_DerivedFromStatus(t *testing.T) {
	const (
		ready     = "🛠️ Готово до відправки"
		sent      = "📦 Відправлено"
		delivered = "✅ Доставлено"
		cancel    = "❌ Відхилити замовлення"
		details   = "📄 Деталі замовлення"
	)
	cases := []struct {
		status domain.Status
		want   []string
	}{
		{domain.StatusNew, []string{ready, sent, delivered, cancel, details}},
		{domain.StatusPaymentConfirmed, []string{ready, sent, delivered, cancel, details}},
		{domain.StatusReadyToShip, []string{ready + " ✅", sent, delivered, "📝 Створити ТТН", cancel, details}},
		{domain.StatusShipped, []string{ready + " ✅", sent + " ✅", delivered, cancel, details}},
		{domain.StatusAwaitingPayment, []string{"✅ Підтвердити оплату", "❌ Відхилити оплату", cancel, details}},
		{domain.StatusDelivered, []string{details}},
		{domain.StatusCancelled, []string{details}},
		{domain.StatusPaymentRejected, []string{details}},
	}
	for _, tc := range cases {
		got := labels(ControlsFor(domain.Order{ID: 42, UserID: 7, Status: tc.status}))
		assert.Equal(t, tc.want, got, "status %s", tc.status)
	}
}

func TestControlsFor_PayloadsParse(t *testing.T) {
	for _, s := range []domain.Status{domain.StatusReadyToShip, domain.StatusAwaitingPayment} {
		for _, row := range ControlsFor(domain.Order{ID: 42, UserID: 7, Status: s}).Inline {
			for _, b := range row {
				c, err := command.Parse(b.Data)
				assert.NoError(t, err, b.Data)
				assert.Equal(t, b.Data, c.String())
			}
		}
	}
}
