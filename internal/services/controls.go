package services

import (
	"github.com/tbourn/merch-order-bot/internal/command"
	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/messenger"
)

// ControlsFor returns the admin action buttons for an order. The result is
// derived from the order's status alone, so re-rendering after any
// transition always agrees with the stored status.
func ControlsFor(o domain.Order) messenger.Keyboard {
	details := messenger.Data("📄 Деталі замовлення", command.OrderAction{Verb: command.VerbDetails, OrderID: o.ID}.String())

	if o.Status == domain.StatusAwaitingPayment {
		return messenger.Inline(
			messenger.Row(
				messenger.Data("✅ Підтвердити оплату", command.PaymentDecision{Approve: true, UserID: o.UserID, OrderID: o.ID}.String()),
				messenger.Data("❌ Відхилити оплату", command.PaymentDecision{UserID: o.UserID, OrderID: o.ID}.String()),
			),
			messenger.Row(cancelButton(o.ID)),
			messenger.Row(details),
		)
	}
	if o.Status.Terminal() || !o.Status.Valid() {
		return messenger.Inline(messenger.Row(details))
	}

	p := domain.ProgressOf(o.Status)
	rows := [][]messenger.Button{
		messenger.Row(stepButton("🛠️ Готово до відправки", p.Ready, command.VerbReady, o.ID)),
		messenger.Row(stepButton("📦 Відправлено", p.Shipped, command.VerbSent, o.ID)),
		messenger.Row(stepButton("✅ Доставлено", p.Delivered, command.VerbDelivered, o.ID)),
	}
	if o.Status == domain.StatusReadyToShip {
		rows = append(rows, messenger.Row(
			messenger.Data("📝 Створити ТТН", command.OrderAction{Verb: command.VerbCreateTTN, OrderID: o.ID}.String()),
		))
	}
	rows = append(rows, messenger.Row(cancelButton(o.ID)), messenger.Row(details))
	return messenger.Inline(rows...)
}

func stepButton(label string, done bool, verb command.OrderVerb, id uint) messenger.Button {
	if done {
		label += " ✅"
	}
	return messenger.Data(label, command.OrderAction{Verb: verb, OrderID: id}.String())
}

func cancelButton(id uint) messenger.Button {
	return messenger.Data("❌ Відхилити замовлення", command.OrderAction{Verb: command.VerbCancel, OrderID: id}.String())
}

// discountControls are the approve/reject buttons under a discount proof.
func discountControls(userID int64, kind domain.DiscountKind) messenger.Keyboard {
	return messenger.Inline(messenger.Row(
		messenger.Data("✅ Схвалити", command.DiscountDecision{Approve: true, Kind: kind, UserID: userID}.String()),
		messenger.Data("❌ Відхилити", command.DiscountDecision{Kind: kind, UserID: userID}.String()),
	))
}

// paidButton is shown with card instructions.
func paidButton() messenger.Keyboard {
	return messenger.Inline(messenger.Row(messenger.Data("✅ Оплачено", command.PaidConfirmed{}.String())))
}

func supportReplyButton(issueID uint) messenger.Keyboard {
	return messenger.Inline(messenger.Row(
		messenger.Data("✉️ Відповісти", command.SupportReply{IssueID: issueID}.String()),
	))
}

func supportFeedbackButtons() messenger.Keyboard {
	return messenger.Inline(messenger.Row(
		messenger.Data("✅ Питання вирішено", command.SupportFeedback{Resolved: true}.String()),
		messenger.Data("🔄 Задати ще питання", command.SupportFeedback{}.String()),
	))
}
