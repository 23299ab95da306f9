package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/merch-order-bot/internal/carrier"
	"github.com/tbourn/merch-order-bot/internal/command"
	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/messenger"
	"github.com/tbourn/merch-order-bot/internal/services"
)

// completedLimit caps the admin "completed orders" list.
const completedLimit = 20

func (b *Bot) onAdminMenu(ctx context.Context, ev Event) (bool, error) {
	switch ev.Text {
	case btnAdminOrders:
		b.reply(ctx, ev.ChatID, txtAdminOrders, adminOrdersMenu())
	case btnInProgress:
		orders, err := b.Orders.ListActive(ctx)
		if err != nil {
			return true, err
		}
		if len(orders) == 0 {
			b.reply(ctx, ev.ChatID, txtNoInProgress, mainMenu(true))
			return true, nil
		}
		for i := range orders {
			b.Orders.ResendControls(ctx, &orders[i])
		}
	case btnCompleted:
		orders, _, err := b.Orders.ListPage(ctx, domain.StatusDelivered, 1, completedLimit)
		if err != nil {
			return true, err
		}
		if len(orders) == 0 {
			b.reply(ctx, ev.ChatID, txtNoCompleted, mainMenu(true))
			return true, nil
		}
		lines := make([]string, 0, len(orders))
		for _, o := range orders {
			lines = append(lines, txtCompleted(o))
		}
		b.reply(ctx, ev.ChatID, strings.Join(lines, "\n"), adminOrdersMenu())
	default:
		return false, nil
	}
	return true, nil
}

func (b *Bot) onOrderAction(ctx context.Context, ev Event, c command.OrderAction) (string, error) {
	admin := b.isAdmin(ev.ChatID)
	if c.Verb == command.VerbDetails {
		return b.details(ctx, ev, c.OrderID, admin)
	}
	if !admin {
		return txtUnknownAction, nil
	}

	switch c.Verb {
	case command.VerbReady:
		return statusNote(b.Orders.MarkReady(ctx, c.OrderID))
	case command.VerbDelivered:
		return statusNote(b.Orders.MarkDelivered(ctx, c.OrderID))
	case command.VerbCancel:
		return statusNote(b.Orders.Cancel(ctx, c.OrderID, ""))
	case command.VerbSent:
		o, err := b.Orders.Details(ctx, c.OrderID)
		if err != nil {
			return statusNote(services.Result{}, err)
		}
		if o.Status == domain.StatusShipped {
			return txtAlready, nil
		}
		if !domain.CanTransition(o.Status, domain.StatusShipped) {
			return txtNotAllowed, nil
		}
		b.Dialogs.Set(ev.ChatID, AdminDialog{Kind: DialogTracking, OrderID: c.OrderID})
		b.reply(ctx, ev.ChatID, txtAskTracking, messenger.Keyboard{})
	case command.VerbCreateTTN:
		o, err := b.Orders.Details(ctx, c.OrderID)
		if err != nil {
			return statusNote(services.Result{}, err)
		}
		if o.Status != domain.StatusReadyToShip {
			return txtNotAllowed, nil
		}
		b.Dialogs.Set(ev.ChatID, AdminDialog{Kind: DialogShipCity, Shipment: services.ShipmentDraft{OrderID: c.OrderID}})
		b.reply(ctx, ev.ChatID, txtChooseSender, senderCityKeyboard())
	default:
		return txtUnknownAction, nil
	}
	return "", nil
}

// details shows one order. Customers may only see their own orders; the
// admin also gets the live controls.
func (b *Bot) details(ctx context.Context, ev Event, id uint, admin bool) (string, error) {
	o, err := b.Orders.Details(ctx, id)
	if err != nil {
		return statusNote(services.Result{}, err)
	}
	if !admin && o.UserID != ev.UserID {
		return txtOrderNotFound, nil
	}
	var track carrier.TrackingStatus
	if o.TrackingNumber != "" {
		track = b.Shipments.Track(ctx, *o)
	}
	kb := messenger.Keyboard{}
	if admin {
		kb = services.ControlsFor(*o)
	}
	b.reply(ctx, ev.ChatID, txtDetails(*o, track), kb)
	return "", nil
}

func (b *Bot) onPaymentDecision(ctx context.Context, ev Event, c command.PaymentDecision) (string, error) {
	if !b.isAdmin(ev.ChatID) {
		return txtUnknownAction, nil
	}
	if !c.Approve {
		b.Dialogs.Set(ev.ChatID, AdminDialog{Kind: DialogPaymentReason, OrderID: c.OrderID, UserID: c.UserID, Origin: messageRef(ev)})
		b.reply(ctx, ev.ChatID, txtAskPayReason, messenger.Keyboard{})
		return "", nil
	}
	note, err := statusNote(b.Orders.ApprovePayment(ctx, c.OrderID, messageRef(ev)))
	if note == txtStatusUpdated {
		note = txtPaymentOK
	}
	return note, err
}

func (b *Bot) onDiscountDecision(ctx context.Context, ev Event, c command.DiscountDecision) (string, error) {
	if !b.isAdmin(ev.ChatID) {
		return txtUnknownAction, nil
	}
	if !c.Approve {
		b.Dialogs.Set(ev.ChatID, AdminDialog{Kind: DialogDiscountReason, UserID: c.UserID, Discount: c.Kind, Origin: messageRef(ev)})
		b.reply(ctx, ev.ChatID, txtAskDiscReason, messenger.Keyboard{})
		return "", nil
	}
	if err := b.Discounts.Approve(ctx, c.UserID, c.Kind, messageRef(ev)); err != nil {
		return "", err
	}
	return txtApproved, nil
}

func (b *Bot) onSupportReply(ctx context.Context, ev Event, c command.SupportReply) (string, error) {
	if !b.isAdmin(ev.ChatID) {
		return txtUnknownAction, nil
	}
	b.Dialogs.Set(ev.ChatID, AdminDialog{Kind: DialogSupportReply, IssueID: c.IssueID})
	b.reply(ctx, ev.ChatID, txtAskReply, messenger.Keyboard{})
	return "", nil
}

// ----------------------------------------------------------------------------
// Shipment wizard

// wizard returns the admin dialog when it is at step want.
func (b *Bot) wizard(ctx context.Context, ev Event, want ...DialogKind) (AdminDialog, bool) {
	if !b.isAdmin(ev.ChatID) {
		return AdminDialog{}, false
	}
	d, ok := b.Dialogs.Get(ev.ChatID)
	if ok {
		for _, k := range want {
			if d.Kind == k {
				return d, true
			}
		}
	}
	b.reply(ctx, ev.ChatID, txtWizardExpired, messenger.Keyboard{})
	return AdminDialog{}, false
}

func (b *Bot) onSenderCity(ctx context.Context, ev Event, c command.SenderCity) (string, error) {
	d, ok := b.wizard(ctx, ev, DialogShipCity)
	if !ok {
		return "", nil
	}
	d.Shipment.SenderCity = c.City
	d.Kind = DialogShipPayer
	b.Dialogs.Set(ev.ChatID, d)
	b.reply(ctx, ev.ChatID, txtChoosePayer, payerKeyboard())
	return "", nil
}

func (b *Bot) onPayerChoice(ctx context.Context, ev Event, c command.PayerChoice) (string, error) {
	d, ok := b.wizard(ctx, ev, DialogShipPayer)
	if !ok {
		return "", nil
	}
	d.Shipment.CashOnDelivery = c.CashOnDelivery
	d.Kind = DialogShipBranch
	b.Dialogs.Set(ev.ChatID, d)
	b.reply(ctx, ev.ChatID, txtAskSenderBr, messenger.Keyboard{})
	return "", nil
}

func (b *Bot) onShipmentConfirm(ctx context.Context, ev Event, c command.ShipmentConfirm) (string, error) {
	d, ok := b.wizard(ctx, ev, DialogShipConfirm)
	if !ok {
		return "", nil
	}
	if !c.Confirm {
		d.Kind = DialogShipBranch
		b.Dialogs.Set(ev.ChatID, d)
		b.reply(ctx, ev.ChatID, txtAskSenderBr, messenger.Keyboard{})
		return "", nil
	}

	res, err := b.Shipments.Create(ctx, d.Shipment)
	if err != nil {
		if _, known := explain(err); !known {
			// Carrier refused or unreachable: the order stays ReadyToShip and
			// the admin types the tracking number in.
			b.Dialogs.Set(ev.ChatID, AdminDialog{Kind: DialogTracking, OrderID: d.Shipment.OrderID})
			var verr *carrier.ValidationError
			if errors.As(err, &verr) {
				b.reply(ctx, ev.ChatID, fmt.Sprintf(txtCarrierRefused, strings.Join(verr.Messages, "\n")), messenger.Keyboard{})
			} else {
				log.Warn().Err(err).Uint("order_id", d.Shipment.OrderID).Msg("carrier unavailable, manual tracking requested")
				b.reply(ctx, ev.ChatID, txtCarrierDown, messenger.Keyboard{})
			}
			return txtCarrierFailed, nil
		}
	}
	b.Dialogs.Clear(ev.ChatID)
	if err == nil {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("✅ ТТН %s створено для замовлення #%d.", res.Order.TrackingNumber, res.Order.ID), messenger.Keyboard{})
	}
	return statusNote(res, err)
}

// ----------------------------------------------------------------------------
// Free-text admin input

func (b *Bot) onAdminInput(ctx context.Context, ev Event, d AdminDialog) error {
	text := strings.TrimSpace(ev.Text)
	switch d.Kind {
	case DialogPaymentReason:
		_, err := b.Orders.RejectPayment(ctx, d.OrderID, text, d.Origin)
		return b.afterReason(ctx, ev, err)

	case DialogDiscountReason:
		err := b.Discounts.Reject(ctx, d.UserID, d.Discount, text, d.Origin)
		return b.afterReason(ctx, ev, err)

	case DialogSupportReply:
		_, err := b.Support.Reply(ctx, d.IssueID, text)
		switch {
		case errors.Is(err, services.ErrEmptyReason):
			b.reply(ctx, ev.ChatID, txtEmptyReply, messenger.Keyboard{})
			return nil
		case errors.Is(err, services.ErrIssueNotFound):
			b.Dialogs.Clear(ev.ChatID)
			b.reply(ctx, ev.ChatID, txtIssueMissing, messenger.Keyboard{})
			return nil
		case err != nil:
			b.Dialogs.Clear(ev.ChatID)
			return err
		}
		b.Dialogs.Clear(ev.ChatID)
		b.reply(ctx, ev.ChatID, txtReplySent, messenger.Keyboard{})
		return nil

	case DialogTracking:
		res, err := b.Orders.SetTracking(ctx, d.OrderID, text)
		if errors.Is(err, services.ErrInvalidTracking) {
			b.reply(ctx, ev.ChatID, txtBadTracking, messenger.Keyboard{})
			return nil
		}
		b.Dialogs.Clear(ev.ChatID)
		note, err := statusNote(res, err)
		if note != "" {
			b.reply(ctx, ev.ChatID, note, messenger.Keyboard{})
		}
		return err

	case DialogShipBranch:
		d.Shipment.SenderBranch = text
		preview, err := b.Shipments.Preview(ctx, d.Shipment)
		if errors.Is(err, services.ErrEmptyText) {
			b.reply(ctx, ev.ChatID, txtEmptyInput, messenger.Keyboard{})
			return nil
		}
		if err != nil {
			b.Dialogs.Clear(ev.ChatID)
			if note, ok := explain(err); ok {
				b.reply(ctx, ev.ChatID, note, messenger.Keyboard{})
				return nil
			}
			return err
		}
		d.Kind = DialogShipConfirm
		b.Dialogs.Set(ev.ChatID, d)
		b.reply(ctx, ev.ChatID, preview, shipmentConfirmKeyboard())
		return nil
	}

	// The wizard is waiting for a button press; keep it and let the text
	// fall through to the regular menus.
	log.Debug().Int("dialog", int(d.Kind)).Msg("admin text ignored by dialog")
	if handled, err := b.onCustomerMenu(ctx, ev); handled {
		return err
	}
	return b.onCustomerInput(ctx, ev)
}

// afterReason finishes a rejection dialog. A blank reason keeps the dialog
// open and re-prompts.
func (b *Bot) afterReason(ctx context.Context, ev Event, err error) error {
	if errors.Is(err, services.ErrEmptyReason) {
		b.reply(ctx, ev.ChatID, txtEmptyReason, messenger.Keyboard{})
		return nil
	}
	b.Dialogs.Clear(ev.ChatID)
	if err != nil {
		if note, ok := explain(err); ok {
			b.reply(ctx, ev.ChatID, note, messenger.Keyboard{})
			return nil
		}
		return err
	}
	b.reply(ctx, ev.ChatID, txtReasonSaved, messenger.Keyboard{})
	return nil
}
