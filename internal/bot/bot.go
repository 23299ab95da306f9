package bot

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/merch-order-bot/internal/catalog"
	"github.com/tbourn/merch-order-bot/internal/command"
	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/messenger"
	"github.com/tbourn/merch-order-bot/internal/services"
	"github.com/tbourn/merch-order-bot/internal/session"
)

// DialogKind is the free-text input the admin chat is currently expected
// to provide.
type DialogKind int

const (
	DialogNone DialogKind = iota
	DialogPaymentReason
	DialogDiscountReason
	DialogSupportReply
	DialogTracking
	DialogShipCity
	DialogShipPayer
	DialogShipBranch
	DialogShipConfirm
)

// AdminDialog is the pending admin input, keyed by admin chat. Origin is the
// message whose caption receives the decision once the dialog completes.
type AdminDialog struct {
	Kind     DialogKind
	OrderID  uint
	UserID   int64
	Discount domain.DiscountKind
	IssueID  uint
	Origin   domain.MessageRef
	Shipment services.ShipmentDraft
}

// Bot routes events to the customer and admin flows.
type Bot struct {
	Orders    *services.OrderService
	Discounts *services.DiscountService
	Shipments *services.ShipmentService
	Support   *services.SupportService
	Ledger    *services.Ledger
	Catalog   catalog.Lookup
	Send      messenger.Sender

	AdminChatID int64

	Drafts  *session.Store[domain.Draft]
	Dialogs *session.Store[AdminDialog]
}

var _ Handler = (*Bot)(nil)

func (b *Bot) isAdmin(chatID int64) bool { return chatID == b.AdminChatID }

// Handle processes one event. Errors the conversation can explain are
// answered in the chat and not returned.
func (b *Bot) Handle(ctx context.Context, ev Event) error {
	if ev.Callback != nil {
		return b.onCallback(ctx, ev)
	}
	return b.onMessage(ctx, ev)
}

func (b *Bot) onCallback(ctx context.Context, ev Event) error {
	cb := ev.Callback
	cmd, err := command.Parse(cb.Data)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", ev.ChatID).Msg("unparsable callback")
		b.answer(ctx, cb, txtUnknownAction)
		return nil
	}

	var note string
	switch c := cmd.(type) {
	case command.OrderAction:
		note, err = b.onOrderAction(ctx, ev, c)
	case command.PaymentDecision:
		note, err = b.onPaymentDecision(ctx, ev, c)
	case command.DiscountDecision:
		note, err = b.onDiscountDecision(ctx, ev, c)
	case command.SupportReply:
		note, err = b.onSupportReply(ctx, ev, c)
	case command.SenderCity:
		note, err = b.onSenderCity(ctx, ev, c)
	case command.PayerChoice:
		note, err = b.onPayerChoice(ctx, ev, c)
	case command.ShipmentConfirm:
		note, err = b.onShipmentConfirm(ctx, ev, c)
	case command.SelectSize:
		err = b.onSelectSize(ctx, ev, c)
	case command.ToggleOption:
		err = b.onToggleOption(ctx, ev, c)
	case command.Browse:
		err = b.onBrowse(ctx, ev, c)
	case command.SelectProduct:
		err = b.onSelectProduct(ctx, ev)
	case command.ChoosePayment:
		err = b.onChoosePayment(ctx, ev, c)
	case command.PaidConfirmed:
		b.Drafts.Set(ev.ChatID, domain.Draft{Step: domain.StepReceipt})
		b.reply(ctx, ev.ChatID, txtAskReceipt, messenger.Keyboard{})
	case command.Info:
		if c.Topic == command.InfoDelivery {
			b.reply(ctx, ev.ChatID, txtHowDelivery, messenger.Keyboard{})
		}
	case command.SupportFeedback:
		b.onSupportFeedback(ctx, ev, c)
	default:
		note = txtUnknownAction
	}
	b.answer(ctx, cb, note)
	return err
}

func (b *Bot) onMessage(ctx context.Context, ev Event) error {
	admin := b.isAdmin(ev.ChatID)
	switch ev.Text {
	case "/start":
		b.Drafts.Clear(ev.ChatID)
		b.Dialogs.Clear(ev.ChatID)
		text := txtWelcome
		if admin {
			text = txtWelcomeAdmin
		}
		b.reply(ctx, ev.ChatID, text, mainMenu(admin))
		return nil
	case btnHome:
		b.Drafts.Clear(ev.ChatID)
		b.Dialogs.Clear(ev.ChatID)
		b.reply(ctx, ev.ChatID, txtHome, mainMenu(admin))
		return nil
	}

	if admin {
		if handled, err := b.onAdminMenu(ctx, ev); handled {
			return err
		}
		if d, ok := b.Dialogs.Get(ev.ChatID); ok && d.Kind != DialogNone && ev.PhotoID == "" {
			return b.onAdminInput(ctx, ev, d)
		}
	}
	if handled, err := b.onCustomerMenu(ctx, ev); handled {
		return err
	}
	return b.onCustomerInput(ctx, ev)
}

// reply sends a conversation message. A failed reply is logged only; the
// state change that preceded it stands.
func (b *Bot) reply(ctx context.Context, chatID int64, text string, kb messenger.Keyboard) int {
	id, err := b.Send.SendMessage(ctx, chatID, text, kb)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("reply failed")
	}
	return id
}

func (b *Bot) answer(ctx context.Context, cb *Callback, text string) {
	if err := b.Send.AnswerCallback(ctx, cb.ID, text); err != nil {
		log.Debug().Err(err).Msg("answer callback")
	}
}

// explain maps a service error to a short reply. ok is false for errors the
// conversation cannot explain; those are returned to the dispatcher.
func explain(err error) (text string, ok bool) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		return txtOrderNotFound, true
	case errors.Is(err, services.ErrInvalidTransition):
		return txtNotAllowed, true
	case errors.Is(err, services.ErrProductUnavailable):
		return txtProductGone, true
	case errors.Is(err, services.ErrIncompleteDraft):
		return txtDraftExpired, true
	}
	return "", false
}

// statusNote turns a status operation outcome into a callback answer.
func statusNote(res services.Result, err error) (string, error) {
	if err != nil {
		if text, ok := explain(err); ok {
			return text, nil
		}
		return "", err
	}
	if !res.Changed {
		return txtAlready, nil
	}
	return txtStatusUpdated, nil
}

func messageRef(ev Event) domain.MessageRef {
	return domain.MessageRef{ChatID: ev.ChatID, MessageID: ev.Callback.MessageID, Caption: ev.Callback.Caption}
}
