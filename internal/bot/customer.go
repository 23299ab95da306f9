package bot

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/merch-order-bot/internal/catalog"
	"github.com/tbourn/merch-order-bot/internal/command"
	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/messenger"
	"github.com/tbourn/merch-order-bot/internal/pricing"
	"github.com/tbourn/merch-order-bot/internal/services"
)

// myOrdersLimit caps the "my orders" list.
const myOrdersLimit = 10

func (b *Bot) onCustomerMenu(ctx context.Context, ev Event) (bool, error) {
	switch ev.Text {
	case btnConstructor, btnFromEmpty:
		b.Drafts.Clear(ev.ChatID)
		b.reply(ctx, ev.ChatID, txtChooseCategory, categoryMenu())
	case btnTShirts, btnHoodies:
		cat := domain.CategoryHoodie
		if ev.Text == btnTShirts {
			cat = domain.CategoryTShirt
		}
		b.Drafts.Set(ev.ChatID, domain.Draft{Step: domain.StepSize, Category: cat})
		b.reply(ctx, ev.ChatID, txtChooseSize, sizeKeyboard())
	case btnMyOrders:
		return true, b.myOrders(ctx, ev)
	case btnPromotions:
		b.Drafts.Clear(ev.ChatID)
		d, err := b.Ledger.Entry(ctx, ev.UserID)
		if err != nil {
			return true, err
		}
		b.reply(ctx, ev.ChatID, txtPromotions(*d), promotionsMenu(*d))
	case btnShowUBD:
		return true, b.startProof(ctx, ev, domain.DiscountUBD)
	case btnShowRepost:
		return true, b.startProof(ctx, ev, domain.DiscountRepost)
	case btnInfo:
		b.reply(ctx, ev.ChatID, txtChooseOption, infoMenu())
	case btnContact:
		b.Drafts.Set(ev.ChatID, domain.Draft{Step: domain.StepSupportIssue})
		b.reply(ctx, ev.ChatID, txtAskIssue, messenger.Keyboard{})
	case btnBrand:
		b.reply(ctx, ev.ChatID, txtBrand, homeMenu())
	default:
		return false, nil
	}
	return true, nil
}

func (b *Bot) myOrders(ctx context.Context, ev Event) error {
	orders, err := b.Orders.ListForUser(ctx, ev.UserID, myOrdersLimit)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		b.reply(ctx, ev.ChatID, txtNoOrders, noOrdersMenu())
		return nil
	}
	for _, o := range orders {
		b.reply(ctx, ev.ChatID, txtMyOrder(o), detailsButton(o.ID))
	}
	return nil
}

func (b *Bot) startProof(ctx context.Context, ev Event, kind domain.DiscountKind) error {
	err := b.Discounts.CanSubmit(ctx, ev.UserID, kind)
	switch {
	case errors.Is(err, services.ErrRepostAlreadyUsed):
		b.reply(ctx, ev.ChatID, txtRepostUsed, homeMenu())
		return nil
	case errors.Is(err, services.ErrDiscountActive):
		b.reply(ctx, ev.ChatID, txtDiscountActive, homeMenu())
		return nil
	case err != nil:
		return err
	}
	step, prompt := domain.StepProofUBD, txtAskUBD
	if kind == domain.DiscountRepost {
		step, prompt = domain.StepProofRepost, txtAskRepost
	}
	b.Drafts.Set(ev.ChatID, domain.Draft{Step: step})
	b.reply(ctx, ev.ChatID, prompt, messenger.Keyboard{})
	return nil
}

// onCustomerInput handles free text and photos according to the draft step.
func (b *Bot) onCustomerInput(ctx context.Context, ev Event) error {
	d, _ := b.Drafts.Get(ev.ChatID)
	text := strings.TrimSpace(ev.Text)

	switch d.Step {
	case domain.StepCity, domain.StepBranch, domain.StepName, domain.StepPhone:
		if ev.PhotoID != "" {
			break
		}
		return b.onShippingInput(ctx, ev, d, text)

	case domain.StepReceipt:
		if ev.PhotoID == "" {
			b.reply(ctx, ev.ChatID, txtNeedPhoto, messenger.Keyboard{})
			return nil
		}
		return b.attachReceipt(ctx, ev, true)

	case domain.StepProofUBD, domain.StepProofRepost:
		if ev.PhotoID == "" {
			b.reply(ctx, ev.ChatID, txtNeedPhoto, messenger.Keyboard{})
			return nil
		}
		kind := domain.DiscountUBD
		if d.Step == domain.StepProofRepost {
			kind = domain.DiscountRepost
		}
		return b.submitProof(ctx, ev, kind)

	case domain.StepSupportIssue:
		is, err := b.Support.Submit(ctx, ev.UserID, ev.Username, text)
		if errors.Is(err, services.ErrEmptyText) {
			b.reply(ctx, ev.ChatID, txtIssueTooShort, messenger.Keyboard{})
			return nil
		}
		if err != nil {
			return err
		}
		log.Debug().Uint("issue_id", is.ID).Msg("support issue submitted")
		b.Drafts.Clear(ev.ChatID)
		return nil
	}

	if ev.PhotoID != "" {
		return b.attachReceipt(ctx, ev, false)
	}
	b.reply(ctx, ev.ChatID, txtUnknownInput, mainMenu(b.isAdmin(ev.ChatID)))
	return nil
}

func (b *Bot) onShippingInput(ctx context.Context, ev Event, d domain.Draft, text string) error {
	if text == "" {
		b.reply(ctx, ev.ChatID, txtEmptyInput, messenger.Keyboard{})
		return nil
	}
	var prompt string
	switch d.Step {
	case domain.StepCity:
		d.Shipping.City, d.Step, prompt = text, domain.StepBranch, txtAskBranch
	case domain.StepBranch:
		d.Shipping.Branch, d.Step, prompt = text, domain.StepName, txtAskName
	case domain.StepName:
		d.Shipping.Name, d.Step, prompt = text, domain.StepPhone, txtAskPhone
	case domain.StepPhone:
		if !validPhone(text) {
			b.reply(ctx, ev.ChatID, txtBadPhone, messenger.Keyboard{})
			return nil
		}
		d.Shipping.Phone = text
		return b.checkout(ctx, ev, d)
	}
	b.Drafts.Set(ev.ChatID, d)
	b.reply(ctx, ev.ChatID, prompt, messenger.Keyboard{})
	return nil
}

func (b *Bot) checkout(ctx context.Context, ev Event, d domain.Draft) error {
	_, err := b.Orders.Checkout(ctx, ev.UserID, d)
	if err != nil {
		if text, ok := explain(err); ok {
			b.Drafts.Clear(ev.ChatID)
			b.reply(ctx, ev.ChatID, text, mainMenu(b.isAdmin(ev.ChatID)))
			return nil
		}
		return err
	}
	b.Drafts.Clear(ev.ChatID)
	return nil
}

// attachReceipt forwards a photo as a payment receipt. A photo sent outside
// the receipt step is only answered when it actually matched an order.
func (b *Bot) attachReceipt(ctx context.Context, ev Event, asked bool) error {
	_, err := b.Orders.AttachReceipt(ctx, ev.UserID, ev.PhotoID)
	if errors.Is(err, services.ErrNoPendingPayment) {
		b.Drafts.Clear(ev.ChatID)
		if asked {
			b.reply(ctx, ev.ChatID, txtNoPending, messenger.Keyboard{})
		} else {
			b.reply(ctx, ev.ChatID, txtUnknownInput, mainMenu(b.isAdmin(ev.ChatID)))
		}
		return nil
	}
	if err != nil {
		return err
	}
	b.Drafts.Clear(ev.ChatID)
	return nil
}

func (b *Bot) submitProof(ctx context.Context, ev Event, kind domain.DiscountKind) error {
	err := b.Discounts.SubmitProof(ctx, ev.UserID, kind, ev.PhotoID)
	b.Drafts.Clear(ev.ChatID)
	switch {
	case errors.Is(err, services.ErrRepostAlreadyUsed):
		b.reply(ctx, ev.ChatID, txtRepostUsed, homeMenu())
	case errors.Is(err, services.ErrDiscountActive):
		b.reply(ctx, ev.ChatID, txtDiscountActive, homeMenu())
	default:
		return err
	}
	return nil
}

// validPhone accepts 10 to 13 digits with optional "+", spaces, dashes and
// parentheses.
func validPhone(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' && i == 0, r == ' ', r == '-', r == '(', r == ')':
		default:
			return false
		}
	}
	return digits >= 10 && digits <= 13
}

// ----------------------------------------------------------------------------
// Constructor callbacks

func (b *Bot) draft(ctx context.Context, ev Event) (domain.Draft, bool) {
	d, ok := b.Drafts.Get(ev.ChatID)
	if !ok || d.Category == "" {
		b.reply(ctx, ev.ChatID, txtDraftExpired, mainMenu(b.isAdmin(ev.ChatID)))
		return domain.Draft{}, false
	}
	return d, true
}

func (b *Bot) onSelectSize(ctx context.Context, ev Event, c command.SelectSize) error {
	if c.Chart {
		b.reply(ctx, ev.ChatID, txtSizeChart, messenger.Keyboard{})
		return nil
	}
	d, ok := b.draft(ctx, ev)
	if !ok {
		return nil
	}
	d.Size = c.Size
	d.Step = domain.StepBrowse
	b.Drafts.Set(ev.ChatID, d)
	b.reply(ctx, ev.ChatID, txtChooseOptions, optionsKeyboard(d.Category, d.Options))
	return nil
}

func (b *Bot) onToggleOption(ctx context.Context, ev Event, c command.ToggleOption) error {
	d, ok := b.draft(ctx, ev)
	if !ok {
		return nil
	}
	if c.Next {
		d.ProductIndex, d.ColorIndex = 0, 0
		d.Pending = domain.MessageRef{}
		return b.showProduct(ctx, ev, d)
	}
	d.Options = d.Options.Toggle(c.Option).Restrict(d.Category)
	b.Drafts.Set(ev.ChatID, d)
	if err := b.Send.EditMessageMarkup(ctx, ev.ChatID, ev.Callback.MessageID, optionsKeyboard(d.Category, d.Options)); err != nil {
		log.Warn().Err(err).Int64("chat_id", ev.ChatID).Msg("edit options keyboard")
	}
	return nil
}

func (b *Bot) onBrowse(ctx context.Context, ev Event, c command.Browse) error {
	d, ok := b.draft(ctx, ev)
	if !ok {
		return nil
	}
	if c.Color {
		d.ColorIndex += c.Step
	} else {
		d.ProductIndex += c.Step
		d.ColorIndex = 0
	}
	return b.showProduct(ctx, ev, d)
}

// showProduct renders the product card for the draft's indexes, editing the
// previous card in place when there is one.
func (b *Bot) showProduct(ctx context.Context, ev Event, d domain.Draft) error {
	total := b.Catalog.Count(d.Category)
	if total == 0 {
		b.reply(ctx, ev.ChatID, txtNoProducts, categoryMenu())
		return nil
	}
	d.ProductIndex = catalog.Wrap(d.ProductIndex, total)
	p, err := b.Catalog.GetProduct(d.Category, d.ProductIndex)
	if err != nil {
		b.reply(ctx, ev.ChatID, txtNoProducts, categoryMenu())
		return nil
	}
	colors := len(p.ColorImages)
	d.ColorIndex = catalog.Wrap(d.ColorIndex, colors)

	discounts, err := b.Ledger.GetDiscounts(ctx, ev.UserID)
	if err != nil {
		return err
	}
	price, breakdown := pricing.ForProduct(p.ID, discounts)
	d.ProductRef, d.ProductName, d.Price = p.ID, p.Name, price

	photo := messenger.Photo{URL: p.Image(d.ColorIndex)}
	caption := txtProductCard(p.Name, price, breakdown)
	kb := productKeyboard(d.ProductIndex, total, d.ColorIndex, colors)

	if d.Pending.MessageID != 0 {
		err := b.Send.EditPhoto(ctx, d.Pending.ChatID, d.Pending.MessageID, photo, caption, kb)
		if err == nil {
			b.Drafts.Set(ev.ChatID, d)
			return nil
		}
		log.Debug().Err(err).Int64("chat_id", ev.ChatID).Msg("edit product card, sending a new one")
	}
	id, err := b.Send.SendPhoto(ctx, ev.ChatID, photo, caption, kb)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", ev.ChatID).Msg("send product card")
	}
	d.Pending = domain.MessageRef{ChatID: ev.ChatID, MessageID: id}
	b.Drafts.Set(ev.ChatID, d)
	return nil
}

func (b *Bot) onSelectProduct(ctx context.Context, ev Event) error {
	d, ok := b.draft(ctx, ev)
	if !ok {
		return nil
	}
	p, err := b.Catalog.FindByID(d.ProductRef)
	if err != nil {
		b.reply(ctx, ev.ChatID, txtProductGone, categoryMenu())
		return nil
	}
	discounts, err := b.Ledger.GetDiscounts(ctx, ev.UserID)
	if err != nil {
		return err
	}
	price, breakdown := pricing.ForProduct(p.ID, discounts)
	d.ProductName, d.Price = p.Name, price
	d.Step = domain.StepPayment
	b.Drafts.Set(ev.ChatID, d)

	colors := len(p.ColorImages)
	if colors == 0 {
		colors = 1
	}
	b.reply(ctx, ev.ChatID, txtOrderSummary(d, colors, breakdown), paymentKeyboard())
	return nil
}

func (b *Bot) onChoosePayment(ctx context.Context, ev Event, c command.ChoosePayment) error {
	d, ok := b.draft(ctx, ev)
	if !ok {
		return nil
	}
	if d.ProductRef == "" {
		b.reply(ctx, ev.ChatID, txtDraftExpired, mainMenu(b.isAdmin(ev.ChatID)))
		return nil
	}
	d.Payment = c.Method
	d.Step = domain.StepCity
	b.Drafts.Set(ev.ChatID, d)
	b.reply(ctx, ev.ChatID, txtAskCity, messenger.Keyboard{})
	return nil
}

func (b *Bot) onSupportFeedback(ctx context.Context, ev Event, c command.SupportFeedback) {
	if c.Resolved {
		b.reply(ctx, ev.ChatID, txtResolved, mainMenu(b.isAdmin(ev.ChatID)))
		return
	}
	b.Drafts.Set(ev.ChatID, domain.Draft{Step: domain.StepSupportIssue})
	b.reply(ctx, ev.ChatID, txtAskIssue, messenger.Keyboard{})
}
