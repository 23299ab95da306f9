package services

import (
	"fmt"
	"strings"

	"github.com/tbourn/merch-order-bot/internal/domain"
)

// Customer and admin facing texts produced by the services. Captions use
// Telegram Markdown.

var optionLabels = map[domain.Option]string{
	domain.OptionMadeInUkraine: "made in Ukraine принт",
	domain.OptionBackText:      "Задня підпис",
	domain.OptionBackPrint:     "Задній принт",
	domain.OptionCollar:        "Горловина",
	domain.OptionSleeveText:    "Надписи на рукавах",
}

var kindLabels = map[domain.DiscountKind]string{
	domain.DiscountUBD:    "🆔 УБД",
	domain.DiscountRepost: "🔄 Репост",
}

var paymentLabels = map[domain.PaymentMethod]string{
	domain.PaymentCash: "Накладений платіж",
	domain.PaymentCard: "Оплата на карту",
}

// OptionLabel returns the display name of an option.
func OptionLabel(o domain.Option) string { return optionLabels[o] }

// OptionsText lists the enabled options of a category, one per line.
func OptionsText(c domain.Category, f domain.OptionFlags) string {
	var b strings.Builder
	for _, o := range domain.OptionsFor(c) {
		if f.Get(o) {
			b.WriteString("  • " + optionLabels[o] + "\n")
		}
	}
	if b.Len() == 0 {
		return "  • без опцій\n"
	}
	return b.String()
}

// OrderText renders the full order summary used in admin captions and
// details views.
func OrderText(o domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔹 **Товар:** %s\n", o.ProductRef)
	fmt.Fprintf(&b, "📏 **Розмір:** %s\n", o.Size)
	fmt.Fprintf(&b, "🎨 **Колір:** %d\n", o.ColorIndex+1)
	b.WriteString("⚙️ **Опції:**\n")
	b.WriteString(OptionsText(o.Category(), o.Options))
	fmt.Fprintf(&b, "🏙 **Місто:** %s\n", o.Shipping.City)
	fmt.Fprintf(&b, "🏤 **Відділення:** %s\n", o.Shipping.Branch)
	fmt.Fprintf(&b, "👤 **ПІБ:** %s\n", o.Shipping.Name)
	fmt.Fprintf(&b, "📞 **Телефон:** %s\n", o.Shipping.Phone)
	fmt.Fprintf(&b, "💳 **Оплата:** %s\n", paymentLabels[o.PaymentMethod])
	fmt.Fprintf(&b, "💸 **Сума:** %d грн\n", o.Price)
	fmt.Fprintf(&b, "📌 **Статус:** %s", o.Status.Label())
	if o.TrackingNumber != "" {
		fmt.Fprintf(&b, "\n🚚 **ТТН:** %s", o.TrackingNumber)
	}
	if o.RejectReason != "" {
		fmt.Fprintf(&b, "\n❗ **Причина:** %s", o.RejectReason)
	}
	return b.String()
}

func newOrderCaption(o domain.Order) string {
	return fmt.Sprintf("📦 **Нове замовлення #%d** від користувача %d:\n%s", o.ID, o.UserID, OrderText(o))
}

func controlCaption(o domain.Order) string {
	return fmt.Sprintf("📦 **Замовлення #%d**\n%s", o.ID, OrderText(o))
}

func receiptCaption(o domain.Order) string {
	return fmt.Sprintf("💳 **Скріншот оплати від користувача %d для замовлення #%d**\n💸 Сума: %d грн", o.UserID, o.ID, o.Price)
}

func proofCaption(userID int64, kind domain.DiscountKind) string {
	return fmt.Sprintf("%s **від користувача %d**", kindLabels[kind], userID)
}

func appendDecision(caption string, approved bool, reason string) string {
	if approved {
		return caption + "\n\n✅ **Підтверджено**"
	}
	return caption + "\n\n❌ **Відхилено.** Причина: " + reason
}

func cardInstructions(price int, card string) string {
	return fmt.Sprintf("💳 **Оплата на карту**\n\n"+
		"💰 **Сума до оплати:** %d грн\n"+
		"💳 **Реквізити для оплати:**\n```\n%s\n```\n\n"+
		"Після оплати натисніть кнопку 'Оплачено' і надішліть скріншот квитанції.", price, card)
}

const (
	txtOrderAccepted   = "✅ Ваше замовлення прийнято та буде оброблено найближчим часом. Дякуємо!"
	txtReceiptReceived = "✅ Дякуємо за оплату! Ваш платіж зараз проходить перевірку. Після підтвердження Ви отримаєте сповіщення про статус обробки замовлення в боті."
	txtProofReceived   = "✅ Дякуємо! Ваше зображення відправлено на перевірку."
	txtSupportReceived = "✅ Ваше питання надіслано. Ми відповімо найближчим часом."
	txtThanks          = "Дякуємо, що обрали наш магазин! Будемо раді бачити Вас знову 💙💛"
)

func txtPaymentApproved(id uint) string {
	return fmt.Sprintf("✅ Оплату замовлення #%d підтверджено. Ми почали його обробку.", id)
}

func txtPaymentRejected(id uint, reason string) string {
	return fmt.Sprintf("❌ Оплату замовлення #%d відхилено.\nПричина: %s", id, reason)
}

func txtReady(id uint) string {
	return fmt.Sprintf("📦 Ваше замовлення #%d готове до відправки!", id)
}

func txtShipped(id uint, tracking string) string {
	return fmt.Sprintf("🚚 Ваше замовлення #%d відправлено!\nНомер ТТН: `%s`", id, tracking)
}

func txtDelivered(id uint) string {
	return fmt.Sprintf("🎉 Ваше замовлення #%d отримано!\n%s", id, txtThanks)
}

func txtCancelled(id uint, reason string) string {
	s := fmt.Sprintf("❌ Ваше замовлення #%d скасовано.", id)
	if reason != "" {
		s += "\nПричина: " + reason
	}
	return s
}

func txtAdminDelivered(o domain.Order) string {
	return fmt.Sprintf("✅ Замовлення #%d (ТТН %s) доставлено клієнту %d.", o.ID, o.TrackingNumber, o.UserID)
}

func txtDiscountApproved(kind domain.DiscountKind) string {
	return fmt.Sprintf("✅ Вашу знижку (%s) підтверджено! Вона буде застосована до наступного замовлення.", kindLabels[kind])
}

func txtDiscountRejected(kind domain.DiscountKind, reason string) string {
	return fmt.Sprintf("❌ Вашу знижку (%s) відхилено.\nПричина: %s", kindLabels[kind], reason)
}

func supportCaption(is domain.SupportIssue, username string) string {
	who := fmt.Sprintf("%d", is.UserID)
	if username != "" {
		who = "@" + username
	}
	return fmt.Sprintf("🆘 **Звернення #%d** від %s:\n\n%s", is.ID, who, is.Text)
}

func txtSupportReply(text string) string {
	return "💬 **Відповідь підтримки:**\n\n" + text + "\n\nЧи вирішено Ваше питання?"
}
