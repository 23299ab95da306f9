package bot

import (
	"fmt"
	"strings"

	"github.com/tbourn/merch-order-bot/internal/carrier"
	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/services"
)

// Conversation replies sent by the handlers. Service-side notifications
// (status changes, decisions) are rendered in package services.
const (
	txtWelcome        = "👋 Вітаємо в нашому магазині! Оберіть опцію:"
	txtWelcomeAdmin   = "👋 Вітаємо, Адміністратор!"
	txtHome           = "🔙 Повертаємось до головного меню."
	txtChooseCategory = "🛠️ Оберіть категорію:"
	txtChooseSize     = "📏 Оберіть розмір:"
	txtSizeChart      = "📏 Розмірна сітка скоро буде доступна."
	txtChooseOptions  = "⚙️ Оберіть опції принта:"
	txtNoProducts     = "❌ Файла з товарами не знайдено."
	txtAskCity        = "🏙️ Введіть ваше місто:"
	txtAskBranch      = "🏢 Введіть номер відділення Нової Пошти:"
	txtAskName        = "🧑 Введіть ваше ПІБ:"
	txtAskPhone       = "📞 Введіть ваш номер телефону:"
	txtBadPhone       = "❌ Будь ласка, введіть коректний номер телефону."
	txtEmptyInput     = "❌ Поле не може бути порожнім. Спробуйте ще раз."
	txtAskReceipt     = "📸 Будь ласка, надішліть скріншот квитанції про оплату."
	txtNoPending      = "❌ Немає замовлень, що очікують оплати."
	txtDraftExpired   = "⌛ Сесія замовлення завершилась. Почніть спочатку в конструкторі."
	txtProductGone    = "❌ Цей товар більше недоступний. Оберіть інший у конструкторі."
	txtNoOrders       = "🛒 У вас немає замовлень."
	txtAskUBD         = "📷 Будь ласка, надішліть фото вашого УБД."
	txtAskRepost      = "📸 Будь ласка, надішліть скріншот репосту з Instagram."
	txtNeedPhoto      = "📷 Будь ласка, надішліть саме фото."
	txtRepostUsed     = "❗️ Знижку за репост вже було використано."
	txtDiscountActive = "✅ Ця знижка вже активована."
	txtChooseOption   = "Оберіть опцію:"
	txtAskIssue       = "Будь ласка, опишіть вашу проблему або питання."
	txtIssueTooShort  = "❌ Будь ласка, опишіть вашу проблему більш детально."
	txtResolved       = "😊 Дякуємо за звернення! Якщо у вас будуть ще питання, звертайтеся."
	txtBrand          = "Наш бренд займається виготовленням якісного одягу з унікальними принтами. Ми цінуємо кожного клієнта та намагаємось зробити наш сервіс максимально зручним для вас."
	txtHowDelivery    = "🚚 Ми відправляємо замовлення Новою Поштою. Після відправлення ви отримаєте номер ТТН у цьому чаті, а статус доставки оновлюється автоматично."
	txtUnknownInput   = "🤔 Не зрозумів. Скористайтеся меню нижче."

	txtAdminOrders    = "📋 Оберіть розділ:"
	txtNoInProgress   = "Немає замовлень в обробці."
	txtNoCompleted    = "Немає виконаних замовлень."
	txtAskPayReason   = "❌ Введіть причину відхилення оплати:"
	txtAskDiscReason  = "❌ Введіть причину відхилення знижки:"
	txtEmptyReason    = "❌ Причина відхилення не може бути порожньою. Будь ласка, введіть причину."
	txtReasonSaved    = "✅ Причина відхилення збережена та користувачу надіслано повідомлення."
	txtAskReply       = "✏️ Введіть вашу відповідь користувачу:"
	txtEmptyReply     = "❌ Відповідь не може бути порожньою."
	txtIssueMissing   = "❌ Не вдалося знайти звернення користувача."
	txtReplySent      = "✅ Відповідь надіслано користувачу."
	txtAskTracking    = "📦 Введіть номер ТТН для замовлення:"
	txtBadTracking    = "❌ Номер ТТН має містити від 10 до 20 цифр. Спробуйте ще раз."
	txtChooseSender   = "Оберіть місто відправлення:"
	txtChoosePayer    = "Хто оплачує доставку?"
	txtAskSenderBr    = "Введіть номер відділення, з якого ви відправляєте (наприклад, 52)."
	txtWizardExpired  = "⌛ Дані для ТТН втрачено. Почніть створення ТТН заново."
	txtStatusUpdated  = "Статус замовлення оновлено."
	txtAlready        = "Статус вже встановлено."
	txtNotAllowed     = "Дія недоступна для поточного статусу."
	txtOrderNotFound  = "Замовлення не знайдено."
	txtUnknownAction  = "Невідома дія."
	txtApproved       = "Схвалено"
	txtPaymentOK      = "Оплату підтверджено"
	txtCarrierRefused = "❌ Нова Пошта відхилила запит:\n%s\n\nВведіть номер ТТН вручну:"
	txtCarrierDown    = "⚠️ Нова Пошта зараз недоступна, ТТН не створено.\n\nВведіть номер ТТН вручну:"
	txtCarrierFailed  = "ТТН не створено"
)

func txtOrderSummary(d domain.Draft, colors int, discount string) string {
	return fmt.Sprintf("📝 **Ваше замовлення:**\n"+
		"🔹 **Товар:** %s\n📏 **Розмір:** %s\n🎨 **Колір:** %d з %d\n"+
		"💸 **Сума до оплати:** %d грн\n%s\n\n**Вибрані опції:**\n%s",
		d.ProductName, d.Size, d.ColorIndex+1, colors, d.Price, discount,
		services.OptionsText(d.Category, d.Options))
}

func txtProductCard(name string, price int, discount string) string {
	return fmt.Sprintf("👕 **%s**\n💸 **Ціна:** %d грн\n%s", name, price, discount)
}

func txtMyOrder(o domain.Order) string {
	return fmt.Sprintf("📦 **Замовлення #%d**\n%s", o.ID, services.OrderText(o))
}

func txtDetails(o domain.Order, track carrier.TrackingStatus) string {
	s := txtMyOrder(o)
	if o.TrackingNumber == "" {
		return s
	}
	if !track.Available {
		return s + "\n📍 **Статус доставки:** недоступний"
	}
	return s + "\n📍 **Статус доставки:** " + track.Text
}

func txtPromotions(d domain.Discount) string {
	var active []string
	if d.UBD {
		active = append(active, "🎖️ УБД")
	}
	if d.Repost {
		active = append(active, "🔄 Репост")
	}
	list := "немає"
	if len(active) > 0 {
		list = strings.Join(active, ", ")
	}
	s := "🎁 **Спеціальна пропозиція!**\n\n" +
		"Отримайте знижку **10%** для військовослужбовців та додаткові **10%** при репості нашого посту в Instagram!\n\n" +
		"🔹 **Активовані знижки:** " + list
	if d.RepostEverUsed {
		s += "\n" + txtRepostUsed
	}
	return s
}

func txtCompleted(o domain.Order) string {
	return fmt.Sprintf("#%d · %s · %d грн · %s", o.ID, o.ProductRef, o.Price, o.Status.Label())
}
