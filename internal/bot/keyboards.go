package bot

import (
	"fmt"

	"github.com/tbourn/merch-order-bot/internal/command"
	"github.com/tbourn/merch-order-bot/internal/domain"
	"github.com/tbourn/merch-order-bot/internal/messenger"
	"github.com/tbourn/merch-order-bot/internal/services"
)

// Reply-keyboard labels. Incoming text equal to one of these is a menu
// choice rather than free input.
const (
	btnConstructor = "⚙️ Конструктор замовлення ⚙️"
	btnFromEmpty   = "🛠️ Оформити замовлення в конструкторі"
	btnMyOrders    = "📦 Мої замовлення"
	btnPromotions  = "🔥 Мої акції та знижки"
	btnInfo        = "💬 Інформація та підтримка"
	btnContact     = "📞 Зв'язатися з підтримкою"
	btnBrand       = "ℹ️ Інформація про бренд"
	btnHome        = "🔙 На головну"
	btnTShirts     = "👕 Футболки"
	btnHoodies     = "🥷🏼 Худі"
	btnShowUBD     = "📷 Показати УБД"
	btnShowRepost  = "🔗 Показати скрін репосту"
	btnAdminOrders = "📋 Замовлення"
	btnInProgress  = "📂 Замовлення в обробці"
	btnCompleted   = "📂 Виконані замовлення"
)

func mainMenu(admin bool) messenger.Keyboard {
	rows := [][]string{{btnConstructor}}
	if admin {
		rows = append(rows, []string{btnAdminOrders})
	}
	rows = append(rows, []string{btnMyOrders, btnPromotions}, []string{btnInfo})
	return messenger.Menu(rows...)
}

func adminOrdersMenu() messenger.Keyboard {
	return messenger.Menu([]string{btnInProgress}, []string{btnCompleted}, []string{btnHome})
}

func categoryMenu() messenger.Keyboard {
	return messenger.Menu([]string{btnTShirts, btnHoodies}, []string{btnHome})
}

func homeMenu() messenger.Keyboard { return messenger.Menu([]string{btnHome}) }

func noOrdersMenu() messenger.Keyboard {
	return messenger.Menu([]string{btnFromEmpty}, []string{btnHome})
}

func infoMenu() messenger.Keyboard {
	return messenger.Menu([]string{btnContact}, []string{btnBrand}, []string{btnHome})
}

func promotionsMenu(d domain.Discount) messenger.Keyboard {
	var rows [][]string
	if !d.UBD {
		rows = append(rows, []string{btnShowUBD})
	}
	if !d.Repost && !d.RepostEverUsed {
		rows = append(rows, []string{btnShowRepost})
	}
	rows = append(rows, []string{btnHome})
	return messenger.Menu(rows...)
}

func sizeKeyboard() messenger.Keyboard {
	size := func(s string) messenger.Button { return messenger.Data(s, command.SelectSize{Size: s}.String()) }
	return messenger.Inline(
		messenger.Row(size("S"), size("M"), size("L")),
		messenger.Row(size("XL"), size("XXL")),
		messenger.Row(messenger.Data("📏 Розмірна сітка", command.SelectSize{Chart: true}.String())),
	)
}

func optionsKeyboard(c domain.Category, f domain.OptionFlags) messenger.Keyboard {
	var rows [][]messenger.Button
	for _, o := range domain.OptionsFor(c) {
		mark := "❌ "
		if f.Get(o) {
			mark = "✅ "
		}
		rows = append(rows, messenger.Row(messenger.Data(mark+services.OptionLabel(o), command.ToggleOption{Option: o}.String())))
	}
	rows = append(rows, messenger.Row(messenger.Data("➡️ Далі", command.ToggleOption{Next: true}.String())))
	return messenger.Inline(rows...)
}

func productKeyboard(index, total, color, colors int) messenger.Keyboard {
	noop := command.Info{Topic: command.InfoNoop}.String()
	rows := [][]messenger.Button{messenger.Row(
		messenger.Data("⬅️ Назад", command.Browse{Step: -1}.String()),
		messenger.Data(fmt.Sprintf("Модель %d з %d", index+1, total), noop),
		messenger.Data("Вперед ➡️", command.Browse{Step: 1}.String()),
	)}
	if colors > 1 {
		rows = append(rows, messenger.Row(
			messenger.Data("⬅️ Колір", command.Browse{Color: true, Step: -1}.String()),
			messenger.Data(fmt.Sprintf("Колір %d з %d", color+1, colors), noop),
			messenger.Data("Колір ➡️", command.Browse{Color: true, Step: 1}.String()),
		))
	}
	rows = append(rows, messenger.Row(messenger.Data("✅ Вибрати", command.SelectProduct{}.String())))
	return messenger.Inline(rows...)
}

func paymentKeyboard() messenger.Keyboard {
	return messenger.Inline(
		messenger.Row(
			messenger.Data("💰 Плата на пошті", command.ChoosePayment{Method: domain.PaymentCash}.String()),
			messenger.Data("💳 Оплата на карту", command.ChoosePayment{Method: domain.PaymentCard}.String()),
		),
		messenger.Row(messenger.Data("❓ Як відбувається доставка?", command.Info{Topic: command.InfoDelivery}.String())),
	)
}

func detailsButton(orderID uint) messenger.Keyboard {
	return messenger.Inline(messenger.Row(
		messenger.Data("📄 Деталі замовлення", command.OrderAction{Verb: command.VerbDetails, OrderID: orderID}.String()),
	))
}

func senderCityKeyboard() messenger.Keyboard {
	var row []messenger.Button
	for _, k := range services.SenderCityKeys() {
		row = append(row, messenger.Data(services.SenderCities[k], command.SenderCity{City: k}.String()))
	}
	return messenger.Inline(row)
}

func payerKeyboard() messenger.Keyboard {
	return messenger.Inline(
		messenger.Row(messenger.Data("💰 Накладений платіж (платить отримувач)", command.PayerChoice{CashOnDelivery: true}.String())),
		messenger.Row(messenger.Data("📤 Платить відправник", command.PayerChoice{}.String())),
	)
}

func shipmentConfirmKeyboard() messenger.Keyboard {
	return messenger.Inline(messenger.Row(
		messenger.Data("✅ Створити ТТН", command.ShipmentConfirm{Confirm: true}.String()),
		messenger.Data("✏️ Ввести відділення знову", command.ShipmentConfirm{}.String()),
	))
}
