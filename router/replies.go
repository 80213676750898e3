package router

import (
	"fmt"

	"shopbot-svc/models"
)

// DegradedReply is shown whenever the assistant cannot answer.
const DegradedReply = "⚙️ Помощник сейчас перегружен. Попробуй задать вопрос чуть позже, " +
	"а пока можешь посмотреть GAMEBooster через /start."

const (
	greetingReply = "👋 Привет! Я бот GAMEBooster. Помогу разогнать ПК для игр. " +
		"Напиши /start, чтобы посмотреть товар, или спроси про FPS и лаги."

	safetyReply = "🛡 GAMEBooster не содержит вирусов и майнеров: он только меняет настройки Windows " +
		"и драйверов для игр. Античиты его не трогают, аккаунтам ничего не грозит."

	fallbackReply = "🤔 Напиши /start, чтобы увидеть GAMEBooster, или опиши, что тормозит в игре."
)

func welcomeReply(p models.Product) string {
	return fmt.Sprintf("👾 <b>%s</b>\n\n"+
		"🚀 Разгони свой компьютер и получи максимальный FPS!\n"+
		"Цена: <b>%d ⭐ Telegram Stars</b>\n\n"+
		"Нажми кнопку ниже, чтобы купить и сразу получить файл 👇", p.Title, p.Price)
}

func priceReply(p models.Product) string {
	return fmt.Sprintf("💰 %s стоит <b>%d ⭐ Telegram Stars</b>. Оплата прямо в Telegram, "+
		"ссылка на файл приходит сразу после оплаты.", p.Title, p.Price)
}

// BuyMarkup is the inline keyboard with the single buy button.
func BuyMarkup(p models.Product) *models.Markup {
	return &models.Markup{Buttons: []models.Button{{
		Text:   fmt.Sprintf("🛒 Купить за %d ⭐", p.Price),
		Action: models.ActionBuy,
	}}}
}
