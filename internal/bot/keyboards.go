package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const buttonsPerRow = 2

func mainMenuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Balance", "balance"),
			tgbotapi.NewInlineKeyboardButtonData("📈 Profit", "profit"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Deposit", "deposit"),
			tgbotapi.NewInlineKeyboardButtonData("➖ Withdraw", "withdraw"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📜 History", "history"),
			tgbotapi.NewInlineKeyboardButtonData("❓ FAQ", "faq"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤝 Copy Trading", "copy_trading"),
			tgbotapi.NewInlineKeyboardButtonData("🎁 Referral", "referral"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🆘 Support", "support"),
		),
	)
	return &kb
}

func backKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(backRow())
	return &kb
}

func cancelKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", "main_menu")),
	)
	return &kb
}

func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Main menu", "main_menu"))
}

func currencyKeyboard(prefix string, currencies []string) *tgbotapi.InlineKeyboardMarkup {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(currencies))
	for _, cur := range currencies {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(cur, prefix+cur))
	}
	rows := chunk(buttons)
	rows = append(rows, backRow())
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

type bankLink struct {
	Bank string
	URL  string
}

func bankKeyboard(links []bankLink) *tgbotapi.InlineKeyboardMarkup {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(links))
	for _, l := range links {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL("🏦 "+l.Bank, l.URL))
	}
	rows := chunk(buttons)
	rows = append(rows, backRow())
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func confirmKeyboard(link string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("✅ Confirm withdrawal", link)),
		backRow(),
	)
	return &kb
}

func faqKeyboard(categories []string) *tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(categories)+1)
	for _, category := range categories {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(category, "faq_"+category)))
	}
	rows = append(rows, backRow())
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func faqBackKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ FAQ", "faq")),
		backRow(),
	)
	return &kb
}

func supportKeyboard(username string) *tgbotapi.InlineKeyboardMarkup {
	if username == "" {
		return backKeyboard()
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("💬 Contact support", "https://t.me/"+username)),
		backRow(),
	)
	return &kb
}

func chunk(buttons []tgbotapi.InlineKeyboardButton) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	for len(buttons) > 0 {
		n := buttonsPerRow
		if len(buttons) < n {
			n = len(buttons)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons[:n]...))
		buttons = buttons[n:]
	}
	return rows
}
