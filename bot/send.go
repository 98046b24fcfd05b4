package bot

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/quizbot/render"
)

// sendMessage sends an HTML message, falling back to plain text when
// Telegram rejects the markup.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	b.send(msg, chatID, text)
}

// sendQuestion sends a question with one answer button per row and a
// cancel button for that question at the bottom.
func (b *Bot) sendQuestion(chatID int64, questionNumber int, text string, buttons []render.Button) {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, btn := range buttons {
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data),
		))
	}
	keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", render.CancelData(questionNumber)),
	))

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	b.send(msg, chatID, text)
}

func (b *Bot) send(msg tgbotapi.MessageConfig, chatID int64, text string) {
	if _, err := b.sender.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)

		log.Printf("HTML rendering failed, falling back to plain text")
		plain := tgbotapi.NewMessage(chatID, text)
		plain.ReplyMarkup = msg.ReplyMarkup
		if _, err := b.sender.Send(plain); err != nil {
			log.Printf("Plain text fallback also failed: %v", err)
		}
	}
}

// editMessage replaces the text of an existing message; the inline
// keyboard goes away with it.
func (b *Bot) editMessage(chatID int64, messageID int, newText string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, newText)
	edit.ParseMode = tgbotapi.ModeHTML

	if _, err := b.sender.Send(edit); err != nil {
		log.Printf("Error editing message: %v", err)

		// The original may be too old to edit; say it in a new message instead.
		b.sendMessage(chatID, newText)
	}
}

// sendCallbackResponse sends a response to a callback query
func (b *Bot) sendCallbackResponse(callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.sender.Request(callback); err != nil {
		log.Printf("Error sending callback response: %v", err)
	}
}
