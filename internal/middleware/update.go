package middleware

import "github.com/go-telegram/bot/models"

// updateChat returns the chat and sender of an update, or zeros for update
// kinds the bot does not handle.
func updateChat(update *models.Update) (chatID, userID int64, kind string) {
	switch {
	case update.Message != nil:
		chatID = update.Message.Chat.ID
		if update.Message.From != nil {
			userID = update.Message.From.ID
		}
		return chatID, userID, "message"
	case update.CallbackQuery != nil:
		if msg := update.CallbackQuery.Message.Message; msg != nil {
			chatID = msg.Chat.ID
		}
		return chatID, update.CallbackQuery.From.ID, "callback_query"
	default:
		return 0, 0, "unknown"
	}
}
