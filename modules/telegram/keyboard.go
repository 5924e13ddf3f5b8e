package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// checkMembershipCallback is the callback data behind the verify button.
const checkMembershipCallback = "check_membership"

// joinKeyboard builds the join/verify inline keyboard for the gate channel.
func joinKeyboard(channel string) tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Join Channel", channelURL(channel)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("I've Joined — Check", checkMembershipCallback),
		),
	)
	return kb
}

func channelURL(channel string) string {
	return fmt.Sprintf("https://t.me/%s", strings.TrimPrefix(channel, "@"))
}
