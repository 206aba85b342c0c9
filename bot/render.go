package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"zavit/nav"
)

// Telegram rejects messages longer than this many characters.
const messageLimit = 4096

// sendView sends a view, splitting long text into several messages. The
// keyboard goes with the last chunk so it stays under the reader's thumb.
// Returns the id of the last sent message.
func (b *Bot) sendView(chatID int64, view nav.View) (int, error) {
	chunks := splitMessage(view.Text, messageLimit)
	keyboard := buildKeyboard(view)

	var lastID int
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if view.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}
		if i == len(chunks)-1 && keyboard != nil {
			msg.ReplyMarkup = *keyboard
		}
		sent, err := b.api.Send(msg)
		if err != nil {
			return lastID, err
		}
		lastID = sent.MessageID
	}
	return lastID, nil
}

func buildKeyboard(view nav.View) *tgbotapi.InlineKeyboardMarkup {
	if len(view.ButtonRows) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(view.ButtonRows))
	for _, row := range view.ButtonRows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Payload))
		}
		rows = append(rows, buttons)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// splitMessage cuts text into chunks of at most limit runes, preferring
// blank-line boundaries, then line boundaries, then a hard cut.
func splitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
		length  int
	)
	flush := func() {
		if length > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
			length = 0
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		n := len([]rune(para))
		switch {
		case n > limit:
			// paragraph alone does not fit, fall back to lines
			flush()
			for _, piece := range splitLines(para, limit) {
				chunks = append(chunks, piece)
			}
		case length > 0 && length+n+2 > limit:
			flush()
			fallthrough
		default:
			if length > 0 {
				current.WriteString("\n\n")
				length += 2
			}
			current.WriteString(para)
			length += n
		}
	}
	flush()
	return chunks
}

func splitLines(text string, limit int) []string {
	var (
		chunks  []string
		current strings.Builder
		length  int
	)
	flush := func() {
		if length > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
			length = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		n := len([]rune(line))
		if n > limit {
			flush()
			runes := []rune(line)
			for len(runes) > limit {
				chunks = append(chunks, string(runes[:limit]))
				runes = runes[limit:]
			}
			if len(runes) > 0 {
				current.WriteString(string(runes))
				length = len(runes)
			}
			continue
		}
		if length > 0 && length+n+1 > limit {
			flush()
		}
		if length > 0 {
			current.WriteString("\n")
			length++
		}
		current.WriteString(line)
		length += n
	}
	flush()
	return chunks
}
