// Package bot is the Telegram transport: it turns updates into navigation
// actions, renders views back into messages and owns per-chat sessions.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"zavit/ai"
	"zavit/config"
	"zavit/epub"
	"zavit/nav"
	"zavit/store"
)

const (
	msgHelp = "Команди:\n" +
		"/start - головне меню\n" +
		"/help - ця довідка\n" +
		"/about - про цю книгу\n" +
		"/subscribe - отримувати вірші щотижня\n" +
		"/unsubscribe - відписатися від розсилки\n" +
		"/ai <запитання> - запитати про Новий Завіт"
	msgSubscribed     = "✅ Ви підписані на розсилку віршів."
	msgAlreadySub     = "Ви вже підписані на розсилку."
	msgUnsubscribed   = "Ви відписалися від розсилки."
	msgNotSubscribed  = "Ви не були підписані на розсилку."
	msgAskSomething   = "Напишіть запитання після команди, наприклад:\n/ai Що таке притча?"
	msgAIDisabled     = "Помічник вимкнено."
	msgAIFailed       = "⚠️ Не вдалося отримати відповідь. Спробуйте пізніше."
	msgAILimit        = "Ви досягли ліміту запитів на сьогодні (%d запитів на день). Спробуйте завтра."
	msgUnknownCommand = "Невідома команда. Надішліть /help."
	msgInternal       = "⚠️ Щось пішло не так. Спробуйте /start."
)

type session struct {
	state     nav.State
	lastMsgID int
}

// Bot wires the Telegram API to the navigation router.
type Bot struct {
	api     *tgbotapi.BotAPI
	router  *nav.Router
	book    *epub.Book
	store   *store.Store
	ai      *ai.Client
	aiLimit int // AI requests per chat per day, 0 lifts the limit
	about   string
	log     *zap.Logger

	cover []byte // prepared once at startup, nil when the book has none

	mu       sync.Mutex
	sessions map[int64]*session
}

// New authorizes with Telegram and prepares the bot.
func New(cfg *config.Config, router *nav.Router, book *epub.Book, st *store.Store, assistant *ai.Client, log *zap.Logger) (*Bot, error) {
	if len(cfg.Bot.Token) == 0 {
		return nil, fmt.Errorf("bot token is not configured")
	}

	api, err := tgbotapi.NewBotAPI(string(cfg.Bot.Token))
	if err != nil {
		return nil, fmt.Errorf("unable to authorize bot: %w", err)
	}

	b := &Bot{
		api:      api,
		router:   router,
		book:     book,
		store:    st,
		ai:       assistant,
		about:    strings.TrimSpace(cfg.Bot.AboutText),
		log:      log,
		sessions: make(map[int64]*session),
	}
	if cfg.AI.Enable {
		b.aiLimit = cfg.AI.DailyLimit
	}
	b.cover = prepareCover(book, log)

	log.Info("Bot authorized", zap.String("username", api.Self.UserName))
	return b, nil
}

// Run processes updates until the context is canceled.
func (b *Bot) Run(ctx context.Context, pollTimeout int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Panic while handling update", zap.Any("panic", r))
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.IsCommand():
		b.handleCommand(ctx, upd.Message)
	case upd.Message != nil:
		b.sendText(upd.Message.Chat.ID, msgUnknownCommand)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	b.log.Debug("Command", zap.Int64("chat", chatID), zap.String("command", msg.Command()))

	switch msg.Command() {
	case "start":
		b.sendCover(chatID)
		view, _, err := b.router.Route(b.sessionState(ctx, chatID), nav.Token{Kind: nav.KindHome})
		if err != nil {
			b.log.Error("Unable to build home view", zap.Error(err))
			b.sendText(chatID, msgInternal)
			return
		}
		b.deliver(ctx, chatID, view, b.sessionState(ctx, chatID))
	case "help":
		b.sendText(chatID, msgHelp)
	case "about":
		if len(b.about) == 0 {
			b.sendText(chatID, msgHelp)
			return
		}
		b.sendText(chatID, b.about)
	case "subscribe":
		b.handleSubscribe(ctx, chatID)
	case "unsubscribe":
		b.handleUnsubscribe(ctx, chatID)
	case "ai":
		b.handleAsk(ctx, chatID, msg.CommandArguments())
	default:
		b.sendText(chatID, msgUnknownCommand)
	}
}

func (b *Bot) handleSubscribe(ctx context.Context, chatID int64) {
	added, err := b.store.Subscribe(ctx, chatID)
	if err != nil {
		b.log.Error("Unable to subscribe", zap.Int64("chat", chatID), zap.Error(err))
		b.sendText(chatID, msgInternal)
		return
	}
	if added {
		b.sendText(chatID, msgSubscribed)
	} else {
		b.sendText(chatID, msgAlreadySub)
	}
}

func (b *Bot) handleUnsubscribe(ctx context.Context, chatID int64) {
	removed, err := b.store.Unsubscribe(ctx, chatID)
	if err != nil {
		b.log.Error("Unable to unsubscribe", zap.Int64("chat", chatID), zap.Error(err))
		b.sendText(chatID, msgInternal)
		return
	}
	if removed {
		b.sendText(chatID, msgUnsubscribed)
	} else {
		b.sendText(chatID, msgNotSubscribed)
	}
}

func (b *Bot) handleAsk(ctx context.Context, chatID int64, question string) {
	if len(strings.TrimSpace(question)) == 0 {
		b.sendText(chatID, msgAskSomething)
		return
	}
	if !b.allowAIRequest(ctx, chatID) {
		return
	}

	b.sendChatAction(chatID, tgbotapi.ChatTyping)
	answer, err := b.ai.Ask(ctx, question)
	b.sendAIReply(chatID, answer, err)
}

// handleCommentary answers the commentary button under a verse view: the
// excerpt the reader sees becomes the prompt, the view itself stays on
// screen and the answer arrives as a separate message.
func (b *Bot) handleCommentary(ctx context.Context, chatID int64, tok nav.Token) {
	vc, errView, ok := b.router.CommentaryContext(tok)
	if !ok {
		b.deliver(ctx, chatID, errView, b.sessionState(ctx, chatID))
		return
	}
	if !b.allowAIRequest(ctx, chatID) {
		return
	}

	b.sendChatAction(chatID, tgbotapi.ChatTyping)
	prompt := ai.CommentaryPrompt(vc.BookTitle, vc.ChapterInBook, vc.Verses)
	answer, err := b.ai.Commentary(ctx, ai.CommentaryKey(tok.ChapterIndex, vc.VerseStart, len(vc.Verses)), prompt)
	b.sendAIReply(chatID, answer, err)
}

func (b *Bot) sendAIReply(chatID int64, answer string, err error) {
	switch {
	case err == ai.ErrDisabled:
		b.sendText(chatID, msgAIDisabled)
	case err != nil:
		b.log.Warn("Assistant request failed", zap.Int64("chat", chatID), zap.Error(err))
		b.sendText(chatID, msgAIFailed)
	default:
		b.sendText(chatID, answer)
	}
}

// allowAIRequest enforces the per-chat daily quota and counts the request
// when it passes. A failing counter never blocks the reader.
func (b *Bot) allowAIRequest(ctx context.Context, chatID int64) bool {
	if b.aiLimit <= 0 {
		return true
	}
	day := store.Today()
	n, err := b.store.AIRequestCount(ctx, chatID, day)
	if err != nil {
		b.log.Warn("Unable to check AI request count", zap.Int64("chat", chatID), zap.Error(err))
		return true
	}
	if n >= b.aiLimit {
		b.sendText(chatID, fmt.Sprintf(msgAILimit, b.aiLimit))
		return false
	}
	if err := b.store.RecordAIRequest(ctx, chatID, day); err != nil {
		b.log.Warn("Unable to record AI request", zap.Int64("chat", chatID), zap.Error(err))
	}
	return true
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// stop the client spinner regardless of the outcome
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Debug("Unable to answer callback", zap.Error(err))
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	tok, err := nav.ParseToken(cb.Data)
	if err != nil {
		// stale or foreign keyboard
		b.log.Warn("Unparsable callback payload", zap.Int64("chat", chatID), zap.String("data", cb.Data))
		return
	}

	// commentary talks to the assistant, it never goes through the router
	if tok.Kind == nav.KindCommentary {
		b.handleCommentary(ctx, chatID, tok)
		return
	}

	view, next, err := b.router.Route(b.sessionState(ctx, chatID), tok)
	if err != nil {
		b.log.Error("Routing failed", zap.Int64("chat", chatID), zap.Stringer("action", tok.Kind), zap.Error(err))
		b.sendText(chatID, msgInternal)
		return
	}
	b.deliver(ctx, chatID, view, next)
}

// sessionState returns the chat's navigation state, falling back to the
// stored reading position on first contact after a restart.
func (b *Bot) sessionState(ctx context.Context, chatID int64) nav.State {
	b.mu.Lock()
	s, ok := b.sessions[chatID]
	b.mu.Unlock()
	if ok {
		return s.state
	}

	st := nav.State{}
	if chapter, found, err := b.store.LoadSession(ctx, chatID); err != nil {
		b.log.Warn("Unable to load session", zap.Int64("chat", chatID), zap.Error(err))
	} else if found {
		st = st.WithChapter(chapter)
	}

	b.mu.Lock()
	b.sessions[chatID] = &session{state: st}
	b.mu.Unlock()
	return st
}

// deliver replaces the previous bot message with the rendered view and
// persists the new state.
func (b *Bot) deliver(ctx context.Context, chatID int64, view nav.View, next nav.State) {
	b.mu.Lock()
	s, ok := b.sessions[chatID]
	if !ok {
		s = &session{}
		b.sessions[chatID] = s
	}
	prevMsgID := s.lastMsgID
	s.state = next
	b.mu.Unlock()

	if prevMsgID != 0 {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, prevMsgID)); err != nil {
			b.log.Debug("Unable to delete previous message", zap.Int64("chat", chatID), zap.Error(err))
		}
	}

	lastID, err := b.sendView(chatID, view)
	if err != nil {
		b.log.Error("Unable to deliver view", zap.Int64("chat", chatID), zap.Error(err))
		return
	}

	b.mu.Lock()
	s.lastMsgID = lastID
	b.mu.Unlock()

	if next.HasCurrent {
		if err := b.store.SaveSession(ctx, chatID, next.CurrentChapter); err != nil {
			b.log.Warn("Unable to persist session", zap.Int64("chat", chatID), zap.Error(err))
		}
	}
}

// SendMarkdown delivers one standalone message. Implements the mailing
// sender.
func (b *Bot) SendMarkdown(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Error("Unable to send message", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (b *Bot) sendChatAction(chatID int64, action string) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		b.log.Debug("Unable to send chat action", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (b *Bot) sendCover(chatID int64) {
	if len(b.cover) == 0 {
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "cover.jpg", Bytes: b.cover})
	if _, err := b.api.Send(photo); err != nil {
		b.log.Debug("Unable to send cover", zap.Int64("chat", chatID), zap.Error(err))
	}
}
