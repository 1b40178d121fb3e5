// Package handlers is the conversational front end: commands, multi-step
// input flows and inline button callbacks. It parses and validates user input
// and hands the core packages only resolved values.
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/bot/session"
	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/delivery"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/movies"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"github.com/smith3v/tg-couple-bot/pkg/ui"
)

const couplesOnlyText = "This command is only available to couples. Use /code to invite your partner."

// MovieFinder looks up a random movie for the roulette.
type MovieFinder interface {
	RandomByGenre(ctx context.Context, genre string) (movies.Movie, error)
}

type Handlers struct {
	Sessions *session.Manager
	Movies   MovieFinder
	// Sender delivers notifications to the partner of the acting user.
	Sender delivery.Sender
	Now    func() time.Time
}

func New(sessions *session.Manager, finder MovieFinder, sender delivery.Sender) *Handlers {
	if sessions == nil {
		sessions = session.NewManager(timeutil.Now, session.DefaultTimeout)
	}
	return &Handlers{
		Sessions: sessions,
		Movies:   finder,
		Sender:   sender,
		Now:      timeutil.Now,
	}
}

// Commands is the command menu published to Telegram.
var Commands = []models.BotCommand{
	{Command: "start", Description: "Restart the bot"},
	{Command: "help", Description: "List all commands"},
	{Command: "code", Description: "Get your invite code"},
	{Command: "unlink", Description: "Unlink from your partner"},
	{Command: "compliment", Description: "Send a compliment"},
	{Command: "addevent", Description: "Add a calendar event"},
	{Command: "events", Description: "Show your plans"},
	{Command: "delevent", Description: "Delete an event"},
	{Command: "settings", Description: "Reminder and question settings"},
	{Command: "addwish", Description: "Add a wish to your wishlist"},
	{Command: "wishlist", Description: "Show wishlists"},
	{Command: "delwish", Description: "Delete a wish"},
	{Command: "addquestion", Description: "Add a question to the bank"},
	{Command: "answers", Description: "Browse past answers"},
	{Command: "addmemory", Description: "Save a memory"},
	{Command: "memory", Description: "Show a random memory"},
	{Command: "allmemories", Description: "Browse all memories"},
	{Command: "movie", Description: "Movie roulette"},
	{Command: "addmovie", Description: "Add a movie to the watchlist"},
	{Command: "watchlist", Description: "Show the watchlist"},
	{Command: "delmovie", Description: "Delete a movie from the watchlist"},
	{Command: "add_date_idea", Description: "Add a date idea"},
	{Command: "date_ideas", Description: "Show date ideas"},
	{Command: "del_date_idea", Description: "Delete a date idea"},
	{Command: "cancel", Description: "Cancel the current action"},
}

// Register wires every command and callback namespace on b.
func (h *Handlers) Register(b *bot.Bot) {
	commands := map[string]bot.HandlerFunc{
		"/start":         h.HandleStart,
		"/help":          h.HandleHelp,
		"/code":          h.HandleCode,
		"/unlink":        h.HandleUnlink,
		"/cancel":        h.HandleCancel,
		"/settings":      h.HandleSettings,
		"/compliment":    h.HandleCompliment,
		"/addevent":      h.HandleAddEvent,
		"/events":        h.HandleEvents,
		"/delevent":      h.HandleDeleteEvent,
		"/addwish":       h.HandleAddWish,
		"/wishlist":      h.HandleWishlist,
		"/delwish":       h.HandleDeleteWish,
		"/addquestion":   h.HandleAddQuestion,
		"/answers":       h.HandleAnswers,
		"/addmemory":     h.HandleAddMemory,
		"/memory":        h.HandleMemory,
		"/allmemories":   h.HandleAllMemories,
		"/movie":         h.HandleMovie,
		"/addmovie":      h.HandleAddMovie,
		"/watchlist":     h.HandleWatchlist,
		"/delmovie":      h.HandleDeleteMovie,
		"/add_date_idea": h.HandleAddIdea,
		"/date_ideas":    h.HandleIdeas,
		"/del_date_idea": h.HandleDeleteIdea,
	}
	for pattern, handler := range commands {
		b.RegisterHandler(bot.HandlerTypeMessageText, pattern, bot.MatchTypeExact, handler)
	}

	callbacks := map[ui.Namespace]bot.HandlerFunc{
		ui.NSSettings:   h.HandleSettingsCallback,
		ui.NSEvents:     h.HandleEventsCallback,
		ui.NSWishes:     h.HandleWishesCallback,
		ui.NSQuestion:   h.HandleQuestionCallback,
		ui.NSMemory:     h.HandleMemoryCallback,
		ui.NSMovies:     h.HandleMoviesCallback,
		ui.NSIdeas:      h.HandleIdeasCallback,
		ui.NSUnlink:     h.HandleUnlinkCallback,
		ui.NSCompliment: h.HandleComplimentCallback,
	}
	for ns, handler := range callbacks {
		b.RegisterHandler(bot.HandlerTypeCallbackQueryData, string(ns)+":", bot.MatchTypePrefix, handler)
	}
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, ui.Noop, bot.MatchTypeExact, h.HandleNoop)
}

// incoming is the validated part of a message update.
type incoming struct {
	userID   int64
	chatID   int64
	username string
	msg      *models.Message
}

func parseMessage(update *models.Update, where string) (incoming, bool) {
	if update == nil || update.Message == nil || update.Message.From == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in " + where)
		return incoming{}, false
	}
	return incoming{
		userID:   update.Message.From.ID,
		chatID:   update.Message.Chat.ID,
		username: displayName(update.Message.From),
		msg:      update.Message,
	}, true
}

func displayName(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// press is the validated part of a callback update.
type press struct {
	id       string
	userID   int64
	username string
	chatID   int64
	msgID    int
	data     ui.Callback
}

func (h *Handlers) parsePress(ctx context.Context, b *bot.Bot, update *models.Update, where string) (press, bool) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in " + where)
		return press{}, false
	}
	q := update.CallbackQuery
	data, err := ui.ParseCallbackData(q.Data)
	if err != nil {
		logger.Error("failed to parse callback", "data", q.Data, "error", err)
		answerCallback(ctx, b, q.ID, "Unknown command", false)
		return press{}, false
	}
	message := q.Message
	if message.Type != models.MaybeInaccessibleMessageTypeMessage || message.Message == nil || message.Message.Chat.ID == 0 {
		logger.Error("callback query message is inaccessible", "user_id", q.From.ID)
		answerCallback(ctx, b, q.ID, "Message is not available", false)
		return press{}, false
	}
	return press{
		id:       q.ID,
		userID:   q.From.ID,
		username: displayName(&q.From),
		chatID:   message.Message.Chat.ID,
		msgID:    message.Message.ID,
		data:     data,
	}, true
}

func (h *Handlers) now() time.Time {
	if h.Now == nil {
		return timeutil.Now()
	}
	return timeutil.In(h.Now())
}

func markup(keyboard *models.InlineKeyboardMarkup) models.ReplyMarkup {
	if keyboard == nil {
		return nil
	}
	return keyboard
}

func reply(ctx context.Context, b *bot.Bot, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
		ReplyMarkup:        markup(keyboard),
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		logger.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}

func edit(ctx context.Context, b *bot.Bot, p press, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.EditMessageTextParams{
		ChatID:             p.chatID,
		MessageID:          p.msgID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
		ReplyMarkup:        markup(keyboard),
	}
	if _, err := b.EditMessageText(ctx, params); err != nil {
		logger.Error("failed to edit message", "chat_id", p.chatID, "message_id", p.msgID, "error", err)
	}
}

func editKeyboard(ctx context.Context, b *bot.Bot, p press, keyboard *models.InlineKeyboardMarkup) {
	if _, err := b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      p.chatID,
		MessageID:   p.msgID,
		ReplyMarkup: markup(keyboard),
	}); err != nil {
		logger.Error("failed to edit keyboard", "chat_id", p.chatID, "message_id", p.msgID, "error", err)
	}
}

func answerCallback(ctx context.Context, b *bot.Bot, id, text string, alert bool) {
	if id == "" {
		return
	}
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: id,
		Text:            text,
		ShowAlert:       alert,
	}); err != nil {
		logger.Error("failed to answer callback query", "error", err)
	}
}

// coupleOf resolves the user's couple and tells them when they have none.
func coupleOf(ctx context.Context, b *bot.Bot, chatID, userID int64) (couples.Couple, bool) {
	couple, err := couples.CoupleFor(userID)
	if err == nil {
		return couple, true
	}
	if errors.Is(err, couples.ErrNotPaired) || errors.Is(err, couples.ErrUserNotFound) {
		reply(ctx, b, chatID, couplesOnlyText, nil)
		return couples.Couple{}, false
	}
	logger.Error("failed to resolve couple", "user_id", userID, "error", err)
	reply(ctx, b, chatID, "Something went wrong. Please try again later.", nil)
	return couples.Couple{}, false
}

// partnerOf returns the other member of couple.
func partnerOf(couple couples.Couple, userID int64) int64 {
	if couple.User1ID == userID {
		return couple.User2ID
	}
	return couple.User1ID
}

// notify tells userID's partner about something. Failures are logged only.
func (h *Handlers) notify(ctx context.Context, chatID int64, text string) {
	if h.Sender == nil {
		return
	}
	err := h.Sender.Send(ctx, delivery.Message{ChatID: chatID, Text: text, ParseMode: models.ParseModeHTML})
	if err != nil {
		logger.Warn("failed to notify partner", "chat_id", chatID, "error", err)
	}
}
