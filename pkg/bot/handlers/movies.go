package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/bot/lists"
	"github.com/smith3v/tg-couple-bot/pkg/bot/session"
	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"github.com/smith3v/tg-couple-bot/pkg/movies"
	"github.com/smith3v/tg-couple-bot/pkg/ui"
)

const overviewLimit = 700

func (h *Handlers) HandleMovie(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleMovie")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	if _, ok := coupleOf(ctx, b, in.chatID, in.userID); !ok {
		return
	}
	if h.Movies == nil {
		reply(ctx, b, in.chatID, "Movie roulette is not available right now.", nil)
		return
	}
	h.Sessions.Start(in.userID, in.chatID, session.FlowMovieRoulette, session.StepGenre)
	keyboard, err := ui.GenreKeyboard()
	if err != nil {
		logger.Error("failed to render genre keyboard", "error", err)
	}
	reply(ctx, b, in.chatID, "🎬 What are you in the mood for?", keyboard)
}

func (h *Handlers) HandleAddMovie(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleAddMovie")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	if _, ok := coupleOf(ctx, b, in.chatID, in.userID); !ok {
		return
	}
	h.Sessions.Start(in.userID, in.chatID, session.FlowAddMovie, session.StepTitle)
	reply(ctx, b, in.chatID, "Which movie do you want to add to the watchlist?", nil)
}

func (h *Handlers) addMovieInput(ctx context.Context, b *bot.Bot, in incoming, state session.State) {
	title := strings.TrimSpace(in.msg.Text)
	if title == "" {
		reply(ctx, b, in.chatID, "Please send the movie title as text.", nil)
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	reply(ctx, b, in.chatID, addToWatchlist(couple.ID, title), nil)
}

// addToWatchlist stores title and returns the text to show the user.
func addToWatchlist(coupleID int64, title string) string {
	movie, err := lists.AddMovie(coupleID, title)
	switch {
	case err == nil:
		return fmt.Sprintf("✅ \"%s\" added to your watchlist!", html.EscapeString(movie.Title))
	case errors.Is(err, db.ErrDuplicate):
		return fmt.Sprintf("\"%s\" is already on your watchlist.", html.EscapeString(strings.TrimSpace(title)))
	default:
		logger.Error("failed to add movie", "couple_id", coupleID, "error", err)
		return "Failed to add the movie. Please try again later."
	}
}

func (h *Handlers) HandleWatchlist(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleWatchlist")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	watchlist, err := lists.Watchlist(couple.ID)
	if err != nil {
		logger.Error("failed to load watchlist", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to load the watchlist. Please try again later.", nil)
		return
	}
	if len(watchlist) == 0 {
		reply(ctx, b, in.chatID, "Your watchlist is empty. Add a movie with /addmovie or find one with /movie.", nil)
		return
	}
	var sb strings.Builder
	sb.WriteString("<b>🍿 Your watchlist:</b>\n")
	for i, movie := range watchlist {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, html.EscapeString(movie.Title))
	}
	sb.WriteString("\n\nTo delete a movie, use /delmovie.")
	reply(ctx, b, in.chatID, sb.String(), nil)
}

func (h *Handlers) HandleDeleteMovie(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := parseMessage(update, "HandleDeleteMovie")
	if !ok {
		return
	}
	h.Sessions.Clear(in.userID)
	couple, ok := coupleOf(ctx, b, in.chatID, in.userID)
	if !ok {
		return
	}
	watchlist, err := lists.Watchlist(couple.ID)
	if err != nil {
		logger.Error("failed to load watchlist", "couple_id", couple.ID, "error", err)
		reply(ctx, b, in.chatID, "Failed to load the watchlist. Please try again later.", nil)
		return
	}
	if len(watchlist) == 0 {
		reply(ctx, b, in.chatID, "Your watchlist is empty.", nil)
		return
	}
	keyboard, err := ui.WatchlistKeyboard(watchlist, 0)
	if err != nil {
		logger.Error("failed to render watchlist keyboard", "error", err)
		return
	}
	reply(ctx, b, in.chatID, "Which movie do you want to delete?", keyboard)
}

func (h *Handlers) HandleMoviesCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	p, ok := h.parsePress(ctx, b, update, "HandleMoviesCallback")
	if !ok {
		return
	}
	couple, err := couples.CoupleFor(p.userID)
	if err != nil {
		answerCallback(ctx, b, p.id, couplesOnlyText, true)
		return
	}

	switch p.data.Action {
	case ui.ActGenre:
		answerCallback(ctx, b, p.id, "Looking for something good...", false)
		h.Sessions.Start(p.userID, p.chatID, session.FlowMovieRoulette, session.StepPick)
		h.Sessions.Advance(p.userID, session.StepPick, func(d *session.Draft) { d.Text = p.data.Arg })
		h.spinRoulette(ctx, b, p, p.data.Arg)

	case ui.ActAnother:
		state, ok := h.Sessions.Get(p.userID)
		if !ok || state.Flow != session.FlowMovieRoulette || state.Draft.Text == "" {
			answerCallback(ctx, b, p.id, expiredText, false)
			return
		}
		answerCallback(ctx, b, p.id, "Looking for another one...", false)
		h.spinRoulette(ctx, b, p, state.Draft.Text)

	case ui.ActAdd, ui.ActWatch:
		state, ok := h.Sessions.Get(p.userID)
		if !ok || state.Flow != session.FlowMovieRoulette || state.Draft.Title == "" {
			answerCallback(ctx, b, p.id, expiredText, false)
			return
		}
		answerCallback(ctx, b, p.id, "", false)
		if p.data.Action == ui.ActAdd {
			reply(ctx, b, p.chatID, addToWatchlist(couple.ID, state.Draft.Title), nil)
			return
		}
		h.Sessions.Clear(p.userID)
		title := html.EscapeString(state.Draft.Title)
		reply(ctx, b, p.chatID, fmt.Sprintf("🍿 Enjoy \"%s\"! I'll let your partner know.", title), nil)
		h.notify(ctx, partnerOf(couple, p.userID),
			fmt.Sprintf("🍿 %s suggests watching \"%s\" together tonight!", html.EscapeString(p.username), title))

	case ui.ActPage:
		answerCallback(ctx, b, p.id, "", false)
		watchlist, err := lists.Watchlist(couple.ID)
		if err != nil {
			logger.Error("failed to load watchlist", "couple_id", couple.ID, "error", err)
			return
		}
		keyboard, err := ui.WatchlistKeyboard(watchlist, p.data.Number())
		if err != nil {
			logger.Error("failed to render watchlist keyboard", "error", err)
			return
		}
		editKeyboard(ctx, b, p, keyboard)

	case ui.ActDelete:
		err := lists.DeleteMovie(couple.ID, p.data.ID())
		if errors.Is(err, lists.ErrNotFound) {
			answerCallback(ctx, b, p.id, "Movie not found or already deleted.", true)
			return
		}
		if err != nil {
			logger.Error("failed to delete movie", "couple_id", couple.ID, "error", err)
			answerCallback(ctx, b, p.id, "Failed to delete the movie.", true)
			return
		}
		answerCallback(ctx, b, p.id, "Deleted", false)
		watchlist, err := lists.Watchlist(couple.ID)
		if err != nil {
			logger.Error("failed to load watchlist", "couple_id", couple.ID, "error", err)
			return
		}
		if len(watchlist) == 0 {
			edit(ctx, b, p, "Your watchlist is empty now.", nil)
			return
		}
		keyboard, err := ui.WatchlistKeyboard(watchlist, 0)
		if err != nil {
			logger.Error("failed to render watchlist keyboard", "error", err)
			return
		}
		editKeyboard(ctx, b, p, keyboard)
	}
}

// spinRoulette looks up a random movie of genre and sends it with the result
// buttons. The pick is kept in the session for the follow-up buttons.
func (h *Handlers) spinRoulette(ctx context.Context, b *bot.Bot, p press, genre string) {
	if h.Movies == nil {
		reply(ctx, b, p.chatID, "Movie roulette is not available right now.", nil)
		return
	}
	movie, err := h.Movies.RandomByGenre(ctx, genre)
	if err != nil {
		if errors.Is(err, movies.ErrNotFound) || errors.Is(err, movies.ErrUnknownGenre) {
			reply(ctx, b, p.chatID, "I couldn't find anything this time. Try another genre!", nil)
			return
		}
		logger.Warn("movie lookup failed", "genre", genre, "error", err)
		reply(ctx, b, p.chatID, "The movie service is not responding. Please try again later.", nil)
		return
	}
	h.Sessions.Advance(p.userID, session.StepPick, func(d *session.Draft) { d.Title = movie.Title })

	keyboard, err := ui.MovieResultKeyboard()
	if err != nil {
		logger.Error("failed to render movie keyboard", "error", err)
		return
	}
	text := movieCard(movie)
	if poster := movie.PosterURL(); poster != "" {
		_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      p.chatID,
			Photo:       &models.InputFileString{Data: poster},
			Caption:     text,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: keyboard,
		})
		if err == nil {
			return
		}
		logger.Warn("failed to send poster", "movie_id", movie.ID, "error", err)
	}
	reply(ctx, b, p.chatID, text, keyboard)
}

func movieCard(movie movies.Movie) string {
	overview := movie.Overview
	if runes := []rune(overview); len(runes) > overviewLimit {
		overview = string(runes[:overviewLimit]) + "..."
	}
	if overview == "" {
		overview = "No description."
	}
	return fmt.Sprintf("🎬 <b>%s</b>\n\n%s", html.EscapeString(movie.Title), html.EscapeString(overview))
}
