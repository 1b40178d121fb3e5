package ui

import (
	"fmt"
	"strconv"

	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-couple-bot/pkg/db"
)

// Movie genres offered by the roulette, in display order.
var Genres = []struct {
	Key   string
	Label string
}{
	{"comedy", "😂 Comedy"},
	{"romance", "💕 Romance"},
	{"scifi", "🚀 Sci-fi"},
	{"thriller", "🔪 Thriller"},
}

const buttonTitleLimit = 32

// PerPage is the number of list rows shown per keyboard page.
const PerPage = 5

// keyboardBuilder keeps the first callback error so callers check once.
type keyboardBuilder struct {
	rows [][]models.InlineKeyboardButton
	err  error
}

func (b *keyboardBuilder) button(text string, ns Namespace, action string, arg ...string) models.InlineKeyboardButton {
	data, err := BuildCallback(ns, action, arg...)
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("button %q: %w", text, err)
	}
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

func (b *keyboardBuilder) idButton(text string, ns Namespace, action string, id uint) models.InlineKeyboardButton {
	return b.button(text, ns, action, strconv.FormatUint(uint64(id), 10))
}

func (b *keyboardBuilder) row(buttons ...models.InlineKeyboardButton) {
	if len(buttons) == 0 {
		return
	}
	b.rows = append(b.rows, buttons)
}

func (b *keyboardBuilder) build() (*models.InlineKeyboardMarkup, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: b.rows}, nil
}

func shorten(s string) string {
	r := []rune(s)
	if len(r) <= buttonTitleLimit {
		return s
	}
	return string(r[:buttonTitleLimit-1]) + "…"
}

func AnswerKeyboard() (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	b.row(b.button("✍️ Answer", NSQuestion, ActAnswer))
	return b.build()
}

func UnlinkKeyboard() (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	b.row(
		b.button("💔 Yes, unlink", NSUnlink, ActConfirm),
		b.button("Cancel", NSUnlink, ActCancel),
	)
	return b.build()
}

// ComplimentTimingKeyboard asks whether to send a compliment now or later.
func ComplimentTimingKeyboard() (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	b.row(
		b.button("📨 Send now", NSCompliment, ActNow),
		b.button("⏰ Later", NSCompliment, ActLater),
	)
	return b.build()
}

// DateShortcutKeyboard offers quick date picks while a date is being typed.
func DateShortcutKeyboard(ns Namespace) (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	b.row(
		b.button("Today", ns, ActDate, "today"),
		b.button("Tomorrow", ns, ActDate, "tomorrow"),
	)
	return b.build()
}

func SkipKeyboard(ns Namespace, action, label string) (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	b.row(b.button(label, ns, action))
	return b.build()
}

func EventPeriodKeyboard() (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	b.row(
		b.button("Today", NSEvents, ActPeriod, "today"),
		b.button("Week", NSEvents, ActPeriod, "week"),
		b.button("Month", NSEvents, ActPeriod, "month"),
	)
	return b.build()
}

// EventDeleteKeyboard lists one delete button per event on the given page.
func EventDeleteKeyboard(events []db.Event, format func(db.Event) string, page int) (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	start, end, page, pages := Paginate(len(events), page)
	for _, event := range events[start:end] {
		b.row(b.idButton("🗑 "+shorten(format(event)), NSEvents, ActDelete, event.ID))
	}
	b.pager(NSEvents, ActPage, page, pages, false)
	return b.build()
}

func WishlistKeyboard() (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	b.row(
		b.button("🎁 My wishes", NSWishes, ActMine),
		b.button("💝 Partner's wishes", NSWishes, ActPartner),
	)
	return b.build()
}

// PartnerWishKeyboard renders book or unbook per wish. Wishes booked by
// someone other than viewer get a display-only button.
func PartnerWishKeyboard(wishes []db.Wish, viewer int64) (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	for _, wish := range wishes {
		title := shorten(wish.Title)
		switch {
		case wish.BookedByID == nil:
			b.row(b.idButton("🔖 Book: "+title, NSWishes, ActBook, wish.ID))
		case *wish.BookedByID == viewer:
			b.row(b.idButton("↩️ Unbook: "+title, NSWishes, ActUnbook, wish.ID))
		default:
			b.row(models.InlineKeyboardButton{Text: "🔒 " + title, CallbackData: Noop})
		}
	}
	return b.build()
}

func OwnWishKeyboard(wishes []db.Wish, page int) (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	start, end, page, pages := Paginate(len(wishes), page)
	for _, wish := range wishes[start:end] {
		b.row(b.idButton("🗑 "+shorten(wish.Title), NSWishes, ActDelete, wish.ID))
	}
	b.pager(NSWishes, ActPage, page, pages, false)
	return b.build()
}

// PagerKeyboard renders previous/next buttons around page out of total.
func PagerKeyboard(ns Namespace, action string, page, total int) (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	b.pager(ns, action, page, total, true)
	return b.build()
}

func (b *keyboardBuilder) pager(ns Namespace, action string, page, total int, position bool) {
	var buttons []models.InlineKeyboardButton
	if page > 0 {
		buttons = append(buttons, b.button("⬅️", ns, action, strconv.Itoa(page-1)))
	}
	if position {
		buttons = append(buttons, models.InlineKeyboardButton{
			Text:         fmt.Sprintf("%d/%d", page+1, total),
			CallbackData: Noop,
		})
	}
	if page+1 < total {
		buttons = append(buttons, b.button("➡️", ns, action, strconv.Itoa(page+1)))
	}
	b.row(buttons...)
}

// Paginate clamps page and returns the slice bounds of that page and the
// page count.
func Paginate(n, page int) (start, end, clamped, pages int) {
	pages = (n + PerPage - 1) / PerPage
	if pages == 0 {
		pages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	start = page * PerPage
	end = min(start+PerPage, n)
	return start, end, page, pages
}

func GenreKeyboard() (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	b.row(
		b.button(Genres[0].Label, NSMovies, ActGenre, Genres[0].Key),
		b.button(Genres[1].Label, NSMovies, ActGenre, Genres[1].Key),
	)
	b.row(
		b.button(Genres[2].Label, NSMovies, ActGenre, Genres[2].Key),
		b.button(Genres[3].Label, NSMovies, ActGenre, Genres[3].Key),
	)
	return b.build()
}

// MovieResultKeyboard follows a roulette pick.
func MovieResultKeyboard() (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	b.row(
		b.button("🎲 Another one", NSMovies, ActAnother),
		b.button("➕ To watchlist", NSMovies, ActAdd),
	)
	b.row(b.button("🍿 Let's watch it", NSMovies, ActWatch))
	return b.build()
}

func WatchlistKeyboard(movies []db.WatchlistMovie, page int) (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	start, end, page, pages := Paginate(len(movies), page)
	for _, movie := range movies[start:end] {
		b.row(b.idButton("🗑 "+shorten(movie.Title), NSMovies, ActDelete, movie.ID))
	}
	b.pager(NSMovies, ActPage, page, pages, false)
	return b.build()
}

// IdeasKeyboard toggles completion on each idea.
func IdeasKeyboard(ideas []db.DateIdea) (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	for _, idea := range ideas {
		mark := "⬜ "
		if idea.Completed {
			mark = "✅ "
		}
		b.row(b.idButton(mark+shorten(idea.Text), NSIdeas, ActToggle, idea.ID))
	}
	return b.build()
}

func IdeasDeleteKeyboard(ideas []db.DateIdea, page int) (*models.InlineKeyboardMarkup, error) {
	var b keyboardBuilder
	start, end, page, pages := Paginate(len(ideas), page)
	for _, idea := range ideas[start:end] {
		b.row(b.idButton("🗑 "+shorten(idea.Text), NSIdeas, ActDelete, idea.ID))
	}
	b.pager(NSIdeas, ActPage, page, pages, false)
	return b.build()
}
