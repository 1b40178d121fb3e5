// Package lists holds the couple's small shared lists: wishes, movies to
// watch, memories and date ideas.
package lists

import (
	"errors"
	"strings"
)

var (
	ErrNotFound   = errors.New("item not found")
	ErrEmptyText  = errors.New("text is required")
	ErrOwnWish    = errors.New("cannot book your own wish")
	ErrNotBooked  = errors.New("wish is not booked by you")
	ErrBooked     = errors.New("wish is already booked")
	ErrNoMemories = errors.New("no memories yet")
)

func clean(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}
