package lists

import (
	"fmt"

	"github.com/smith3v/tg-couple-bot/pkg/db"
)

// AddMovie adds title to the couple's watchlist. A title already on the list
// yields db.ErrDuplicate.
func AddMovie(coupleID int64, title string) (db.WatchlistMovie, error) {
	title, err := clean(title)
	if err != nil {
		return db.WatchlistMovie{}, err
	}
	movie := db.WatchlistMovie{CoupleID: coupleID, Title: title}
	if err := db.DB.Create(&movie).Error; err != nil {
		if db.IsDuplicate(err) {
			return db.WatchlistMovie{}, db.ErrDuplicate
		}
		return db.WatchlistMovie{}, fmt.Errorf("add movie for couple %d: %w", coupleID, err)
	}
	return movie, nil
}

func Watchlist(coupleID int64) ([]db.WatchlistMovie, error) {
	var movies []db.WatchlistMovie
	if err := db.DB.Where("couple_id = ?", coupleID).Order("id").Find(&movies).Error; err != nil {
		return nil, fmt.Errorf("load watchlist for couple %d: %w", coupleID, err)
	}
	return movies, nil
}

func DeleteMovie(coupleID int64, id uint) error {
	res := db.DB.Where("id = ? AND couple_id = ?", id, coupleID).Delete(&db.WatchlistMovie{})
	if res.Error != nil {
		return fmt.Errorf("delete movie %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
