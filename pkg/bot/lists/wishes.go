package lists

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smith3v/tg-couple-bot/pkg/db"
	"gorm.io/gorm"
)

func AddWish(userID int64, title, link, photoFileID string) (db.Wish, error) {
	title, err := clean(title)
	if err != nil {
		return db.Wish{}, err
	}
	wish := db.Wish{
		UserID:      userID,
		Title:       title,
		Link:        strings.TrimSpace(link),
		PhotoFileID: photoFileID,
	}
	if err := db.DB.Create(&wish).Error; err != nil {
		return db.Wish{}, fmt.Errorf("add wish for %d: %w", userID, err)
	}
	return wish, nil
}

func Wishes(userID int64) ([]db.Wish, error) {
	var wishes []db.Wish
	if err := db.DB.Where("user_id = ?", userID).Order("id").Find(&wishes).Error; err != nil {
		return nil, fmt.Errorf("load wishes for %d: %w", userID, err)
	}
	return wishes, nil
}

func GetWish(id uint) (db.Wish, error) {
	var wish db.Wish
	err := db.DB.First(&wish, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Wish{}, ErrNotFound
	}
	if err != nil {
		return db.Wish{}, fmt.Errorf("load wish %d: %w", id, err)
	}
	return wish, nil
}

// DeleteWish removes a wish owned by userID.
func DeleteWish(userID int64, id uint) error {
	res := db.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&db.Wish{})
	if res.Error != nil {
		return fmt.Errorf("delete wish %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BookWish marks a partner's wish as taken by bookerID. The owner is never
// told who booked it.
func BookWish(id uint, bookerID int64) error {
	wish, err := GetWish(id)
	if err != nil {
		return err
	}
	if wish.UserID == bookerID {
		return ErrOwnWish
	}
	res := db.DB.Model(&db.Wish{}).
		Where("id = ? AND booked_by_id IS NULL", id).
		Update("booked_by_id", bookerID)
	if res.Error != nil {
		return fmt.Errorf("book wish %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrBooked
	}
	return nil
}

// UnbookWish releases a booking held by bookerID.
func UnbookWish(id uint, bookerID int64) error {
	res := db.DB.Model(&db.Wish{}).
		Where("id = ? AND booked_by_id = ?", id, bookerID).
		Update("booked_by_id", nil)
	if res.Error != nil {
		return fmt.Errorf("unbook wish %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotBooked
	}
	return nil
}
