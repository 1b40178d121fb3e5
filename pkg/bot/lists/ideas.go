package lists

import (
	"fmt"

	"github.com/smith3v/tg-couple-bot/pkg/db"
	"gorm.io/gorm"
)

// AddIdea stores a date idea. A repeat for the same couple yields
// db.ErrDuplicate.
func AddIdea(coupleID int64, text string) (db.DateIdea, error) {
	text, err := clean(text)
	if err != nil {
		return db.DateIdea{}, err
	}
	idea := db.DateIdea{CoupleID: coupleID, Text: text}
	if err := db.DB.Create(&idea).Error; err != nil {
		if db.IsDuplicate(err) {
			return db.DateIdea{}, db.ErrDuplicate
		}
		return db.DateIdea{}, fmt.Errorf("add idea for couple %d: %w", coupleID, err)
	}
	return idea, nil
}

// Ideas lists open ideas before completed ones.
func Ideas(coupleID int64) ([]db.DateIdea, error) {
	var ideas []db.DateIdea
	err := db.DB.Where("couple_id = ?", coupleID).Order("completed, id").Find(&ideas).Error
	if err != nil {
		return nil, fmt.Errorf("load ideas for couple %d: %w", coupleID, err)
	}
	return ideas, nil
}

func ToggleIdea(coupleID int64, id uint) error {
	res := db.DB.Model(&db.DateIdea{}).
		Where("id = ? AND couple_id = ?", id, coupleID).
		Update("completed", gorm.Expr("NOT completed"))
	if res.Error != nil {
		return fmt.Errorf("toggle idea %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func DeleteIdea(coupleID int64, id uint) error {
	res := db.DB.Where("id = ? AND couple_id = ?", id, coupleID).Delete(&db.DateIdea{})
	if res.Error != nil {
		return fmt.Errorf("delete idea %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
