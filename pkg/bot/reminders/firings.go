package reminders

import (
	"fmt"

	"github.com/smith3v/tg-couple-bot/pkg/db"
	"gorm.io/gorm/clause"
)

// claim records that kind fired for the couple on day. It returns true only
// for the first caller per couple, kind and day, so a trigger fires at most
// once a day however often the sweep runs.
func claim(coupleID int64, kind, day string) (bool, error) {
	firing := db.TriggerFiring{CoupleID: coupleID, Kind: kind, FiredOn: day}
	res := db.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&firing)
	if res.Error != nil {
		return false, fmt.Errorf("claim %s for couple %d: %w", kind, coupleID, res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	// Day keys are YYYY-MM-DD, so string order is date order.
	res = db.DB.Model(&db.TriggerFiring{}).
		Where("couple_id = ? AND kind = ? AND fired_on < ?", coupleID, kind, day).
		Update("fired_on", day)
	if res.Error != nil {
		return false, fmt.Errorf("claim %s for couple %d: %w", kind, coupleID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// lastFired returns the day kind last fired for the couple, or "".
func lastFired(coupleID int64, kind string) (string, error) {
	var firing db.TriggerFiring
	res := db.DB.Where("couple_id = ? AND kind = ?", coupleID, kind).Limit(1).Find(&firing)
	if res.Error != nil {
		return "", res.Error
	}
	return firing.FiredOn, nil
}
