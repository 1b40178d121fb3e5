package couples

import (
	"fmt"

	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"gorm.io/gorm/clause"
)

// SettingsPatch lists the settings a user may change. Nil fields are left
// untouched.
type SettingsPatch struct {
	RemindersEnabled *bool
	ReminderTime     *string
	QotdEnabled      *bool
	QotdSendTime     *string
	QotdSummaryTime  *string
}

func (p SettingsPatch) IsEmpty() bool {
	return p.RemindersEnabled == nil && p.ReminderTime == nil &&
		p.QotdEnabled == nil && p.QotdSendTime == nil && p.QotdSummaryTime == nil
}

// columns validates the patch and maps it to column updates.
func (p SettingsPatch) columns() (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	if p.RemindersEnabled != nil {
		updates["reminders_enabled"] = *p.RemindersEnabled
	}
	if p.QotdEnabled != nil {
		updates["qotd_enabled"] = *p.QotdEnabled
	}
	clocks := []struct {
		column string
		value  *string
	}{
		{"reminder_time", p.ReminderTime},
		{"qotd_send_time", p.QotdSendTime},
		{"qotd_summary_time", p.QotdSummaryTime},
	}
	for _, c := range clocks {
		if c.value == nil {
			continue
		}
		normalized, err := timeutil.NormalizeClock(*c.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.column, err)
		}
		updates[c.column] = normalized
	}
	return updates, nil
}

func defaultSettings(coupleID int64) *db.CoupleSettings {
	return &db.CoupleSettings{
		CoupleID:        coupleID,
		ReminderTime:    DefaultReminderTime,
		QotdSendTime:    DefaultQotdSendTime,
		QotdSummaryTime: DefaultQotdSummaryTime,
	}
}

// SettingsFor returns the couple's settings, creating the default row first
// when none exists. Concurrent first calls converge on one row.
func SettingsFor(coupleID int64) (db.CoupleSettings, error) {
	err := db.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(defaultSettings(coupleID)).Error
	if err != nil {
		return db.CoupleSettings{}, fmt.Errorf("create settings for %d: %w", coupleID, err)
	}
	var settings db.CoupleSettings
	if err := db.DB.First(&settings, "couple_id = ?", coupleID).Error; err != nil {
		return db.CoupleSettings{}, fmt.Errorf("load settings for %d: %w", coupleID, err)
	}
	return settings, nil
}

// UpdateSettings applies patch and returns the resulting settings.
func UpdateSettings(coupleID int64, patch SettingsPatch) (db.CoupleSettings, error) {
	updates, err := patch.columns()
	if err != nil {
		return db.CoupleSettings{}, err
	}
	if _, err := SettingsFor(coupleID); err != nil {
		return db.CoupleSettings{}, err
	}
	if len(updates) > 0 {
		err := db.DB.Model(&db.CoupleSettings{}).Where("couple_id = ?", coupleID).Updates(updates).Error
		if err != nil {
			return db.CoupleSettings{}, fmt.Errorf("update settings for %d: %w", coupleID, err)
		}
	}
	return SettingsFor(coupleID)
}
