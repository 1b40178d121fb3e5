// Package couples owns partner links, couple identity and per-couple settings.
// Couple identity is computed here and nowhere else.
package couples

import (
	"errors"
	"fmt"
	"time"

	"github.com/smith3v/tg-couple-bot/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrSelfPair      = errors.New("cannot pair with yourself")
	ErrAlreadyPaired = errors.New("user already paired")
	ErrNotPaired     = errors.New("user is not paired")
)

// Defaults applied when a couple's settings row is created.
const (
	DefaultReminderTime    = "09:00"
	DefaultQotdSendTime    = "12:00"
	DefaultQotdSummaryTime = "20:00"
)

// Couple is one pair with its settings. User1ID is the couple id.
type Couple struct {
	ID       int64
	User1ID  int64
	User2ID  int64
	Settings db.CoupleSettings
}

// Members returns both member ids, smaller first.
func (c Couple) Members() [2]int64 {
	return [2]int64{c.User1ID, c.User2ID}
}

// CoupleID is the deterministic couple identity for two partners.
func CoupleID(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// EnsureUser records a user on first contact and keeps the display name fresh.
func EnsureUser(userID int64, username string) (db.User, error) {
	user := db.User{UserID: userID, Username: username}
	err := db.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username"}),
	}).Create(&user).Error
	if err != nil {
		return db.User{}, fmt.Errorf("ensure user %d: %w", userID, err)
	}
	return GetUser(userID)
}

func GetUser(userID int64) (db.User, error) {
	var user db.User
	err := db.DB.First(&user, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.User{}, ErrUserNotFound
	}
	if err != nil {
		return db.User{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	return user, nil
}

// Partner returns the linked partner of userID.
func Partner(userID int64) (db.User, error) {
	user, err := GetUser(userID)
	if err != nil {
		return db.User{}, err
	}
	if user.PartnerID == nil {
		return db.User{}, ErrNotPaired
	}
	return GetUser(*user.PartnerID)
}

// DisplayName is the name shown to the partner.
func DisplayName(user db.User) string {
	if user.Username != "" {
		return user.Username
	}
	return fmt.Sprintf("user %d", user.UserID)
}

// Link pairs inviter and invitee in one transaction and creates the couple's
// default settings.
func Link(inviterID, inviteeID int64, now time.Time) (Couple, error) {
	if inviterID == inviteeID {
		return Couple{}, ErrSelfPair
	}
	coupleID := CoupleID(inviterID, inviteeID)
	pairedAt := now.UTC()
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var users []db.User
		if err := tx.Where("user_id IN ?", []int64{inviterID, inviteeID}).Find(&users).Error; err != nil {
			return err
		}
		if len(users) != 2 {
			return ErrUserNotFound
		}
		for _, u := range users {
			if u.PartnerID != nil {
				return fmt.Errorf("%w: %d", ErrAlreadyPaired, u.UserID)
			}
		}
		if err := setPartner(tx, inviterID, &inviteeID, &pairedAt); err != nil {
			return err
		}
		if err := setPartner(tx, inviteeID, &inviterID, &pairedAt); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(defaultSettings(coupleID)).Error
	})
	if err != nil {
		if db.IsDuplicate(err) {
			return Couple{}, ErrAlreadyPaired
		}
		return Couple{}, err
	}
	settings, err := SettingsFor(coupleID)
	if err != nil {
		return Couple{}, err
	}
	return Couple{
		ID:       coupleID,
		User1ID:  coupleID,
		User2ID:  otherMember(coupleID, inviterID, inviteeID),
		Settings: settings,
	}, nil
}

// Unlink clears the partner reference on both users and returns the former
// partner's id. The couple id outlives the pair when its smaller member
// re-pairs, so the pair's question entries and trigger bookkeeping go too.
func Unlink(userID int64) (int64, error) {
	var partnerID int64
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var user db.User
		if err := tx.First(&user, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.PartnerID == nil {
			return ErrNotPaired
		}
		partnerID = *user.PartnerID
		if err := setPartner(tx, userID, nil, nil); err != nil {
			return err
		}
		if err := setPartner(tx, partnerID, nil, nil); err != nil {
			return err
		}
		coupleID := CoupleID(userID, partnerID)
		if err := tx.Where("couple_id = ?", coupleID).Delete(&db.DailyQuestionEntry{}).Error; err != nil {
			return fmt.Errorf("drop question entries of couple %d: %w", coupleID, err)
		}
		if err := tx.Where("couple_id = ?", coupleID).Delete(&db.TriggerFiring{}).Error; err != nil {
			return fmt.Errorf("drop trigger firings of couple %d: %w", coupleID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return partnerID, nil
}

func setPartner(tx *gorm.DB, userID int64, partnerID *int64, pairedAt *time.Time) error {
	res := tx.Model(&db.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"partner_id": partnerID, "paired_at": pairedAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CoupleIDFor returns the couple identity of userID, or false when the user
// has no partner.
func CoupleIDFor(userID int64) (int64, bool, error) {
	var user db.User
	err := db.DB.Select("user_id", "partner_id").First(&user, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("couple id for %d: %w", userID, err)
	}
	if user.PartnerID == nil {
		return 0, false, nil
	}
	return CoupleID(userID, *user.PartnerID), true, nil
}

// CoupleFor resolves the full couple of userID.
func CoupleFor(userID int64) (Couple, error) {
	user, err := GetUser(userID)
	if err != nil {
		return Couple{}, err
	}
	if user.PartnerID == nil {
		return Couple{}, ErrNotPaired
	}
	coupleID := CoupleID(userID, *user.PartnerID)
	settings, err := SettingsFor(coupleID)
	if err != nil {
		return Couple{}, err
	}
	return Couple{
		ID:       coupleID,
		User1ID:  coupleID,
		User2ID:  otherMember(coupleID, userID, *user.PartnerID),
		Settings: settings,
	}, nil
}

func otherMember(coupleID, a, b int64) int64 {
	if a == coupleID {
		return b
	}
	return a
}

// ListCouples returns every couple exactly once. Membership is stored on both
// user rows, so only the member whose id is the couple id is joined.
func ListCouples() ([]Couple, error) {
	type row struct {
		db.CoupleSettings
		PartnerID int64
	}
	var rows []row
	err := db.DB.Table("couple_settings AS s").
		Select("s.*, u.partner_id AS partner_id").
		Joins("JOIN users AS u ON u.user_id = s.couple_id AND u.partner_id IS NOT NULL AND u.partner_id > u.user_id").
		Order("s.couple_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list couples: %w", err)
	}
	couples := make([]Couple, 0, len(rows))
	for _, r := range rows {
		couples = append(couples, Couple{
			ID:       r.CoupleID,
			User1ID:  r.CoupleID,
			User2ID:  r.PartnerID,
			Settings: r.CoupleSettings,
		})
	}
	return couples, nil
}
