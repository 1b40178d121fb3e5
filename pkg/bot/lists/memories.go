package lists

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AddMemory stores a photo or video with a description, dated by the bot's
// calendar day of addedAt.
func AddMemory(coupleID int64, kind, fileID, description string, addedAt time.Time) (db.Memory, error) {
	if kind == "" || fileID == "" {
		return db.Memory{}, fmt.Errorf("memory media: %w", ErrEmptyText)
	}
	local := timeutil.In(addedAt)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	memory := db.Memory{
		CoupleID:    coupleID,
		MediaKind:   kind,
		MediaFileID: fileID,
		Description: strings.TrimSpace(description),
		AddedOn:     datatypes.Date(day),
	}
	if err := db.DB.Create(&memory).Error; err != nil {
		return db.Memory{}, fmt.Errorf("add memory for couple %d: %w", coupleID, err)
	}
	return memory, nil
}

func RandomMemory(coupleID int64) (db.Memory, error) {
	var memory db.Memory
	err := db.DB.Where("couple_id = ?", coupleID).Order("RANDOM()").Take(&memory).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Memory{}, ErrNoMemories
	}
	if err != nil {
		return db.Memory{}, fmt.Errorf("pick memory for couple %d: %w", coupleID, err)
	}
	return memory, nil
}

// Memories lists the couple's memories, newest first.
func Memories(coupleID int64) ([]db.Memory, error) {
	var memories []db.Memory
	err := db.DB.Where("couple_id = ?", coupleID).Order("added_on DESC, id DESC").Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("load memories for couple %d: %w", coupleID, err)
	}
	return memories, nil
}
