package db

import (
	"time"

	"gorm.io/datatypes"
)

// Attachment kinds accepted on deferred messages and memories.
const (
	AttachmentPhoto     = "photo"
	AttachmentVideo     = "video"
	AttachmentVoice     = "voice"
	AttachmentVideoNote = "video_note"
)

// Trigger kinds recorded in trigger_firings.
const (
	TriggerEventReminder = "event_reminder"
	TriggerQuestionSend  = "question_send"
	TriggerQuestionNudge = "question_nudge"
	TriggerSummary       = "question_summary"
)

type User struct {
	UserID    int64  `gorm:"primaryKey;autoIncrement:false"`
	Username  string `gorm:"not null;default:''"`
	PartnerID *int64 `gorm:"uniqueIndex"`
	PairedAt  *time.Time
	CreatedAt time.Time
}

// CoupleSettings is keyed by the couple id, the smaller of the two member ids.
type CoupleSettings struct {
	CoupleID         int64  `gorm:"primaryKey;autoIncrement:false"`
	RemindersEnabled bool   `gorm:"not null;default:false"`
	ReminderTime     string `gorm:"not null;default:'09:00'"`
	QotdEnabled      bool   `gorm:"not null;default:false"`
	QotdSendTime     string `gorm:"not null;default:'12:00'"`
	QotdSummaryTime  string `gorm:"not null;default:'20:00'"`
}

type ScheduledMessage struct {
	ID               uint      `gorm:"primaryKey"`
	SenderID         int64     `gorm:"not null;index"`
	ReceiverID       int64     `gorm:"not null"`
	Text             string    `gorm:"not null;default:''"`
	Caption          string    `gorm:"not null;default:''"`
	AttachmentKind   string    `gorm:"not null;default:''"`
	AttachmentFileID string    `gorm:"not null;default:''"`
	SendAt           time.Time `gorm:"not null;index"`
	CreatedAt        time.Time
}

type Event struct {
	ID       uint      `gorm:"primaryKey"`
	CoupleID int64     `gorm:"not null;index:idx_event_couple_at"`
	EventAt  time.Time `gorm:"not null;index:idx_event_couple_at"`
	Title    string    `gorm:"not null"`
	Details  string    `gorm:"not null;default:''"`
}

type Question struct {
	ID   uint   `gorm:"primaryKey"`
	Text string `gorm:"not null;uniqueIndex"`
}

// DailyQuestionEntry binds one question to one couple for one calendar day.
// User1ID is always the couple id.
type DailyQuestionEntry struct {
	ID           uint   `gorm:"primaryKey"`
	CoupleID     int64  `gorm:"not null;uniqueIndex:idx_daily_question_couple_date"`
	QuestionDate string `gorm:"not null;size:10;uniqueIndex:idx_daily_question_couple_date"`
	QuestionID   uint   `gorm:"not null"`
	Question     Question
	User1ID      int64  `gorm:"column:user1_id;not null"`
	User2ID      int64  `gorm:"column:user2_id;not null"`
	AnswerUser1  string `gorm:"column:answer_user1;not null;default:''"`
	AnswerUser2  string `gorm:"column:answer_user2;not null;default:''"`
	CreatedAt    time.Time
}

// TriggerFiring remembers the last day a periodic trigger fired for a couple.
type TriggerFiring struct {
	ID        uint   `gorm:"primaryKey"`
	CoupleID  int64  `gorm:"not null;uniqueIndex:idx_trigger_couple_kind"`
	Kind      string `gorm:"not null;size:32;uniqueIndex:idx_trigger_couple_kind"`
	FiredOn   string `gorm:"not null;size:10"`
	UpdatedAt time.Time
}

type Wish struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      int64  `gorm:"not null;index"`
	Title       string `gorm:"not null"`
	Link        string `gorm:"not null;default:''"`
	PhotoFileID string `gorm:"not null;default:''"`
	BookedByID  *int64
}

type WatchlistMovie struct {
	ID       uint   `gorm:"primaryKey"`
	CoupleID int64  `gorm:"not null;uniqueIndex:idx_watchlist_couple_title"`
	Title    string `gorm:"not null;uniqueIndex:idx_watchlist_couple_title"`
}

type Memory struct {
	ID          uint           `gorm:"primaryKey"`
	CoupleID    int64          `gorm:"not null;index"`
	MediaKind   string         `gorm:"not null"`
	MediaFileID string         `gorm:"not null"`
	Description string         `gorm:"not null;default:''"`
	AddedOn     datatypes.Date `gorm:"not null"`
}

type DateIdea struct {
	ID        uint   `gorm:"primaryKey"`
	CoupleID  int64  `gorm:"not null;uniqueIndex:idx_date_idea_couple_text"`
	Text      string `gorm:"not null;uniqueIndex:idx_date_idea_couple_text"`
	Completed bool   `gorm:"not null;default:false"`
}

// Models lists every persisted table in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&CoupleSettings{},
		&ScheduledMessage{},
		&Event{},
		&Question{},
		&DailyQuestionEntry{},
		&TriggerFiring{},
		&Wish{},
		&WatchlistMovie{},
		&Memory{},
		&DateIdea{},
	}
}
