// Package qotd manages the question bank and each couple's daily question
// entries.
package qotd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNoQuestions     = errors.New("question bank is empty")
	ErrNoEntry         = errors.New("no question for this day")
	ErrAlreadyAnswered = errors.New("already answered")
	ErrNotMember       = errors.New("user is not part of this couple")
	ErrEmptyText       = errors.New("empty text")
)

// RandomQuestion picks one question uniformly from the bank.
func RandomQuestion() (db.Question, error) {
	var q db.Question
	err := db.DB.Order("RANDOM()").Take(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Question{}, ErrNoQuestions
	}
	if err != nil {
		return db.Question{}, fmt.Errorf("pick question: %w", err)
	}
	return q, nil
}

// AddQuestion stores a user-submitted question. A question already in the
// bank yields db.ErrDuplicate.
func AddQuestion(text string) (db.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return db.Question{}, ErrEmptyText
	}
	q := db.Question{Text: text}
	if err := db.DB.Create(&q).Error; err != nil {
		if db.IsDuplicate(err) {
			return db.Question{}, db.ErrDuplicate
		}
		return db.Question{}, fmt.Errorf("add question: %w", err)
	}
	return q, nil
}

// CreateEntry binds questionID to the couple for day unless an entry for that
// day already exists, and returns whichever entry is stored.
func CreateEntry(couple couples.Couple, questionID uint, day string) (db.DailyQuestionEntry, error) {
	if _, _, err := CurrentEntry(couple, day); err != nil {
		return db.DailyQuestionEntry{}, err
	}
	entry := db.DailyQuestionEntry{
		CoupleID:     couple.ID,
		QuestionDate: day,
		QuestionID:   questionID,
		User1ID:      couple.User1ID,
		User2ID:      couple.User2ID,
	}
	err := db.DB.Omit("Question").Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
	if err != nil {
		return db.DailyQuestionEntry{}, fmt.Errorf("create entry for couple %d: %w", couple.ID, err)
	}
	stored, found, err := EntryFor(couple.ID, day)
	if err != nil {
		return db.DailyQuestionEntry{}, err
	}
	if !found {
		return db.DailyQuestionEntry{}, ErrNoEntry
	}
	return stored, nil
}

// CurrentEntry loads the couple's entry for day when it belongs to the
// couple's present members. An entry left by an earlier pairing under the
// same couple id is deleted and reported absent.
func CurrentEntry(couple couples.Couple, day string) (db.DailyQuestionEntry, bool, error) {
	entry, found, err := EntryFor(couple.ID, day)
	if err != nil || !found {
		return entry, found, err
	}
	if entry.User1ID == couple.User1ID && entry.User2ID == couple.User2ID {
		return entry, true, nil
	}
	if err := db.DB.Delete(&db.DailyQuestionEntry{}, entry.ID).Error; err != nil {
		return db.DailyQuestionEntry{}, false, fmt.Errorf("drop stale entry for couple %d: %w", couple.ID, err)
	}
	logger.Info("dropped entry of a previous pairing", "couple_id", couple.ID, "day", day)
	return db.DailyQuestionEntry{}, false, nil
}

// EntryFor loads the couple's entry for day with its question.
func EntryFor(coupleID int64, day string) (db.DailyQuestionEntry, bool, error) {
	var entry db.DailyQuestionEntry
	err := db.DB.Preload("Question").
		Where("couple_id = ? AND question_date = ?", coupleID, day).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.DailyQuestionEntry{}, false, nil
	}
	if err != nil {
		return db.DailyQuestionEntry{}, false, fmt.Errorf("load entry for couple %d: %w", coupleID, err)
	}
	return entry, true, nil
}

// SaveAnswer records userID's answer to the couple's question for day. Each
// member answers once.
func SaveAnswer(coupleID, userID int64, day, answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ErrEmptyText
	}
	entry, found, err := EntryFor(coupleID, day)
	if err != nil {
		return err
	}
	if !found {
		return ErrNoEntry
	}
	column, err := answerColumn(entry, userID)
	if err != nil {
		return err
	}
	res := db.DB.Model(&db.DailyQuestionEntry{}).
		Where("id = ? AND "+column+" = ''", entry.ID).
		Update(column, answer)
	if res.Error != nil {
		return fmt.Errorf("save answer for %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyAnswered
	}
	return nil
}

func answerColumn(entry db.DailyQuestionEntry, userID int64) (string, error) {
	switch userID {
	case entry.User1ID:
		return "answer_user1", nil
	case entry.User2ID:
		return "answer_user2", nil
	default:
		return "", ErrNotMember
	}
}

// AnswerOf returns userID's answer and whether it exists.
func AnswerOf(entry db.DailyQuestionEntry, userID int64) (string, bool) {
	switch userID {
	case entry.User1ID:
		return entry.AnswerUser1, entry.AnswerUser1 != ""
	case entry.User2ID:
		return entry.AnswerUser2, entry.AnswerUser2 != ""
	}
	return "", false
}

// Unanswered lists the members who have not answered yet.
func Unanswered(entry db.DailyQuestionEntry) []int64 {
	var out []int64
	if entry.AnswerUser1 == "" {
		out = append(out, entry.User1ID)
	}
	if entry.AnswerUser2 == "" {
		out = append(out, entry.User2ID)
	}
	return out
}

// Archive returns the couple's past entries, newest first.
func Archive(coupleID int64) ([]db.DailyQuestionEntry, error) {
	var entries []db.DailyQuestionEntry
	err := db.DB.Preload("Question").
		Where("couple_id = ?", coupleID).
		Order("question_date DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load archive for couple %d: %w", coupleID, err)
	}
	return entries, nil
}
