package couples

import (
	"errors"
	"testing"
	"time"

	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/internal/testutil"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func seedPair(t *testing.T, a, b int64) Couple {
	t.Helper()
	_, err := EnsureUser(a, "alice")
	require.NoError(t, err)
	_, err = EnsureUser(b, "bob")
	require.NoError(t, err)
	couple, err := Link(a, b, testNow)
	require.NoError(t, err)
	return couple
}

func TestCoupleIDIsSymmetricMinimum(t *testing.T) {
	testutil.SetupTestDB(t)
	seedPair(t, 20, 10)

	idA, okA, err := CoupleIDFor(10)
	require.NoError(t, err)
	idB, okB, err := CoupleIDFor(20)
	require.NoError(t, err)

	assert.True(t, okA)
	assert.True(t, okB)
	assert.Equal(t, idA, idB)
	assert.Equal(t, int64(10), idA)
}

func TestCoupleIDForUnknownOrSingleUser(t *testing.T) {
	testutil.SetupTestDB(t)
	_, err := EnsureUser(7, "solo")
	require.NoError(t, err)

	_, ok, err := CoupleIDFor(7)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = CoupleIDFor(999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLinkCreatesSymmetricPartnership(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := seedPair(t, 10, 20)

	assert.Equal(t, int64(10), couple.ID)
	assert.Equal(t, [2]int64{10, 20}, couple.Members())

	a, err := GetUser(10)
	require.NoError(t, err)
	b, err := GetUser(20)
	require.NoError(t, err)
	require.NotNil(t, a.PartnerID)
	require.NotNil(t, b.PartnerID)
	assert.Equal(t, int64(20), *a.PartnerID)
	assert.Equal(t, int64(10), *b.PartnerID)
	require.NotNil(t, a.PairedAt)
	assert.True(t, a.PairedAt.Equal(testNow))

	partner, err := Partner(20)
	require.NoError(t, err)
	assert.Equal(t, "alice", partner.Username)
}

func TestLinkRejectsInvalidPairs(t *testing.T) {
	testutil.SetupTestDB(t)
	seedPair(t, 10, 20)
	_, err := EnsureUser(30, "carol")
	require.NoError(t, err)

	_, err = Link(30, 30, testNow)
	assert.ErrorIs(t, err, ErrSelfPair)

	_, err = Link(30, 10, testNow)
	assert.ErrorIs(t, err, ErrAlreadyPaired)

	_, err = Link(30, 404, testNow)
	assert.ErrorIs(t, err, ErrUserNotFound)

	user, err := GetUser(30)
	require.NoError(t, err)
	assert.Nil(t, user.PartnerID, "failed link must not leave a one-sided reference")
}

func TestUnlinkClearsBothSides(t *testing.T) {
	testutil.SetupTestDB(t)
	seedPair(t, 10, 20)

	partnerID, err := Unlink(20)
	require.NoError(t, err)
	assert.Equal(t, int64(10), partnerID)

	for _, id := range []int64{10, 20} {
		_, ok, err := CoupleIDFor(id)
		require.NoError(t, err)
		assert.False(t, ok, "user %d should have no couple", id)
		user, err := GetUser(id)
		require.NoError(t, err)
		assert.Nil(t, user.PartnerID)
		assert.Nil(t, user.PairedAt)
	}

	_, err = Unlink(10)
	assert.ErrorIs(t, err, ErrNotPaired)
}

func TestUnlinkDropsPairHistory(t *testing.T) {
	testutil.SetupTestDB(t)
	seedPair(t, 10, 20)
	q := db.Question{Text: "Favourite trip?"}
	require.NoError(t, db.DB.Create(&q).Error)
	require.NoError(t, db.DB.Omit("Question").Create(&db.DailyQuestionEntry{
		CoupleID: 10, QuestionDate: "2025-03-14", QuestionID: q.ID, User1ID: 10, User2ID: 20,
	}).Error)
	require.NoError(t, db.DB.Create(&db.TriggerFiring{CoupleID: 10, Kind: db.TriggerSummary, FiredOn: "2025-03-14"}).Error)
	require.NoError(t, db.DB.Create(&db.TriggerFiring{CoupleID: 30, Kind: db.TriggerSummary, FiredOn: "2025-03-14"}).Error)

	_, err := Unlink(10)
	require.NoError(t, err)

	var entries, firings int64
	require.NoError(t, db.DB.Model(&db.DailyQuestionEntry{}).Where("couple_id = ?", 10).Count(&entries).Error)
	require.NoError(t, db.DB.Model(&db.TriggerFiring{}).Where("couple_id = ?", 10).Count(&firings).Error)
	assert.Zero(t, entries)
	assert.Zero(t, firings)

	require.NoError(t, db.DB.Model(&db.TriggerFiring{}).Where("couple_id = ?", 30).Count(&firings).Error)
	assert.Equal(t, int64(1), firings, "other couples keep their bookkeeping")
}

func TestSettingsForIsIdempotent(t *testing.T) {
	testutil.SetupTestDB(t)

	first, err := SettingsFor(42)
	require.NoError(t, err)
	second, err := SettingsFor(42)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.False(t, first.RemindersEnabled)
	assert.False(t, first.QotdEnabled)
	assert.Equal(t, "09:00", first.ReminderTime)
	assert.Equal(t, "12:00", first.QotdSendTime)
	assert.Equal(t, "20:00", first.QotdSummaryTime)

	var count int64
	require.NoError(t, db.DB.Model(&db.CoupleSettings{}).Where("couple_id = ?", 42).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateSettingsIsSparse(t *testing.T) {
	testutil.SetupTestDB(t)

	enabled := true
	clock := "7:30"
	updated, err := UpdateSettings(5, SettingsPatch{RemindersEnabled: &enabled, ReminderTime: &clock})
	require.NoError(t, err)
	assert.True(t, updated.RemindersEnabled)
	assert.Equal(t, "07:30", updated.ReminderTime)
	assert.Equal(t, "12:00", updated.QotdSendTime)

	summary := "21:15"
	updated, err = UpdateSettings(5, SettingsPatch{QotdSummaryTime: &summary})
	require.NoError(t, err)
	assert.True(t, updated.RemindersEnabled, "untouched field must keep its value")
	assert.Equal(t, "07:30", updated.ReminderTime)
	assert.Equal(t, "21:15", updated.QotdSummaryTime)

	disabled := false
	updated, err = UpdateSettings(5, SettingsPatch{RemindersEnabled: &disabled})
	require.NoError(t, err)
	assert.False(t, updated.RemindersEnabled, "false must be written, not skipped as zero")
}

func TestUpdateSettingsRejectsBadClock(t *testing.T) {
	testutil.SetupTestDB(t)

	bad := "25:00"
	_, err := UpdateSettings(5, SettingsPatch{QotdSendTime: &bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, timeutil.ErrInvalidClockTime))

	settings, err := SettingsFor(5)
	require.NoError(t, err)
	assert.Equal(t, "12:00", settings.QotdSendTime)
}

func TestListCouplesReturnsOneRowPerCouple(t *testing.T) {
	testutil.SetupTestDB(t)
	seedPair(t, 20, 10)
	seedPair(t, 30, 40)
	_, err := EnsureUser(50, "single")
	require.NoError(t, err)
	_, err = SettingsFor(50)
	require.NoError(t, err)

	list, err := ListCouples()
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, int64(10), list[0].ID)
	assert.Equal(t, [2]int64{10, 20}, list[0].Members())
	assert.Equal(t, int64(30), list[1].ID)
	assert.Equal(t, [2]int64{30, 40}, list[1].Members())
	assert.Equal(t, "09:00", list[1].Settings.ReminderTime)
}

func TestEnsureUserRefreshesUsername(t *testing.T) {
	testutil.SetupTestDB(t)
	_, err := EnsureUser(1, "old")
	require.NoError(t, err)
	user, err := EnsureUser(1, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", user.Username)
	assert.Equal(t, "new", DisplayName(user))
	assert.Equal(t, "user 2", DisplayName(db.User{UserID: 2}))
}
