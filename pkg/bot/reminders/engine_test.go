package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smith3v/tg-couple-bot/pkg/bot/calendar"
	"github.com/smith3v/tg-couple-bot/pkg/bot/qotd"
	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/delivery/deliverytest"
	"github.com/smith3v/tg-couple-bot/pkg/internal/testutil"
	"github.com/smith3v/tg-couple-bot/pkg/metrics"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moscow(hour, minute int) time.Time {
	return time.Date(2025, 3, 14, hour, minute, 0, 0, timeutil.Location())
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestEngine(window time.Duration) (*Engine, *deliverytest.Recorder, *metrics.Counters, *fakeClock) {
	rec := deliverytest.NewRecorder()
	counters := &metrics.Counters{}
	c := &fakeClock{now: moscow(9, 0)}
	e := NewEngine(rec, counters, window)
	e.Now = c.Now
	return e, rec, counters, c
}

func pair(t *testing.T, a, b int64, names ...string) couples.Couple {
	t.Helper()
	nameA, nameB := "alice", "bob"
	if len(names) == 2 {
		nameA, nameB = names[0], names[1]
	}
	_, err := couples.EnsureUser(a, nameA)
	require.NoError(t, err)
	_, err = couples.EnsureUser(b, nameB)
	require.NoError(t, err)
	couple, err := couples.Link(a, b, moscow(8, 0))
	require.NoError(t, err)
	return couple
}

func enable(t *testing.T, coupleID int64, patch couples.SettingsPatch) {
	t.Helper()
	_, err := couples.UpdateSettings(coupleID, patch)
	require.NoError(t, err)
}

func on() *bool { v := true; return &v }

func strPtr(v string) *string { return &v }

func TestEventReminderFiresOncePerDay(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := pair(t, 10, 20)
	enable(t, couple.ID, couples.SettingsPatch{RemindersEnabled: on()})
	_, err := calendar.Add(couple.ID, moscow(14, 0), "Dinner", "")
	require.NoError(t, err)
	_, err = calendar.Add(couple.ID, moscow(0, 0).AddDate(0, 0, 1), "Tomorrow", "")
	require.NoError(t, err)

	e, rec, counters, c := newTestEngine(time.Minute)
	require.True(t, e.Tick(context.Background()))

	for _, member := range []int64{10, 20} {
		got := rec.To(member)
		require.Len(t, got, 1, "member %d", member)
		assert.Contains(t, got[0].Text, "<b>14:00</b> – Dinner")
		assert.NotContains(t, got[0].Text, "Tomorrow")
	}
	assert.Equal(t, int64(1), counters.TriggersFired.Load())

	c.now = moscow(9, 1)
	rec.Reset()
	e.Tick(context.Background())
	assert.Empty(t, rec.Messages())

	// A duplicated tick for the same minute does not fire twice either.
	c.now = moscow(9, 0)
	e.Tick(context.Background())
	assert.Empty(t, rec.Messages())
	assert.Equal(t, int64(1), counters.TriggersFired.Load())
}

func TestEventReminderCatchesUpWithinWindow(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := pair(t, 10, 20)
	enable(t, couple.ID, couples.SettingsPatch{RemindersEnabled: on()})
	_, err := calendar.Add(couple.ID, moscow(18, 30), "Cinema", "")
	require.NoError(t, err)

	e, rec, _, c := newTestEngine(10 * time.Minute)
	c.now = moscow(9, 12)
	e.Tick(context.Background())
	assert.Empty(t, rec.Messages(), "outside the window")

	c.now = moscow(9, 7)
	e.Tick(context.Background())
	assert.Len(t, rec.Messages(), 2)

	c.now = moscow(9, 8)
	rec.Reset()
	e.Tick(context.Background())
	assert.Empty(t, rec.Messages())
}

func TestEmptyReminderDoesNotConsumeTheDay(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := pair(t, 10, 20)
	enable(t, couple.ID, couples.SettingsPatch{RemindersEnabled: on()})

	e, rec, counters, c := newTestEngine(10 * time.Minute)
	e.Tick(context.Background())
	assert.Empty(t, rec.Messages())
	assert.Zero(t, counters.TriggersFired.Load())

	_, err := calendar.Add(couple.ID, moscow(20, 0), "Call mom", "")
	require.NoError(t, err)
	c.now = moscow(9, 3)
	e.Tick(context.Background())
	assert.Len(t, rec.Containing("Call mom"), 2)
}

func TestDisabledRemindersSendNothing(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := pair(t, 10, 20)
	_, err := calendar.Add(couple.ID, moscow(14, 0), "Dinner", "")
	require.NoError(t, err)

	e, rec, _, _ := newTestEngine(time.Minute)
	e.Tick(context.Background())
	assert.Empty(t, rec.Messages())
}

func TestQuestionDayFlow(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := pair(t, 10, 20)
	enable(t, couple.ID, couples.SettingsPatch{QotdEnabled: on()})
	_, err := qotd.AddQuestion("What made you smile today?")
	require.NoError(t, err)

	e, rec, _, c := newTestEngine(time.Minute)

	c.now = moscow(12, 0)
	e.Tick(context.Background())
	for _, member := range []int64{10, 20} {
		got := rec.To(member)
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Text, "What made you smile today?")
		assert.NotNil(t, got[0].Keyboard)
	}
	entry, found, err := qotd.EntryFor(couple.ID, "2025-03-14")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(10), entry.User1ID)
	assert.Equal(t, int64(20), entry.User2ID)

	require.NoError(t, qotd.SaveAnswer(couple.ID, 10, "2025-03-14", "Your <3 message"))

	c.now = moscow(19, 0)
	rec.Reset()
	e.Tick(context.Background())
	assert.Empty(t, rec.To(10))
	require.Len(t, rec.To(20), 1)
	assert.Contains(t, rec.To(20)[0].Text, "An hour left")
	assert.Contains(t, rec.To(20)[0].Text, "Your partner is waiting for your answer")

	c.now = moscow(20, 0)
	rec.Reset()
	e.Tick(context.Background())
	for _, member := range []int64{10, 20} {
		got := rec.To(member)
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Text, "<b>alice:</b> Your &lt;3 message")
		assert.Contains(t, got[0].Text, "<b>bob:</b> "+noAnswer)
	}
}

func TestNudgeWordingFollowsPartnerAnswer(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := pair(t, 10, 20)
	enable(t, couple.ID, couples.SettingsPatch{QotdEnabled: on()})
	question, err := qotd.AddQuestion("Best trip together?")
	require.NoError(t, err)
	_, err = qotd.CreateEntry(couple, question.ID, "2025-03-14")
	require.NoError(t, err)

	e, rec, _, c := newTestEngine(time.Minute)
	c.now = moscow(19, 0)
	e.Tick(context.Background())
	for _, member := range []int64{10, 20} {
		got := rec.To(member)
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Text, "You both still have time")
		assert.NotContains(t, got[0].Text, "waiting for your answer")
	}
}

func TestSeveralTriggersFireInOneTick(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := pair(t, 10, 20)
	enable(t, couple.ID, couples.SettingsPatch{
		RemindersEnabled: on(),
		QotdEnabled:      on(),
		QotdSendTime:     strPtr("09:00"),
	})
	_, err := calendar.Add(couple.ID, moscow(14, 0), "Dinner", "")
	require.NoError(t, err)
	_, err = qotd.AddQuestion("What made you smile today?")
	require.NoError(t, err)

	e, rec, counters, _ := newTestEngine(time.Minute)
	require.True(t, e.Tick(context.Background()))

	for _, member := range []int64{10, 20} {
		require.Len(t, rec.To(member), 2, "member %d", member)
	}
	assert.Len(t, rec.Containing("Dinner"), 2)
	assert.Len(t, rec.Containing("What made you smile today?"), 2)
	assert.Equal(t, int64(2), counters.TriggersFired.Load())
}

func TestNudgeAndSendShareAMinute(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := pair(t, 10, 20)
	enable(t, couple.ID, couples.SettingsPatch{
		QotdEnabled:     on(),
		QotdSendTime:    strPtr("12:00"),
		QotdSummaryTime: strPtr("13:00"),
	})
	_, err := qotd.AddQuestion("What made you smile today?")
	require.NoError(t, err)

	e, rec, _, c := newTestEngine(time.Minute)
	c.now = moscow(12, 0)
	e.Tick(context.Background())

	for _, member := range []int64{10, 20} {
		require.Len(t, rec.To(member), 2, "member %d", member)
	}
	assert.Len(t, rec.Containing("Question of the day"), 2)
	assert.Len(t, rec.Containing("An hour left"), 2)
}

func TestRepairedCoupleGetsOwnQuestion(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := pair(t, 5, 10)
	enable(t, couple.ID, couples.SettingsPatch{QotdEnabled: on()})
	_, err := qotd.AddQuestion("What made you smile today?")
	require.NoError(t, err)

	e, rec, _, c := newTestEngine(time.Minute)
	c.now = moscow(12, 0)
	e.Tick(context.Background())
	require.NoError(t, qotd.SaveAnswer(couple.ID, 5, "2025-03-14", "Seeing you"))

	_, err = couples.Unlink(5)
	require.NoError(t, err)
	_, err = couples.EnsureUser(20, "carol")
	require.NoError(t, err)
	repaired, err := couples.Link(5, 20, moscow(12, 0))
	require.NoError(t, err)
	require.Equal(t, couple.ID, repaired.ID)
	enable(t, repaired.ID, couples.SettingsPatch{QotdEnabled: on()})

	rec.Reset()
	e.Tick(context.Background())
	require.Len(t, rec.To(5), 1)
	require.Len(t, rec.To(20), 1)
	assert.Empty(t, rec.To(10))
	require.NoError(t, qotd.SaveAnswer(repaired.ID, 20, "2025-03-14", "Coffee"))

	c.now = moscow(19, 0)
	rec.Reset()
	e.Tick(context.Background())
	assert.Len(t, rec.To(5), 1)
	assert.Empty(t, rec.To(10))
	assert.Empty(t, rec.To(20))

	c.now = moscow(20, 0)
	rec.Reset()
	e.Tick(context.Background())
	assert.Empty(t, rec.To(10))
	for _, member := range []int64{5, 20} {
		got := rec.To(member)
		require.Len(t, got, 1, "member %d", member)
		assert.Contains(t, got[0].Text, "<b>carol:</b> Coffee")
		assert.NotContains(t, got[0].Text, "Seeing you")
	}
}

func TestNudgeSkipsWhenBothAnswered(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := pair(t, 10, 20)
	enable(t, couple.ID, couples.SettingsPatch{QotdEnabled: on()})
	question, err := qotd.AddQuestion("Best trip together?")
	require.NoError(t, err)
	_, err = qotd.CreateEntry(couple, question.ID, "2025-03-14")
	require.NoError(t, err)
	require.NoError(t, qotd.SaveAnswer(couple.ID, 10, "2025-03-14", "Rome"))
	require.NoError(t, qotd.SaveAnswer(couple.ID, 20, "2025-03-14", "Rome!"))

	e, rec, _, c := newTestEngine(time.Minute)
	c.now = moscow(19, 0)
	e.Tick(context.Background())
	assert.Empty(t, rec.Messages())
}

func TestSummaryWithoutEntrySendsNothing(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := pair(t, 10, 20)
	enable(t, couple.ID, couples.SettingsPatch{QotdEnabled: on()})

	e, rec, counters, c := newTestEngine(time.Minute)
	c.now = moscow(20, 0)
	e.Tick(context.Background())
	assert.Empty(t, rec.Messages())
	assert.Zero(t, counters.TriggerFailures.Load())
}

func TestEmptyQuestionBankIsNotAFailure(t *testing.T) {
	testutil.SetupTestDB(t)
	couple := pair(t, 10, 20)
	enable(t, couple.ID, couples.SettingsPatch{QotdEnabled: on()})

	e, rec, counters, c := newTestEngine(time.Minute)
	c.now = moscow(12, 0)
	e.Tick(context.Background())
	assert.Empty(t, rec.Messages())
	assert.Zero(t, counters.TriggerFailures.Load())
}

func TestDeliveryFailureIsIsolated(t *testing.T) {
	testutil.SetupTestDB(t)
	first := pair(t, 10, 20)
	second := pair(t, 30, 40, "carol", "dave")
	for _, c := range []couples.Couple{first, second} {
		enable(t, c.ID, couples.SettingsPatch{RemindersEnabled: on()})
		_, err := calendar.Add(c.ID, moscow(14, 0), "Dinner", "")
		require.NoError(t, err)
	}

	e, rec, counters, _ := newTestEngine(time.Minute)
	rec.Fail[10] = errors.New("Forbidden: bot was blocked by the user")
	e.Tick(context.Background())

	assert.Empty(t, rec.To(10))
	assert.Len(t, rec.To(20), 1)
	assert.Len(t, rec.To(30), 1)
	assert.Len(t, rec.To(40), 1)
	assert.Equal(t, int64(2), counters.TriggersFired.Load())
	assert.Equal(t, int64(1), counters.TriggerFailures.Load())
}

func TestTickSkipsWhileRunning(t *testing.T) {
	testutil.SetupTestDB(t)
	e, _, counters, _ := newTestEngine(time.Minute)
	e.running.Store(true)

	assert.False(t, e.Tick(context.Background()))
	assert.Equal(t, int64(1), counters.SweepsSkipped.Load())

	e.running.Store(false)
	assert.True(t, e.Tick(context.Background()))
}

func TestClaimIsOncePerDay(t *testing.T) {
	testutil.SetupTestDB(t)

	ok, err := claim(10, db.TriggerSummary, "2025-03-14")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = claim(10, db.TriggerSummary, "2025-03-14")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = claim(10, db.TriggerSummary, "2025-03-13")
	require.NoError(t, err)
	assert.False(t, ok, "an earlier day never re-fires")

	ok, err = claim(10, db.TriggerSummary, "2025-03-15")
	require.NoError(t, err)
	assert.True(t, ok)

	last, err := lastFired(10, db.TriggerSummary)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-15", last)
}
