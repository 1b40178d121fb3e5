package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/delivery"
	"github.com/smith3v/tg-couple-bot/pkg/delivery/deliverytest"
	"github.com/smith3v/tg-couple-bot/pkg/internal/testutil"
	"github.com/smith3v/tg-couple-bot/pkg/metrics"
	"github.com/smith3v/tg-couple-bot/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sweepNow = time.Date(2025, 3, 14, 9, 0, 0, 0, timeutil.Location())

func newTestSweeper(sender delivery.Sender) (*Sweeper, *metrics.Counters) {
	counters := &metrics.Counters{}
	s := NewSweeper(sender, counters)
	s.Now = func() time.Time { return sweepNow }
	return s, counters
}

func enqueue(t *testing.T, text string, at time.Time) db.ScheduledMessage {
	t.Helper()
	msg, err := Enqueue(db.ScheduledMessage{SenderID: 10, ReceiverID: 20, Text: text, SendAt: at})
	require.NoError(t, err)
	return msg
}

func TestDueEntriesSplitsPastAndFuture(t *testing.T) {
	testutil.SetupTestDB(t)
	past := enqueue(t, "past", sweepNow.Add(-time.Minute))
	exact := enqueue(t, "exact", sweepNow)
	enqueue(t, "future", sweepNow.Add(time.Minute))

	due, err := DueEntries(sweepNow)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, past.ID, due[0].ID)
	assert.Equal(t, exact.ID, due[1].ID)
}

func TestDueEntriesIgnoresEnqueueZone(t *testing.T) {
	testutil.SetupTestDB(t)
	// 08:30 in Moscow expressed in a zone far to the west.
	ny := time.FixedZone("EST", -5*60*60)
	enqueue(t, "early", sweepNow.Add(-30*time.Minute).In(ny))

	due, err := DueEntries(sweepNow)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestEnqueueValidates(t *testing.T) {
	testutil.SetupTestDB(t)
	cases := []db.ScheduledMessage{
		{ReceiverID: 20, Text: "x", SendAt: sweepNow},
		{SenderID: 10, ReceiverID: 20, SendAt: sweepNow},
		{SenderID: 10, ReceiverID: 20, Text: "x"},
		{SenderID: 10, ReceiverID: 20, AttachmentFileID: "f", SendAt: sweepNow},
	}
	for _, tc := range cases {
		_, err := Enqueue(tc)
		assert.ErrorIs(t, err, ErrInvalidEntry, "%+v", tc)
	}
}

func TestRemoveReportsWhetherItDeleted(t *testing.T) {
	testutil.SetupTestDB(t)
	msg := enqueue(t, "once", sweepNow)

	removed, err := Remove(msg.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = Remove(msg.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestTickDeliversAndRemoves(t *testing.T) {
	testutil.SetupTestDB(t)
	_, err := couples.EnsureUser(10, "alice")
	require.NoError(t, err)
	enqueue(t, "you are wonderful", sweepNow.Add(-time.Minute))
	_, err = Enqueue(db.ScheduledMessage{
		SenderID: 10, ReceiverID: 20, Text: "look",
		AttachmentKind: db.AttachmentPhoto, AttachmentFileID: "photo-1", Caption: "us",
		SendAt: sweepNow,
	})
	require.NoError(t, err)
	enqueue(t, "later", sweepNow.Add(time.Hour))

	recorder := deliverytest.NewRecorder()
	sweeper, counters := newTestSweeper(recorder)

	assert.Equal(t, 2, sweeper.Tick(context.Background()))

	sent := recorder.To(20)
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Text, "alice")
	assert.Contains(t, sent[0].Text, "you are wonderful")
	require.NotNil(t, sent[1].Attachment)
	assert.Equal(t, "photo-1", sent[1].Attachment.FileID)
	assert.Equal(t, "us", sent[1].Attachment.Caption)
	assert.Equal(t, int64(2), counters.DeferredDelivered.Load())

	due, err := DueEntries(sweepNow)
	require.NoError(t, err)
	assert.Empty(t, due)

	assert.Zero(t, sweeper.Tick(context.Background()), "delivered entries must not be sent again")
	assert.Len(t, recorder.Messages(), 2)
}

func TestTickDropsFailedDelivery(t *testing.T) {
	testutil.SetupTestDB(t)
	enqueue(t, "lost", sweepNow)

	recorder := deliverytest.NewRecorder()
	recorder.Fail[20] = errors.New("bot was blocked by the user")
	sweeper, counters := newTestSweeper(recorder)

	assert.Zero(t, sweeper.Tick(context.Background()))
	assert.Equal(t, int64(1), counters.DeferredDropped.Load())

	due, err := DueEntries(sweepNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due, "failed delivery is not retried")
}

func TestRenderEscapesAndFallsBack(t *testing.T) {
	testutil.SetupTestDB(t)
	msg := Render(db.ScheduledMessage{SenderID: 99, ReceiverID: 20, Text: "<3 & more"})
	assert.True(t, strings.Contains(msg.Text, "your partner"))
	assert.Contains(t, msg.Text, "&lt;3 &amp; more")
	assert.Nil(t, msg.Attachment)
}

func TestPendingForOrdersBySendTime(t *testing.T) {
	testutil.SetupTestDB(t)
	late := enqueue(t, "late", sweepNow.Add(2*time.Hour))
	early := enqueue(t, "early", sweepNow.Add(time.Hour))

	pending, err := PendingFor(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, early.ID, pending[0].ID)
	assert.Equal(t, late.ID, pending[1].ID)
}
