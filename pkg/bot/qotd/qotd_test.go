package qotd

import (
	"strings"
	"testing"

	"github.com/smith3v/tg-couple-bot/pkg/couples"
	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCouple = couples.Couple{ID: 10, User1ID: 10, User2ID: 20}

func TestRandomQuestionEmptyBank(t *testing.T) {
	testutil.SetupTestDB(t)
	_, err := RandomQuestion()
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestAddQuestionRejectsDuplicates(t *testing.T) {
	testutil.SetupTestDB(t)
	q, err := AddQuestion("  What made you smile today?  ")
	require.NoError(t, err)
	assert.Equal(t, "What made you smile today?", q.Text)

	_, err = AddQuestion("What made you smile today?")
	assert.ErrorIs(t, err, db.ErrDuplicate)

	_, err = AddQuestion("   ")
	assert.ErrorIs(t, err, ErrEmptyText)

	picked, err := RandomQuestion()
	require.NoError(t, err)
	assert.Equal(t, q.ID, picked.ID)
}

func TestCreateEntryIsOncePerDay(t *testing.T) {
	testutil.SetupTestDB(t)
	first, err := AddQuestion("First?")
	require.NoError(t, err)
	second, err := AddQuestion("Second?")
	require.NoError(t, err)

	entry, err := CreateEntry(testCouple, first.ID, "2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, "First?", entry.Question.Text)
	assert.Equal(t, int64(10), entry.User1ID)
	assert.Equal(t, int64(20), entry.User2ID)

	again, err := CreateEntry(testCouple, second.ID, "2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, again.ID)
	assert.Equal(t, first.ID, again.QuestionID, "existing entry keeps its question")

	next, err := CreateEntry(testCouple, second.ID, "2025-03-15")
	require.NoError(t, err)
	assert.NotEqual(t, entry.ID, next.ID)
}

func TestSaveAnswerPerMember(t *testing.T) {
	testutil.SetupTestDB(t)
	q, err := AddQuestion("Favourite trip?")
	require.NoError(t, err)
	_, err = CreateEntry(testCouple, q.ID, "2025-03-14")
	require.NoError(t, err)

	require.NoError(t, SaveAnswer(10, 20, "2025-03-14", "Rome"))
	assert.ErrorIs(t, SaveAnswer(10, 20, "2025-03-14", "Paris"), ErrAlreadyAnswered)
	assert.ErrorIs(t, SaveAnswer(10, 30, "2025-03-14", "Oslo"), ErrNotMember)
	assert.ErrorIs(t, SaveAnswer(10, 10, "2025-03-15", "Oslo"), ErrNoEntry)

	entry, found, err := EntryFor(10, "2025-03-14")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []int64{10}, Unanswered(entry))

	answer, ok := AnswerOf(entry, 20)
	assert.True(t, ok)
	assert.Equal(t, "Rome", answer)
	_, ok = AnswerOf(entry, 10)
	assert.False(t, ok)
}

func TestArchiveNewestFirst(t *testing.T) {
	testutil.SetupTestDB(t)
	q, err := AddQuestion("Q?")
	require.NoError(t, err)
	for _, day := range []string{"2025-03-12", "2025-03-14", "2025-03-13"} {
		_, err := CreateEntry(testCouple, q.ID, day)
		require.NoError(t, err)
	}

	archive, err := Archive(10)
	require.NoError(t, err)
	require.Len(t, archive, 3)
	assert.Equal(t, "2025-03-14", archive[0].QuestionDate)
	assert.Equal(t, "2025-03-12", archive[2].QuestionDate)
	assert.Equal(t, "Q?", archive[1].Question.Text)
}

func TestParseBank(t *testing.T) {
	data := "\xEF\xBB\xBFFirst?\n\n  Second?  \r\n# comment\nFirst?\n"
	assert.Equal(t, []string{"First?", "Second?"}, ParseBank([]byte(data)))
}

func TestImportBankSkipsExisting(t *testing.T) {
	testutil.SetupTestDB(t)
	_, err := AddQuestion("Existing?")
	require.NoError(t, err)

	added, err := ImportBank(strings.NewReader("Existing?\nNew one?\nAnother?\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	var count int64
	require.NoError(t, db.DB.Model(&db.Question{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestImportBankFileMissing(t *testing.T) {
	testutil.SetupTestDB(t)
	added, err := ImportBankFile(t.TempDir() + "/missing.txt")
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestCurrentEntryDropsPreviousPairing(t *testing.T) {
	testutil.SetupTestDB(t)
	q, err := AddQuestion("Favourite trip?")
	require.NoError(t, err)
	former := couples.Couple{ID: 5, User1ID: 5, User2ID: 10}
	_, err = CreateEntry(former, q.ID, "2025-03-14")
	require.NoError(t, err)
	require.NoError(t, SaveAnswer(5, 5, "2025-03-14", "Rome"))

	present := couples.Couple{ID: 5, User1ID: 5, User2ID: 20}
	_, found, err := CurrentEntry(present, "2025-03-14")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = EntryFor(5, "2025-03-14")
	require.NoError(t, err)
	assert.False(t, found, "stale row is deleted")

	_, err = CreateEntry(former, q.ID, "2025-03-14")
	require.NoError(t, err)
	entry, err := CreateEntry(present, q.ID, "2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, int64(20), entry.User2ID)
	assert.Empty(t, entry.AnswerUser1)
	require.NoError(t, SaveAnswer(5, 20, "2025-03-14", "Oslo"))
}
