package history_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/history"
)

func connectedStore(t *testing.T) *history.Store {
	store := history.New()
	require.Nil(t, store.Connect(history.Config{Path: ":memory:"}))
	t.Cleanup(func() { store.Close() })

	return store
}

func record(id string, chatID int64, finishedAt time.Time) history.Record {
	result := "transcript for " + id
	return history.Record{
		ID:           id,
		ChatID:       chatID,
		Kind:         "VOICE",
		DurationSecs: 3,
		Result:       &result,
		EnqueuedAt:   finishedAt.Add(-2 * time.Second),
		FinishedAt:   finishedAt,
	}
}

func Test_Recent_OrdersByFinishTime(t *testing.T) {
	store := connectedStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.Nil(t, store.Save(record("job-old", 100, base)))
	require.Nil(t, store.Save(record("job-new", 100, base.Add(time.Minute))))

	records, err := store.Recent(10)
	require.Nil(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "job-new", records[0].ID)
	assert.Equal(t, "job-old", records[1].ID)
}

func Test_Recent_RespectsLimit(t *testing.T) {
	store := connectedStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.Nil(t, store.Save(record(string(rune('a'+i)), 100, base.Add(time.Duration(i)*time.Second))))
	}

	records, err := store.Recent(3)
	require.Nil(t, err)
	assert.Len(t, records, 3)
}

func Test_Save_ReplacesExistingRecord(t *testing.T) {
	store := connectedStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := record("job-1", 100, base)
	require.Nil(t, store.Save(first))

	trouble := "CONVERSION_FAILURE"
	second := first
	second.Result = nil
	second.Trouble = &trouble
	require.Nil(t, store.Save(second))

	records, err := store.Recent(10)
	require.Nil(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Result)
	require.NotNil(t, records[0].Trouble)
	assert.Equal(t, trouble, *records[0].Trouble)
}

func Test_CountForChat_CountsOnlyThatChat(t *testing.T) {
	store := connectedStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.Nil(t, store.Save(record("job-1", 100, base)))
	require.Nil(t, store.Save(record("job-2", 100, base.Add(time.Second))))
	require.Nil(t, store.Save(record("job-3", 200, base.Add(2*time.Second))))

	count, err := store.CountForChat(100)
	require.Nil(t, err)
	assert.Equal(t, 2, count)
}
