package store

import (
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verinews/relayer/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "relayer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRequest(id int64) model.FactCheckRequest {
	return model.FactCheckRequest{
		RequestID:  big.NewInt(id),
		Requester:  "0xABC0000000000000000000000000000000000000",
		ContentURI: "blob123",
	}
}

func TestRecordAndGet(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Record(testRequest(7)))

	rec, err := s.Get("7")
	require.NoError(t, err)
	assert.Equal(t, "7", rec.RequestID)
	assert.Equal(t, model.StatusPending, rec.Status)
	assert.Equal(t, 0, rec.Attempts)
	assert.Equal(t, "blob123", rec.ContentURI)
}

func TestRecord_Idempotent(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Record(testRequest(7)))
	require.NoError(t, s.RecordAttempt("7", "transient failure"))

	// Re-observing the same event must not reset attempt bookkeeping
	require.NoError(t, s.Record(testRequest(7)))

	rec, err := s.Get("7")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, "transient failure", rec.LastError)
}

func TestStatusTransitions(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Record(testRequest(1)))
	require.NoError(t, s.MarkFulfilled("1"))

	rec, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFulfilled, rec.Status)

	require.NoError(t, s.Record(testRequest(2)))
	require.NoError(t, s.MarkFailed("2", "retry budget exhausted"))

	rec, err = s.Get("2")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, rec.Status)
	assert.Equal(t, "retry budget exhausted", rec.LastError)
}

func TestStatusTransitions_UnknownRequest(t *testing.T) {
	s := newTestStore(t)

	assert.Error(t, s.MarkFulfilled("999"))
	assert.Error(t, s.RecordAttempt("999", "x"))
}

func TestPendingAndExhausted(t *testing.T) {
	s := newTestStore(t)
	const maxAttempts = 3

	require.NoError(t, s.Record(testRequest(1))) // Fresh
	require.NoError(t, s.Record(testRequest(2))) // Two failures
	require.NoError(t, s.RecordAttempt("2", "boom"))
	require.NoError(t, s.RecordAttempt("2", "boom"))
	require.NoError(t, s.Record(testRequest(3))) // Budget spent
	for i := 0; i < maxAttempts; i++ {
		require.NoError(t, s.RecordAttempt("3", "boom"))
	}
	require.NoError(t, s.Record(testRequest(4))) // Already fulfilled
	require.NoError(t, s.MarkFulfilled("4"))

	pending, err := s.Pending(maxAttempts)
	require.NoError(t, err)
	ids := make([]string, 0, len(pending))
	for _, rec := range pending {
		ids = append(ids, rec.RequestID)
	}
	assert.ElementsMatch(t, []string{"1", "2"}, ids)

	exhausted, err := s.Exhausted(maxAttempts)
	require.NoError(t, err)
	require.Len(t, exhausted, 1)
	assert.Equal(t, "3", exhausted[0].RequestID)
}

func TestList_FilterByStatus(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Record(testRequest(1)))
	require.NoError(t, s.Record(testRequest(2)))
	require.NoError(t, s.MarkFulfilled("2"))

	all, err := s.List("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	fulfilled, err := s.List(model.StatusFulfilled)
	require.NoError(t, err)
	require.Len(t, fulfilled, 1)
	assert.Equal(t, "2", fulfilled[0].RequestID)
}

func TestReopen_PersistsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relayer.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(testRequest(7)))
	require.NoError(t, s.RecordAttempt("7", "boom"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	rec, err := s.Get("7")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, model.StatusPending, rec.Status)
}

func TestTimeFormat_SortsChronologically(t *testing.T) {
	base := time.Date(2026, 8, 31, 12, 0, 5, 0, time.UTC)
	earlier := base.Add(150 * time.Millisecond)
	later := base.Add(200 * time.Millisecond)

	// RFC3339Nano renders these ".15Z" and ".2Z", which compare reversed
	// as TEXT; the fixed-width layout must not.
	assert.Less(t, earlier.Format(timeFormat), later.Format(timeFormat))

	roundTrip, err := time.Parse(timeFormat, earlier.Format(timeFormat))
	require.NoError(t, err)
	assert.True(t, roundTrip.Equal(earlier))
}
