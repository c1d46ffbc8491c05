package logstore

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/vodnote/internal/entry"
	"github.com/hpungsan/vodnote/internal/kv"
	vlog "github.com/hpungsan/vodnote/internal/log"
)

func newTestStore(t *testing.T, backend kv.Store) *Store {
	t.Helper()
	fixed := time.Unix(1700000000, 0)
	return Open(backend,
		WithLogger(vlog.Discard()),
		WithClock(func() time.Time { return fixed }),
	)
}

func texts(entries []entry.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestAdd_KeepsTimestampOrder(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())

	_, ok := s.Add(10, "peek mid")
	require.True(t, ok)
	_, ok = s.Add(5, "early")
	require.True(t, ok)

	snap := s.Snapshot()
	assert.Equal(t, []string{"early", "peek mid"}, texts(snap))
	assert.Equal(t, []float64{5, 10}, []float64{snap[0].Timestamp, snap[1].Timestamp})
}

func TestAdd_TiesKeepInsertionOrder(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())

	s.Add(10, "first")
	s.Add(10, "second")
	s.Add(3, "zero")
	s.Add(10, "third")

	assert.Equal(t, []string{"zero", "first", "second", "third"}, texts(s.Snapshot()))
}

func TestAdd_EmptyTextIsNoop(t *testing.T) {
	backend := kv.NewMemory()
	s := newTestStore(t, backend)

	_, ok := s.Add(3, "   \n\t")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, backend.Puts())
}

func TestAdd_TrimsAndClamps(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())

	e, ok := s.Add(-2, "  reset crosshair  ")
	require.True(t, ok)
	assert.Equal(t, "reset crosshair", e.Text)
	assert.Equal(t, float64(0), e.Timestamp)
	assert.NotEmpty(t, e.ID)
}

func TestAdd_RandomSequencesStaySorted(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := newTestStore(t, kv.NewMemory())

	for i := 0; i < 300; i++ {
		s.Add(float64(rng.Intn(120)), fmt.Sprintf("note %d", i))
		if i%7 == 0 {
			snap := s.Snapshot()
			s.Delete(snap[rng.Intn(len(snap))].ID)
		}
		require.True(t, entry.IsSorted(s.Snapshot()))
	}
}

func TestAdd_StableAgainstInsertionOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := newTestStore(t, kv.NewMemory())

	added := make(map[string]int)
	for i := 0; i < 200; i++ {
		e, _ := s.Add(float64(rng.Intn(5)), fmt.Sprintf("n%d", i))
		added[e.ID] = i
	}

	snap := s.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i].Timestamp == snap[i-1].Timestamp {
			assert.Less(t, added[snap[i-1].ID], added[snap[i].ID])
		}
	}
}

func TestIDs_UniqueAndNeverReused(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		e, ok := s.Add(1, "same millisecond")
		require.True(t, ok)
		require.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
		if i%2 == 0 {
			require.True(t, s.Delete(e.ID))
		}
	}

	created := s.BulkImport([]entry.Draft{{Timestamp: 1, Text: "a"}, {Timestamp: 2, Text: "b"}})
	for _, e := range created {
		assert.False(t, seen[e.ID])
	}
}

func TestUpdate_ReplacesTextInPlace(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())

	s.Add(1, "a")
	target, _ := s.Add(2, "b")
	s.Add(3, "c")

	require.True(t, s.Update(target.ID, "  changed  "))

	snap := s.Snapshot()
	assert.Equal(t, []string{"a", "changed", "c"}, texts(snap))
	assert.Equal(t, target.ID, snap[1].ID)
	assert.Equal(t, float64(2), snap[1].Timestamp)
}

func TestUpdate_UnknownOrEmpty(t *testing.T) {
	backend := kv.NewMemory()
	s := newTestStore(t, backend)
	e, _ := s.Add(1, "keep")
	puts := backend.Puts()

	assert.False(t, s.Update("missing", "x"))
	assert.False(t, s.Update(e.ID, "   "))
	assert.Equal(t, "keep", s.Snapshot()[0].Text)
	assert.Equal(t, puts, backend.Puts())
}

func TestDelete_Idempotent(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	a, _ := s.Add(1, "a")
	s.Add(2, "b")

	assert.True(t, s.Delete(a.ID))
	after := s.Snapshot()
	assert.False(t, s.Delete(a.ID))
	assert.Equal(t, after, s.Snapshot())
	assert.False(t, s.Delete(""))
}

func TestBulkImport_SortsOnceSavesOnce(t *testing.T) {
	backend := kv.NewMemory()
	s := newTestStore(t, backend)
	s.Add(7, "existing")
	puts := backend.Puts()

	created := s.BulkImport([]entry.Draft{
		{Timestamp: 10, Text: "first"},
		{Timestamp: 5, Text: "second"},
		{Timestamp: 1, Text: "  "},
	})

	require.Len(t, created, 2)
	assert.Equal(t, "first", created[0].Text)
	assert.Equal(t, []string{"second", "existing", "first"}, texts(s.Snapshot()))
	assert.Equal(t, puts+1, backend.Puts())
}

func TestBulkImport_NothingUsable(t *testing.T) {
	backend := kv.NewMemory()
	s := newTestStore(t, backend)

	created := s.BulkImport([]entry.Draft{{Timestamp: 1, Text: ""}})
	assert.Empty(t, created)
	assert.Equal(t, 0, backend.Puts())
}

func TestClear(t *testing.T) {
	backend := kv.NewMemory()
	s := newTestStore(t, backend)
	s.Add(1, "a")
	s.Add(2, "b")

	s.Clear()

	assert.Equal(t, 0, s.Len())
	data, err := backend.Get(kv.KeyLogs)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestGet(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	e, _ := s.Add(4, "find me")

	got, ok := s.Get(e.ID)
	require.True(t, ok)
	assert.Equal(t, e, got)

	_, ok = s.Get("nope")
	assert.False(t, ok)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	s.Add(1, "original")

	snap := s.Snapshot()
	snap[0].Text = "mutated"

	assert.Equal(t, "original", s.Snapshot()[0].Text)
}

func TestPersistence_SavedAfterEachMutation(t *testing.T) {
	backend := kv.NewMemory()
	s := newTestStore(t, backend)

	a, _ := s.Add(10, "a")
	s.Add(5, "b")
	s.Update(a.ID, "a2")
	s.Delete(a.ID)

	assert.Equal(t, 4, backend.Puts())

	reopened := newTestStore(t, backend)
	assert.Equal(t, s.Snapshot(), reopened.Snapshot())
}

func TestPersistence_WriteFailureKeepsMutation(t *testing.T) {
	backend := kv.NewMemory()
	backend.PutErr = fmt.Errorf("quota exceeded")
	s := newTestStore(t, backend)

	_, ok := s.Add(1, "still here")
	assert.True(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestHydrate_MissingAndCorrupt(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		s := newTestStore(t, kv.NewMemory())
		assert.Equal(t, 0, s.Len())
	})

	t.Run("corrupt", func(t *testing.T) {
		backend := kv.NewMemory()
		require.NoError(t, backend.Put(kv.KeyLogs, []byte(`{"broken"`)))
		s := newTestStore(t, backend)
		assert.Equal(t, 0, s.Len())
	})
}

func TestHydrate_SortsAndRemintsIDs(t *testing.T) {
	backend := kv.NewMemory()
	require.NoError(t, backend.Put(kv.KeyLogs, []byte(`[
		{"id":"dup","timestamp":30,"text":"c"},
		{"id":"dup","timestamp":10,"text":"a"},
		{"id":"","timestamp":20,"text":"b"}
	]`)))

	s := newTestStore(t, backend)
	snap := s.Snapshot()

	assert.Equal(t, []string{"a", "b", "c"}, texts(snap))
	ids := map[string]bool{}
	for _, e := range snap {
		require.NotEmpty(t, e.ID)
		require.False(t, ids[e.ID])
		ids[e.ID] = true
	}
	assert.True(t, ids["dup"])

	e, _ := s.Add(0, "new")
	assert.NotEqual(t, "dup", e.ID)
}
