package store

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxFiles int, maxBytes int64, policy Policy) *Store {
	t.Helper()
	return New(Config{MaxFiles: maxFiles, MaxBytes: maxBytes, Policy: policy})
}

func TestOpenCreateThenReadWrite(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	const client ClientID = 1

	status, evicted, err := s.Open("a.txt", FlagCreate|FlagLock, client, false)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Empty(t, evicted)

	status, ev, err := s.Write("a.txt", []byte("hello"), client, false)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Empty(t, ev)

	status, data, err := s.Read("a.txt", client)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, []byte("hello"), data)
}

func TestOpenCreateTwiceFails(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	_, _, err := s.Open("a.txt", FlagCreate, 1, false)
	require.NoError(t, err)

	status, _, err := s.Open("a.txt", FlagCreate, 2, false)
	assert.Equal(t, StatusFailure, status)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestOpenMissingWithoutCreateFails(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	status, _, err := s.Open("nope.txt", 0, 1, false)
	assert.Equal(t, StatusFailure, status)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenSameClientTwiceFails(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	_, _, err := s.Open("a.txt", FlagCreate, 1, false)
	require.NoError(t, err)

	status, _, err := s.Open("a.txt", 0, 1, false)
	assert.Equal(t, StatusFailure, status)
	assert.ErrorIs(t, err, ErrAlreadyOpen)
}

// TestOpenWithoutLockThenReadFails resolves the open question of whether
// opening a file already locked by another client requires holding that
// lock: opening doesn't, but a subsequent read does — the source permits
// the open and only denies the read.
func TestOpenWithoutLockThenReadFails(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	const writer ClientID = 1
	const reader ClientID = 2

	_, _, err := s.Open("a.txt", FlagCreate|FlagLock, writer, false)
	require.NoError(t, err)
	_, _, err = s.Write("a.txt", []byte("payload"), writer, false)
	require.NoError(t, err)

	status, _, err := s.Open("a.txt", 0, reader, false)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)

	status, _, err = s.Read("a.txt", reader)
	assert.Equal(t, StatusFailure, status)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestReadRequiresBeingAnOpener(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	_, _, err := s.Open("a.txt", FlagCreate, 1, false)
	require.NoError(t, err)

	status, _, err := s.Read("a.txt", 99)
	assert.Equal(t, StatusFailure, status)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestWriteRequiresFirstWriter(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	_, _, err := s.Open("a.txt", FlagCreate, 1, false)
	require.NoError(t, err)

	status, _, err := s.Write("a.txt", []byte("x"), 1, false)
	assert.Equal(t, StatusFailure, status)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestWriteTwiceBySameClientFailsSecondTime(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	const client ClientID = 1
	_, _, err := s.Open("a.txt", FlagCreate|FlagLock, client, false)
	require.NoError(t, err)

	status, _, err := s.Write("a.txt", []byte("one"), client, false)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)

	status, _, err = s.Write("a.txt", []byte("two"), client, false)
	assert.Equal(t, StatusFailure, status)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestWriteTooBigFails(t *testing.T) {
	s := newTestStore(t, 10, 4, PolicyFIFO)
	_, _, err := s.Open("a.txt", FlagCreate|FlagLock, 1, false)
	require.NoError(t, err)

	status, _, err := s.Write("a.txt", []byte("too long"), 1, false)
	assert.Equal(t, StatusFailure, status)
	assert.ErrorIs(t, err, ErrTooBig)
}

func TestAppendRequiresOpenerAndCompatibleLock(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	const writer ClientID = 1
	const other ClientID = 2

	_, _, err := s.Open("a.txt", FlagCreate|FlagLock, writer, false)
	require.NoError(t, err)
	_, _, err = s.Write("a.txt", []byte("base"), writer, false)
	require.NoError(t, err)

	status, _, err := s.Append("a.txt", []byte("!!!"), other, false)
	assert.Equal(t, StatusFailure, status)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// write() clears first_writer but not lock_owner: other still can't
	// append until writer explicitly unlocks.
	_, err = s.Unlock("a.txt", writer)
	require.NoError(t, err)

	_, _, err = s.Open("a.txt", 0, other, false)
	require.NoError(t, err)
	status, _, err = s.Append("a.txt", []byte("!!!"), other, false)
	assert.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)

	_, data, err := s.Read("a.txt", other)
	require.NoError(t, err)
	assert.Equal(t, []byte("base!!!"), data)
}

func TestCloseDoesNotReleaseLock(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	const client ClientID = 1
	_, _, err := s.Open("a.txt", FlagCreate|FlagLock, client, false)
	require.NoError(t, err)

	status, err := s.Close("a.txt", client)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)

	_, _, err = s.Open("a.txt", 0, 2, false)
	require.NoError(t, err)
	status, _, err = s.Read("a.txt", 2)
	assert.Equal(t, StatusFailure, status)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestLockWaitsThenHandsOffOnUnlock(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	const first ClientID = 1
	const second ClientID = 2

	_, _, err := s.Open("a.txt", FlagCreate|FlagLock, first, false)
	require.NoError(t, err)
	_, _, err = s.Open("a.txt", 0, second, false)
	require.NoError(t, err)

	done := make(chan struct{})
	var status Status
	var lockErr error
	go func() {
		status, lockErr = s.Lock("a.txt", second)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second client's Lock returned before first unlocked")
	case <-time.After(50 * time.Millisecond):
	}

	st, err := s.Unlock("a.txt", first)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second client's Lock never returned after unlock")
	}
	assert.NoError(t, lockErr)
	assert.Equal(t, StatusSuccess, status)
}

func TestRemoveFailsPendingWaiters(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	const first ClientID = 1
	const second ClientID = 2

	_, _, err := s.Open("a.txt", FlagCreate|FlagLock, first, false)
	require.NoError(t, err)
	_, _, err = s.Open("a.txt", 0, second, false)
	require.NoError(t, err)

	done := make(chan struct{})
	var lockErr error
	go func() {
		_, lockErr = s.Lock("a.txt", second)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)

	status, err := s.Remove("a.txt", first)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was never released by Remove")
	}
	assert.ErrorIs(t, lockErr, ErrRemoved)
}

func TestRemoveRequiresLockOwnership(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	_, _, err := s.Open("a.txt", FlagCreate, 1, false)
	require.NoError(t, err)

	status, err := s.Remove("a.txt", 1)
	assert.Equal(t, StatusFailure, status)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestEvictionFIFOOrder(t *testing.T) {
	s := newTestStore(t, 2, 1024, PolicyFIFO)
	_, _, err := s.Open("a.txt", FlagCreate, 1, false)
	require.NoError(t, err)
	_, _, err = s.Open("b.txt", FlagCreate, 1, false)
	require.NoError(t, err)

	status, evicted, err := s.Open("c.txt", FlagCreate, 1, true)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)
	require.Len(t, evicted, 1)
	assert.Equal(t, "a.txt", evicted[0].Name)
}

func TestEvictionSkipsLockedFiles(t *testing.T) {
	s := newTestStore(t, 1, 1024, PolicyFIFO)
	_, _, err := s.Open("a.txt", FlagCreate|FlagLock, 1, false)
	require.NoError(t, err)

	status, _, err := s.Open("b.txt", FlagCreate, 2, false)
	assert.Equal(t, StatusFailure, status)
	assert.ErrorIs(t, err, ErrNoSpace)
}

// TestWriteNeverEvictsItsOwnTarget resolves the open question of whether a
// write that grows a file could legally select that same file as its own
// eviction victim: it can't, by name exclusion in evictUntil.
func TestWriteNeverEvictsItsOwnTarget(t *testing.T) {
	s := newTestStore(t, 10, 8, PolicyFIFO)
	const client ClientID = 1

	_, _, err := s.Open("a.txt", FlagCreate|FlagLock, client, false)
	require.NoError(t, err)
	_, _, err = s.Write("a.txt", []byte("1234"), client, false)
	require.NoError(t, err)

	status, evicted, err := s.Append("a.txt", []byte("5678"), client, true)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	for _, e := range evicted {
		assert.NotEqual(t, "a.txt", e.Name)
	}

	_, data, err := s.Read("a.txt", client)
	require.NoError(t, err)
	assert.Equal(t, []byte("12345678"), data)
}

func TestReadNReturnsUpToLimit(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		_, _, err := s.Open(name, FlagCreate|FlagLock, 1, false)
		require.NoError(t, err)
		_, _, err = s.Write(name, []byte(name), 1, false)
		require.NoError(t, err)
		_, err = s.Unlock(name, 1)
		require.NoError(t, err)
	}

	status, files, err := s.ReadN(2, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)

	// FIFO insertion order pins exactly which two files come back; go-cmp
	// catches a wrong byte slice or a stray field as readily as a wrong
	// count, which assert.Len alone would miss.
	want := []FileData{
		{Name: "a.txt", Bytes: []byte("a.txt")},
		{Name: "b.txt", Bytes: []byte("b.txt")},
	}
	if diff := cmp.Diff(want, files, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("ReadN(2) mismatch (-want +got):\n%s", diff)
	}
}

func TestReadNExcludesFilesLockedElsewhere(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	_, _, err := s.Open("a.txt", FlagCreate|FlagLock, 1, false)
	require.NoError(t, err)

	status, files, err := s.ReadN(0, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Empty(t, files)
}

func TestStatsReflectsSizeAndCount(t *testing.T) {
	s := newTestStore(t, 10, 1024, PolicyFIFO)
	_, _, err := s.Open("a.txt", FlagCreate|FlagLock, 1, false)
	require.NoError(t, err)
	_, _, err = s.Write("a.txt", []byte("12345"), 1, false)
	require.NoError(t, err)

	st := s.Stats()
	assert.Equal(t, 1, st.FileCount)
	assert.EqualValues(t, 5, st.TotalBytes)
}
