package store

import "sync"

// waiter is one entry in a file's lock-wait queue. ch delivers the outcome
// once the waiter reaches the head of the queue and is handed the lock (or
// told the file was removed out from under it). A waiter whose connection
// died while it sat in the queue is not purged proactively: the connection
// goroutine waiting on its reply discovers the dead connection when it tries
// to send that reply, and is expected to call Unlock on the client's behalf so the
// lock passes on to the next waiter instead of leaking to a ghost owner.
type waiter struct {
	client ClientID
	ch     chan lockOutcome
}

type lockOutcome struct {
	status Status
	err    error
}

// file is one record in the store. bytes, openers, lockOwner, lockWaiters and
// firstWriter are exactly the fields the spec's data model names; mu gives
// lock/unlock a short critical section independent of rw, which guards only
// the byte payload itself.
type file struct {
	name string

	mu          sync.Mutex
	openers     map[ClientID]struct{}
	lockOwner   ClientID
	lockWaiters []*waiter
	firstWriter ClientID
	removed     bool

	rw    *rwMutex
	bytes []byte

	// inUse counts in-flight operations on this file (readers and writers
	// alike); it is read and written only while the structural mutex is
	// held, and brackets every rw acquisition so the eviction scan can tell
	// a record is mid-operation even though the scan itself never touches
	// rw. It must be a count, not a flag: two concurrent readers on the
	// same file each bracket their own rw.RLock/RUnlock, and a flag one of
	// them clears early would let eviction race the other's still-in-flight
	// read.
	inUse int
}

func newFile(name string) *file {
	return &file{
		name:    name,
		openers: make(map[ClientID]struct{}),
		rw:      newRWMutex(),
	}
}

func (f *file) size() int64 {
	return int64(len(f.bytes))
}
