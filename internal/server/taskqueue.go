package server

import "github.com/odinfs/filestored/store"

// task is one decoded request waiting to be executed by a worker. It is the
// Go-native stand-in for the original dispatcher's request queue entry: in
// the select(2)-based design a request was a struct queued for a thread
// pool; here it is the same thing, queued on a channel instead.
type task struct {
	client   store.ClientID
	req      *Request
	resultCh chan *taskResult
}

// taskResult is what a worker hands back once it has executed a task. fatal
// is non-nil only when the store reported a *store.FatalError, which per
// the propagation policy must escalate to a hard stop rather than being
// reported to the client as an ordinary failure.
type taskResult struct {
	resp  *Response
	fatal error
}

// newTaskQueue allocates the bounded channel shared by every connection
// goroutine and every worker. Its capacity is the one piece of true
// backpressure in the system: once it's full, connection goroutines block
// on submission instead of piling up unbounded in-flight requests.
func newTaskQueue(capacity int) chan *task {
	return make(chan *task, capacity)
}
