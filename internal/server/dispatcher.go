package server

import (
	"net"
	"sync/atomic"

	"github.com/odinfs/filestored/store"
)

// acceptLoop is the Go-native replacement for the original select(2)
// readiness loop: instead of a single thread multiplexing every client fd
// through a master_read_set and a self-pipe wakeup, each accepted
// connection gets its own goroutine that blocks on its own socket. Online
// client accounting and graceful draining are tracked on Server rather than
// in a bespoke fd set.
func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.draining.Load() {
				return nil
			}
			return err
		}
		client := store.ClientID(atomic.AddInt64(&s.clientSeq, 1))
		s.trackConn(conn)
		s.connWG.Add(1)
		RecordConnectionOpened()
		go s.handleConn(conn, client)
	}
}

// handleConn serializes one connection's requests: a client only ever has
// one request in flight, so reading the next frame doubles as "rearming"
// the connection the way the original dispatcher re-added a client's fd to
// the read set after replying.
func (s *Server) handleConn(conn net.Conn, client store.ClientID) {
	defer func() {
		conn.Close()
		s.forgetConn(conn)
		s.connWG.Done()
		RecordConnectionClosed()
	}()

	for {
		req, err := ReadRequest(conn)
		if err != nil {
			return
		}

		t := &task{client: client, req: req, resultCh: make(chan *taskResult, 1)}
		select {
		case s.tasks <- t:
		case <-s.hardCtx.Done():
			return
		}
		RecordQueueDepth(len(s.tasks))

		result := <-t.resultCh
		if result.fatal != nil {
			s.triggerHardStop(result.fatal)
			return
		}

		if _, werr := result.resp.WriteTo(conn, req.Op); werr != nil {
			// The client is gone and never will read this reply. If it was
			// about to become (or already was) a lock owner, release the
			// lock on its behalf so the next waiter isn't starved forever.
			LogError(s.sink, store.ErrClientGone, "reply write failed", map[string]interface{}{
				"client": int64(client),
				"op":     req.Op.String(),
			})
			if req.Op == OpLock && result.resp.Status == store.StatusSuccess {
				s.store.Unlock(req.Name, client)
			}
			return
		}
		if req.Op == OpTerminate {
			return
		}
	}
}
