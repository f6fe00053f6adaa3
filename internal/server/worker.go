package server

import (
	"context"
	"fmt"
	"time"

	"github.com/odinfs/filestored/store"
)

// runWorker is the body of one worker goroutine: dequeue a task, execute it
// against the store, hand the result back to the connection goroutine that
// submitted it. Workers never touch net.Conn directly and never log to the
// operational logger on the success path; they only write to the log sink
// and update metrics, matching the store's own no-side-channel rule one
// layer up.
func (s *Server) runWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t, ok := <-s.tasks:
			if !ok {
				return nil
			}
			s.execute(t)
		}
	}
}

func (s *Server) execute(t *task) {
	start := time.Now()
	result := &taskResult{resp: &Response{}}

	defer func() {
		if r := recover(); r != nil {
			LogPanic(s.logger, r, "worker panic while executing request", map[string]interface{}{
				"opcode": t.req.Op.String(),
			})
			result.resp.Status = store.StatusFatal
			result.fatal = &store.FatalError{Op: t.req.Op.String(), Err: fmt.Errorf("panic: %v", r)}
			t.resultCh <- result
		}
	}()

	switch t.req.Op {
	case OpOpen:
		status, evictees, err := s.store.Open(t.req.Name, t.req.Flags, t.client, t.req.WantEvictees)
		result.resp.Status = status
		s.handleEvictees(t.req.Name, evictees, err, result)
	case OpClose:
		status, err := s.store.Close(t.req.Name, t.client)
		result.resp.Status = status
		s.checkFatal(err, result)
	case OpRead:
		status, data, err := s.store.Read(t.req.Name, t.client)
		result.resp.Status = status
		result.resp.Payload = data
		s.checkFatal(err, result)
	case OpReadN:
		status, files, err := s.store.ReadN(t.req.N, t.client)
		result.resp.Status = status
		result.resp.Files = files
		s.checkFatal(err, result)
	case OpWrite:
		status, evictees, err := s.store.Write(t.req.Name, t.req.Payload, t.client, t.req.WantEvictees)
		result.resp.Status = status
		s.handleEvictees(t.req.Name, evictees, err, result)
	case OpAppend:
		status, evictees, err := s.store.Append(t.req.Name, t.req.Payload, t.client, t.req.WantEvictees)
		result.resp.Status = status
		s.handleEvictees(t.req.Name, evictees, err, result)
	case OpLock:
		status, err := s.store.Lock(t.req.Name, t.client)
		result.resp.Status = status
		s.checkFatal(err, result)
	case OpUnlock:
		status, err := s.store.Unlock(t.req.Name, t.client)
		result.resp.Status = status
		s.checkFatal(err, result)
	case OpRemove:
		status, err := s.store.Remove(t.req.Name, t.client)
		result.resp.Status = status
		s.checkFatal(err, result)
	case OpTerminate:
		result.resp.Status = store.StatusSuccess
	default:
		result.resp.Status = store.StatusFailure
	}

	s.logOperation(t, result, time.Since(start))
	t.resultCh <- result
}

// handleEvictees records evictions regardless of whether the client asked
// to see them, but only attaches them to the response when the request's
// WantEvictees flag was set (mirroring -d being nil on the client CLI).
func (s *Server) handleEvictees(name string, evictees []store.Evictee, err error, result *taskResult) {
	s.checkFatal(err, result)
	if len(evictees) > 0 {
		RecordEvictions(len(evictees))
		s.logEvictions(name, evictees)
	}
	result.resp.Evictees = evictees
}

func (s *Server) checkFatal(err error, result *taskResult) {
	if fe, ok := err.(*store.FatalError); ok {
		result.resp.Status = store.StatusFatal
		result.fatal = fe
		RecordFatalError()
	}
}

func (s *Server) logOperation(t *task, result *taskResult, d time.Duration) {
	RecordOperation(t.req.Op.String(), statusLabel(result.resp.Status), d)
	s.sink.Info().
		Int64("client", int64(t.client)).
		Str("op", t.req.Op.String()).
		Str("name", t.req.Name).
		Str("status", statusLabel(result.resp.Status)).
		Dur("duration", d).
		Msg("request")
}

func (s *Server) logEvictions(target string, evictees []store.Evictee) {
	names := make([]string, 0, len(evictees))
	for _, e := range evictees {
		names = append(names, e.Name)
	}
	s.sink.Info().
		Str("triggered_by", target).
		Strs("evicted", names).
		Msg("eviction")
}

func statusLabel(st store.Status) string {
	switch st {
	case store.StatusSuccess:
		return "success"
	case store.StatusFatal:
		return "fatal"
	default:
		return "failure"
	}
}
