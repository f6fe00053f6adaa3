package server

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odinfs/filestored/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return &Server{
		store:  store.New(store.Config{MaxFiles: 10, MaxBytes: 1024, Policy: store.PolicyFIFO}),
		logger: zerolog.Nop(),
		sink:   zerolog.Nop(),
	}
}

func runTask(s *Server, req *Request, client store.ClientID) *taskResult {
	t := &task{client: client, req: req, resultCh: make(chan *taskResult, 1)}
	s.execute(t)
	return <-t.resultCh
}

func TestExecuteOpenWriteRead(t *testing.T) {
	s := newTestServer(t)

	res := runTask(s, &Request{Op: OpOpen, Name: "a.txt", Flags: store.FlagCreate | store.FlagLock}, 1)
	require.Equal(t, store.StatusSuccess, res.resp.Status)
	require.Nil(t, res.fatal)

	res = runTask(s, &Request{Op: OpWrite, Name: "a.txt", Payload: []byte("hi")}, 1)
	require.Equal(t, store.StatusSuccess, res.resp.Status)

	res = runTask(s, &Request{Op: OpRead, Name: "a.txt"}, 1)
	require.Equal(t, store.StatusSuccess, res.resp.Status)
	assert.Equal(t, []byte("hi"), res.resp.Payload)
}

func TestExecuteUnknownFileRead(t *testing.T) {
	s := newTestServer(t)
	res := runTask(s, &Request{Op: OpRead, Name: "missing.txt"}, 1)
	assert.Equal(t, store.StatusFailure, res.resp.Status)
}

func TestExecuteTerminateAlwaysSucceeds(t *testing.T) {
	s := newTestServer(t)
	res := runTask(s, &Request{Op: OpTerminate}, 1)
	assert.Equal(t, store.StatusSuccess, res.resp.Status)
}

func TestExecuteUnknownOpcodeFails(t *testing.T) {
	s := newTestServer(t)
	res := runTask(s, &Request{Op: Opcode(200)}, 1)
	assert.Equal(t, store.StatusFailure, res.resp.Status)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "success", statusLabel(store.StatusSuccess))
	assert.Equal(t, "fatal", statusLabel(store.StatusFatal))
	assert.Equal(t, "failure", statusLabel(store.StatusFailure))
}
