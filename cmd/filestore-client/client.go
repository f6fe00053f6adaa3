package main

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/odinfs/filestored/internal/server"
	"github.com/odinfs/filestored/store"
)

// client is a thin synchronous wrapper around one connection to filestored.
// It mirrors the original openConnection/closeConnection/openFile/... API
// surface, one method per opcode, translated into Go method calls instead
// of free functions plus a global connection handle.
type client struct {
	conn    net.Conn
	verbose bool
}

func dial(sockname string, timeout time.Duration, verbose bool) (*client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		c, err := net.DialTimeout("unix", sockname, 200*time.Millisecond)
		if err == nil {
			return &client{conn: c, verbose: verbose}, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	return nil, fmt.Errorf("could not connect to %s: %w", sockname, lastErr)
}

func (c *client) close() error {
	req := &server.Request{Op: server.OpTerminate}
	if _, err := req.WriteTo(c.conn); err == nil {
		server.ReadResponse(c.conn, server.OpTerminate)
	}
	return c.conn.Close()
}

func (c *client) logf(format string, args ...interface{}) {
	if c.verbose {
		fmt.Printf(format+"\n", args...)
	}
}

func (c *client) roundTrip(req *server.Request) (*server.Response, error) {
	if _, err := req.WriteTo(c.conn); err != nil {
		return nil, err
	}
	return server.ReadResponse(c.conn, req.Op)
}

func (c *client) openFile(name string, create, lock bool, dir string) error {
	var flags store.Flags
	if create {
		flags |= store.FlagCreate
	}
	if lock {
		flags |= store.FlagLock
	}
	resp, err := c.roundTrip(&server.Request{Op: server.OpOpen, Name: name, Flags: flags, WantEvictees: dir != ""})
	if err != nil {
		return err
	}
	c.logf("open %q: %s (%d evicted)", name, statusString(resp.Status), len(resp.Evictees))
	if err := statusErr(resp.Status); err != nil {
		return err
	}
	return c.persistEvictees(dir, resp.Evictees)
}

func (c *client) closeFile(name string) error {
	resp, err := c.roundTrip(&server.Request{Op: server.OpClose, Name: name})
	if err != nil {
		return err
	}
	c.logf("close %q: %s", name, statusString(resp.Status))
	return statusErr(resp.Status)
}

func (c *client) readFile(name string) ([]byte, error) {
	resp, err := c.roundTrip(&server.Request{Op: server.OpRead, Name: name})
	if err != nil {
		return nil, err
	}
	c.logf("read %q: %s (%d bytes)", name, statusString(resp.Status), len(resp.Payload))
	if err := statusErr(resp.Status); err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

func (c *client) readNFiles(n int, dir string) ([]store.FileData, error) {
	resp, err := c.roundTrip(&server.Request{Op: server.OpReadN, N: n})
	if err != nil {
		return nil, err
	}
	c.logf("read-n %d: %s (%d files)", n, statusString(resp.Status), len(resp.Files))
	if err := statusErr(resp.Status); err != nil {
		return nil, err
	}
	if dir != "" {
		for _, f := range resp.Files {
			if err := saveFile(dir, f.Name, f.Bytes); err != nil {
				return resp.Files, err
			}
		}
	}
	return resp.Files, nil
}

func (c *client) writeFile(name string, data []byte, dir string) error {
	resp, err := c.roundTrip(&server.Request{Op: server.OpWrite, Name: name, Payload: data, WantEvictees: dir != ""})
	if err != nil {
		return err
	}
	c.logf("write %q: %s (%d bytes, %d evicted)", name, statusString(resp.Status), len(data), len(resp.Evictees))
	if err := statusErr(resp.Status); err != nil {
		return err
	}
	return c.persistEvictees(dir, resp.Evictees)
}

func (c *client) appendFile(name string, data []byte, dir string) error {
	resp, err := c.roundTrip(&server.Request{Op: server.OpAppend, Name: name, Payload: data, WantEvictees: dir != ""})
	if err != nil {
		return err
	}
	c.logf("append %q: %s (%d bytes, %d evicted)", name, statusString(resp.Status), len(data), len(resp.Evictees))
	if err := statusErr(resp.Status); err != nil {
		return err
	}
	return c.persistEvictees(dir, resp.Evictees)
}

func (c *client) lockFile(name string) error {
	resp, err := c.roundTrip(&server.Request{Op: server.OpLock, Name: name})
	if err != nil {
		return err
	}
	c.logf("lock %q: %s", name, statusString(resp.Status))
	return statusErr(resp.Status)
}

func (c *client) unlockFile(name string) error {
	resp, err := c.roundTrip(&server.Request{Op: server.OpUnlock, Name: name})
	if err != nil {
		return err
	}
	c.logf("unlock %q: %s", name, statusString(resp.Status))
	return statusErr(resp.Status)
}

func (c *client) removeFile(name string) error {
	resp, err := c.roundTrip(&server.Request{Op: server.OpRemove, Name: name})
	if err != nil {
		return err
	}
	c.logf("remove %q: %s", name, statusString(resp.Status))
	return statusErr(resp.Status)
}

// persistEvictees writes every evicted file to dir using an atomic
// rename-into-place so a crash mid-write never leaves a half-written
// evicted copy on disk.
func (c *client) persistEvictees(dir string, evictees []store.Evictee) error {
	if dir == "" {
		return nil
	}
	for _, e := range evictees {
		if err := saveFile(dir, e.Name, e.Bytes); err != nil {
			return err
		}
	}
	return nil
}

func saveFile(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	target := filepath.Join(dir, filepath.Base(name))
	return atomic.WriteFile(target, bytes.NewReader(data))
}

func statusString(s store.Status) string {
	switch s {
	case store.StatusSuccess:
		return "OK"
	case store.StatusFatal:
		return "FATAL"
	default:
		return "FAILURE"
	}
}

func statusErr(s store.Status) error {
	if s != store.StatusSuccess {
		return fmt.Errorf("server returned %s", statusString(s))
	}
	return nil
}
