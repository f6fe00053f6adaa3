package server

import (
	"encoding/binary"
	"fmt"
	"io"
)

// writeFrame prefixes body with a 4-byte big-endian length and writes both
// in a single call so a torn write can't leave the peer with a partial
// prefix.
func writeFrame(w io.Writer, body []byte) (int64, error) {
	if len(body) > maxFrameBody {
		return 0, errFrameTooLarge
	}
	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(body)))
	copy(buf[4:], body)
	n, err := w.Write(buf)
	return int64(n), err
}

// readFrame reads one length-prefixed frame and returns its body as a
// string (the body is never mutated afterward, so sharing the underlying
// array is safe).
func readFrame(r io.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameBody {
		return "", errFrameTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("filestored: short frame body: %w", err)
	}
	return string(buf), nil
}
