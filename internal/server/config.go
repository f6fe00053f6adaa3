package server

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/odinfs/filestored/store"
)

// Config keys match the original config file format byte for byte: one
// "KEY = VALUE" line per required setting. None of the libraries in the
// example pack parse this shape (it isn't YAML, isn't dotenv, isn't a flag
// set) so this one file is plain bufio.Scanner + strings, not a pulled-in
// config library.
const (
	keyWorkers    = "NUMBER OF THREAD WORKERS"
	keyMaxFiles   = "MAXIMUM NUMBER OF STORABLE FILES"
	keyStorage    = "MAXIMUM STORAGE SIZE"
	keySocketPath = "SOCKET FILE PATH"
	keyLogPath    = "LOG FILE PATH"
	keyPolicy     = "REPLACEMENT POLICY"

	// maxSocketPathLen matches struct sockaddr_un's sun_path capacity (108
	// bytes including the trailing NUL), so the usable path length is 107.
	maxSocketPathLen = 107
)

// Config is the fully parsed, validated server configuration.
type Config struct {
	WorkersNo  int
	MaxFilesNo int
	StorageSize int64
	SocketPath string
	LogPath    string
	Policy     store.Policy
}

// LoadConfig reads and validates the KEY = VALUE config file at path.
// Every one of the six keys must appear exactly once; duplicates, missing
// keys, unparseable or out-of-range values all fail startup.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("filestored: opening config file: %w", err)
	}
	defer f.Close()

	seen := make(map[string]bool, 6)
	cfg := &Config{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := splitConfigLine(line)
		if !ok {
			return nil, fmt.Errorf("filestored: malformed config line %q", line)
		}
		if seen[key] {
			return nil, fmt.Errorf("filestored: duplicate config key %q", key)
		}
		seen[key] = true

		switch key {
		case keyWorkers:
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("filestored: %s must be a positive integer, got %q", keyWorkers, value)
			}
			cfg.WorkersNo = n
		case keyMaxFiles:
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("filestored: %s must be a positive integer, got %q", keyMaxFiles, value)
			}
			cfg.MaxFilesNo = n
		case keyStorage:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("filestored: %s must be a positive integer, got %q", keyStorage, value)
			}
			cfg.StorageSize = n
		case keySocketPath:
			if value == "" {
				return nil, fmt.Errorf("filestored: %s must not be empty", keySocketPath)
			}
			if len(value) > maxSocketPathLen {
				return nil, fmt.Errorf("filestored: %s exceeds %d bytes, got %d", keySocketPath, maxSocketPathLen, len(value))
			}
			cfg.SocketPath = value
		case keyLogPath:
			if value == "" {
				return nil, fmt.Errorf("filestored: %s must not be empty", keyLogPath)
			}
			cfg.LogPath = value
		case keyPolicy:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("filestored: %s must be an integer in {0,1,2}, got %q", keyPolicy, value)
			}
			p, ok := store.ParsePolicyNumber(n)
			if !ok {
				return nil, fmt.Errorf("filestored: %s must be 0 (FIFO), 1 (LRU) or 2 (LFU), got %q", keyPolicy, value)
			}
			cfg.Policy = p
		default:
			return nil, fmt.Errorf("filestored: unrecognized config key %q", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("filestored: reading config file: %w", err)
	}

	required := []string{keyWorkers, keyMaxFiles, keyStorage, keySocketPath, keyLogPath, keyPolicy}
	for _, k := range required {
		if !seen[k] {
			return nil, fmt.Errorf("filestored: missing required config key %q", k)
		}
	}
	return cfg, nil
}

func splitConfigLine(line string) (key, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if key == "" {
		return "", "", false
	}
	return key, value, true
}
