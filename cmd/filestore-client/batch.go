package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// batchEntry is one upload instruction in a batch manifest: the name to
// store the file under, the local path to read its bytes from, and whether
// to create the file. Every entry is opened with the lock, written,
// unlocked and closed.
type batchEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	// Create defaults to true. With create set to false the entry opens an
	// existing file, and the server then refuses the write: only the
	// connection that created a file with the lock may write it.
	Create *bool `json:"create,omitempty"`
}

type batchManifest struct {
	Entries []batchEntry `json:"entries"`
}

// batchCommand uploads many local files described by a manifest in one
// connection. The manifest is parsed with hujson so comments and trailing
// commas are tolerated, the way a hand-edited ops file usually accumulates
// them.
type batchCommand struct{}

func (batchCommand) Help() string {
	return "Usage: filestore-client batch [-evict-dir DIR] -socket PATH MANIFEST.jsonc"
}
func (batchCommand) Synopsis() string { return "upload a batch of files described by a JSON-with-comments manifest" }

func (batchCommand) Run(args []string) int {
	f := newBaseFlags("batch")
	evictDir := f.fs.String("evict-dir", "", "directory to save evicted files into")
	if err := f.fs.Parse(args); err != nil {
		return 1
	}
	if f.fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, batchCommand{}.Help())
		return 1
	}

	manifest, err := loadBatchManifest(f.fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	c, err := f.connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.close()

	manifestDir := filepath.Dir(f.fs.Arg(0))
	failures := 0
	for _, entry := range manifest.Entries {
		if err := runBatchEntry(c, manifestDir, entry, *evictDir); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", entry.Name, err)
			failures++
			continue
		}
		fmt.Printf("%s: ok\n", entry.Name)
	}
	if failures > 0 {
		return 1
	}
	return 0
}

func runBatchEntry(c *client, manifestDir string, entry batchEntry, evictDir string) error {
	create := true
	if entry.Create != nil {
		create = *entry.Create
	}

	path := entry.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(manifestDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := c.openFile(entry.Name, create, true, evictDir); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if err := c.writeFile(entry.Name, data, evictDir); err != nil {
		c.unlockFile(entry.Name)
		c.closeFile(entry.Name)
		return fmt.Errorf("write: %w", err)
	}
	if err := c.unlockFile(entry.Name); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	return c.closeFile(entry.Name)
}

func loadBatchManifest(path string) (*batchManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	standard, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	var m batchManifest
	if err := json.Unmarshal(standard, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}
