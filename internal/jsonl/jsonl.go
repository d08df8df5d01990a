// Package jsonl implements the file-backed durable store: the whole index is
// written as one JSONL file, one entity dictionary or association pair per
// line, replaced atomically on every flush.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// FileName is the data file created inside the data directory.
const FileName = "hbnb.jsonl"

// maxLineSize bounds a single record, newline included. Flush refuses to
// write a line that Load could not read back.
const maxLineSize = 16 << 20

// ErrRecordTooLarge is returned by Flush for a record whose encoded line
// exceeds maxLineSize.
var ErrRecordTooLarge = errors.New("record too large")

// Backend persists snapshots to a single JSONL file.
type Backend struct {
	mu   sync.Mutex
	path string
}

// New returns a backend writing to dataDir/hbnb.jsonl. The directory is
// created if needed.
func New(dataDir string) (*Backend, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &Backend{path: filepath.Join(dataDir, FileName)}, nil
}

// Path returns the data file location.
func (b *Backend) Path() string { return b.path }

// Load reads the data file. A missing or empty file yields an empty
// snapshot. A line that is not a valid record fails the whole load.
func (b *Backend) Load() (*types.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines, err := readJSONL(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return &types.Snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}

	snap := &types.Snapshot{}
	for _, ln := range lines {
		var rec map[string]any
		if err := json.Unmarshal(ln.data, &rec); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", b.path, ln.num, err)
		}
		if rec[types.ClassKey] == types.LinkClass {
			placeID, _ := rec["place_id"].(string)
			amenityID, _ := rec["amenity_id"].(string)
			if placeID == "" || amenityID == "" {
				return nil, fmt.Errorf("%s line %d: incomplete association", b.path, ln.num)
			}
			snap.Links = append(snap.Links, types.Link{PlaceID: placeID, AmenityID: amenityID})
			continue
		}
		snap.Records = append(snap.Records, rec)
	}
	return snap, nil
}

// Flush replaces the data file with snap. Nothing is written when a record
// fails to encode or is too large.
func (b *Backend) Flush(snap *types.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	records := make([]json.RawMessage, 0, len(snap.Records)+len(snap.Links))
	for _, rec := range snap.Records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding %v %v: %w", rec[types.ClassKey], rec["id"], err)
		}
		if len(raw)+1 > maxLineSize {
			return fmt.Errorf("encoding %v %v: %d bytes: %w", rec[types.ClassKey], rec["id"], len(raw), ErrRecordTooLarge)
		}
		records = append(records, raw)
	}
	for _, l := range snap.Links {
		raw, err := json.Marshal(map[string]string{
			types.ClassKey: types.LinkClass,
			"place_id":     l.PlaceID,
			"amenity_id":   l.AmenityID,
		})
		if err != nil {
			return fmt.Errorf("encoding association: %w", err)
		}
		records = append(records, raw)
	}
	return writeJSONL(b.path, records)
}

// Close is a no-op; the file is not held open between calls.
func (b *Backend) Close() error { return nil }

type line struct {
	num  int
	data []byte
}

// readJSONL returns every non-empty line of the file with its line number.
func readJSONL(path string) ([]line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var lines []line
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for scanner.Scan() {
		n++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		lines = append(lines, line{num: n, data: cp})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return lines, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern, then syncs the directory so the rename survives a
// crash.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(format string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf(format, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return syncDir(dir)
}

// syncDir flushes the directory entry table of dir. Windows cannot fsync a
// directory handle.
func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("opening data dir: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("syncing data dir: %w", err)
	}
	return nil
}
