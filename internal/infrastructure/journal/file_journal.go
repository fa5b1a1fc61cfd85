package journal

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"batch_transfer/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileJournal is a JSON-lines signature journal. One line per recorded entry.
type FileJournal struct {
	path string
	mu   sync.Mutex
}

// NewFileJournal creates the journal directory if needed.
func NewFileJournal(path string) (*FileJournal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory %s: %w", dir, err)
		}
	}
	return &FileJournal{path: path}, nil
}

// Record appends entry and syncs the file.
func (j *FileJournal) Record(_ context.Context, entry entity.JournalEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry %s: %w", entry.Signature, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal %s: %w", j.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write journal %s: %w", j.path, err)
	}
	return f.Sync()
}

// Unreconciled returns the entries not yet marked reconciled, in recording order.
func (j *FileJournal) Unreconciled(_ context.Context) ([]entity.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}
	var out []entity.JournalEntry
	for _, e := range entries {
		if !e.Reconciled {
			out = append(out, e)
		}
	}
	return out, nil
}

// MarkReconciled flags the entries carrying the given signatures and rewrites the file atomically.
func (j *FileJournal) MarkReconciled(_ context.Context, signatures []string) error {
	if len(signatures) == 0 {
		return nil
	}
	marked := make(map[string]bool, len(signatures))
	for _, s := range signatures {
		marked[s] = true
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, e := range entries {
		if marked[e.Signature] {
			e.Reconciled = true
		}
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode journal entry %s: %w", e.Signature, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write journal %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("replace journal %s: %w", j.path, err)
	}
	return nil
}

// readAll merges entries by signature, keeping first-seen order. Later lines win.
func (j *FileJournal) readAll() ([]entity.JournalEntry, error) {
	f, err := os.Open(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", j.path, err)
	}
	defer f.Close()

	var (
		order []string
		bySig = make(map[string]entity.JournalEntry)
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e entity.JournalEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("journal %s line %d: %w", j.path, lineNum, err)
		}
		if _, seen := bySig[e.Signature]; !seen {
			order = append(order, e.Signature)
		}
		bySig[e.Signature] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning journal %s: %w", j.path, err)
	}

	out := make([]entity.JournalEntry, 0, len(order))
	for _, sig := range order {
		out = append(out, bySig[sig])
	}
	return out, nil
}
