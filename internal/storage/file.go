package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileJournal keeps exchanges in a JSON lines file held open for appending.
type FileJournal struct {
	mu   sync.Mutex
	path string
	w    *os.File
}

func NewFileJournal(path string) (*FileJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	w, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &FileJournal{path: path, w: w}, nil
}

// Append writes ex as a single line so a concurrent reader never sees half of it.
func (j *FileJournal) Append(ex Exchange) error {
	line, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("marshal exchange: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.w == nil {
		return ErrJournalClosed
	}
	if _, err := j.w.Write(line); err != nil {
		return fmt.Errorf("append exchange: %w", err)
	}
	return nil
}

// Since returns the exchanges stamped at or after t, oldest first. A zero t
// returns everything. Undecodable lines and a torn final line are skipped.
func (j *FileJournal) Since(t time.Time) ([]Exchange, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.w == nil {
		return nil, ErrJournalClosed
	}
	f, err := os.Open(j.path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []Exchange
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// Anything left without a newline is an interrupted write.
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read journal: %w", err)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var ex Exchange
		if json.Unmarshal(line, &ex) != nil || ex.Timestamp.Before(t) {
			continue
		}
		out = append(out, ex)
	}
}

// Close releases the file. Later calls fail with ErrJournalClosed.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.w == nil {
		return nil
	}
	err := j.w.Close()
	j.w = nil
	return err
}
