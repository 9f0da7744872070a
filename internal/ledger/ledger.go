// Package ledger implements the append-only NDJSON event log.
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/starford/hooktriage/internal/checksum"
	"github.com/starford/hooktriage/internal/models"
)

// EventsPath is the location of the log relative to the ledger repository root.
var EventsPath = filepath.Join("ledger", "events.jsonl")

// ErrInvalidEvent is returned when Append is given an event that violates the
// per-kind shape.
var ErrInvalidEvent = errors.New("ledger: invalid event")

// Ledger appends to and reads from <root>/ledger/events.jsonl.
type Ledger struct {
	root string // absolute path to the ledger repository
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Open returns a Ledger rooted at root. The root must already exist; the
// ledger/ directory is not created here so a misconfigured root surfaces as
// an append error instead of a stray directory.
func Open(root string, opts ...Option) (*Ledger, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("ledger: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("ledger: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ledger: root is not a directory: %s", abs)
	}
	l := &Ledger{
		root: abs,
		path: filepath.Join(abs, EventsPath),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Root returns the absolute ledger repository root.
func (l *Ledger) Root() string {
	return l.root
}

// Path returns the absolute path of the events file.
func (l *Ledger) Path() string {
	return l.path
}

// Append stamps event with the current UTC time and agent, then writes it as
// a single line. Existing lines are never read or rewritten.
func (l *Ledger) Append(event models.LedgerEvent, agent string) (models.LedgerEvent, error) {
	stamped := event.Stamped(l.now(), agent)
	if err := stamped.Validate(); err != nil {
		return models.LedgerEvent{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	line, err := json.Marshal(stamped)
	if err != nil {
		return models.LedgerEvent{}, fmt.Errorf("ledger: marshal: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return models.LedgerEvent{}, fmt.Errorf("ledger: open %s: %w", l.path, err)
	}
	// One write call per record keeps lines whole under O_APPEND.
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return models.LedgerEvent{}, fmt.Errorf("ledger: append: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return models.LedgerEvent{}, fmt.Errorf("ledger: fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		return models.LedgerEvent{}, fmt.Errorf("ledger: close: %w", err)
	}
	return stamped, nil
}

// Line is one record as read back from the log. Event is zero and Err set
// when the line is not valid JSON.
type Line struct {
	Number   int
	Raw      []byte
	Checksum string
	Event    models.LedgerEvent
	Err      error
}

// ReadAll returns every line of the log in file order. A missing log reads as
// empty.
func (l *Ledger) ReadAll() ([]Line, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: read %s: %w", l.path, err)
	}
	lines, err := parseLines(data)
	if err != nil {
		return lines, fmt.Errorf("ledger: scan %s: %w", l.path, err)
	}
	return lines, nil
}

// Tail returns the last n lines of the log.
func (l *Ledger) Tail(n int) ([]Line, error) {
	lines, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// maxLineBytes caps a single ledger line.
const maxLineBytes = 16 << 20

func parseLines(data []byte) ([]Line, error) {
	var out []Line
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	n := 0
	for sc.Scan() {
		n++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		ln := Line{
			Number:   n,
			Raw:      append([]byte(nil), raw...),
			Checksum: checksum.Sum(raw),
		}
		if err := json.Unmarshal(raw, &ln.Event); err != nil {
			ln.Err = fmt.Errorf("ledger: line %d: %w", n, err)
		}
		out = append(out, ln)
	}
	return out, sc.Err()
}
