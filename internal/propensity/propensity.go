// Package propensity maintains the append-only event log of served
// results and computes post-hoc propensities for off-policy correction.
package propensity

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
)

// Entry is one served result recorded within an Event.
type Entry struct {
	Title         string  `json:"title"`
	Rank          int     `json:"rank"`
	Score         float64 `json:"score"`
	Propensity    float64 `json:"propensity"`
	WasExploration bool   `json:"was_exploration"`
}

// Event is one append-only propensity log record. The event stream is
// monotonic and never compacted by the core. ID is assigned by NewEvent
// so every served query can be correlated across the propensity log and
// any external telemetry the caller keeps.
type Event struct {
	ID        string  `json:"id"`
	Timestamp string  `json:"timestamp"`
	Query     string  `json:"query"`
	Intent    string  `json:"intent"`
	Entries   []Entry `json:"entries"`
}

// NewEvent assigns a random event ID so every served query can be
// correlated across the propensity log and any external telemetry.
func NewEvent(timestamp, query, intentName string, entries []Entry) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: timestamp,
		Query:     query,
		Intent:    intentName,
		Entries:   entries,
	}
}

// Log wraps an append-only JSONL file at path, with an optional sqlite
// mirror that lets Propensities answer without rescanning the file.
type Log struct {
	path   string
	mirror *Mirror
}

// Open returns a Log handle at path. Nothing is created on disk until
// Append is called, which creates parent directories as needed.
func Open(path string) *Log {
	return &Log{path: path}
}

// WithMirror attaches a sqlite secondary index to the log. Append will
// keep it in step and Propensities will prefer it over a full scan.
func (l *Log) WithMirror(m *Mirror) *Log {
	l.mirror = m
	return l
}

// Close releases the mirror, if one is attached. The JSONL file itself
// has no open handle to release between calls.
func (l *Log) Close() error {
	if l.mirror == nil {
		return nil
	}
	return l.mirror.Close()
}

// Append writes one event as a JSON line. A failure here is logged and
// non-fatal: it must never fail the query that produced it. If a mirror
// is attached, the event is also recorded there; a mirror failure is
// likewise logged and non-fatal, since the JSONL file stays authoritative
// and the mirror can always be rebuilt from it.
func (l *Log) Append(e Event) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		logging.Get(logging.CategoryPropensity).Warn("append log mkdir failed: %v", err)
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logging.Get(logging.CategoryPropensity).Warn("append log open failed: %v", err)
		return err
	}
	defer f.Close()

	data, err := json.Marshal(e)
	if err != nil {
		logging.Get(logging.CategoryPropensity).Warn("append log marshal failed: %v", err)
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		logging.Get(logging.CategoryPropensity).Warn("append log write failed: %v", err)
		return err
	}

	if l.mirror != nil {
		if err := l.mirror.Record(e); err != nil {
			logging.Get(logging.CategoryPropensity).Warn("mirror record failed: %v", err)
		}
	}
	return nil
}

// Propensities returns the per-title served fraction, floored at epsilon.
// When a mirror is attached it answers from sqlite aggregates; otherwise
// it falls back to a full scan of the JSONL file.
func (l *Log) Propensities(epsilon float64) (map[string]float64, error) {
	if l.mirror != nil {
		p, err := l.mirror.ComputePropensities(epsilon)
		if err == nil {
			return p, nil
		}
		logging.Get(logging.CategoryPropensity).Warn("mirror query failed, falling back to log scan: %v", err)
	}
	events, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	return ComputePropensities(events, epsilon), nil
}

// ReadAll reads every event in the log, in file order. A missing log file
// is treated as an empty one, not an error — no serves have happened yet.
func (l *Log) ReadAll() ([]Event, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue // a corrupted line is skipped, not fatal
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

// ComputePropensities scans every event in the log and returns, per
// title, the fraction of events in which it appeared, floored at epsilon
// (default 0.01).
func ComputePropensities(events []Event, epsilon float64) map[string]float64 {
	if epsilon <= 0 {
		epsilon = 0.01
	}
	if len(events) == 0 {
		return map[string]float64{}
	}

	appearances := make(map[string]int)
	for _, e := range events {
		seen := make(map[string]bool, len(e.Entries))
		for _, entry := range e.Entries {
			if seen[entry.Title] {
				continue
			}
			seen[entry.Title] = true
			appearances[entry.Title]++
		}
	}

	total := float64(len(events))
	out := make(map[string]float64, len(appearances))
	for title, count := range appearances {
		p := float64(count) / total
		if p < epsilon {
			p = epsilon
		}
		out[title] = p
	}
	return out
}
