package audit

import (
	"context"
	"sync"
)

// Recorder is an in-memory audit logger for tests and db-less runs.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder constructs a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Log stores the entry.
func (r *Recorder) Log(_ context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = NewID()
	}
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	return nil
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
