package controller

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"docscout/internal/protocol"
)

// Transcript appends session turns to a JSONL file, one record per line.
// The transcript is an audit artifact: it captures the full ordered turn
// sequence, including empty results and failures, and is never read back
// by the controller itself.
type Transcript struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// transcriptHeader is the first line of every transcript file.
type transcriptHeader struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
}

// turnRecord is one transcript line after the header.
type turnRecord struct {
	At   time.Time     `json:"at"`
	Turn protocol.Turn `json:"turn"`
}

// OpenTranscript creates a transcript file for a session under dir.
func OpenTranscript(dir, sessionID string) (*Transcript, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("session-%s.jsonl", sessionID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}

	t := &Transcript{file: f, enc: json.NewEncoder(f)}
	if err := t.enc.Encode(transcriptHeader{SessionID: sessionID, StartedAt: time.Now()}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write transcript header: %w", err)
	}
	return t, nil
}

// Record appends one turn.
func (t *Transcript) Record(turn protocol.Turn) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enc.Encode(turnRecord{At: time.Now(), Turn: turn})
}

// Close flushes and closes the transcript file.
func (t *Transcript) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}
