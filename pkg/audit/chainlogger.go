package audit

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LogEntry is one link of the journal chain.
type LogEntry struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	Payload      string `json:"payload"`
	Hash         string `json:"hash"`
}

// ChainLogger journals kiosk operations as a hash chain so that edits to
// an exported journal can be detected with VerifyChain.
type ChainLogger struct {
	mu           sync.Mutex
	previousHash string
	entries      []*LogEntry
	now          func() time.Time
}

// NewChainLogger creates a new ChainLogger initialized with a zero hash.
func NewChainLogger() *ChainLogger {
	return &ChainLogger{
		previousHash: strings.Repeat("0", 64),
		now:          time.Now,
	}
}

// Append adds a new entry to the chain and returns it.
func (c *ChainLogger) Append(payload string) *LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &LogEntry{
		ID:           uuid.NewString(),
		Timestamp:    c.now().UTC().Format(time.RFC3339Nano),
		PreviousHash: c.previousHash,
		Payload:      payload,
	}
	entry.Hash = chainHash(entry.PreviousHash, entry.Timestamp, entry.Payload)

	c.previousHash = entry.Hash
	c.entries = append(c.entries, entry)
	return entry
}

// Entries returns copies of every entry appended so far, oldest first.
func (c *ChainLogger) Entries() []*LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*LogEntry, len(c.entries))
	for i, e := range c.entries {
		cp := *e
		out[i] = &cp
	}
	return out
}

// Len reports how many entries the chain holds.
func (c *ChainLogger) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// WriteJSONLines writes the chain to w, one JSON object per line.
func (c *ChainLogger) WriteJSONLines(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, e := range c.Entries() {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode audit entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// ErrBrokenChain is returned when stored entries do not form a valid chain.
var ErrBrokenChain = errors.New("audit chain verification failed")

// ReadJSONLines decodes entries written by WriteJSONLines. Blank lines are
// skipped.
func ReadJSONLines(r io.Reader) ([]*LogEntry, error) {
	var entries []*LogEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("failed to decode audit entry on line %d: %w", line, err)
		}
		entries = append(entries, &e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}
	return entries, nil
}

// ResumeFile continues the chain stored at path, so that entries appended
// later by AppendToFile link to the last stored entry. A missing or empty
// file leaves the logger unchanged. Call before the first Append.
func (c *ChainLogger) ResumeFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open audit log %s: %w", path, err)
	}
	defer f.Close()

	entries, err := ReadJSONLines(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil
	}
	if !VerifyChain(entries) {
		return fmt.Errorf("%s: %w", path, ErrBrokenChain)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) > 0 {
		return errors.New("cannot resume a chain that already has entries")
	}
	c.previousHash = entries[len(entries)-1].Hash
	return nil
}

// AppendToFile writes the chain as JSON lines to the end of path,
// creating the file if needed. Use ResumeFile first when path may already
// hold entries, otherwise the file contains one chain per session.
func (c *ChainLogger) AppendToFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open audit log %s: %w", path, err)
	}
	if err := c.WriteJSONLines(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// VerifyChain checks if a slice of entries forms a valid hash chain.
func VerifyChain(entries []*LogEntry) bool {
	for i, entry := range entries {
		prevHash := entry.PreviousHash
		if i > 0 {
			prevHash = entries[i-1].Hash
			if entry.PreviousHash != prevHash {
				return false
			}
		}
		if chainHash(prevHash, entry.Timestamp, entry.Payload) != entry.Hash {
			return false
		}
	}
	return true
}

func chainHash(prev, ts, payload string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", prev, ts, payload)))
	return hex.EncodeToString(sum[:])
}
