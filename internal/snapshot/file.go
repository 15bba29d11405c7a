// Package snapshot provides the storage backends for the student record
// store. Each backend stores the whole record sequence at once.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/example/kiosk/internal/crypto"
	"github.com/example/kiosk/internal/records"
)

// DefaultFilePath is where the file backend keeps its snapshot.
const DefaultFilePath = "students.dat"

const fileFormat = "student_snapshot"

type fileMeta struct {
	Format  string    `json:"format"`
	Count   int       `json:"count"`
	SavedAt time.Time `json:"saved_at"`
}

type fileDocument struct {
	Meta    fileMeta         `json:"_meta"`
	Records []records.Record `json:"records"`
}

// FileBackend stores the snapshot as a JSON document on local disk,
// optionally sealed with a crypto.Sealer.
type FileBackend struct {
	path      string
	validator *schemaValidator
	sealer    *crypto.Sealer
	now       func() time.Time
	blocked   bool
}

// FileOption configures a FileBackend.
type FileOption func(*FileBackend)

// WithSealer encrypts the document on Save and requires Load to decrypt it.
func WithSealer(s *crypto.Sealer) FileOption {
	return func(b *FileBackend) {
		b.sealer = s
	}
}

// NewFileBackend creates a file backend writing to path.
func NewFileBackend(path string, opts ...FileOption) (*FileBackend, error) {
	if path == "" {
		path = DefaultFilePath
	}
	v, err := newSchemaValidator(fileSnapshotSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile snapshot schema: %w", err)
	}
	b := &FileBackend{path: path, validator: v, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Path returns the snapshot file location.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads and validates the snapshot file. A file that cannot be
// decrypted, parsed or validated is moved aside before the error is
// returned.
func (b *FileBackend) Load(ctx context.Context) ([]records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			b.blocked = false
			return nil, records.ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}

	recs, err := b.decode(raw)
	if err != nil {
		return nil, b.setAside(err)
	}
	b.blocked = false
	return recs, nil
}

func (b *FileBackend) decode(raw []byte) ([]records.Record, error) {
	if b.sealer != nil {
		var err error
		raw, err = b.sealer.Open(raw, []byte(fileFormat))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.path, err)
		}
	}

	if err := b.validator.validate(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", b.path, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", b.path, err)
	}
	return doc.Records, nil
}

// setAside renames an unreadable snapshot to <path>.unreadable-<time> so a
// later Save cannot overwrite it. If the rename fails, Save is refused
// until a Load succeeds.
func (b *FileBackend) setAside(cause error) error {
	dst := fmt.Sprintf("%s.unreadable-%s", b.path, b.now().UTC().Format("20060102T150405.000000000Z"))
	if err := os.Rename(b.path, dst); err != nil {
		b.blocked = true
		return fmt.Errorf("%w (could not move it aside: %v)", cause, err)
	}
	b.blocked = false
	return fmt.Errorf("%w (moved to %s)", cause, dst)
}

// Save writes the snapshot to a temporary file and renames it over the
// previous one, so a failed write never leaves a truncated snapshot behind.
func (b *FileBackend) Save(ctx context.Context, recs []records.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.blocked {
		return fmt.Errorf("refusing to overwrite unreadable snapshot %s", b.path)
	}
	if recs == nil {
		recs = []records.Record{}
	}

	doc := fileDocument{
		Meta:    fileMeta{Format: fileFormat, Count: len(recs), SavedAt: b.now().UTC()},
		Records: recs,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	data := buf.Bytes()
	if b.sealer != nil {
		sealed, err := b.sealer.Seal(data, []byte(fileFormat))
		if err != nil {
			return fmt.Errorf("failed to seal snapshot: %w", err)
		}
		data = sealed
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", b.path, err)
	}
	return nil
}
