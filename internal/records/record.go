package records

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Record is one student's entry. Category holds the student's grade. ID
// must fit in 32 bits so every snapshot backend can store it.
type Record struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Validate checks the fields required before a record is stored.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if id := int64(r.ID); id < math.MinInt32 || id > math.MaxInt32 {
		return fmt.Errorf("%w: roll number %d out of range", ErrInvalidRecord, r.ID)
	}
	return nil
}

func (r Record) String() string {
	return fmt.Sprintf("Name: %s, Roll Number: %d, Grade: %s", r.Name, r.ID, r.Category)
}

// Snapshotter persists the whole record sequence at once.
type Snapshotter interface {
	// Load returns the stored sequence, or ErrNoSnapshot if nothing was saved.
	Load(ctx context.Context) ([]Record, error)
	// Save replaces the stored sequence in full.
	Save(ctx context.Context, recs []Record) error
}
