package records

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/kiosk/pkg/audit"
)

// memBackend keeps the last saved snapshot in memory.
type memBackend struct {
	saved   []Record
	has     bool
	saves   int
	saveErr error
	loadErr error
}

func (m *memBackend) Load(ctx context.Context) ([]Record, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if !m.has {
		return nil, ErrNoSnapshot
	}
	out := make([]Record, len(m.saved))
	copy(out, m.saved)
	return out, nil
}

func (m *memBackend) Save(ctx context.Context, recs []Record) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = recs
	m.has = true
	return nil
}

var (
	ann = Record{ID: 1, Name: "Ann", Category: "A"}
	bob = Record{ID: 2, Name: "Bob", Category: "B"}
)

func TestAddSavesAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s := NewStore(backend)

	require.NoError(t, s.Add(ctx, ann))
	require.NoError(t, s.Add(ctx, bob))
	assert.Equal(t, 2, backend.saves)

	reloaded, err := Open(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, []Record{ann, bob}, reloaded.All())
}

func TestStudentScenario(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s, err := Open(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Add(ctx, ann))

	got, err := s.Find(1)
	require.NoError(t, err)
	assert.Equal(t, ann, got)

	require.NoError(t, s.Remove(ctx, 1))

	_, err = s.Find(1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, backend.has)
	assert.Empty(t, backend.saved)
}

func TestRemoveUnknownLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s := NewStore(backend)
	require.NoError(t, s.Add(ctx, ann))
	savesBefore := backend.saves

	err := s.Remove(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, savesBefore, backend.saves, "no snapshot write on miss")
	assert.Equal(t, []Record{ann}, s.All())
}

func TestEditKeepsIdentifierAndPosition(t *testing.T) {
	ctx := context.Background()
	s := NewStore(&memBackend{})
	require.NoError(t, s.Add(ctx, ann))
	require.NoError(t, s.Add(ctx, bob))

	updated, err := s.Edit(ctx, 1, "Anna", "A+")
	require.NoError(t, err)
	assert.Equal(t, Record{ID: 1, Name: "Anna", Category: "A+"}, updated)
	assert.Equal(t, []Record{updated, bob}, s.All())

	_, err = s.Edit(ctx, 42, "X", "Y")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateIdentifiersUseFirstMatch(t *testing.T) {
	ctx := context.Background()
	s := NewStore(&memBackend{})
	second := Record{ID: 1, Name: "Another Ann", Category: "C"}
	require.NoError(t, s.Add(ctx, ann))
	require.NoError(t, s.Add(ctx, second))

	got, err := s.Find(1)
	require.NoError(t, err)
	assert.Equal(t, ann, got)

	require.NoError(t, s.Remove(ctx, 1))
	got, err = s.Find(1)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestUniqueIDsRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s := NewStore(backend, WithUniqueIDs())
	require.NoError(t, s.Add(ctx, ann))

	err := s.Add(ctx, Record{ID: 1, Name: "Clone", Category: "Z"})
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, backend.saves)
}

func TestSaveFailureIsReported(t *testing.T) {
	ctx := context.Background()
	diskFull := errors.New("no space left on device")
	backend := &memBackend{saveErr: diskFull}
	s := NewStore(backend)

	err := s.Add(ctx, ann)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "save", perr.Op)
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, 1, s.Len(), "in-memory change is kept for a later Save")

	backend.saveErr = nil
	require.NoError(t, s.Save(ctx))
	assert.Equal(t, []Record{ann}, backend.saved)
}

func TestLoadFailureDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s := NewStore(backend)
	require.NoError(t, s.Add(ctx, ann))

	backend.loadErr = errors.New("corrupt snapshot")
	err := s.Load(ctx)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load", perr.Op)
	assert.Equal(t, 0, s.Len())

	reopened, err := Open(ctx, backend)
	assert.Error(t, err)
	require.NotNil(t, reopened)
	assert.Empty(t, reopened.All())
}

func TestAllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore(&memBackend{})
	require.NoError(t, s.Add(ctx, ann))

	all := s.All()
	all[0].Name = "mutated"

	got, err := s.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}

func TestStoreJournalsMutations(t *testing.T) {
	ctx := context.Background()
	chain := audit.NewChainLogger()
	s := NewStore(&memBackend{}, WithAuditor(chain))

	require.NoError(t, s.Add(ctx, ann))
	_, _ = s.Edit(ctx, 1, "Anna", "A")
	_ = s.Remove(ctx, 7)

	entries := chain.Entries()
	require.Len(t, entries, 3)
	assert.Contains(t, entries[0].Payload, "op=add id=1")
	assert.Contains(t, entries[1].Payload, "op=edit id=1")
	assert.Contains(t, entries[2].Payload, ErrNotFound.Error())
}

func TestRecordValidateAndString(t *testing.T) {
	assert.NoError(t, ann.Validate())
	assert.ErrorIs(t, Record{ID: 3, Name: "  "}.Validate(), ErrInvalidRecord)
	assert.NoError(t, Record{ID: math.MaxInt32, Name: "Max"}.Validate())
	assert.NoError(t, Record{ID: math.MinInt32, Name: "Min"}.Validate())
	assert.Equal(t, "Name: Ann, Roll Number: 1, Grade: A", ann.String())
}

func TestAddRejectsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s := NewStore(backend)

	wide := int64(math.MaxInt32) + 1
	err := s.Add(ctx, Record{ID: int(wide), Name: "Wide", Category: "A"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.ErrorIs(t, s.Add(ctx, Record{ID: 4, Name: " "}), ErrInvalidRecord)

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, backend.saves, "rejected records are never written")
}
