package console

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/kiosk/internal/records"
	"github.com/example/kiosk/internal/report"
	"github.com/example/kiosk/internal/snapshot"
)

func newStudentMenu(t *testing.T, input string, opts ...records.Option) (*StudentMenu, *snapshot.FileBackend, func() string) {
	t.Helper()
	dir := t.TempDir()
	backend, err := snapshot.NewFileBackend(filepath.Join(dir, "students.dat"))
	require.NoError(t, err)
	store, err := records.Open(context.Background(), backend, opts...)
	require.NoError(t, err)

	p, out := newTestPrompter(input)
	menu := &StudentMenu{Prompt: p, Store: store, ExportPath: filepath.Join(dir, "students.xlsx")}
	return menu, backend, out.String
}

func TestStudentMenuLifecycle(t *testing.T) {
	input := strings.Join([]string{
		"1", "Ann", "1", "A", // add
		"4", "1", // search
		"3", "1", "Anna", "A+", // edit
		"5",      // display
		"2", "1", // remove
		"2", "1", // remove again
		"4", "1", // search again
		"9",
	}, "\n") + "\n"
	menu, backend, output := newStudentMenu(t, input)

	require.NoError(t, menu.Run(context.Background()))

	out := output()
	assert.Contains(t, out, "Student added successfully!")
	assert.Contains(t, out, "Name: Ann, Roll Number: 1, Grade: A")
	assert.Contains(t, out, "Student details updated successfully!")
	assert.Contains(t, out, "Name: Anna, Roll Number: 1, Grade: A+")
	assert.Contains(t, out, "Student removed successfully!")
	assert.Contains(t, out, "Student not found!")
	assert.Contains(t, out, "Student data saved.")

	persisted, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestStudentMenuEditUnknown(t *testing.T) {
	menu, _, output := newStudentMenu(t, "3\n5\n5\n9\n")

	require.NoError(t, menu.Run(context.Background()))
	assert.Contains(t, output(), "Student not found!")
	assert.NotContains(t, output(), "Enter the new name")
	assert.Contains(t, output(), "No students found.")
}

func TestStudentMenuDuplicateWithUniqueIDs(t *testing.T) {
	input := "1\nAnn\n1\nA\n1\nBen\n1\nB\n9\n"
	menu, backend, output := newStudentMenu(t, input, records.WithUniqueIDs())

	require.NoError(t, menu.Run(context.Background()))
	assert.Contains(t, output(), "A student with roll number 1 already exists.")

	persisted, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []records.Record{{ID: 1, Name: "Ann", Category: "A"}}, persisted)
}

func TestStudentMenuReloadAndExport(t *testing.T) {
	input := "1\nAnn\n1\nA\n1\nBob\n2\nB\n7\n8\n"
	menu, _, output := newStudentMenu(t, input)

	require.NoError(t, menu.Run(context.Background()), "end of input saves and exits")
	assert.Contains(t, output(), "Student data loaded (2 students).")
	assert.Contains(t, output(), "Exported 2 students to")

	f, err := excelize.OpenFile(menu.ExportPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestStudentMenuFinalSaveFailure(t *testing.T) {
	backend, err := snapshot.NewFileBackend(filepath.Join(t.TempDir(), "missing-dir", "students.dat"))
	require.NoError(t, err)
	store := records.NewStore(backend)
	p, out := newTestPrompter("9\n")
	menu := &StudentMenu{Prompt: p, Store: store}

	err = menu.Run(context.Background())
	var perr *records.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, out.String(), "Error while saving student data")
}

// chunkReader hands out one chunk per Read and calls before(i) ahead of
// chunk i, so a test can act between two lines the user types.
type chunkReader struct {
	chunks []string
	next   int
	before func(i int)
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.next >= len(r.chunks) {
		return 0, io.EOF
	}
	if r.before != nil {
		r.before(r.next)
	}
	n := copy(p, r.chunks[r.next])
	r.next++
	return n, nil
}

func TestStudentMenuCancelledMidAddStillSaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	menu, backend, _ := newStudentMenu(t, "")
	var out bytes.Buffer
	in := &chunkReader{
		chunks: []string{"1\nAnn\n1\n", "A\n9\n"},
		before: func(i int) {
			if i == 1 {
				cancel()
			}
		},
	}
	menu.Prompt = NewPrompter(in, &out)

	require.NoError(t, menu.Run(ctx))
	assert.Contains(t, out.String(), "Interrupted.")
	assert.Contains(t, out.String(), "Student data saved.")

	persisted, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []records.Record{{ID: 1, Name: "Ann", Category: "A"}}, persisted)
}

func TestStudentMenuCancelledBeforeStartSaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	menu, backend, output := newStudentMenu(t, "1\nAnn\n1\nA\n")
	require.NoError(t, menu.Store.Add(context.Background(), records.Record{ID: 2, Name: "Bob", Category: "B"}))

	require.NoError(t, menu.Run(ctx))
	assert.NotContains(t, output(), "Student Management System")

	persisted, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}
