package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/example/kiosk/internal/records"
	"github.com/example/kiosk/internal/report"
)

// StudentMenu drives a records.Store from a numbered menu.
type StudentMenu struct {
	Prompt     *Prompter
	Store      *records.Store
	ExportPath string
	Logger     *slog.Logger
}

type studentAction func(ctx context.Context) error

// Run shows the menu until the user exits, the input ends or ctx is
// cancelled. Leaving the menu always saves the store, even after
// cancellation; a failed final save is returned.
func (m *StudentMenu) Run(ctx context.Context) error {
	if m.Logger == nil {
		m.Logger = slog.Default()
	}

	actions := map[int]studentAction{
		1: m.add,
		2: m.remove,
		3: m.edit,
		4: m.search,
		5: m.displayAll,
		6: m.save,
		7: m.load,
		8: m.export,
	}

	for {
		if ctx.Err() != nil {
			m.Prompt.Println("Interrupted.")
			return m.finalSave(ctx)
		}

		m.Prompt.title("======= Student Management System =======")
		m.Prompt.Println("1. Add Student")
		m.Prompt.Println("2. Remove Student")
		m.Prompt.Println("3. Edit Student Details")
		m.Prompt.Println("4. Search Student")
		m.Prompt.Println("5. Display All Students")
		m.Prompt.Println("6. Save Data to File")
		m.Prompt.Println("7. Load Data from File")
		m.Prompt.Println("8. Export to Spreadsheet")
		m.Prompt.Println("9. Exit")

		choice, err := m.Prompt.Int("Enter your choice (1-9): ", 1, 9)
		if errors.Is(err, ErrInputClosed) || choice == 9 {
			return m.finalSave(ctx)
		}
		if err != nil {
			return err
		}

		err = actions[choice](ctx)
		if errors.Is(err, ErrInputClosed) {
			return m.finalSave(ctx)
		}
		if err != nil {
			return err
		}
	}
}

// finalSave ignores cancellation of ctx so the last write always happens.
func (m *StudentMenu) finalSave(ctx context.Context) error {
	if err := m.Store.Save(context.WithoutCancel(ctx)); err != nil {
		m.Prompt.failure("Error while saving student data: " + err.Error())
		return err
	}
	m.Prompt.Println("Student data saved.")
	return nil
}

func (m *StudentMenu) readID(label string) (int, error) {
	return m.Prompt.Int(label, math.MinInt32, math.MaxInt32)
}

func (m *StudentMenu) add(ctx context.Context) error {
	name, err := m.Prompt.Text("Enter the name of the student: ")
	if err != nil {
		return err
	}
	id, err := m.readID("Enter the roll number: ")
	if err != nil {
		return err
	}
	grade, err := m.Prompt.Text("Enter the grade: ")
	if err != nil {
		return err
	}

	rec := records.Record{ID: id, Name: name, Category: grade}
	if err := rec.Validate(); err != nil {
		m.Prompt.failure(err.Error())
		return nil
	}

	err = m.Store.Add(ctx, rec)
	switch {
	case errors.Is(err, records.ErrDuplicateID):
		m.Prompt.failure(fmt.Sprintf("A student with roll number %d already exists.", id))
	case err != nil:
		m.persistenceFailure("Student added", err)
	default:
		m.Prompt.success("Student added successfully!")
	}
	return nil
}

func (m *StudentMenu) remove(ctx context.Context) error {
	id, err := m.readID("Enter the roll number of the student to remove: ")
	if err != nil {
		return err
	}

	err = m.Store.Remove(ctx, id)
	switch {
	case errors.Is(err, records.ErrNotFound):
		m.Prompt.failure("Student not found!")
	case err != nil:
		m.persistenceFailure("Student removed", err)
	default:
		m.Prompt.success("Student removed successfully!")
	}
	return nil
}

func (m *StudentMenu) edit(ctx context.Context) error {
	id, err := m.readID("Enter the roll number of the student to edit: ")
	if err != nil {
		return err
	}
	if _, err := m.Store.Find(id); err != nil {
		m.Prompt.failure("Student not found!")
		return nil
	}

	name, err := m.Prompt.Text("Enter the new name: ")
	if err != nil {
		return err
	}
	grade, err := m.Prompt.Text("Enter the new grade: ")
	if err != nil {
		return err
	}

	_, err = m.Store.Edit(ctx, id, name, grade)
	switch {
	case errors.Is(err, records.ErrNotFound):
		m.Prompt.failure("Student not found!")
	case err != nil:
		m.persistenceFailure("Student details updated", err)
	default:
		m.Prompt.success("Student details updated successfully!")
	}
	return nil
}

func (m *StudentMenu) search(ctx context.Context) error {
	id, err := m.readID("Enter the roll number of the student to search: ")
	if err != nil {
		return err
	}

	rec, err := m.Store.Find(id)
	if err != nil {
		m.Prompt.failure("Student not found!")
		return nil
	}
	m.Prompt.Println("Student found:")
	m.Prompt.Println(rec.String())
	return nil
}

func (m *StudentMenu) displayAll(ctx context.Context) error {
	all := m.Store.All()
	if len(all) == 0 {
		m.Prompt.Println("No students found.")
		return nil
	}
	m.Prompt.title("======= All Students =======")
	for _, rec := range all {
		m.Prompt.Println(rec.String())
	}
	return nil
}

func (m *StudentMenu) save(ctx context.Context) error {
	if err := m.Store.Save(ctx); err != nil {
		m.Prompt.failure("Error while saving student data: " + err.Error())
		return nil
	}
	m.Prompt.success("Student data saved.")
	return nil
}

func (m *StudentMenu) load(ctx context.Context) error {
	if err := m.Store.Load(ctx); err != nil {
		m.Prompt.failure("Error while loading student data: " + err.Error())
		m.Prompt.Println("Continuing with an empty student list.")
		return nil
	}
	m.Prompt.success(fmt.Sprintf("Student data loaded (%d students).", m.Store.Len()))
	return nil
}

func (m *StudentMenu) export(ctx context.Context) error {
	f, err := os.Create(m.ExportPath)
	if err != nil {
		m.Prompt.failure("Error while exporting: " + err.Error())
		return nil
	}
	all := m.Store.All()
	err = report.WriteXLSX(f, all)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		m.Logger.Error("spreadsheet export failed", "path", m.ExportPath, "error", err)
		m.Prompt.failure("Error while exporting: " + err.Error())
		return nil
	}
	m.Prompt.success(fmt.Sprintf("Exported %d students to %s", len(all), m.ExportPath))
	return nil
}

func (m *StudentMenu) persistenceFailure(done string, err error) {
	m.Prompt.failure(fmt.Sprintf("%s, but saving failed: %v", done, err))
	m.Prompt.Println("Use option 6 to retry saving.")
}
