// Package console implements the numbered-menu shells for the atm and
// students binaries. All input and output goes through a Prompter so the
// menus run against any reader and writer.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInputClosed is returned when the input ends before a value was read.
var ErrInputClosed = errors.New("input closed")

// Prompter reads one answer per line and re-prompts until it is valid.
type Prompter struct {
	sc  *bufio.Scanner
	out io.Writer
}

// NewPrompter reads answers from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{sc: bufio.NewScanner(in), out: out}
}

// Printf writes formatted text to the prompter's output.
func (p *Prompter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Println writes a line to the prompter's output.
func (p *Prompter) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}

func (p *Prompter) line() (string, error) {
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", ErrInputClosed
	}
	return strings.TrimSpace(p.sc.Text()), nil
}

// Int asks for an integer in [min, max].
func (p *Prompter) Int(label string, min, max int) (int, error) {
	p.Printf("%s", label)
	for {
		s, err := p.line()
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(s)
		if err == nil && v >= min && v <= max {
			return v, nil
		}
		p.Printf("Invalid input. Please enter a valid integer between %d and %d: ", min, max)
	}
}

// Text asks for a non-empty line.
func (p *Prompter) Text(label string) (string, error) {
	p.Printf("%s", label)
	for {
		s, err := p.line()
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
		p.Printf("This field cannot be left empty. Please try again: ")
	}
}

// Amount asks for a decimal number. Sign checks are left to the ledger.
func (p *Prompter) Amount(label string) (decimal.Decimal, error) {
	p.Printf("%s", label)
	for {
		s, err := p.line()
		if err != nil {
			return decimal.Zero, err
		}
		d, err := decimal.NewFromString(s)
		if err == nil {
			return d, nil
		}
		p.Printf("Invalid amount. Please enter a number: ")
	}
}
