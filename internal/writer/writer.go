// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package writer serializes records to files. Every writer follows the same
// call sequence: Open, Header, any number of Write calls, Footer, Close.
// Close must run whenever Open succeeded, including on error paths.
package writer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/psaw/pkg/types"
)

// Stdout is the destination name that writes to standard output.
const Stdout = "-"

var (
	// ErrState is returned when writer methods are called out of sequence.
	ErrState = errors.New("writer called out of sequence")

	// ErrUnsupported is returned for a format and mode pair with no writer.
	ErrUnsupported = errors.New("unsupported format and mode")
)

// Writer serializes records to one destination at a time.
type Writer interface {
	Open(dest string) error
	Header() error
	Write(rec types.Record) error
	Footer() error
	Close() error
}

// Options configure a writer.
type Options struct {
	// Fields is the effective field set, in output order.
	Fields []string

	// Prettify indents JSON output.
	Prettify bool

	// Stdout receives output for the "-" destination; nil means os.Stdout.
	Stdout io.Writer
}

func newDest(opts Options) dest {
	return dest{stdout: opts.Stdout}
}

// ParseFormat validates an output format name.
func ParseFormat(s string) (types.OutputFormat, error) {
	switch f := types.OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case types.FormatCSV, types.FormatJSON, types.FormatYAML, types.FormatSQLite:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q: use csv, json, yaml, or sqlite", s)
	}
}

// Check reports whether a writer exists for format in the given mode,
// without building one.
func Check(format types.OutputFormat, batch bool) error {
	_, err := New(format, batch, Options{})
	return err
}

// New returns the writer for format in batch (one destination for all
// records) or single-record mode.
func New(format types.OutputFormat, batch bool, opts Options) (Writer, error) {
	switch {
	case format == types.FormatCSV && batch:
		return NewCSVBatch(opts), nil
	case format == types.FormatJSON && batch:
		return NewJSONBatch(opts), nil
	case format == types.FormatJSON && !batch:
		return NewJSON(opts), nil
	case format == types.FormatYAML && batch:
		return NewYAMLBatch(opts), nil
	case format == types.FormatYAML && !batch:
		return NewYAML(opts), nil
	case format == types.FormatSQLite && batch:
		return NewSQLiteBatch(opts), nil
	}
	mode := "single-record"
	if batch {
		mode = "batch"
	}
	return nil, fmt.Errorf("%w: %s in %s mode", ErrUnsupported, format, mode)
}

type stage int

const (
	stageUnopened stage = iota
	stageOpened
	stageHeader
	stageFooter
	stageClosed
)

// dest is the open-file bookkeeping shared by the stream writers.
type dest struct {
	name   string
	buf    *bufio.Writer
	closer io.Closer
	stage  stage
	stdout io.Writer
}

func (d *dest) open(name string) error {
	if d.stage != stageUnopened && d.stage != stageClosed {
		return fmt.Errorf("%w: open %s while %s is open", ErrState, name, d.name)
	}
	var w io.Writer
	if name == Stdout {
		w = d.stdout
		if w == nil {
			w = os.Stdout
		}
		d.closer = nil
	} else {
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
		w = f
		d.closer = f
	}
	d.name = name
	d.buf = bufio.NewWriter(w)
	d.stage = stageOpened
	return nil
}

// advance moves from stage want to next, or reports a sequencing error.
func (d *dest) advance(op string, want, next stage) error {
	if d.stage != want {
		return fmt.Errorf("%w: %s", ErrState, op)
	}
	d.stage = next
	return nil
}

func (d *dest) expect(op string, want stage) error {
	if d.stage != want {
		return fmt.Errorf("%w: %s", ErrState, op)
	}
	return nil
}

func (d *dest) close() error {
	switch d.stage {
	case stageOpened, stageHeader, stageFooter:
	default:
		return fmt.Errorf("%w: close", ErrState)
	}
	d.stage = stageClosed
	err := d.buf.Flush()
	if d.closer != nil {
		if cerr := d.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	d.buf = nil
	d.closer = nil
	if err != nil {
		return fmt.Errorf("closing %s: %w", d.name, err)
	}
	return nil
}
