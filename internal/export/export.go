// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export runs a search and writes the matching records to disk,
// either into one aggregated destination or into one file per record.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/psaw/internal/fields"
	"github.com/pdiddy/psaw/internal/progress"
	"github.com/pdiddy/psaw/internal/stream"
	"github.com/pdiddy/psaw/internal/writer"
	"github.com/pdiddy/psaw/pkg/types"
)

// ErrUsage marks invalid option combinations, detected before any search.
var ErrUsage = errors.New("usage error")

// Searcher returns the records of kind matching args.
type Searcher interface {
	Search(ctx context.Context, kind types.Kind, args types.SearchArgs) (stream.Stream, error)
}

// Options hold one export run's parameters. The string pointers are nil
// when the corresponding option was not given.
type Options struct {
	Kind       types.Kind
	Query      *string
	Subreddits *string
	Authors    *string
	Fields     *string
	Limit      int

	// Output is the single aggregated destination ("-" for stdout).
	Output string

	// OutputTemplate names one file per record, e.g. "{id}.json".
	OutputTemplate string

	Format   string
	Prettify bool
	DryRun   bool

	// Progress is where the progress bar renders; nil disables it.
	Progress io.Writer
}

// Batch reports whether all records go to one destination.
func (o Options) Batch() bool { return o.Output != "" }

// Validate checks the options that need no network access: exactly one
// output mode, a positive limit, and a supported format for that mode.
func (o Options) Validate() (types.OutputFormat, error) {
	if o.Output == "" && o.OutputTemplate == "" {
		return "", fmt.Errorf("%w: must supply either --output or --output-template", ErrUsage)
	}
	if o.Output != "" && o.OutputTemplate != "" {
		return "", fmt.Errorf("%w: can only supply --output or --output-template, not both", ErrUsage)
	}
	if o.Limit <= 0 {
		return "", fmt.Errorf("%w: --limit must be positive, got %d", ErrUsage, o.Limit)
	}
	format, err := writer.ParseFormat(o.Format)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if err := writer.Check(format, o.Batch()); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return format, nil
}

// Args builds the search arguments. Options that were not given stay nil.
func (o Options) Args() types.SearchArgs {
	return types.SearchArgs{
		Query:     fields.Split(o.Query),
		Subreddit: fields.Split(o.Subreddits),
		Author:    fields.Split(o.Authors),
		Limit:     o.Limit,
		Filter:    fields.Split(o.Fields),
	}
}

// Summary reports what a run wrote.
type Summary struct {
	Records int
	Files   int
	Missing []string
}

// Run validates opts, searches, and writes the results. An empty result
// set is reported on stderr and is not an error; no file is touched.
func Run(ctx context.Context, opts Options, searcher Searcher, stdout, stderr io.Writer) (Summary, error) {
	format, err := opts.Validate()
	if err != nil {
		return Summary{}, err
	}
	args := opts.Args()

	s, err := searcher.Search(ctx, opts.Kind, args)
	if err != nil {
		return Summary{}, fmt.Errorf("searching %s: %w", opts.Kind, err)
	}
	if c, ok := s.(io.Closer); ok {
		defer c.Close()
	}

	first, ok, s, err := stream.PeekFirst(ctx, s)
	if err != nil {
		return Summary{}, fmt.Errorf("searching %s: %w", opts.Kind, err)
	}
	if !ok {
		fmt.Fprintln(stderr, "no results found")
		return Summary{}, nil
	}

	effective, missing := fields.Reconcile(first, args.Filter)
	if len(missing) > 0 {
		fmt.Fprintf(stderr, "following fields were not retrieved: %s\n", fieldList(missing))
	}

	w, err := writer.New(format, opts.Batch(), writer.Options{Fields: effective, Prettify: opts.Prettify, Stdout: stdout})
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	var summary Summary
	if opts.Batch() {
		summary, err = saveToSingleFile(ctx, s, w, opts, stderr)
	} else {
		summary, err = saveToMultipleFiles(ctx, s, w, opts, stdout)
	}
	summary.Missing = missing
	return summary, err
}

// fieldList renders names as [a b], quoting every name when one of them
// would otherwise be invisible.
func fieldList(names []string) string {
	for _, n := range names {
		if strings.TrimSpace(n) == "" || strings.ContainsAny(n, " \t") {
			return fmt.Sprintf("%q", names)
		}
	}
	return fmt.Sprintf("%v", names)
}

func (o Options) bar(description string) progress.Bar {
	if o.Progress == nil || o.DryRun {
		return progress.Nop()
	}
	return progress.New(o.Progress, o.Limit, description)
}

// saveToSingleFile writes every record to opts.Output. In a dry run the
// records are counted and the destination is never opened.
func saveToSingleFile(ctx context.Context, s stream.Stream, w writer.Writer, opts Options, stderr io.Writer) (Summary, error) {
	if opts.DryRun {
		n, err := progress.Each(ctx, s, progress.Nop(), func(types.Record) error { return nil })
		if err != nil {
			return Summary{Records: n}, err
		}
		fmt.Fprintf(stderr, "would write %d record(s) to %s\n", n, opts.Output)
		return Summary{Records: n}, nil
	}

	if err := w.Open(opts.Output); err != nil {
		return Summary{}, err
	}
	n, err := writeBatch(ctx, s, w, opts.bar("writing "+opts.Output))
	if cerr := w.Close(); cerr != nil && err == nil {
		err = cerr
	}
	slog.Debug("wrote records", "dest", opts.Output, "records", n)
	return Summary{Records: n, Files: 1}, err
}

func writeBatch(ctx context.Context, s stream.Stream, w writer.Writer, bar progress.Bar) (int, error) {
	if err := w.Header(); err != nil {
		return 0, err
	}
	n, err := progress.Each(ctx, s, bar, w.Write)
	// The footer runs even after a failed write so the destination stays
	// well formed up to the last record written.
	if ferr := w.Footer(); ferr != nil && err == nil {
		err = ferr
	}
	return n, err
}

// saveToMultipleFiles writes each record to its own file named by
// expanding opts.OutputTemplate. A template error stops the run; files
// already written stay on disk.
func saveToMultipleFiles(ctx context.Context, s stream.Stream, w writer.Writer, opts Options, stdout io.Writer) (Summary, error) {
	var summary Summary
	n, err := progress.Each(ctx, s, opts.bar("writing files"), func(rec types.Record) error {
		name, err := fields.Expand(opts.OutputTemplate, rec)
		if err != nil {
			return err
		}
		if opts.DryRun {
			fmt.Fprintf(stdout, "saving to: %s\n", name)
			return nil
		}
		if err := writeOne(w, name, rec); err != nil {
			return err
		}
		summary.Files++
		return nil
	})
	summary.Records = n
	return summary, err
}

// writeOne runs a full open, header, write, footer, close cycle for rec.
func writeOne(w writer.Writer, name string, rec types.Record) (err error) {
	if dir := filepath.Dir(name); dir != "." && name != writer.Stdout {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", name, err)
		}
	}
	if err := w.Open(name); err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := w.Header(); err != nil {
		return err
	}
	if err := w.Write(rec); err != nil {
		return err
	}
	return w.Footer()
}
