// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress reports write-loop progress on a terminal.
package progress

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/pdiddy/psaw/internal/stream"
	"github.com/pdiddy/psaw/pkg/types"
)

// Bar advances as records are consumed.
type Bar interface {
	Add(n int) error
	Finish() error
}

// New returns a bar bounded by total that renders to w. The bound may be
// optimistic when the search returns fewer records.
func New(w io.Writer, total int, description string) Bar {
	return progressbar.NewOptions64(int64(total),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}

type nop struct{}

func (nop) Add(int) error { return nil }
func (nop) Finish() error { return nil }

// Nop returns a bar that renders nothing. Dry runs use it so previewed
// filenames are not interleaved with bar output.
func Nop() Bar { return nop{} }

// Each calls fn for every record in s, advancing bar after each one. The bar
// is finished however the loop ends. It returns the number of records
// handed to fn.
func Each(ctx context.Context, s stream.Stream, bar Bar, fn func(types.Record) error) (n int, err error) {
	defer func() {
		if ferr := bar.Finish(); ferr != nil && err == nil {
			err = ferr
		}
	}()
	for {
		rec, nerr := s.Next(ctx)
		if errors.Is(nerr, stream.Done) {
			return n, nil
		}
		if nerr != nil {
			return n, nerr
		}
		n++
		if err := fn(rec); err != nil {
			return n, err
		}
		if err := bar.Add(1); err != nil {
			return n, err
		}
	}
}
