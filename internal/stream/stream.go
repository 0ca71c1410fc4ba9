// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stream models the single-pass sequence of records produced by a
// search backend.
package stream

import (
	"context"
	"errors"
	"io"

	"github.com/pdiddy/psaw/pkg/types"
)

// Done is returned by Next once a stream is exhausted.
var Done = io.EOF

// Stream yields records one at a time. Next returns Done when no records
// remain; any other error ends the stream. A Stream cannot be restarted.
type Stream interface {
	Next(ctx context.Context) (types.Record, error)
}

// Func adapts a function to the Stream interface.
type Func func(ctx context.Context) (types.Record, error)

// Next calls f.
func (f Func) Next(ctx context.Context) (types.Record, error) { return f(ctx) }

// Empty returns a stream with no records.
func Empty() Stream {
	return Func(func(context.Context) (types.Record, error) {
		return types.Record{}, Done
	})
}

// FromSlice returns a stream over records.
func FromSlice(records []types.Record) Stream {
	i := 0
	return Func(func(ctx context.Context) (types.Record, error) {
		if err := ctx.Err(); err != nil {
			return types.Record{}, err
		}
		if i >= len(records) {
			return types.Record{}, Done
		}
		r := records[i]
		i++
		return r, nil
	})
}

// PeekFirst pulls at most one record from s. It returns that record, whether
// one was found, and a stream that yields the peeked record followed by the
// rest of s. Only the peeked record is buffered.
func PeekFirst(ctx context.Context, s Stream) (types.Record, bool, Stream, error) {
	first, err := s.Next(ctx)
	if errors.Is(err, Done) {
		return types.Record{}, false, Empty(), nil
	}
	if err != nil {
		return types.Record{}, false, nil, err
	}
	return first, true, &chained{head: first, pending: true, rest: s}, nil
}

type chained struct {
	head    types.Record
	pending bool
	rest    Stream
}

func (c *chained) Next(ctx context.Context) (types.Record, error) {
	if c.pending {
		c.pending = false
		r := c.head
		c.head = types.Record{}
		return r, nil
	}
	return c.rest.Next(ctx)
}

// Collect drains s into a slice. Intended for tests and small result sets.
func Collect(ctx context.Context, s Stream) ([]types.Record, error) {
	var out []types.Record
	for {
		r, err := s.Next(ctx)
		if errors.Is(err, Done) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
}

// Limit returns a stream that ends after n records. n <= 0 means no limit.
func Limit(s Stream, n int) Stream {
	if n <= 0 {
		return s
	}
	seen := 0
	return Func(func(ctx context.Context) (types.Record, error) {
		if seen >= n {
			return types.Record{}, Done
		}
		r, err := s.Next(ctx)
		if err == nil {
			seen++
		}
		return r, err
	})
}
