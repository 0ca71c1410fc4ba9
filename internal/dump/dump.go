// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dump searches Pushshift monthly dump files offline. A dump is
// newline-delimited JSON, one comment or submission per line, usually
// compressed with zstd (RC_YYYY-MM.zst, RS_YYYY-MM.zst).
package dump

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/pdiddy/psaw/internal/stream"
	"github.com/pdiddy/psaw/pkg/types"
)

const (
	// Pushshift dumps are compressed with a 2 GiB window.
	maxWindow = 1 << 31

	initialLineBuffer = 1 << 20
	maxLineSize       = 64 << 20
)

// textFields are searched for query terms.
var textFields = []string{"body", "title", "selftext"}

// Source searches one dump file.
type Source struct {
	Path string
}

// Search opens the dump and returns a stream of at most args.Limit records
// matching args. The kind is not checked; a dump holds only one kind.
// The stream closes the file when it ends; callers that stop early should
// close it through io.Closer.
func (s *Source) Search(ctx context.Context, kind types.Kind, args types.SearchArgs) (stream.Stream, error) {
	if args.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", args.Limit)
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening dump: %w", err)
	}

	r := &reader{file: f, match: newMatcher(args), limit: args.Limit, project: args.Filter}
	var src io.Reader = f
	if strings.HasSuffix(s.Path, ".zst") {
		zr, err := zstd.NewReader(f, zstd.WithDecoderMaxWindow(maxWindow))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		r.zr = zr
		src = zr
	}
	r.scanner = bufio.NewScanner(bufio.NewReader(src))
	r.scanner.Buffer(make([]byte, initialLineBuffer), maxLineSize)

	slog.Debug("searching dump", "path", s.Path, "kind", kind)
	return r, nil
}

type reader struct {
	file    *os.File
	zr      *zstd.Decoder
	scanner *bufio.Scanner
	match   matcher
	limit   int
	project []string

	line    int
	emitted int
	closed  bool
}

func (r *reader) Next(ctx context.Context) (types.Record, error) {
	if r.closed || r.emitted >= r.limit {
		r.Close()
		return types.Record{}, stream.Done
	}
	for r.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			r.Close()
			return types.Record{}, err
		}
		r.line++
		line := r.scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var rec types.Record
		if err := rec.UnmarshalJSON(line); err != nil {
			r.Close()
			return types.Record{}, fmt.Errorf("%s line %d: %w", r.file.Name(), r.line, err)
		}
		if !r.match.Match(rec) {
			continue
		}
		r.emitted++
		if r.project != nil {
			rec = rec.Project(r.project)
		}
		return rec, nil
	}
	err := r.scanner.Err()
	r.Close()
	if err != nil {
		return types.Record{}, fmt.Errorf("reading dump: %w", err)
	}
	return types.Record{}, stream.Done
}

// Close releases the dump file. It is safe to call more than once.
func (r *reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.zr != nil {
		r.zr.Close()
	}
	return r.file.Close()
}

// matcher applies the search filters locally, the way the API does:
// subreddit and author match case-insensitively and exactly, query terms
// match as case-insensitive substrings of the text fields. Any one listed
// value satisfies its filter.
type matcher struct {
	query      []string
	subreddits map[string]bool
	authors    map[string]bool
}

func newMatcher(args types.SearchArgs) matcher {
	m := matcher{}
	for _, q := range args.Query {
		if q = strings.ToLower(strings.TrimSpace(q)); q != "" {
			m.query = append(m.query, q)
		}
	}
	m.subreddits = lowerSet(args.Subreddit)
	m.authors = lowerSet(args.Author)
	return m
}

func lowerSet(values []string) map[string]bool {
	var set map[string]bool
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			if set == nil {
				set = make(map[string]bool)
			}
			set[v] = true
		}
	}
	return set
}

// Match reports whether rec passes every filter.
func (m matcher) Match(rec types.Record) bool {
	if m.subreddits != nil && !m.subreddits[lowerField(rec, "subreddit")] {
		return false
	}
	if m.authors != nil && !m.authors[lowerField(rec, "author")] {
		return false
	}
	if len(m.query) == 0 {
		return true
	}
	for _, f := range textFields {
		text := lowerField(rec, f)
		if text == "" {
			continue
		}
		for _, q := range m.query {
			if strings.Contains(text, q) {
				return true
			}
		}
	}
	return false
}

func lowerField(rec types.Record, name string) string {
	v, ok := rec.Get(name)
	if !ok {
		return ""
	}
	return strings.ToLower(v.String())
}

// ErrNotDump is returned by Detect for files that are not dumps.
var ErrNotDump = errors.New("not a dump file")

// Detect checks that path exists and has a dump extension.
func Detect(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("dump %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("dump %s: %w: is a directory", path, ErrNotDump)
	}
	switch {
	case strings.HasSuffix(path, ".zst"), strings.HasSuffix(path, ".ndjson"),
		strings.HasSuffix(path, ".jsonl"), strings.HasSuffix(path, ".json"):
		return nil
	}
	return fmt.Errorf("dump %s: %w: want .zst, .ndjson, .jsonl, or .json", path, ErrNotDump)
}
