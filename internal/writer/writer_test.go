// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package writer

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/psaw/pkg/types"
)

func sampleRecords() []types.Record {
	return []types.Record{
		types.NewRecord("id", "abc", "author", "alice", "body", "hello, world", "score", 3),
		types.NewRecord("id", "def", "author", "bob", "body", "line one\nline \"two\"", "score", -1),
		types.NewRecord("id", "ghi", "body", "no author here", "score", 10),
	}
}

// writeAll drives w through the full call sequence for recs.
func writeAll(t *testing.T, w Writer, path string, recs []types.Record) {
	t.Helper()
	require.NoError(t, w.Open(path))
	defer func() { require.NoError(t, w.Close()) }()
	require.NoError(t, w.Header())
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Footer())
}

// --- selection ---

func TestNew_SupportedPairs(t *testing.T) {
	tests := []struct {
		format types.OutputFormat
		batch  bool
		want   any
	}{
		{types.FormatJSON, false, &JSON{}},
		{types.FormatJSON, true, &JSONBatch{}},
		{types.FormatCSV, true, &CSVBatch{}},
		{types.FormatYAML, false, &YAML{}},
		{types.FormatYAML, true, &YAMLBatch{}},
		{types.FormatSQLite, true, &SQLiteBatch{}},
	}
	for _, tt := range tests {
		w, err := New(tt.format, tt.batch, Options{Fields: []string{"id"}})
		require.NoError(t, err)
		assert.IsType(t, tt.want, w)
	}
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(types.FormatCSV, false, Options{})
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "csv in single-record mode")

	assert.ErrorIs(t, Check(types.FormatSQLite, false), ErrUnsupported)
	assert.NoError(t, Check(types.FormatCSV, true))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, types.FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

// --- CSV ---

func TestCSVBatch_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	fields := []string{"id", "author", "body"}
	writeAll(t, NewCSVBatch(Options{Fields: fields}), path, sampleRecords())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, fields, rows[0])
	assert.Equal(t, []string{"abc", "alice", "hello, world"}, rows[1])
	assert.Equal(t, []string{"def", "bob", "line one\nline \"two\""}, rows[2])
	assert.Equal(t, []string{"ghi", "", "no author here"}, rows[3])
}

func TestCSVBatch_NoRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	writeAll(t, NewCSVBatch(Options{Fields: []string{"id", "author"}}), path, nil)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,author\n", string(data))
}

// --- JSON ---

func TestJSONBatch_RoundTrip(t *testing.T) {
	for _, prettify := range []bool{false, true} {
		path := filepath.Join(t.TempDir(), "out.json")
		fields := []string{"id", "author", "score"}
		writeAll(t, NewJSONBatch(Options{Fields: fields, Prettify: prettify}), path, sampleRecords())

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var got []map[string]any
		require.NoError(t, json.Unmarshal(data, &got), "prettify=%v: %s", prettify, data)
		require.Len(t, got, 3)
		assert.Equal(t, "abc", got[0]["id"])
		assert.Equal(t, "def", got[1]["id"])
		assert.Equal(t, "ghi", got[2]["id"])
		assert.Len(t, got[0], 3)
		assert.NotContains(t, got[2], "author")
		assert.NotContains(t, got[0], "body")
	}
}

func TestJSONBatch_CommaPlacement(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	writeAll(t, NewJSONBatch(Options{Fields: []string{"id"}}), path, sampleRecords())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"abc"},{"id":"def"},{"id":"ghi"}]`+"\n", string(data))
}

func TestJSONBatch_Empty(t *testing.T) {
	for _, prettify := range []bool{false, true} {
		path := filepath.Join(t.TempDir(), "out.json")
		writeAll(t, NewJSONBatch(Options{Fields: []string{"id"}, Prettify: prettify}), path, nil)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "[]\n", string(data))
	}
}

func TestJSON_SingleRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.json")
	rec := sampleRecords()[0]
	writeAll(t, NewJSON(Options{Fields: []string{"score", "id"}}), path, []types.Record{rec})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"score":3,"id":"abc"}`+"\n", string(data))
}

func TestStdoutDestinationUsesOptionWriter(t *testing.T) {
	tests := []struct {
		name string
		w    func(Options) Writer
		want string
	}{
		{"csv", func(o Options) Writer { return NewCSVBatch(o) }, "id\nabc\n"},
		{"json", func(o Options) Writer { return NewJSONBatch(o) }, `[{"id":"abc"}]` + "\n"},
		{"yaml", func(o Options) Writer { return NewYAML(o) }, "id: abc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			w := tt.w(Options{Fields: []string{"id"}, Stdout: &out})
			writeAll(t, w, Stdout, sampleRecords()[:1])
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestJSON_Prettify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.json")
	writeAll(t, NewJSON(Options{Fields: []string{"id", "score"}, Prettify: true}), path, sampleRecords()[:1])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"id\": \"abc\",\n    \"score\": 3\n}\n", string(data))
}

func TestJSON_RejectsSecondRecord(t *testing.T) {
	w := NewJSON(Options{Fields: []string{"id"}})
	require.NoError(t, w.Open(filepath.Join(t.TempDir(), "x.json")))
	defer w.Close()
	require.NoError(t, w.Header())
	require.NoError(t, w.Write(sampleRecords()[0]))
	assert.ErrorIs(t, w.Write(sampleRecords()[1]), ErrState)
}

func TestJSON_ReopenPerRecord(t *testing.T) {
	dir := t.TempDir()
	w := NewJSON(Options{Fields: []string{"id"}})
	for _, r := range sampleRecords() {
		id, _ := r.Get("id")
		writeAll(t, w, filepath.Join(dir, id.String()+".json"), []types.Record{r})
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

// --- contract ---

func TestWriterContract(t *testing.T) {
	makers := map[string]func() Writer{
		"csv":         func() Writer { return NewCSVBatch(Options{Fields: []string{"id"}}) },
		"json":        func() Writer { return NewJSON(Options{Fields: []string{"id"}}) },
		"jsonbatch":   func() Writer { return NewJSONBatch(Options{Fields: []string{"id"}}) },
		"yaml":        func() Writer { return NewYAML(Options{Fields: []string{"id"}}) },
		"yamlbatch":   func() Writer { return NewYAMLBatch(Options{Fields: []string{"id"}}) },
		"sqlitebatch": func() Writer { return NewSQLiteBatch(Options{Fields: []string{"id"}}) },
	}
	for name, mk := range makers {
		t.Run(name, func(t *testing.T) {
			w := mk()
			assert.ErrorIs(t, w.Header(), ErrState, "header before open")
			assert.ErrorIs(t, w.Close(), ErrState, "close before open")

			require.NoError(t, w.Open(filepath.Join(t.TempDir(), "out")))
			assert.ErrorIs(t, w.Write(sampleRecords()[0]), ErrState, "write before header")
			assert.ErrorIs(t, w.Footer(), ErrState, "footer before header")
			assert.ErrorIs(t, w.Open(filepath.Join(t.TempDir(), "other")), ErrState, "open twice")

			require.NoError(t, w.Header())
			assert.ErrorIs(t, w.Header(), ErrState, "header twice")
			require.NoError(t, w.Footer())
			assert.ErrorIs(t, w.Footer(), ErrState, "footer twice")
			require.NoError(t, w.Close())
			assert.ErrorIs(t, w.Close(), ErrState, "close twice")
		})
	}
}

func TestClose_AfterFailedWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w := NewJSON(Options{Fields: []string{"id"}})
	require.NoError(t, w.Open(path))
	require.NoError(t, w.Header())
	require.NoError(t, w.Write(sampleRecords()[0]))
	require.Error(t, w.Write(sampleRecords()[1]))
	require.NoError(t, w.Close())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_MissingDirectory(t *testing.T) {
	w := NewCSVBatch(Options{Fields: []string{"id"}})
	err := w.Open(filepath.Join(t.TempDir(), "missing", "out.csv"))
	assert.Error(t, err)
	assert.ErrorIs(t, w.Close(), ErrState)
}

// --- YAML ---

func TestYAMLBatch_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	writeAll(t, NewYAMLBatch(Options{Fields: []string{"id", "author", "score"}}), path, sampleRecords())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got), string(data))
	require.Len(t, got, 3)
	assert.Equal(t, "abc", got[0]["id"])
	assert.Equal(t, 3, got[0]["score"])
	assert.Equal(t, -1, got[1]["score"])
	assert.NotContains(t, got[2], "author")
	assert.True(t, strings.HasPrefix(string(data), "- id: abc\n"))
}

func TestYAMLBatch_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	writeAll(t, NewYAMLBatch(Options{Fields: []string{"id"}}), path, nil)

	var got []map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Empty(t, got)
}

func TestYAML_SingleRecordKeepsTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.yaml")
	rec := types.NewRecord("id", "true", "over_18", false, "edited", nil, "ratio", 0.5)
	writeAll(t, NewYAML(Options{Fields: []string{"id", "over_18", "edited", "ratio"}}), path, []types.Record{rec})

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "true", got["id"])
	assert.Equal(t, false, got["over_18"])
	assert.Nil(t, got["edited"])
	assert.Equal(t, 0.5, got["ratio"])
}

// --- SQLite ---

func TestSQLiteBatch_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	writeAll(t, NewSQLiteBatch(Options{Fields: []string{"id", "author", "score"}}), path, sampleRecords())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT id, author, score FROM records ORDER BY rowid`)
	require.NoError(t, err)
	defer rows.Close()

	var ids []string
	var authors []sql.NullString
	var scores []int64
	for rows.Next() {
		var id string
		var author sql.NullString
		var score int64
		require.NoError(t, rows.Scan(&id, &author, &score))
		ids = append(ids, id)
		authors = append(authors, author)
		scores = append(scores, score)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []string{"abc", "def", "ghi"}, ids)
	assert.Equal(t, []int64{3, -1, 10}, scores)
	assert.True(t, authors[0].Valid)
	assert.False(t, authors[2].Valid)
}

func TestSQLiteBatch_CloseWithoutFooterDiscards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	w := NewSQLiteBatch(Options{Fields: []string{"id"}})
	require.NoError(t, w.Open(path))
	require.NoError(t, w.Header())
	require.NoError(t, w.Write(sampleRecords()[0]))
	require.NoError(t, w.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM records`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestSQLiteBatch_RejectsStdout(t *testing.T) {
	assert.Error(t, NewSQLiteBatch(Options{Fields: []string{"id"}}).Open(Stdout))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"id"`, quoteIdent("id"))
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}
