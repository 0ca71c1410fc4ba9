// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package writer

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/psaw/pkg/types"
)

// sqliteTable is the table every SQLite destination holds.
const sqliteTable = "records"

// SQLiteBatch writes every record as a row of table "records" in a fresh
// SQLite database file, one column per field. Rows are inserted inside a
// single transaction that Footer commits.
type SQLiteBatch struct {
	fields []string
	name   string
	db     *sql.DB
	tx     *sql.Tx
	insert *sql.Stmt
	stage  stage
}

// NewSQLiteBatch returns a SQLite writer for opts.Fields.
func NewSQLiteBatch(opts Options) *SQLiteBatch {
	return &SQLiteBatch{fields: opts.Fields}
}

// Open replaces any existing file at name with an empty database.
func (s *SQLiteBatch) Open(name string) error {
	if s.stage != stageUnopened && s.stage != stageClosed {
		return fmt.Errorf("%w: open %s while %s is open", ErrState, name, s.name)
	}
	if name == Stdout {
		return fmt.Errorf("sqlite output needs a file path, not stdout")
	}
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	db, err := sql.Open("sqlite3", name)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s.db = db
	s.name = name
	s.stage = stageOpened
	return nil
}

// Header creates the table and starts the insert transaction.
func (s *SQLiteBatch) Header() error {
	if s.stage != stageOpened {
		return fmt.Errorf("%w: header", ErrState)
	}
	if len(s.fields) == 0 {
		return fmt.Errorf("sqlite output needs at least one field")
	}
	cols := make([]string, len(s.fields))
	marks := make([]string, len(s.fields))
	for i, f := range s.fields {
		cols[i] = quoteIdent(f)
		marks[i] = "?"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(sqliteTable), strings.Join(cols, ", "))
	if _, err := s.db.Exec(create); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(sqliteTable), strings.Join(cols, ", "), strings.Join(marks, ", "))
	stmt, err := tx.Prepare(insert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	s.tx = tx
	s.insert = stmt
	s.stage = stageHeader
	return nil
}

func (s *SQLiteBatch) Write(rec types.Record) error {
	if s.stage != stageHeader {
		return fmt.Errorf("%w: write", ErrState)
	}
	args := make([]any, len(s.fields))
	for i, f := range s.fields {
		if v, ok := rec.Get(f); ok {
			args[i] = sqlValue(v)
		}
	}
	if _, err := s.insert.Exec(args...); err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

// Footer commits the inserted rows.
func (s *SQLiteBatch) Footer() error {
	if s.stage != stageHeader {
		return fmt.Errorf("%w: footer", ErrState)
	}
	s.stage = stageFooter
	s.insert.Close()
	s.insert = nil
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("committing records: %w", err)
	}
	return nil
}

// Close rolls back an uncommitted transaction and closes the database.
func (s *SQLiteBatch) Close() error {
	switch s.stage {
	case stageOpened, stageHeader, stageFooter:
	default:
		return fmt.Errorf("%w: close", ErrState)
	}
	s.stage = stageClosed
	if s.insert != nil {
		s.insert.Close()
		s.insert = nil
	}
	if s.tx != nil {
		s.tx.Rollback()
		s.tx = nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("closing %s: %w", s.name, err)
	}
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func sqlValue(v types.Value) any {
	switch v.Kind() {
	case types.KindNull:
		return nil
	case types.KindBool:
		if v.String() == "true" {
			return int64(1)
		}
		return int64(0)
	case types.KindNumber:
		if n, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(v.String(), 64); err == nil {
			return f
		}
		return v.String()
	default:
		return v.String()
	}
}
