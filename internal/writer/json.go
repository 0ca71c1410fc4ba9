// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package writer

import (
	"encoding/json"
	"fmt"

	"github.com/pdiddy/psaw/pkg/types"
)

const jsonIndent = "    "

func marshalRecord(rec types.Record, fields []string, prefix string, prettify bool) ([]byte, error) {
	obj := rec.Project(fields)
	if prettify {
		return json.MarshalIndent(obj, prefix, jsonIndent)
	}
	return json.Marshal(obj)
}

// JSON writes exactly one record per destination as a JSON object. Header
// and Footer write nothing.
type JSON struct {
	fields   []string
	prettify bool
	d        dest
	wrote    bool
}

// NewJSON returns a single-record JSON writer.
func NewJSON(opts Options) *JSON {
	return &JSON{fields: opts.Fields, prettify: opts.Prettify, d: newDest(opts)}
}

func (j *JSON) Open(name string) error {
	if err := j.d.open(name); err != nil {
		return err
	}
	j.wrote = false
	return nil
}

func (j *JSON) Header() error {
	return j.d.advance("header", stageOpened, stageHeader)
}

func (j *JSON) Write(rec types.Record) error {
	if err := j.d.expect("write", stageHeader); err != nil {
		return err
	}
	if j.wrote {
		return fmt.Errorf("%w: second record for single-record destination %s", ErrState, j.d.name)
	}
	data, err := marshalRecord(rec, j.fields, "", j.prettify)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	j.wrote = true
	data = append(data, '\n')
	_, err = j.d.buf.Write(data)
	return err
}

func (j *JSON) Footer() error {
	return j.d.advance("footer", stageHeader, stageFooter)
}

func (j *JSON) Close() error { return j.d.close() }

// JSONBatch writes every record into one JSON array.
type JSONBatch struct {
	fields   []string
	prettify bool
	d        dest
	wrote    bool
}

// NewJSONBatch returns a JSON array writer.
func NewJSONBatch(opts Options) *JSONBatch {
	return &JSONBatch{fields: opts.Fields, prettify: opts.Prettify, d: newDest(opts)}
}

func (j *JSONBatch) Open(name string) error {
	if err := j.d.open(name); err != nil {
		return err
	}
	j.wrote = false
	return nil
}

func (j *JSONBatch) Header() error {
	if err := j.d.advance("header", stageOpened, stageHeader); err != nil {
		return err
	}
	_, err := j.d.buf.WriteString("[")
	return err
}

// Write emits a separator before every record after the first.
func (j *JSONBatch) Write(rec types.Record) error {
	if err := j.d.expect("write", stageHeader); err != nil {
		return err
	}
	data, err := marshalRecord(rec, j.fields, jsonIndent, j.prettify)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	sep := ""
	if j.wrote {
		sep = ","
	}
	if j.prettify {
		sep += "\n" + jsonIndent
	}
	if _, err := j.d.buf.WriteString(sep); err != nil {
		return err
	}
	j.wrote = true
	_, err = j.d.buf.Write(data)
	return err
}

func (j *JSONBatch) Footer() error {
	if err := j.d.advance("footer", stageHeader, stageFooter); err != nil {
		return err
	}
	end := "]\n"
	if j.prettify && j.wrote {
		end = "\n]\n"
	}
	_, err := j.d.buf.WriteString(end)
	return err
}

func (j *JSONBatch) Close() error { return j.d.close() }
