// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package writer

import (
	"encoding/csv"
	"fmt"

	"github.com/pdiddy/psaw/pkg/types"
)

// CSVBatch writes a header row of field names followed by one row per
// record. Missing fields are written as empty cells.
type CSVBatch struct {
	fields []string
	d      dest
	w      *csv.Writer
}

// NewCSVBatch returns a CSV writer for opts.Fields.
func NewCSVBatch(opts Options) *CSVBatch {
	return &CSVBatch{fields: opts.Fields, d: newDest(opts)}
}

func (c *CSVBatch) Open(name string) error {
	if err := c.d.open(name); err != nil {
		return err
	}
	c.w = csv.NewWriter(c.d.buf)
	return nil
}

func (c *CSVBatch) Header() error {
	if err := c.d.advance("header", stageOpened, stageHeader); err != nil {
		return err
	}
	return c.row(c.fields)
}

func (c *CSVBatch) Write(rec types.Record) error {
	if err := c.d.expect("write", stageHeader); err != nil {
		return err
	}
	cells := make([]string, len(c.fields))
	for i, f := range c.fields {
		if v, ok := rec.Get(f); ok {
			cells[i] = v.String()
		}
	}
	return c.row(cells)
}

func (c *CSVBatch) Footer() error {
	if err := c.d.advance("footer", stageHeader, stageFooter); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVBatch) Close() error {
	if c.w != nil && c.d.stage != stageClosed {
		c.w.Flush()
	}
	return c.d.close()
}

func (c *CSVBatch) row(cells []string) error {
	if err := c.w.Write(cells); err != nil {
		return fmt.Errorf("writing csv row to %s: %w", c.d.name, err)
	}
	return nil
}
