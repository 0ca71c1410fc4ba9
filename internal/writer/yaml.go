// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package writer

import (
	"fmt"
	"strconv"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/psaw/pkg/types"
)

// recordNode builds an ordered YAML mapping of the present fields.
func recordNode(rec types.Record, fields []string) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range fields {
		v, ok := rec.Get(f)
		if !ok {
			continue
		}
		val, err := valueNode(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f, err)
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f}
		m.Content = append(m.Content, key, val)
	}
	return m, nil
}

func valueNode(v types.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case types.KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case types.KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.String()}, nil
	case types.KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v.String()}, nil
	case types.KindNumber:
		tag := "!!float"
		if _, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String()}, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(v.Interface()); err != nil {
			return nil, err
		}
		return n, nil
	}
}

func (d *dest) encodeYAML(n *yaml.Node) error {
	enc := yaml.NewEncoder(d.buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return fmt.Errorf("encoding yaml to %s: %w", d.name, err)
	}
	return enc.Close()
}

// YAML writes exactly one record per destination as a YAML mapping.
type YAML struct {
	fields []string
	d      dest
	wrote  bool
}

// NewYAML returns a single-record YAML writer.
func NewYAML(opts Options) *YAML {
	return &YAML{fields: opts.Fields, d: newDest(opts)}
}

func (y *YAML) Open(name string) error {
	if err := y.d.open(name); err != nil {
		return err
	}
	y.wrote = false
	return nil
}

func (y *YAML) Header() error { return y.d.advance("header", stageOpened, stageHeader) }

func (y *YAML) Write(rec types.Record) error {
	if err := y.d.expect("write", stageHeader); err != nil {
		return err
	}
	if y.wrote {
		return fmt.Errorf("%w: second record for single-record destination %s", ErrState, y.d.name)
	}
	n, err := recordNode(rec, y.fields)
	if err != nil {
		return err
	}
	y.wrote = true
	return y.d.encodeYAML(n)
}

func (y *YAML) Footer() error { return y.d.advance("footer", stageHeader, stageFooter) }

func (y *YAML) Close() error { return y.d.close() }

// YAMLBatch writes every record as an item of one top-level YAML sequence.
// Items are emitted as they arrive, so the sequence is never held in memory.
type YAMLBatch struct {
	fields []string
	d      dest
	wrote  bool
}

// NewYAMLBatch returns a YAML sequence writer.
func NewYAMLBatch(opts Options) *YAMLBatch {
	return &YAMLBatch{fields: opts.Fields, d: newDest(opts)}
}

func (y *YAMLBatch) Open(name string) error {
	if err := y.d.open(name); err != nil {
		return err
	}
	y.wrote = false
	return nil
}

func (y *YAMLBatch) Header() error { return y.d.advance("header", stageOpened, stageHeader) }

func (y *YAMLBatch) Write(rec types.Record) error {
	if err := y.d.expect("write", stageHeader); err != nil {
		return err
	}
	n, err := recordNode(rec, y.fields)
	if err != nil {
		return err
	}
	y.wrote = true
	return y.d.encodeYAML(&yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: []*yaml.Node{n}})
}

// Footer writes an empty sequence when no record was written.
func (y *YAMLBatch) Footer() error {
	if err := y.d.advance("footer", stageHeader, stageFooter); err != nil {
		return err
	}
	if !y.wrote {
		_, err := y.d.buf.WriteString("[]\n")
		return err
	}
	return nil
}

func (y *YAMLBatch) Close() error { return y.d.close() }
