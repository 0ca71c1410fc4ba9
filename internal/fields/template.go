// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fields

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/psaw/pkg/types"
)

// ErrMissingField is returned when a template names a field the record
// does not carry.
var ErrMissingField = errors.New("field not present on record")

// Expand substitutes {name} placeholders in tmpl with the record's field
// values. "{{" and "}}" produce literal braces.
func Expand(tmpl string, rec types.Record) (string, error) {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("template %q: unterminated placeholder at offset %d", tmpl, i)
			}
			name := tmpl[i+1 : i+1+end]
			if name == "" {
				return "", fmt.Errorf("template %q: empty placeholder at offset %d", tmpl, i)
			}
			v, ok := rec.Get(name)
			if !ok {
				return "", fmt.Errorf("template %q: %w: %s", tmpl, ErrMissingField, name)
			}
			b.WriteString(v.String())
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("template %q: single '}' at offset %d", tmpl, i)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
