// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fields holds helpers for turning command-line input into search
// parameters and for reconciling requested fields with retrieved records.
package fields

import (
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/psaw/pkg/types"
)

// Split breaks a comma-delimited string into trimmed parts. A nil input
// stays nil so the option is treated as unset. An empty string yields a
// single empty element, [""]; it is not the same as unset.
func Split(s *string) []string {
	if s == nil {
		return nil
	}
	parts := strings.Split(*s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Reconcile compares requested fields with those present on sample. With no
// request it returns every field on sample in order and no missing fields.
// Otherwise it returns the request in order with repeats dropped, plus the
// requested names absent from sample, sorted.
func Reconcile(sample types.Record, requested []string) (effective, missing []string) {
	if requested == nil {
		return sample.Fields(), nil
	}
	effective = make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, f := range requested {
		if seen[f] {
			continue
		}
		seen[f] = true
		effective = append(effective, f)
		if !sample.Has(f) {
			missing = append(missing, f)
		}
	}
	sort.Strings(missing)
	return effective, missing
}

// OmitUnset returns a copy of base extended with each named parameter whose
// value is non-nil. Nil values are dropped entirely, never sent as empty.
func OmitUnset(base url.Values, named map[string][]string) url.Values {
	out := make(url.Values, len(base)+len(named))
	for k, v := range base {
		out[k] = append([]string(nil), v...)
	}
	for k, v := range named {
		if v == nil {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}
