package ingest

import (
	"sort"
	"strings"

	"listing-sync/core/utils"
)

// Record is one source row, keyed by column name.
// Values are scalars: string, number, bool or nil.
type Record map[string]any

// Snapshot is the full set of records a source reports for one pass.
// Order carries no meaning.
type Snapshot []Record

// KeySet is a set of natural-key values.
type KeySet map[string]struct{}

// KeyOf returns the normalized natural key of rec under column.
// A missing, nil or blank value yields "".
func KeyOf(rec Record, column string) string {
	v, ok := rec[column]
	if !ok || utils.IsBlank(v) {
		return ""
	}
	return strings.TrimSpace(utils.ToString(v))
}

// KeysOf collects the non-empty natural keys of every record in s.
func KeysOf(s Snapshot, column string) KeySet {
	keys := make(KeySet, len(s))
	for _, rec := range s {
		if k := KeyOf(rec, column); k != "" {
			keys[k] = struct{}{}
		}
	}
	return keys
}

// Has reports whether key is in the set.
func (k KeySet) Has(key string) bool {
	_, ok := k[key]
	return ok
}

// Sorted returns the keys in ascending order.
func (k KeySet) Sorted() []string {
	out := make([]string, 0, len(k))
	for key := range k {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Project copies rec restricted to columns. Columns rec lacks are set to nil
// so every projected record of a dataset has the same column set.
func Project(rec Record, columns []string) Record {
	out := make(Record, len(columns))
	for _, c := range columns {
		out[c] = rec[c]
	}
	return out
}
