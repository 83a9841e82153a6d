// Package search implements the client-side search filter over the items a
// store currently holds.
//
// Matching is a case-insensitive substring test over a fixed set of
// stringified fields per resource. Text is NFC-normalized and case-folded
// before comparison so that "STRASSE" matches "Straße" and composed and
// decomposed accents compare equal.
package search

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fields returns the searchable text of one item.
type Fields[T any] func(T) []string

// Filter returns the items whose fields contain query.
//
// An empty query, after trimming whitespace, returns items unchanged.
// Otherwise the result is a new slice preserving the input order; items is
// never modified.
func Filter[T any](items []T, query string, fields Fields[T]) []T {
	needle := strings.TrimSpace(query)
	if needle == "" {
		return items
	}
	fold := cases.Fold()
	needle = fold.String(norm.NFC.String(needle))

	out := make([]T, 0, len(items))
	for _, item := range items {
		if matches(fold, fields(item), needle) {
			out = append(out, item)
		}
	}
	return out
}

// Match reports whether any of fields contains query.
func Match(fields []string, query string) bool {
	needle := strings.TrimSpace(query)
	if needle == "" {
		return true
	}
	fold := cases.Fold()
	return matches(fold, fields, fold.String(norm.NFC.String(needle)))
}

func matches(fold cases.Caser, fields []string, needle string) bool {
	for _, f := range fields {
		if f == "" {
			continue
		}
		if strings.Contains(fold.String(norm.NFC.String(f)), needle) {
			return true
		}
	}
	return false
}

// Number renders a numeric field the way it is displayed: integers
// without a decimal point, fractions in shortest form.
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Int renders an integer field.
func Int(v int) string {
	return strconv.Itoa(v)
}

// Date renders t as dd/mm/yyyy in local time. The zero time renders empty.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("02/01/2006")
}
