package resources

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/roach88/erpsync/internal/model"
)

// Wire describes how one resource is laid out on the backend.
type Wire struct {
	Collection string // path segment, e.g. "materials"
	DetailPath string // page endpoint under the collection
	AddPath    string // create endpoint under the collection

	ListKey     string   // envelope key of list and page responses
	TotalKey    string   // envelope key of the total item count
	ItemKey     string   // envelope key of a get response
	CreatedKeys []string // envelope keys of a create response, in preference order
	UpdatedKeys []string // envelope keys of an update response, in preference order
}

func (w Wire) listPath() string             { return "/" + w.Collection }
func (w Wire) pagePath() string             { return "/" + w.Collection + "/" + w.DetailPath }
func (w Wire) addPath() string              { return "/" + w.Collection + "/" + w.AddPath }
func (w Wire) itemPath(id string) string    { return "/" + w.Collection + "/" + id }
func (w Wire) receivePath(id string) string { return "/" + w.Collection + "/receive/" + id }

// ErrMissingKey reports an entity without its server-issued key.
var ErrMissingKey = errors.New("entity has no identity key")

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("not an integer: %q", s)
		}
		*f = flexInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

func envelope(body []byte) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	return m, nil
}

func isArray(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// DecodeList accepts a bare array or an object holding the array under key.
func DecodeList[T model.Entity](body []byte, key string) ([]T, error) {
	raw := json.RawMessage(body)
	if !isArray(body) {
		m, err := envelope(body)
		if err != nil {
			return nil, err
		}
		var ok bool
		if raw, ok = m[key]; !ok {
			return nil, fmt.Errorf("response has no %q field", key)
		}
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	for i, item := range items {
		if item.Key() == "" {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, ErrMissingKey)
		}
	}
	return items, nil
}

// DecodePage reads a page envelope: the items under listKey plus
// currentPage, totalPages and the total count under totalKey.
func DecodePage[T model.Entity](body []byte, listKey, totalKey string) (model.Page[T], error) {
	m, err := envelope(body)
	if err != nil {
		return model.Page[T]{}, err
	}
	items, err := DecodeList[T](body, listKey)
	if err != nil {
		return model.Page[T]{}, err
	}

	var p model.Pagination
	read := func(dst *int, keys ...string) error {
		for _, k := range keys {
			raw, ok := m[k]
			if !ok {
				continue
			}
			var v flexInt
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			*dst = int(v)
			return nil
		}
		return nil
	}
	if err := read(&p.CurrentPage, "currentPage"); err != nil {
		return model.Page[T]{}, err
	}
	if err := read(&p.TotalPages, "totalPages"); err != nil {
		return model.Page[T]{}, err
	}
	if err := read(&p.TotalItems, totalKey, "totalItems", "total"); err != nil {
		return model.Page[T]{}, err
	}
	if _, ok := m["currentPage"]; !ok {
		return model.Page[T]{}, errors.New(`response has no "currentPage" field`)
	}
	if p.CurrentPage < 1 || p.TotalPages < 0 || p.TotalItems < 0 {
		return model.Page[T]{}, fmt.Errorf("invalid pagination %+v", p)
	}
	return model.Page[T]{Items: items, Pagination: p}, nil
}

// DecodeItem reads an entity held under the first present key, or the
// body itself when no key is present.
func DecodeItem[T model.Entity](body []byte, keys ...string) (T, error) {
	var zero T
	m, err := envelope(body)
	if err != nil {
		return zero, err
	}
	raw := json.RawMessage(body)
	for _, k := range keys {
		if v, ok := m[k]; ok {
			raw = v
			break
		}
	}

	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return zero, fmt.Errorf("decoding entity: %w", err)
	}
	if item.Key() == "" {
		return zero, ErrMissingKey
	}
	return item, nil
}
