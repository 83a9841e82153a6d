package state

import (
	"maps"

	"github.com/roach88/erpsync/internal/model"
)

// State is the in-memory state of one resource.
//
// A State value handed out by a Store is never mutated afterwards: Reduce
// always allocates new slices and maps for the parts it changes.
type State[T model.Entity] struct {
	Items      []T
	Selected   *T
	Pagination model.Pagination
	Status     map[model.OperationName]model.OperationStatus
	LastError  map[model.OperationName]*model.Failure
}

// Initial returns the empty state of a resource.
func Initial[T model.Entity](rules Rules[T]) State[T] {
	return State[T]{
		Items:      []T{},
		Pagination: rules.InitialPagination,
		Status:     map[model.OperationName]model.OperationStatus{},
		LastError:  map[model.OperationName]*model.Failure{},
	}
}

// StatusOf returns the status of op; operations never invoked are Idle.
func (s State[T]) StatusOf(op model.OperationName) model.OperationStatus {
	return s.Status[op]
}

// ErrorOf returns the last failure of op, or nil.
func (s State[T]) ErrorOf(op model.OperationName) *model.Failure {
	return s.LastError[op]
}

// Loading reports whether any operation is pending.
func (s State[T]) Loading() bool {
	for _, st := range s.Status {
		if st == model.StatusPending {
			return true
		}
	}
	return false
}

// Find returns the item with the given key.
func (s State[T]) Find(key string) (T, bool) {
	for _, item := range s.Items {
		if item.Key() == key {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Reduce applies one event to a state and returns the next state.
// Events for another resource or for an operation missing from the rules
// return the state unchanged.
func Reduce[T model.Entity](s State[T], ev model.Event, rules Rules[T]) State[T] {
	if ev.Resource != rules.Resource {
		return s
	}
	class, ok := rules.Operations[ev.Op]
	if !ok {
		return s
	}

	switch ev.Phase {
	case model.PhaseStarted:
		s.Status = withStatus(s.Status, ev.Op, model.StatusPending)
		s.LastError = withoutError(s.LastError, ev.Op)

	case model.PhaseSucceeded:
		s.Status = withStatus(s.Status, ev.Op, model.StatusSucceeded)
		s = reconcile(s, class, ev.Value, rules)

	case model.PhaseFailed:
		f := ev.Failure
		if f == nil {
			f = &model.Failure{Message: "unknown failure"}
		}
		s.Status = withStatus(s.Status, ev.Op, model.StatusFailed)
		s.LastError = withError(s.LastError, ev.Op, f)
	}

	return s
}

// reconcile merges a successful result into the state.
// A value of the wrong type leaves items, selection and pagination as they
// were.
func reconcile[T model.Entity](s State[T], class Class, value any, rules Rules[T]) State[T] {
	switch class {
	case ClassReplaceAll:
		if items, ok := value.([]T); ok {
			s.Items = dedupe(items)
		}

	case ClassReplacePage:
		if page, ok := value.(model.Page[T]); ok {
			s.Items = dedupe(page.Items)
			s.Pagination = page.Pagination
		}

	case ClassSelect:
		if item, ok := value.(T); ok {
			s.Selected = &item
		}

	case ClassAppend:
		if item, ok := value.(T); ok {
			s.Items = appendItem(s.Items, item)
		}

	case ClassUpdate:
		if !rules.SpliceOnUpdate {
			break
		}
		if item, ok := value.(T); ok {
			s.Items = replaceItem(s.Items, item.Key(), func(T) T { return item })
		}

	case ClassRemove:
		if key, ok := value.(string); ok {
			s.Items = removeItem(s.Items, key)
		}

	case ClassMarkReceived:
		if key, ok := value.(string); ok && rules.Receive != nil {
			s.Items = replaceItem(s.Items, key, rules.Receive)
		}
	}
	return s
}

func withStatus(m map[model.OperationName]model.OperationStatus, op model.OperationName, st model.OperationStatus) map[model.OperationName]model.OperationStatus {
	next := maps.Clone(m)
	if next == nil {
		next = map[model.OperationName]model.OperationStatus{}
	}
	next[op] = st
	return next
}

func withError(m map[model.OperationName]*model.Failure, op model.OperationName, f *model.Failure) map[model.OperationName]*model.Failure {
	next := maps.Clone(m)
	if next == nil {
		next = map[model.OperationName]*model.Failure{}
	}
	next[op] = f
	return next
}

func withoutError(m map[model.OperationName]*model.Failure, op model.OperationName) map[model.OperationName]*model.Failure {
	if _, ok := m[op]; !ok {
		return m
	}
	next := maps.Clone(m)
	delete(next, op)
	return next
}

// dedupe copies items, keeping the first entity of every non-empty key.
func dedupe[T model.Entity](items []T) []T {
	out := make([]T, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		k := item.Key()
		if k != "" {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, item)
	}
	return out
}

// appendItem appends item to a copy of items. An existing entity with the
// same key is dropped first so keys stay unique.
func appendItem[T model.Entity](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	k := item.Key()
	for _, existing := range items {
		if k != "" && existing.Key() == k {
			continue
		}
		out = append(out, existing)
	}
	return append(out, item)
}

func removeItem[T model.Entity](items []T, key string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.Key() == key {
			continue
		}
		out = append(out, item)
	}
	return out
}

// replaceItem copies items, rewriting every entity whose key matches.
// Returns the original slice when nothing matches.
func replaceItem[T model.Entity](items []T, key string, fn func(T) T) []T {
	idx := -1
	for i, item := range items {
		if item.Key() == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return items
	}
	out := make([]T, len(items))
	copy(out, items)
	out[idx] = fn(out[idx])
	return out
}
