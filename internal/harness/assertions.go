package harness

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/erpsync/internal/auth"
	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/ops"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s", ev.Seq, ev.Invocation, ev.Invoke, ev.Phase)
			if ev.Failure != nil {
				fmt.Fprintf(&buf, " (%s)", ev.Failure.Message)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

func matchesEvent(ev TraceEvent, invoke, phase string) bool {
	return ev.Invoke == invoke && (phase == "" || ev.Phase == phase)
}

// assertTraceContains checks that an event for the target exists in the
// given phase, with the given failure message when one is set.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if !matchesEvent(ev, a.Invoke, a.Phase) {
			continue
		}
		if a.Message == "" || (ev.Failure != nil && ev.Failure.Message == a.Message) {
			return nil
		}
	}

	expected := fmt.Sprintf("%s %s", a.Invoke, phaseOrAny(a.Phase))
	if a.Message != "" {
		expected += fmt.Sprintf(" with message %q", a.Message)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first matching events of the targets
// appear in the listed order. Other events may be interleaved.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		for _, want := range a.Invokes {
			if positions[want] == 0 && matchesEvent(ev, want, a.Phase) {
				positions[want] = i + 1
			}
		}
	}

	for _, want := range a.Invokes {
		if positions[want] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all targets present: %v", a.Invokes),
				Actual:   fmt.Sprintf("missing %s %s", want, phaseOrAny(a.Phase)),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Invokes); i++ {
		prev, curr := a.Invokes[i-1], a.Invokes[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("targets in order: %v", a.Invokes),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks the exact number of events for a target.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matchesEvent(ev, a.Invoke, a.Phase) {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s %s events", *a.Count, a.Invoke, phaseOrAny(a.Phase)),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

func phaseOrAny(p string) string {
	if p == "" {
		return "(any phase)"
	}
	return p
}

// storeView is the part of a store that final_state inspects.
type storeView struct {
	items      any
	pagination model.Pagination
	status     func(model.OperationName) model.OperationStatus
	lastError  func(model.OperationName) *model.Failure
}

func (h *Harness) view(res model.Resource) (storeView, error) {
	if res == model.ResourceAuth {
		st := h.reg.Auth.Store()
		snap, err := st.Snapshot()
		if err != nil {
			return storeView{}, err
		}
		return storeView{
			items:      snap.Items,
			pagination: snap.Pagination,
			status:     st.Status,
			lastError:  st.LastError,
		}, nil
	}

	c, err := h.reg.Controller(res)
	if err != nil {
		return storeView{}, err
	}
	items, err := c.Items()
	if err != nil {
		return storeView{}, err
	}
	return storeView{
		items:      items,
		pagination: c.Pagination(),
		status:     c.Status,
		lastError:  c.LastError,
	}, nil
}

// assertFinalState checks a store's items, pagination and per-operation
// status. Field comparisons use subset semantics.
func (h *Harness) assertFinalState(a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: AssertFinalState, Expected: expected, Actual: actual}
	}

	v, err := h.view(model.Resource(a.Resource))
	if err != nil {
		return err
	}

	if a.Count != nil {
		if n := reflect.ValueOf(v.items).Len(); n != *a.Count {
			return fail(fmt.Sprintf("%d %s items", *a.Count, a.Resource), fmt.Sprintf("%d items", n))
		}
	}

	if a.IDs != nil {
		if got := keysOf(v.items); !reflect.DeepEqual(got, a.IDs) {
			return fail(fmt.Sprintf("%s keys %v", a.Resource, a.IDs), fmt.Sprintf("%v", got))
		}
	}

	if a.Where != nil {
		if err := matchItem(v.items, a); err != nil {
			return err
		}
	}

	if len(a.Pagination) > 0 {
		got := map[string]int{
			"currentPage": v.pagination.CurrentPage,
			"totalPages":  v.pagination.TotalPages,
			"totalItems":  v.pagination.TotalItems,
		}
		for _, k := range sortedKeys(a.Pagination) {
			actual, ok := got[k]
			if !ok {
				return fail(fmt.Sprintf("pagination field %q", k), "no such field")
			}
			if actual != a.Pagination[k] {
				return fail(fmt.Sprintf("pagination %s = %d", k, a.Pagination[k]), fmt.Sprintf("%d", actual))
			}
		}
	}

	for _, op := range sortedKeys(a.Status) {
		got := v.status(model.OperationName(op)).String()
		if got != a.Status[op] {
			return fail(fmt.Sprintf("status %s = %s", op, a.Status[op]), got)
		}
	}

	for _, op := range sortedKeys(a.LastError) {
		want := a.LastError[op]
		f := v.lastError(model.OperationName(op))
		switch {
		case want == "" && f != nil:
			return fail(fmt.Sprintf("no last error for %s", op), f.Message)
		case want != "" && f == nil:
			return fail(fmt.Sprintf("last error %s = %q", op, want), "no error")
		case want != "" && f.Message != want:
			return fail(fmt.Sprintf("last error %s = %q", op, want), fmt.Sprintf("%q", f.Message))
		}
	}
	return nil
}

// matchItem finds the single item matching a.Where and checks a.Expect
// against it.
func matchItem(items any, a Assertion) error {
	all, err := normalize(items)
	if err != nil {
		return err
	}
	list, _ := all.([]any)

	var matched []map[string]any
	for _, it := range list {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := subsetMatch(m, a.Where); ok {
			matched = append(matched, m)
		}
	}

	where := formatFields(a.Where)
	switch len(matched) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s item where %s", a.Resource, where),
			Actual:   "item not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one %s item where %s", a.Resource, where),
			Actual:   "multiple items matched (assertion is ambiguous)",
		}
	}

	if key, ok := subsetMatch(matched[0], a.Expect); !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("field %q = %v", key, a.Expect[key]),
			Actual:   fmt.Sprintf("field %q = %v", key, matched[0][key]),
		}
	}
	return nil
}

// keysOf returns the identity keys of a []T of entities.
func keysOf(items any) []string {
	rv := reflect.ValueOf(items)
	keys := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if e, ok := rv.Index(i).Interface().(model.Entity); ok {
			keys = append(keys, e.Key())
		}
	}
	return keys
}

// subsetMatch reports whether actual holds every field of expected. On a
// mismatch it returns the first offending key.
func subsetMatch(actual, expected map[string]any) (string, bool) {
	for _, key := range sortedKeys(expected) {
		got, ok := actual[key]
		if !ok {
			return key, false
		}
		want, err := normalize(expected[key])
		if err != nil || !reflect.DeepEqual(got, want) {
			return key, false
		}
	}
	return "", true
}

func formatFields(m map[string]any) string {
	if len(m) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// assertSession checks the signed-in user and admin gating.
func (h *Harness) assertSession(a Assertion) error {
	st := h.reg.Auth.Store()
	user, signedIn := st.User()

	if a.SignedIn != nil && *a.SignedIn != signedIn {
		return &AssertionError{
			Type:     AssertSession,
			Expected: fmt.Sprintf("signed in = %t", *a.SignedIn),
			Actual:   fmt.Sprintf("signed in = %t", signedIn),
		}
	}
	if a.Admin != nil && (!signedIn || user.Admin != *a.Admin) {
		return &AssertionError{
			Type:     AssertSession,
			Expected: fmt.Sprintf("admin = %t", *a.Admin),
			Actual:   fmt.Sprintf("signed in = %t, admin = %t", signedIn, user.Admin),
		}
	}

	if a.Access != "" {
		got := AccessGranted
		switch err := h.reg.RequireAdmin(); {
		case errors.Is(err, auth.ErrNotSignedIn):
			got = AccessNotSignedIn
		case errors.Is(err, auth.ErrForbidden):
			got = AccessForbidden
		case err != nil:
			return err
		}
		if got != a.Access {
			return &AssertionError{
				Type:     AssertSession,
				Expected: fmt.Sprintf("admin access %s", a.Access),
				Actual:   got,
			}
		}
	}
	return nil
}

// assertNotified checks that a notification with the level and message was
// raised, optionally for a given target.
func (h *Harness) assertNotified(a Assertion) error {
	notes := h.notes.All()
	for _, n := range notes {
		if n.Level.String() != a.Level || n.Message != a.Message {
			continue
		}
		if a.Invoke == "" || target(n.Resource, n.Op) == a.Invoke {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertNotified,
		Expected: fmt.Sprintf("%s notification %q", a.Level, a.Message),
		Actual:   formatNotes(notes),
	}
}

func formatNotes(notes []ops.Notification) string {
	if len(notes) == 0 {
		return "no notifications"
	}
	parts := make([]string, len(notes))
	for i, n := range notes {
		parts[i] = fmt.Sprintf("%s %s %q", target(n.Resource, n.Op), n.Level, n.Message)
	}
	return strings.Join(parts, "; ")
}

// evaluate runs every assertion and returns the failure messages.
func (h *Harness) evaluate(trace []TraceEvent, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(trace, a)
		case AssertTraceCount:
			err = assertTraceCount(trace, a)
		case AssertFinalState:
			err = h.assertFinalState(a)
		case AssertSession:
			err = h.assertSession(a)
		case AssertNotified:
			err = h.assertNotified(a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}
	return failures
}
