package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/erpsync/internal/model"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Replies script the backend. Each reply answers one request.
	Replies []ReplySpec `yaml:"replies,omitempty"`

	// Setup steps establish initial state and must succeed.
	Setup []FlowStep `yaml:"setup,omitempty"`

	// Flow is the sequence under test.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// ReplySpec is one scripted backend answer.
type ReplySpec struct {
	Method  string `yaml:"method"`
	Path    string `yaml:"path"`
	Status  int    `yaml:"status,omitempty"`
	Body    any    `yaml:"body,omitempty"`
	Message string `yaml:"message,omitempty"`

	// Hold names a gate the reply waits on until a release step opens it.
	Hold string `yaml:"hold,omitempty"`
}

// FlowStep is either an invocation or a release.
type FlowStep struct {
	// Invoke is the target, "<resource>.<operation>".
	Invoke string   `yaml:"invoke,omitempty"`
	Args   StepArgs `yaml:"args,omitempty"`

	// Async launches the invocation in the background.
	Async bool `yaml:"async,omitempty"`

	// Release opens the named hold.
	Release string `yaml:"release,omitempty"`

	// Expect validates the outcome. Nil skips validation.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// StepArgs are the inputs of an invocation.
type StepArgs struct {
	ID      string         `yaml:"id,omitempty"`
	Page    int            `yaml:"page,omitempty"`
	Limit   int            `yaml:"limit,omitempty"`
	Payload map[string]any `yaml:"payload,omitempty"`
}

func (a StepArgs) model() model.Args {
	return model.Args{ID: a.ID, Page: a.Page, Limit: a.Limit, Payload: model.Payload(a.Payload)}
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Phase is "Succeeded" or "Failed".
	Phase string `yaml:"phase"`

	// Message is the expected failure message.
	Message string `yaml:"message,omitempty"`

	// Result is a subset match on the emitted value.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Trace assertions.
	Invoke  string   `yaml:"invoke,omitempty"`
	Invokes []string `yaml:"invokes,omitempty"`
	Phase   string   `yaml:"phase,omitempty"`
	Message string   `yaml:"message,omitempty"`
	Count   *int     `yaml:"count,omitempty"`

	// final_state.
	Resource   string            `yaml:"resource,omitempty"`
	IDs        []string          `yaml:"ids,omitempty"`
	Where      map[string]any    `yaml:"where,omitempty"`
	Expect     map[string]any    `yaml:"expect,omitempty"`
	Pagination map[string]int    `yaml:"pagination,omitempty"`
	Status     map[string]string `yaml:"status,omitempty"`
	LastError  map[string]string `yaml:"last_error,omitempty"`

	// session.
	SignedIn *bool  `yaml:"signed_in,omitempty"`
	Admin    *bool  `yaml:"admin,omitempty"`
	Access   string `yaml:"access,omitempty"`

	// notified.
	Level string `yaml:"level,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertSession       = "session"
	AssertNotified      = "notified"
)

// Session access outcomes.
const (
	AccessGranted     = "granted"
	AccessNotSignedIn = "not_signed_in"
	AccessForbidden   = "forbidden"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file of dir in name order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	holds := map[string]bool{}
	for i, r := range s.Replies {
		if r.Method == "" || r.Path == "" {
			return fmt.Errorf("replies[%d]: method and path are required", i)
		}
		if r.Hold != "" {
			holds[r.Hold] = true
		}
	}

	for i, step := range s.Setup {
		if step.Invoke == "" {
			return fmt.Errorf("setup[%d]: invoke is required", i)
		}
		if step.Async || step.Release != "" {
			return fmt.Errorf("setup[%d]: setup steps run synchronously", i)
		}
		if err := validateStep(step, holds); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step, holds); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step FlowStep, holds map[string]bool) error {
	switch {
	case step.Invoke != "" && step.Release != "":
		return fmt.Errorf("invoke and release are exclusive")
	case step.Release != "":
		if !holds[step.Release] {
			return fmt.Errorf("release of undeclared hold %q", step.Release)
		}
		if step.Async || step.Expect != nil {
			return fmt.Errorf("release takes no async or expect")
		}
		return nil
	case step.Invoke == "":
		return fmt.Errorf("invoke or release is required")
	}

	if err := validateTarget(step.Invoke); err != nil {
		return err
	}
	if step.Expect != nil {
		if err := validatePhase(step.Expect.Phase, false); err != nil {
			return fmt.Errorf("expect: %w", err)
		}
	}
	return nil
}

func validateTarget(t string) error {
	res, op, ok := strings.Cut(t, ".")
	if !ok || op == "" {
		return fmt.Errorf("invoke target %q must be <resource>.<operation>", t)
	}
	if !knownResource(model.Resource(res)) {
		return fmt.Errorf("unknown resource %q", res)
	}
	return nil
}

func knownResource(r model.Resource) bool {
	return r == model.ResourceAuth || slices.Contains(model.Resources, r)
}

func validatePhase(p string, optional bool) error {
	switch p {
	case model.PhaseSucceeded.String(), model.PhaseFailed.String():
		return nil
	case model.PhaseStarted.String(), "":
		if optional {
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", p)
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertTraceContains:
		if err := validateTarget(a.Invoke); err != nil {
			return err
		}
		return validatePhase(a.Phase, true)
	case AssertTraceOrder:
		if len(a.Invokes) < 2 {
			return fmt.Errorf("trace_order needs at least two invokes")
		}
		for _, t := range a.Invokes {
			if err := validateTarget(t); err != nil {
				return err
			}
		}
		return validatePhase(a.Phase, true)
	case AssertTraceCount:
		if err := validateTarget(a.Invoke); err != nil {
			return err
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("trace_count needs a non-negative count")
		}
		return validatePhase(a.Phase, true)
	case AssertFinalState:
		if !knownResource(model.Resource(a.Resource)) {
			return fmt.Errorf("final_state needs a known resource, got %q", a.Resource)
		}
		if a.Expect != nil && a.Where == nil {
			return fmt.Errorf("final_state expect needs a where clause")
		}
		for op, st := range a.Status {
			if _, ok := model.ParseOperationStatus(st); !ok {
				return fmt.Errorf("status of %s: unknown status %q", op, st)
			}
		}
	case AssertSession:
		switch a.Access {
		case "", AccessGranted, AccessNotSignedIn, AccessForbidden:
		default:
			return fmt.Errorf("unknown access %q", a.Access)
		}
	case AssertNotified:
		if a.Level != "success" && a.Level != "error" {
			return fmt.Errorf("notified needs level success or error")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
