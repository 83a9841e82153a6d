// Package validate checks command payloads against embedded CUE schemas
// before they are sent to the server.
package validate

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/erpsync/internal/model"
)

//go:embed schema.cue
var schemaSource string

// Kind selects between the create and the patch form of a schema.
type Kind int

const (
	Create Kind = iota
	Patch
)

// Schema names for payloads that do not belong to a resource.
const (
	SchemaRegister = "#Register"
	SchemaSignIn   = "#SignIn"
)

var resourceSchemas = map[model.Resource]string{
	model.ResourceMaterial:   "#Material",
	model.ResourceVendor:     "#Vendor",
	model.ResourceOrder:      "#Order",
	model.ResourceProduct:    "#Product",
	model.ResourceProduction: "#Production",
	model.ResourceSale:       "#Sale",
}

// SchemaFor returns the schema name for a resource payload.
func SchemaFor(r model.Resource, kind Kind) (string, bool) {
	name, ok := resourceSchemas[r]
	if !ok {
		return "", false
	}
	if kind == Patch {
		name += "Patch"
	}
	return name, true
}

// Issue is one violated constraint.
type Issue struct {
	Path    string
	Message string
}

// Error lists every constraint a payload violates.
type Error struct {
	Schema string
	Issues []Issue
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		if is.Path == "" {
			parts[i] = is.Message
			continue
		}
		parts[i] = is.Path + ": " + is.Message
	}
	return fmt.Sprintf("payload does not match %s: %s", strings.TrimPrefix(e.Schema, "#"), strings.Join(parts, "; "))
}

// Failure converts the error into the core failure shape.
func (e *Error) Failure() *model.Failure {
	return &model.Failure{Message: e.Error(), Code: model.CodeInvalidInput}
}

// Validator holds the compiled schemas.
//
// Thread-safety: Check serializes on an internal mutex; CUE values built
// from one context are not evaluated concurrently.
type Validator struct {
	mu   sync.Mutex
	ctx  *cue.Context
	root cue.Value
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compiling payload schemas: %w", err)
	}
	return &Validator{ctx: ctx, root: root}, nil
}

// Check validates payload against the named schema. It returns nil or an
// *Error.
func (v *Validator) Check(schema string, payload map[string]any) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	def := v.root.LookupPath(cue.ParsePath(schema))
	if !def.Exists() {
		return fmt.Errorf("unknown schema %s", schema)
	}

	if payload == nil {
		payload = map[string]any{}
	}
	value := v.ctx.Encode(payload)
	if err := value.Err(); err != nil {
		return &Error{Schema: schema, Issues: []Issue{{Message: err.Error()}}}
	}

	err := def.Unify(value).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	return toError(schema, err)
}

// CheckResource validates a resource payload.
func (v *Validator) CheckResource(r model.Resource, kind Kind, payload map[string]any) error {
	schema, ok := SchemaFor(r, kind)
	if !ok {
		return fmt.Errorf("no payload schema for resource %q", r)
	}
	return v.Check(schema, payload)
}

func toError(schema string, err error) *Error {
	out := &Error{Schema: schema}
	seen := map[string]bool{}
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		is := Issue{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		key := is.Path + "\x00" + is.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Issues = append(out.Issues, is)
	}
	if len(out.Issues) == 0 {
		out.Issues = append(out.Issues, Issue{Message: err.Error()})
	}
	return out
}
