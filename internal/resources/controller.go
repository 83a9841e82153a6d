package resources

import (
	"context"
	"fmt"

	"github.com/roach88/erpsync/internal/engine"
	"github.com/roach88/erpsync/internal/model"
)

// Controller is the resource-independent view of a Binding used by the
// command line and the registry.
type Controller interface {
	Resource() model.Resource
	Applier() engine.Applier

	// Invoke runs one operation with resource-independent arguments and
	// returns the emitted value.
	Invoke(ctx context.Context, op model.OperationName, args model.Args) (any, error)
	Supports(op model.OperationName) bool

	Items() (any, error)
	Selected() (any, error)
	Count() int
	Pagination() model.Pagination
	Status(op model.OperationName) model.OperationStatus
	LastError(op model.OperationName) *model.Failure
	Loading() bool

	Headers() []string
	Rows(query string) [][]string
	Matching(query string) any
}

var _ Controller = (*Binding[model.Material])(nil)

// Applier returns the store as an engine applier.
func (b *Binding[T]) Applier() engine.Applier {
	return b.store
}

// Supports reports whether the resource has the operation.
func (b *Binding[T]) Supports(op model.OperationName) bool {
	_, ok := b.def.Rules.Operations[op]
	return ok
}

// Invoke dispatches op to the matching intent method.
func (b *Binding[T]) Invoke(ctx context.Context, op model.OperationName, args model.Args) (any, error) {
	if !b.Supports(op) {
		return nil, fmt.Errorf("%s does not support %s", b.Resource(), op)
	}
	switch op {
	case model.OpListAll:
		return b.RequestList(ctx)
	case model.OpListPage:
		return b.RequestPage(ctx, args.Page, args.Limit)
	case model.OpGet:
		return b.RequestOne(ctx, args.ID)
	case model.OpCreate:
		return b.SubmitCreate(ctx, args.Payload)
	case model.OpUpdate:
		return b.SubmitUpdate(ctx, args.ID, args.Payload)
	case model.OpDelete:
		return args.ID, b.RequestDelete(ctx, args.ID)
	case model.OpReceive:
		return args.ID, b.Receive(ctx, args.ID)
	default:
		return nil, fmt.Errorf("%s does not support %s", b.Resource(), op)
	}
}

// Items returns a deep copy of the loaded items as []T.
func (b *Binding[T]) Items() (any, error) {
	snap, err := b.store.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Items, nil
}

// Selected returns a deep copy of the selected entity as *T, or nil.
func (b *Binding[T]) Selected() (any, error) {
	snap, err := b.store.Snapshot()
	if err != nil || snap.Selected == nil {
		return nil, err
	}
	return snap.Selected, nil
}

// Count returns the number of loaded items.
func (b *Binding[T]) Count() int {
	return len(b.store.State().Items)
}

// Pagination returns the last server-reported pagination.
func (b *Binding[T]) Pagination() model.Pagination {
	return b.store.State().Pagination
}

// Status returns the status of op.
func (b *Binding[T]) Status(op model.OperationName) model.OperationStatus {
	return b.store.State().StatusOf(op)
}

// LastError returns the last failure of op, if any.
func (b *Binding[T]) LastError(op model.OperationName) *model.Failure {
	return b.store.State().ErrorOf(op)
}

// Loading reports whether any operation is pending.
func (b *Binding[T]) Loading() bool {
	return b.store.State().Loading()
}

// Matching returns the loaded items matching query as []T.
func (b *Binding[T]) Matching(query string) any {
	return b.Search(query)
}

// Rows renders the loaded items matching query as table rows.
func (b *Binding[T]) Rows(query string) [][]string {
	items := b.Search(query)
	out := make([][]string, len(items))
	for i, item := range items {
		out[i] = b.Row(item)
	}
	return out
}
