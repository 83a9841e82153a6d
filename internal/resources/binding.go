package resources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/ops"
	"github.com/roach88/erpsync/internal/search"
	"github.com/roach88/erpsync/internal/state"
	"github.com/roach88/erpsync/internal/transport"
	"github.com/roach88/erpsync/internal/validate"
)

// Page defaults used when a view passes zero values.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Column renders one table column of a resource.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Definition is everything resource-specific about a binding.
type Definition[T model.Entity] struct {
	Rules   state.Rules[T]
	Wire    Wire
	Fields  search.Fields[T]
	Columns []Column[T]

	// Notify overrides the notification policy per operation. Operations
	// not listed use MutationNotify for create, update, delete and receive,
	// and no notifications otherwise.
	Notify map[model.OperationName]ops.Notify
}

// MutationNotify raises the server's message on success and failure.
var MutationNotify = ops.Notify{Success: true, Failure: true}

// PageQuery is the input of a page fetch.
type PageQuery struct {
	Page  int
	Limit int
}

// Change is the input of an update.
type Change struct {
	ID      string
	Payload model.Payload
}

// Binding connects one resource store to its operations.
type Binding[T model.Entity] struct {
	def       Definition[T]
	store     *state.Store[T]
	validator *validate.Validator
	limit     int

	listAll  *ops.Operation[struct{}, []T]
	listPage *ops.Operation[PageQuery, model.Page[T]]
	get      *ops.Operation[string, T]
	create   *ops.Operation[model.Payload, T]
	update   *ops.Operation[Change, T]
	remove   *ops.Operation[string, string]
	receive  *ops.Operation[string, string]
}

// BindOption configures a Binding.
type BindOption func(*bindOptions)

type bindOptions struct {
	validator *validate.Validator
	limit     int
	storeOpts []state.Option
}

// WithValidator checks create and update payloads before sending them.
func WithValidator(v *validate.Validator) BindOption {
	return func(o *bindOptions) {
		o.validator = v
	}
}

// WithPageLimit sets the limit used when a page request passes zero.
func WithPageLimit(n int) BindOption {
	return func(o *bindOptions) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithStoreOptions passes options to the underlying store.
func WithStoreOptions(opts ...state.Option) BindOption {
	return func(o *bindOptions) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// Bind creates the store for def and the operations feeding it.
// The caller registers Store() with the engine.
func Bind[T model.Entity](rt *ops.Runtime, def Definition[T], opts ...BindOption) *Binding[T] {
	o := bindOptions{limit: DefaultLimit}
	for _, opt := range opts {
		opt(&o)
	}
	storeOpts := append([]state.Option{state.WithLogger(rt.Logger())}, o.storeOpts...)

	b := &Binding[T]{
		def:       def,
		store:     state.New(def.Rules, storeOpts...),
		validator: o.validator,
		limit:     o.limit,
	}
	r, w := def.Rules.Resource, def.Wire

	b.listAll = ops.New(rt, ops.Spec[struct{}, []T]{
		Resource: r,
		Name:     model.OpListAll,
		Request: func(struct{}) transport.Request {
			return transport.Request{Method: http.MethodGet, Path: w.listPath()}
		},
		Decode: func(_ struct{}, resp transport.Response) ([]T, error) {
			return DecodeList[T](resp.Body, w.ListKey)
		},
		Notify: b.notify(model.OpListAll),
	})

	b.listPage = ops.New(rt, ops.Spec[PageQuery, model.Page[T]]{
		Resource: r,
		Name:     model.OpListPage,
		Check: func(q PageQuery) error {
			return ops.RequirePage(q.Page, q.Limit)
		},
		Request: func(q PageQuery) transport.Request {
			return transport.Request{
				Method: http.MethodGet,
				Path:   w.pagePath(),
				Query:  pageQuery(q.Page, q.Limit),
			}
		},
		Decode: func(_ PageQuery, resp transport.Response) (model.Page[T], error) {
			return DecodePage[T](resp.Body, w.ListKey, w.TotalKey)
		},
		Notify: b.notify(model.OpListPage),
	})

	b.get = ops.New(rt, ops.Spec[string, T]{
		Resource: r,
		Name:     model.OpGet,
		Check:    ops.RequireID,
		Request: func(id string) transport.Request {
			return transport.Request{Method: http.MethodGet, Path: w.itemPath(url.PathEscape(id))}
		},
		Decode: func(_ string, resp transport.Response) (T, error) {
			return DecodeItem[T](resp.Body, w.ItemKey)
		},
		Notify: b.notify(model.OpGet),
	})

	b.create = ops.New(rt, ops.Spec[model.Payload, T]{
		Resource: r,
		Name:     model.OpCreate,
		Check: func(p model.Payload) error {
			return b.check(validate.Create, p)
		},
		Request: func(p model.Payload) transport.Request {
			return transport.Request{Method: http.MethodPost, Path: w.addPath(), Body: p}
		},
		Decode: func(_ model.Payload, resp transport.Response) (T, error) {
			return DecodeItem[T](resp.Body, w.CreatedKeys...)
		},
		Notify: b.notify(model.OpCreate),
	})

	b.update = ops.New(rt, ops.Spec[Change, T]{
		Resource: r,
		Name:     model.OpUpdate,
		Check: func(c Change) error {
			if err := ops.RequireID(c.ID); err != nil {
				return err
			}
			return b.check(validate.Patch, c.Payload)
		},
		Request: func(c Change) transport.Request {
			return transport.Request{Method: http.MethodPut, Path: w.itemPath(url.PathEscape(c.ID)), Body: c.Payload}
		},
		Decode: func(_ Change, resp transport.Response) (T, error) {
			return DecodeItem[T](resp.Body, w.UpdatedKeys...)
		},
		Notify: b.notify(model.OpUpdate),
	})

	b.remove = ops.New(rt, ops.Spec[string, string]{
		Resource: r,
		Name:     model.OpDelete,
		Check:    ops.RequireID,
		Request: func(id string) transport.Request {
			return transport.Request{Method: http.MethodDelete, Path: w.itemPath(url.PathEscape(id))}
		},
		Decode: func(id string, _ transport.Response) (string, error) {
			return id, nil
		},
		Notify: b.notify(model.OpDelete),
	})

	if _, ok := def.Rules.Operations[model.OpReceive]; ok {
		b.receive = ops.New(rt, ops.Spec[string, string]{
			Resource: r,
			Name:     model.OpReceive,
			Check:    ops.RequireID,
			Request: func(id string) transport.Request {
				return transport.Request{Method: http.MethodPut, Path: w.receivePath(url.PathEscape(id))}
			},
			Decode: func(id string, _ transport.Response) (string, error) {
				return id, nil
			},
			Notify: b.notify(model.OpReceive),
		})
	}

	return b
}

func (b *Binding[T]) notify(op model.OperationName) ops.Notify {
	if n, ok := b.def.Notify[op]; ok {
		return n
	}
	switch op {
	case model.OpCreate, model.OpUpdate, model.OpDelete, model.OpReceive:
		return MutationNotify
	}
	return ops.Notify{}
}

func (b *Binding[T]) check(kind validate.Kind, p model.Payload) error {
	if b.validator == nil {
		return nil
	}
	return b.validator.CheckResource(b.def.Rules.Resource, kind, p)
}

func pageQuery(page, limit int) url.Values {
	return url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
}

// Resource returns the bound resource.
func (b *Binding[T]) Resource() model.Resource {
	return b.def.Rules.Resource
}

// Store returns the resource store.
func (b *Binding[T]) Store() *state.Store[T] {
	return b.store
}

// State returns the current store state.
func (b *Binding[T]) State() state.State[T] {
	return b.store.State()
}

// RequestList fetches every entity of the resource.
func (b *Binding[T]) RequestList(ctx context.Context) ([]T, error) {
	return b.listAll.Invoke(ctx, struct{}{})
}

// RequestPage fetches one page. Zero page or limit select the defaults.
func (b *Binding[T]) RequestPage(ctx context.Context, page, limit int) (model.Page[T], error) {
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = b.limit
	}
	return b.listPage.Invoke(ctx, PageQuery{Page: page, Limit: limit})
}

// RequestOne fetches one entity and selects it.
func (b *Binding[T]) RequestOne(ctx context.Context, id string) (T, error) {
	return b.get.Invoke(ctx, id)
}

// SubmitCreate creates an entity from a validated payload.
func (b *Binding[T]) SubmitCreate(ctx context.Context, p model.Payload) (T, error) {
	return b.create.Invoke(ctx, p)
}

// SubmitUpdate updates the entity with key id.
func (b *Binding[T]) SubmitUpdate(ctx context.Context, id string, p model.Payload) (T, error) {
	return b.update.Invoke(ctx, Change{ID: id, Payload: p})
}

// RequestDelete deletes the entity with key id.
func (b *Binding[T]) RequestDelete(ctx context.Context, id string) error {
	_, err := b.remove.Invoke(ctx, id)
	return err
}

// Receive marks the entity with key id as received. Only resources whose
// rules list the receive operation support it.
func (b *Binding[T]) Receive(ctx context.Context, id string) error {
	if b.receive == nil {
		return fmt.Errorf("%s does not support %s", b.Resource(), model.OpReceive)
	}
	_, err := b.receive.Invoke(ctx, id)
	return err
}

// Search filters the currently loaded items.
func (b *Binding[T]) Search(query string) []T {
	return search.Filter(b.store.State().Items, query, b.def.Fields)
}

// Headers returns the table column headers.
func (b *Binding[T]) Headers() []string {
	out := make([]string, len(b.def.Columns))
	for i, c := range b.def.Columns {
		out[i] = c.Header
	}
	return out
}

// Row renders one entity as table cells.
func (b *Binding[T]) Row(item T) []string {
	out := make([]string, len(b.def.Columns))
	for i, c := range b.def.Columns {
		out[i] = c.Value(item)
	}
	return out
}
