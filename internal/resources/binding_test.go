package resources

import (
	"context"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/erpsync/internal/engine"
	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/ops"
	"github.com/roach88/erpsync/internal/transport"
	"github.com/roach88/erpsync/internal/validate"
)

const api = "http://erp.test"

type rig struct {
	rt       *ops.Runtime
	engine   *engine.Engine
	notified *ops.Recorder
}

func newRig(t *testing.T) *rig {
	t.Helper()
	tr := transport.NewHTTP(api)
	gock.InterceptClient(tr.Client())
	t.Cleanup(func() {
		gock.RestoreClient(tr.Client())
		gock.OffAll()
	})

	eng := engine.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	rec := &ops.Recorder{}
	return &rig{
		rt:       ops.NewRuntime(tr, eng, ops.WithNotifier(rec)),
		engine:   eng,
		notified: rec,
	}
}

func bind[T model.Entity](t *testing.T, r *rig, def Definition[T], opts ...BindOption) *Binding[T] {
	t.Helper()
	b := Bind(r.rt, def, opts...)
	r.engine.Register(b.Store())
	return b
}

func TestBinding_RequestPageReplacesItemsAndPagination(t *testing.T) {
	r := newRig(t)
	materials := bind(t, r, Materials())

	gock.New(api).
		Get("/materials/materials-detail").
		MatchParam("page", "2").
		MatchParam("limit", "10").
		Reply(200).
		JSON(map[string]any{
			"materials":      []any{map[string]any{"_id": "a"}, map[string]any{"_id": "b"}},
			"currentPage":    2,
			"totalPages":     5,
			"totalMaterials": 41,
		})

	page, err := materials.RequestPage(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	st := materials.State()
	assert.Equal(t, []string{"a", "b"}, keys(st.Items))
	assert.Equal(t, model.Pagination{CurrentPage: 2, TotalPages: 5, TotalItems: 41}, st.Pagination)
	assert.Equal(t, model.StatusSucceeded, st.StatusOf(model.OpListPage))
	assert.Nil(t, st.ErrorOf(model.OpListPage))
	assert.True(t, gock.IsDone())
}

func TestBinding_DefaultPageAndLimit(t *testing.T) {
	r := newRig(t)
	sales := bind(t, r, Sales(), WithPageLimit(25))

	gock.New(api).
		Get("/sales/sales-detail").
		MatchParam("page", "1").
		MatchParam("limit", "25").
		Reply(200).
		JSON(map[string]any{"sales": []any{}, "currentPage": 1, "totalPages": 0, "totalSales": 0})

	_, err := sales.RequestPage(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.True(t, gock.IsDone())
}

func TestBinding_NegativePageIsRejectedLocally(t *testing.T) {
	r := newRig(t)
	vendors := bind(t, r, Vendors())

	_, err := vendors.RequestPage(context.Background(), -1, 10)

	var f *model.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, model.CodeInvalidInput, f.Code)
	assert.Equal(t, model.StatusFailed, vendors.State().StatusOf(model.OpListPage))
}

func TestBinding_CreateAppendsAndNotifies(t *testing.T) {
	r := newRig(t)
	products := bind(t, r, Products())

	gock.New(api).Get("/products").Reply(200).
		JSON(map[string]any{"products": []any{map[string]any{"_id": "p1", "name": "Table"}}})
	gock.New(api).Post("/products/add-product").Reply(201).
		JSON(map[string]any{"message": "Product created", "product": map[string]any{"_id": "p2", "name": "Chair"}})

	ctx := context.Background()
	_, err := products.RequestList(ctx)
	require.NoError(t, err)
	_, err = products.SubmitCreate(ctx, model.Payload{"name": "Chair", "quantity": 1, "pricePerUnit": 20})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, keys(products.State().Items))
	assert.Equal(t, []ops.Notification{{
		Level:    ops.LevelSuccess,
		Resource: model.ResourceProduct,
		Op:       model.OpCreate,
		Message:  "Product created",
	}}, r.notified.All())
}

func TestBinding_DeleteRemovesByInputKey(t *testing.T) {
	r := newRig(t)
	orders := bind(t, r, Orders())

	gock.New(api).Get("/orders").Reply(200).
		JSON([]any{map[string]any{"_id": "o1"}, map[string]any{"_id": "o2"}})
	gock.New(api).Delete("/orders/o1").Reply(200).
		JSON(map[string]any{"message": "Order deleted"})

	ctx := context.Background()
	_, err := orders.RequestList(ctx)
	require.NoError(t, err)
	require.NoError(t, orders.RequestDelete(ctx, "o1"))

	assert.Equal(t, []string{"o2"}, keys(orders.State().Items))
}

func TestBinding_ReceiveMarksOrder(t *testing.T) {
	r := newRig(t)
	orders := bind(t, r, Orders())

	gock.New(api).Get("/orders").Reply(200).
		JSON(map[string]any{"orders": []any{
			map[string]any{"_id": "o1", "status": "Pending"},
			map[string]any{"_id": "o2", "status": "Pending"},
		}})
	gock.New(api).Put("/orders/receive/o2").Reply(200).
		JSON(map[string]any{"message": "Order received"})

	ctx := context.Background()
	_, err := orders.RequestList(ctx)
	require.NoError(t, err)
	require.NoError(t, orders.Receive(ctx, "o2"))

	items := orders.State().Items
	assert.Equal(t, "Pending", items[0].Status)
	assert.Equal(t, model.OrderStatusReceived, items[1].Status)
}

func TestBinding_ReceiveUnsupported(t *testing.T) {
	r := newRig(t)
	sales := bind(t, r, Sales())

	assert.Error(t, sales.Receive(context.Background(), "s1"))
	assert.False(t, sales.Supports(model.OpReceive))
}

func TestBinding_UpdateSplicesProductionsOnly(t *testing.T) {
	r := newRig(t)
	productions := bind(t, r, Productions())
	materials := bind(t, r, Materials())
	ctx := context.Background()

	gock.New(api).Get("/productions").Reply(200).
		JSON(map[string]any{"productions": []any{map[string]any{"productionId": "p1", "productName": "Chair"}}})
	gock.New(api).Put("/productions/p1").Reply(200).
		JSON(map[string]any{"updatedProduction": map[string]any{"productionId": "p1", "productName": "Stool"}})
	gock.New(api).Get("/materials").Reply(200).
		JSON(map[string]any{"materials": []any{map[string]any{"_id": "m1", "name": "Oak"}}})
	gock.New(api).Put("/materials/m1").Reply(200).
		JSON(map[string]any{"updatedMaterial": map[string]any{"_id": "m1", "name": "Pine"}})

	_, err := productions.RequestList(ctx)
	require.NoError(t, err)
	_, err = productions.SubmitUpdate(ctx, "p1", model.Payload{"productName": "Stool"})
	require.NoError(t, err)
	assert.Equal(t, "Stool", productions.State().Items[0].ProductName)

	_, err = materials.RequestList(ctx)
	require.NoError(t, err)
	_, err = materials.SubmitUpdate(ctx, "m1", model.Payload{"name": "Pine"})
	require.NoError(t, err)
	assert.Equal(t, "Oak", materials.State().Items[0].Name, "materials stay stale until the next fetch")
}

func TestBinding_FailureKeepsItems(t *testing.T) {
	r := newRig(t)
	productions := bind(t, r, Productions())
	ctx := context.Background()

	gock.New(api).Get("/productions").Reply(200).
		JSON([]any{map[string]any{"productionId": "p1"}})
	gock.New(api).Get("/productions/production-detail").Reply(500).
		BodyString("")

	_, err := productions.RequestList(ctx)
	require.NoError(t, err)
	_, err = productions.RequestPage(ctx, 1, 10)
	require.Error(t, err)

	st := productions.State()
	assert.Equal(t, []string{"p1"}, keys(st.Items))
	assert.Equal(t, model.StatusFailed, st.StatusOf(model.OpListPage))
	assert.Equal(t, "Request failed with status code 500", st.ErrorOf(model.OpListPage).Message)

	notes := r.notified.All()
	require.Len(t, notes, 1)
	assert.Equal(t, "Failed to fetch productions", notes[0].Message)
}

func TestBinding_ValidatorBlocksBadPayload(t *testing.T) {
	r := newRig(t)
	v, err := validate.New()
	require.NoError(t, err)
	materials := bind(t, r, Materials(), WithValidator(v))

	_, err = materials.SubmitCreate(context.Background(), model.Payload{"name": "Steel"})

	var f *model.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, model.CodeInvalidInput, f.Code)
	assert.True(t, gock.IsDone(), "no request is sent")
	assert.Equal(t, model.StatusFailed, materials.State().StatusOf(model.OpCreate))
}

func TestBinding_SearchUsesDerivedText(t *testing.T) {
	r := newRig(t)
	materials := bind(t, r, Materials())
	sales := bind(t, r, Sales())
	ctx := context.Background()

	gock.New(api).Get("/materials").Reply(200).
		JSON([]any{
			map[string]any{"_id": "m1", "name": "Steel", "isLowStock": true},
			map[string]any{"_id": "m2", "name": "Copper"},
		})
	created := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	gock.New(api).Get("/sales").Reply(200).
		JSON([]any{map[string]any{"saleId": "s1", "customerName": "Acme", "createdAt": created.Format(time.RFC3339)}})

	_, err := materials.RequestList(ctx)
	require.NoError(t, err)
	_, err = sales.RequestList(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"m1"}, keys(materials.Search("low stock")))
	assert.Equal(t, []string{"m2"}, keys(materials.Search("in stock")))
	assert.Len(t, materials.Search(""), 2)

	assert.Len(t, sales.Search(created.Local().Format("02/01/2006")), 1)
	assert.Len(t, sales.Search("acme"), 1)
}

func TestBinding_ControllerInvoke(t *testing.T) {
	r := newRig(t)
	var c Controller = bind(t, r, Vendors())

	gock.New(api).Get("/vendors/v1").Reply(200).
		JSON(map[string]any{"vendor": map[string]any{"_id": "v1", "name": "Acme"}})

	got, err := c.Invoke(context.Background(), model.OpGet, model.Args{ID: "v1"})
	require.NoError(t, err)
	assert.Equal(t, model.Vendor{ID: "v1", Name: "Acme"}, got)
	sel, err := c.Selected()
	require.NoError(t, err)
	assert.Equal(t, &model.Vendor{ID: "v1", Name: "Acme"}, sel)

	_, err = c.Invoke(context.Background(), model.OpReceive, model.Args{ID: "v1"})
	assert.Error(t, err)
	assert.Equal(t, []string{"ID", "NAME", "CONTACT", "EMAIL", "MATERIALS"}, c.Headers())
	assert.Empty(t, c.Rows(""), "get selects without loading items")
}

func keys[T model.Entity](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Key()
	}
	return out
}
