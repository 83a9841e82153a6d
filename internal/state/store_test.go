package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/erpsync/internal/model"
)

func TestStore_ApplyUpdatesState(t *testing.T) {
	st := New(materialRules())

	st.Apply(model.Started("inv-1", model.ResourceMaterial, model.OpListAll))
	assert.Equal(t, model.StatusPending, st.State().StatusOf(model.OpListAll))

	st.Apply(model.Succeeded("inv-1", model.ResourceMaterial, model.OpListAll, materials("a", "b")))
	assert.Equal(t, []string{"a", "b"}, keys(st.State().Items))
	assert.Equal(t, model.ResourceMaterial, st.Resource())
}

func TestStore_SnapshotIsIndependent(t *testing.T) {
	rules := Rules[model.Sale]{Resource: model.ResourceSale, Operations: CRUD()}
	st := New(rules)
	created := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	st.Apply(model.Succeeded("inv", model.ResourceSale, model.OpListAll, []model.Sale{
		{SaleID: "s1", ProductName: "Chair", CreatedAt: created},
	}))

	snap, err := st.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.True(t, created.Equal(snap.Items[0].CreatedAt))

	snap.Items[0].ProductName = "mutated"
	snap.Status[model.OpListAll] = model.StatusFailed

	assert.Equal(t, "Chair", st.State().Items[0].ProductName)
	assert.Equal(t, model.StatusSucceeded, st.State().StatusOf(model.OpListAll))
}

func TestStore_SubscribeAndUnsubscribe(t *testing.T) {
	st := New(materialRules())

	var seen []model.OperationStatus
	unsubscribe := st.Subscribe(func(s State[model.Material]) {
		seen = append(seen, s.StatusOf(model.OpCreate))
	})

	st.Apply(model.Started("inv", model.ResourceMaterial, model.OpCreate))
	st.Apply(model.Succeeded("inv", model.ResourceMaterial, model.OpCreate, model.Material{ID: "m1"}))
	unsubscribe()
	st.Apply(model.Started("inv-2", model.ResourceMaterial, model.OpCreate))

	assert.Equal(t, []model.OperationStatus{model.StatusPending, model.StatusSucceeded}, seen)
}
