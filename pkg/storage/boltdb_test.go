package storage

import (
	"testing"
	"time"

	"github.com/stonegrid/quarry/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()

	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestRackCRUD(t *testing.T) {
	store := newTestStore(t)

	rack := &types.RackController{
		Ident:        "rack-1",
		Address:      "10.0.0.5:9460",
		Hostname:     "rack-1.example.net",
		Labels:       map[string]string{"zone": "az1"},
		Status:       types.RackStatusReady,
		RegisteredAt: time.Now().UTC(),
	}

	require.NoError(t, store.CreateRack(rack))

	got, err := store.GetRack("rack-1")
	require.NoError(t, err)
	assert.Equal(t, rack.Address, got.Address)
	assert.Equal(t, rack.Labels, got.Labels)
	assert.Equal(t, types.RackStatusReady, got.Status)

	// Update is an upsert
	rack.Status = types.RackStatusDown
	require.NoError(t, store.UpdateRack(rack))

	got, err = store.GetRack("rack-1")
	require.NoError(t, err)
	assert.Equal(t, types.RackStatusDown, got.Status)

	require.NoError(t, store.DeleteRack("rack-1"))

	_, err = store.GetRack("rack-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRack_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRack("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRacks(t *testing.T) {
	store := newTestStore(t)

	racks, err := store.ListRacks()
	require.NoError(t, err)
	assert.Empty(t, racks)

	for _, ident := range []string{"rack-a", "rack-b", "rack-c"} {
		require.NoError(t, store.CreateRack(&types.RackController{
			Ident:  ident,
			Status: types.RackStatusReady,
		}))
	}

	racks, err = store.ListRacks()
	require.NoError(t, err)
	assert.Len(t, racks, 3)
}

func TestDeleteRack_Idempotent(t *testing.T) {
	store := newTestStore(t)

	// Deleting a missing rack is not an error
	assert.NoError(t, store.DeleteRack("missing"))
}
