package tests

import (
	"context"
	"testing"

	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/aretw0/rowflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ResultStoreContractTest is a reusable test suite that verifies if an adapter complies with ports.ResultStore.
func ResultStoreContractTest(t *testing.T, store ports.ResultStore) {
	t.Helper()
	ctx := context.Background()
	rowID := "row-contract"

	result := &domain.Result{
		Summary: domain.SummaryIncomplete,
		Current: "v2",
		Feedback: map[string]domain.Feedback{
			"v1": {State: domain.StateValid, NextVariable: "v2", HasValue: true, Pending: domain.False},
			"v2": {State: domain.StateActual, Pending: domain.True},
		},
		FirstEmpty: "v2",
		Order:      []string{"v1", "v2"},
	}

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-row")
		assert.ErrorIs(t, err, domain.ErrResultNotFound)
	})

	t.Run("Save_Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, rowID, result))

		loaded, err := store.Load(ctx, rowID)
		require.NoError(t, err)
		assert.Equal(t, result.Summary, loaded.Summary)
		assert.Equal(t, result.Current, loaded.Current)
		assert.Equal(t, result.Feedback, loaded.Feedback)
		assert.Equal(t, result.Order, loaded.Order)
		assert.Nil(t, domain.Diff(result, loaded))
	})

	t.Run("Isolation", func(t *testing.T) {
		loaded, err := store.Load(ctx, rowID)
		require.NoError(t, err)
		loaded.Feedback["v1"] = domain.Feedback{State: domain.StateInvalid}

		again, err := store.Load(ctx, rowID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateValid, again.Feedback["v1"].State)
	})

	t.Run("List", func(t *testing.T) {
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, rowID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, rowID))
		_, err := store.Load(ctx, rowID)
		assert.ErrorIs(t, err, domain.ErrResultNotFound)
	})
}
