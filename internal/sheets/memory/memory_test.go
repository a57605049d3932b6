package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
)

func TestMirror_UpsertListDelete(t *testing.T) {
	ctx := context.Background()
	m := New()

	rec := core.RecurringRecord{ID: "a", UserID: "u", Kind: core.KindSubscription, Name: "Music", Amount: 9.99, Currency: "EUR", Frequency: core.Monthly, Active: true, Version: 2}
	require.NoError(t, m.UpsertRecord(ctx, rec))

	stale := rec
	stale.Name = "old"
	stale.Version = 1
	require.NoError(t, m.UpsertRecord(ctx, stale))

	rows, err := m.ListMirrored(ctx, core.KindSubscription)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Music", rows[0].Name)

	income, err := m.ListMirrored(ctx, core.KindIncome)
	require.NoError(t, err)
	assert.Empty(t, income)

	require.NoError(t, m.DeleteRecord(ctx, core.KindSubscription, "a"))
	require.NoError(t, m.DeleteRecord(ctx, core.KindIncome, "nope"))
	rows, _ = m.ListMirrored(ctx, core.KindSubscription)
	assert.Empty(t, rows)
}
