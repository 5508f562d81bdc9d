// internal/domain/inventory/ledger_test.go
package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func batch(id uint, qty int, produced, expires time.Time) InventoryEntry {
	return InventoryEntry{
		ID:             id,
		LocationID:     1,
		ProductID:      1,
		ProductionDate: produced,
		ExpiryDate:     expires,
		Quantity:       qty,
	}
}

func TestPlanDepletionTakesEarliestExpiryFirst(t *testing.T) {
	entries := []InventoryEntry{
		batch(3, 5, day(2026, 3, 2), day(2026, 3, 4)),
		batch(1, 4, day(2026, 3, 1), day(2026, 3, 2)),
		batch(2, 6, day(2026, 3, 1), day(2026, 3, 3)),
	}

	plan, short := planDepletion(entries, 7)

	require.Zero(t, short)
	require.Len(t, plan, 2)
	assert.Equal(t, uint(1), plan[0].EntryID)
	assert.Equal(t, 4, plan[0].Quantity)
	assert.Equal(t, uint(2), plan[1].EntryID)
	assert.Equal(t, 3, plan[1].Quantity)
}

func TestPlanDepletionNeverTouchesLaterBatchWhileEarlierHasStock(t *testing.T) {
	entries := []InventoryEntry{
		batch(1, 10, day(2026, 3, 1), day(2026, 3, 2)),
		batch(2, 10, day(2026, 3, 1), day(2026, 3, 5)),
	}

	plan, short := planDepletion(entries, 10)

	require.Zero(t, short)
	require.Len(t, plan, 1)
	assert.Equal(t, uint(1), plan[0].EntryID)
}

func TestPlanDepletionReportsShortfall(t *testing.T) {
	entries := []InventoryEntry{
		batch(1, 4, day(2026, 3, 1), day(2026, 3, 2)),
		batch(2, 6, day(2026, 3, 1), day(2026, 3, 3)),
	}

	plan, short := planDepletion(entries, 15)

	assert.Equal(t, 5, short)
	// Clamped plan drains everything but never exceeds any entry's quantity
	total := 0
	for _, step := range plan {
		total += step.Quantity
	}
	assert.Equal(t, 10, total)
	for _, step := range plan {
		for _, entry := range entries {
			if entry.ID == step.EntryID {
				assert.LessOrEqual(t, step.Quantity, entry.Quantity)
			}
		}
	}
}

func TestPlanDepletionSkipsEmptyEntriesAndZeroRequests(t *testing.T) {
	entries := []InventoryEntry{
		batch(1, 0, day(2026, 3, 1), day(2026, 3, 2)),
		batch(2, 3, day(2026, 3, 1), day(2026, 3, 3)),
	}

	plan, short := planDepletion(entries, 2)
	require.Zero(t, short)
	require.Len(t, plan, 1)
	assert.Equal(t, uint(2), plan[0].EntryID)

	plan, short = planDepletion(entries, 0)
	assert.Nil(t, plan)
	assert.Zero(t, short)
}

func TestPlanDepletionDoesNotMutateInput(t *testing.T) {
	entries := []InventoryEntry{
		batch(2, 6, day(2026, 3, 1), day(2026, 3, 3)),
		batch(1, 4, day(2026, 3, 1), day(2026, 3, 2)),
	}

	_, _ = planDepletion(entries, 5)

	assert.Equal(t, uint(2), entries[0].ID)
	assert.Equal(t, 6, entries[0].Quantity)
	assert.Equal(t, uint(1), entries[1].ID)
}

func TestTopUpTargetPicksLatestExpiry(t *testing.T) {
	entries := []InventoryEntry{
		batch(1, 4, day(2026, 3, 1), day(2026, 3, 2)),
		batch(2, 6, day(2026, 3, 2), day(2026, 3, 6)),
		batch(3, 1, day(2026, 3, 1), day(2026, 3, 4)),
	}

	target, ok := topUpTarget(entries, day(2026, 3, 3))

	require.True(t, ok)
	assert.Equal(t, uint(2), target.ID)
}

func TestTopUpTargetSynthesizesBatchWhenEmpty(t *testing.T) {
	today := day(2026, 3, 3)

	target, ok := topUpTarget(nil, today)

	require.False(t, ok)
	assert.True(t, target.ProductionDate.Equal(today))
	assert.True(t, target.ExpiryDate.Equal(day(2026, 3, 4)))
}

func TestTotalQuantity(t *testing.T) {
	entries := []InventoryEntry{
		batch(1, 4, day(2026, 3, 1), day(2026, 3, 2)),
		batch(2, 6, day(2026, 3, 1), day(2026, 3, 3)),
	}
	assert.Equal(t, 10, totalQuantity(entries))
	assert.Zero(t, totalQuantity(nil))
}
