// internal/domain/inventory/ledger.go
package inventory

import (
	"sort"
	"time"

	"github.com/your-org/bakery-backend/internal/pkg/dates"
)

// deduction is one step of a depletion plan: remove Quantity units from the
// entry identified by EntryID.
type deduction struct {
	EntryID        uint
	ProductionDate time.Time
	ExpiryDate     time.Time
	Quantity       int
}

// sortFEFO orders entries first-expired-first-out: ascending expiry date,
// then ascending production date, then ID for a stable order.
func sortFEFO(entries []InventoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].ExpiryDate.Equal(entries[j].ExpiryDate) {
			return entries[i].ExpiryDate.Before(entries[j].ExpiryDate)
		}
		if !entries[i].ProductionDate.Equal(entries[j].ProductionDate) {
			return entries[i].ProductionDate.Before(entries[j].ProductionDate)
		}
		return entries[i].ID < entries[j].ID
	})
}

// totalQuantity sums the quantities of a set of entries
func totalQuantity(entries []InventoryEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}

// planDepletion walks entries in FEFO order and greedily assigns deductions
// until the requested quantity is exhausted or stock runs out. It never plans
// a deduction larger than an entry's quantity. Returns the plan and the
// quantity that could not be covered (zero when stock suffices).
func planDepletion(entries []InventoryEntry, quantity int) ([]deduction, int) {
	if quantity <= 0 {
		return nil, 0
	}

	ordered := make([]InventoryEntry, len(entries))
	copy(ordered, entries)
	sortFEFO(ordered)

	remaining := quantity
	var plan []deduction
	for _, entry := range ordered {
		if remaining == 0 {
			break
		}
		if entry.Quantity <= 0 {
			continue
		}
		take := entry.Quantity
		if take > remaining {
			take = remaining
		}
		plan = append(plan, deduction{
			EntryID:        entry.ID,
			ProductionDate: entry.ProductionDate,
			ExpiryDate:     entry.ExpiryDate,
			Quantity:       take,
		})
		remaining -= take
	}

	return plan, remaining
}

// topUpTarget selects the entry a count surplus should be added to: the one
// with the latest expiry date. When no entry exists the surplus goes into a
// synthetic batch dated today..tomorrow, and ok is false.
func topUpTarget(entries []InventoryEntry, today time.Time) (InventoryEntry, bool) {
	var target InventoryEntry
	found := false
	for _, entry := range entries {
		if !found || entry.ExpiryDate.After(target.ExpiryDate) {
			target = entry
			found = true
		}
	}
	if found {
		return target, true
	}
	return InventoryEntry{
		ProductionDate: dates.DateOnly(today),
		ExpiryDate:     dates.NextDay(today),
	}, false
}
