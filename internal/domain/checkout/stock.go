package checkout

import "github.com/vaxhub/vaxhub/internal/domain/inventory"

// wrongStock reports whether the snapshot shows the lot held only in sources
// other than the expected one. A lot missing from the snapshot is unknown
// stock, not wrong stock.
func wrongStock(lotNumber string, expected inventory.Source, onHand []inventory.SimpleOnHandProduct) bool {
	if expected == "" {
		return false
	}
	rows := inventory.ForLot(onHand, lotNumber)
	if len(rows) == 0 {
		return false
	}
	for _, row := range rows {
		if row.Source == expected {
			return false
		}
	}
	return true
}
