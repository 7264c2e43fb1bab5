package inventory

import "strings"

// Source is the funding bucket a lot is drawn from.
type Source string

const (
	SourcePrivate Source = "private"
	SourceVFC     Source = "vfc"
	SourceState   Source = "state"
	Source317     Source = "317"
)

// SimpleOnHandProduct is one row of the on-hand snapshot: how many doses of a
// lot the clinic holds in a given source.
type SimpleOnHandProduct struct {
	LotNumber string `db:"lot_number" json:"lot_number"`
	Source    Source `db:"inventory_source" json:"inventory_source"`
	OnHand    int    `db:"on_hand" json:"on_hand"`
}

// ForLot filters the snapshot to rows for lotNumber, ignoring case.
func ForLot(snapshot []SimpleOnHandProduct, lotNumber string) []SimpleOnHandProduct {
	var out []SimpleOnHandProduct
	for _, row := range snapshot {
		if strings.EqualFold(row.LotNumber, lotNumber) {
			out = append(out, row)
		}
	}
	return out
}
