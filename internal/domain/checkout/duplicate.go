package checkout

import (
	"strings"

	"github.com/vaxhub/vaxhub/internal/domain/product"
)

// detectDuplicates compares the candidate with the other active doses.
// Any active dose of the same product is a duplicate; a matching lot adds
// DuplicateLot on top. Single-administration products, and RSV products when
// duplicate RSV is disabled, raise the hard exception in place of the plain
// duplicate issues.
func detectDuplicates(c Candidate, indication *product.AgeIndication, others []StagedCartItem, policy Policy, flags Flags) Issues {
	var sameLot, sameProduct, larc, rsv bool
	for _, o := range others {
		if !o.Active() {
			continue
		}
		if flags.IsDisableDuplicateRSV && isRSV(&c.Lot.Product) && isRSV(&o.Lot.Product) {
			rsv = true
		}
		switch {
		case o.Lot.ProductID == c.Lot.ProductID:
			sameProduct = true
			if strings.EqualFold(o.Lot.LotNumber, c.Lot.LotNumber) {
				sameLot = true
			}
		case c.Lot.Product.IsLARC() && o.Lot.Product.IsLARC():
			larc = true
		}
	}

	var out Issues
	if rsv || (sameProduct && policy.isSingleAdministration(c.Lot.ProductID, indication)) {
		out.add(newIssue(IssueDuplicateProductException))
		return out
	}
	if sameLot {
		out.add(newIssue(IssueDuplicateLot))
	}
	if sameProduct || larc {
		out.add(newIssue(IssueDuplicateProduct))
	}
	return out
}

func isRSV(p *product.Product) bool {
	return strings.EqualFold(p.Antigen, product.AntigenRSV)
}
