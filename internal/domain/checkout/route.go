package checkout

import "github.com/vaxhub/vaxhub/internal/domain/product"

// requiresRouteSelection is true while a product with more than one valid
// route is staged without the user having picked one.
func requiresRouteSelection(lot *product.Lot, selectedRoute string, policy Policy) bool {
	return selectedRoute == "" && policy.isAmbiguousRoute(lot.Product.RouteCode)
}

func effectiveRoute(lot *product.Lot, selectedRoute string) string {
	if selectedRoute != "" {
		return selectedRoute
	}
	return lot.Product.RouteCode
}
