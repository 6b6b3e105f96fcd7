package navigation

import "strings"

// Маршруты клиента.
const (
	RouteHome          = "/"
	RouteAbout         = "/about"
	RouteContact       = "/contact"
	RouteLogin         = "/login"
	RouteCart          = "/cart"
	RouteOrders        = "/orders"
	RoutePlaceOrder    = "/place-order"
	RoutePrivacy       = "/privacypolicy"
	RouteTerms         = "/termsandconditions"
	RouteCancellations = "/cancellationsandrefunds"
	RouteShipping      = "/shippinganddelivery"

	productPrefix = "/product/"
)

var staticRoutes = map[string]struct{}{
	RouteHome:          {},
	RouteAbout:         {},
	RouteContact:       {},
	RouteLogin:         {},
	RouteCart:          {},
	RouteOrders:        {},
	RoutePlaceOrder:    {},
	RoutePrivacy:       {},
	RouteTerms:         {},
	RouteCancellations: {},
	RouteShipping:      {},
}

// ProductRoute возвращает маршрут страницы товара.
func ProductRoute(productID string) string {
	return productPrefix + productID
}

// ProductIDFromRoute извлекает идентификатор товара из маршрута страницы товара.
func ProductIDFromRoute(path string) (string, bool) {
	id, ok := strings.CutPrefix(path, productPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// IsKnownRoute сообщает, входит ли путь в набор маршрутов клиента.
func IsKnownRoute(path string) bool {
	if _, ok := staticRoutes[path]; ok {
		return true
	}
	_, ok := ProductIDFromRoute(path)
	return ok
}

// stripQuery отделяет путь от строки запроса и фрагмента.
func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}
