// Package contracts holds the interfaces shared by every service binary.
package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by each domain's HTTP adapter (coupons, flights,
// hotels) and mounted behind the shared middleware stack.
type Handler interface {
	RegisterRoutes(router *httprouter.Router)
}
