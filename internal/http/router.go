package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	Health http.HandlerFunc

	RegisterRider     http.HandlerFunc
	GetRider          http.HandlerFunc
	GetRiderByRFID    http.HandlerFunc
	RiderTransactions http.HandlerFunc
	WalletTopup       http.HandlerFunc
	ActiveSession     http.HandlerFunc

	ListSlots    http.HandlerFunc
	GetSlot      http.HandlerFunc
	Availability http.HandlerFunc

	SlotFeed http.HandlerFunc

	AdminAuth         func(http.Handler) http.Handler
	ForceRelease      http.HandlerFunc
	AdminRiders       http.HandlerFunc
	AdminTransactions http.HandlerFunc
	AdminSummary      http.HandlerFunc
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()

	register := func(pattern string, h http.HandlerFunc) {
		if h != nil {
			mux.Handle(pattern, h)
		}
	}

	register("GET /health", routes.Health)

	register("POST /api/riders", routes.RegisterRider)
	register("GET /api/riders/{id}", routes.GetRider)
	register("GET /api/riders/rfid/{rfid}", routes.GetRiderByRFID)
	register("GET /api/riders/rfid/{rfid}/session", routes.ActiveSession)
	register("GET /api/riders/{id}/transactions", routes.RiderTransactions)
	register("POST /api/riders/{id}/wallet/topup", routes.WalletTopup)

	register("GET /api/slots", routes.ListSlots)
	register("GET /api/slots/{slotNumber}", routes.GetSlot)
	register("GET /api/slots/status/availability", routes.Availability)

	register("GET /ws/slots", routes.SlotFeed)

	admin := func(pattern string, h http.HandlerFunc) {
		if h == nil {
			return
		}
		if routes.AdminAuth != nil {
			mux.Handle(pattern, routes.AdminAuth(h))
			return
		}
		mux.Handle(pattern, h)
	}

	admin("POST /api/admin/slots/{slotNumber}/force-release", routes.ForceRelease)
	admin("GET /api/admin/riders", routes.AdminRiders)
	admin("GET /api/admin/transactions", routes.AdminTransactions)
	admin("GET /api/admin/summary", routes.AdminSummary)

	return mux
}
