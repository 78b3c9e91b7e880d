package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) livenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addRoutes(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware())
	r.Use(s.recoverMiddleware())

	r.Get(s.conf.LivenessEndpoint, s.livenessHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", s.createRoomHandler)
			r.Get("/", s.listRoomsHandler)

			r.Route("/{roomID}", func(r chi.Router) {
				r.Get("/", s.getRoomHandler)
				r.Get("/units", s.listUnitsHandler)
				r.Post("/units", s.addUnitHandler)
				r.Get("/sharing-options", s.getSharingOptionsHandler)
				r.Put("/sharing-options", s.updateSharingOptionsHandler)
				r.Get("/free-units", s.freeUnitsHandler)
			})
		})

		r.Route("/units/{unitID}", func(r chi.Router) {
			r.Get("/", s.getUnitHandler)
			r.Delete("/", s.removeUnitHandler)
			r.Get("/availability", s.availabilityHandler)
			r.Get("/next-available", s.nextAvailableHandler)
			r.Post("/unavailable", s.markUnavailableHandler)
			r.Post("/available", s.markAvailableHandler)
			r.Get("/bookings", s.listUnitBookingsHandler)
			r.Get("/events", s.unitEventsHandler)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", s.reserveHandler)

			r.Route("/{bookingID}", func(r chi.Router) {
				r.Get("/", s.getBookingHandler)
				r.Delete("/", s.cancelHandler)
				r.Post("/check-in", s.checkInHandler)
				r.Post("/check-out", s.checkOutHandler)
			})
		})

		r.Get("/calendar", s.calendarHandler)
	})
}
