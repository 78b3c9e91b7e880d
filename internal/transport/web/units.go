package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avstrong/studystay/internal/period"
)

type availabilityResponse struct {
	UnitID    string        `json:"unit_id"`
	Period    period.Period `json:"period"`
	Display   string        `json:"display"`
	Available bool          `json:"available"`
}

type nextAvailableResponse struct {
	UnitID string  `json:"unit_id"`
	Date   *string `json:"date"`
}

func (s *Server) getUnitHandler(w http.ResponseWriter, r *http.Request) {
	unit, err := s.catalog.GetUnit(r.Context(), chi.URLParam(r, "unitID"))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, unit)
}

func (s *Server) removeUnitHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.RemoveUnit(r.Context(), chi.URLParam(r, "unitID")); err != nil {
		s.fail(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) availabilityHandler(w http.ResponseWriter, r *http.Request) {
	p, err := s.periodFromQuery(r)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	unitID := chi.URLParam(r, "unitID")

	ok, err := s.index.IsAvailable(r.Context(), unitID, p)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, availabilityResponse{
		UnitID:    unitID,
		Period:    p,
		Display:   s.normalizer.Format(p),
		Available: ok,
	})
}

func (s *Server) nextAvailableHandler(w http.ResponseWriter, r *http.Request) {
	after := time.Now()

	if v := r.URL.Query().Get("after"); v != "" {
		day, err := s.normalizer.ParseDay(v)
		if err != nil {
			s.fail(w, r, badRequest("after: %v", err))

			return
		}

		after = day
	}

	unitID := chi.URLParam(r, "unitID")

	day, found, err := s.index.NextAvailableDate(r.Context(), unitID, s.normalizer.Today(after))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	resp := nextAvailableResponse{UnitID: unitID}

	if found {
		date := day.Format(time.DateOnly)
		resp.Date = &date
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) markUnavailableHandler(w http.ResponseWriter, r *http.Request) {
	var force bool

	if v := r.URL.Query().Get("force"); v != "" {
		var err error

		force, err = strconv.ParseBool(v)
		if err != nil {
			s.fail(w, r, badRequest("force: %v", err))

			return
		}
	}

	unit, err := s.bookings.MarkUnavailable(r.Context(), chi.URLParam(r, "unitID"), force)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, unit)
}

func (s *Server) markAvailableHandler(w http.ResponseWriter, r *http.Request) {
	unit, err := s.bookings.MarkAvailable(r.Context(), chi.URLParam(r, "unitID"))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, unit)
}

func (s *Server) listUnitBookingsHandler(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListByUnit(r.Context(), chi.URLParam(r, "unitID"))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, bookings)
}

func (s *Server) unitEventsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := s.bookings.Events(r.Context(), chi.URLParam(r, "unitID"))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, events)
}
