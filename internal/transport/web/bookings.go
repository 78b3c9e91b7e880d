package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/avstrong/studystay/internal/booking"
	"github.com/avstrong/studystay/internal/calendar"
	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/period"
)

// reserveRequest names either a unit or a room. For a room the first unit
// free for the whole period is taken, optionally of one sharing type.
type reserveRequest struct {
	UnitID      string `json:"unit_id"`
	RoomID      string `json:"room_id"`
	SharingType string `json:"sharing_type"`
	OccupantID  string `json:"occupant_id"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

type bookingView struct {
	*booking.Booking
	Display string `json:"display"`
}

func (s *Server) newBookingView(b *booking.Booking) bookingView {
	return bookingView{Booking: b, Display: s.normalizer.Format(b.Period)}
}

func (s *Server) reserveHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req reserveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)

		return
	}

	p, err := s.requestPeriod(req.Start, req.End)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	if !p.HasStart() && !p.HasEnd() {
		s.fail(w, r, badRequest("provide start or end"))

		return
	}

	if req.UnitID == "" && req.RoomID != "" {
		req.UnitID, err = s.pickUnit(r, req, p)
		if err != nil {
			s.fail(w, r, err)

			return
		}
	}

	if key := r.Header.Get("Idempotency-Key"); key != "" {
		ctx = booking.NewContextWithIdempotencyKey(ctx, key)
	}

	b, err := s.bookings.Reserve(ctx, booking.ReserveInput{
		UnitID:     req.UnitID,
		OccupantID: req.OccupantID,
		Period:     p,
	})
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, s.newBookingView(b))
}

func (s *Server) pickUnit(r *http.Request, req reserveRequest, p period.Period) (string, error) {
	var sharing inventory.SharingType

	if req.SharingType != "" {
		t, err := inventory.ParseSharingType(req.SharingType)
		if err != nil {
			return "", badRequest("%v", err)
		}

		sharing = t
	}

	if _, err := s.catalog.GetRoom(r.Context(), req.RoomID); err != nil {
		return "", err
	}

	units, err := s.index.FreeUnits(r.Context(), req.RoomID, sharing, p)
	if err != nil {
		return "", err
	}

	if len(units) == 0 {
		return "", fmt.Errorf("room %s has no free unit for %s: %w", req.RoomID, p, booking.ErrConflict)
	}

	return units[0].ID, nil
}

func (s *Server) requestPeriod(startDay, endDay string) (period.Period, error) {
	start, err := s.normalizer.ParseDay(startDay)
	if err != nil {
		return period.Period{}, badRequest("start: %v", err)
	}

	end, err := s.normalizer.ParseDay(endDay)
	if err != nil {
		return period.Period{}, badRequest("end: %v", err)
	}

	return s.normalizer.Normalize(start, end)
}

func (s *Server) getBookingHandler(w http.ResponseWriter, r *http.Request) {
	b, err := s.bookings.Get(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, s.newBookingView(b))
}

func (s *Server) cancelHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.bookings.Cancel(r.Context(), chi.URLParam(r, "bookingID")); err != nil {
		s.fail(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) checkInHandler(w http.ResponseWriter, r *http.Request) {
	b, err := s.bookings.CheckIn(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, s.newBookingView(b))
}

func (s *Server) checkOutHandler(w http.ResponseWriter, r *http.Request) {
	b, err := s.bookings.CheckOut(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, s.newBookingView(b))
}

// calendarHandler serves GET /api/calendar?cabin=a,b&from=..&to=.. . Cabins
// may be repeated or comma separated; none means every unit.
func (s *Server) calendarHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	dateRange, err := s.requestPeriod(q.Get("from"), q.Get("to"))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	var cabins []string

	for _, v := range q["cabin"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cabins = append(cabins, id)
			}
		}
	}

	entries, err := s.projector.Project(r.Context(), cabins, dateRange)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	if entries == nil {
		entries = []calendar.Entry{}
	}

	s.writeJSON(w, http.StatusOK, entries)
}
