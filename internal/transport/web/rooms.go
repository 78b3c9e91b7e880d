package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/period"
)

type roomView struct {
	*inventory.Room
	ClosedDays string `json:"closed_days_display"`
	Timing     string `json:"timing_display"`
	Hours      string `json:"hours_display"`
}

func newRoomView(room *inventory.Room) roomView {
	return roomView{
		Room:       room,
		ClosedDays: period.ClosedDaysDisplay(room.WorkingDays),
		Timing:     period.TimingDisplay(room.OpenTime, room.CloseTime),
		Hours:      period.Is24HoursDisplay(&room.Is24Hours),
	}
}

func (s *Server) createRoomHandler(w http.ResponseWriter, r *http.Request) {
	var input inventory.RoomInput
	if err := decodeJSON(w, r, &input); err != nil {
		s.fail(w, r, err)

		return
	}

	room, err := s.catalog.CreateRoom(r.Context(), input)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, newRoomView(room))
}

func (s *Server) listRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.catalog.ListRooms(r.Context())
	if err != nil {
		s.fail(w, r, err)

		return
	}

	views := make([]roomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, newRoomView(room))
	}

	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) getRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := s.catalog.GetRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, newRoomView(room))
}

func (s *Server) listUnitsHandler(w http.ResponseWriter, r *http.Request) {
	units, err := s.catalog.ListUnitsForRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, units)
}

func (s *Server) addUnitHandler(w http.ResponseWriter, r *http.Request) {
	var input inventory.UnitInput
	if err := decodeJSON(w, r, &input); err != nil {
		s.fail(w, r, err)

		return
	}

	input.RoomID = chi.URLParam(r, "roomID")

	unit, err := s.catalog.AddUnit(r.Context(), input)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, unit)
}

func (s *Server) getSharingOptionsHandler(w http.ResponseWriter, r *http.Request) {
	opts, err := s.catalog.GetSharingOptions(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, opts)
}

func (s *Server) updateSharingOptionsHandler(w http.ResponseWriter, r *http.Request) {
	var opts []inventory.SharingOption
	if err := decodeJSON(w, r, &opts); err != nil {
		s.fail(w, r, err)

		return
	}

	room, err := s.catalog.UpdateSharingOptions(r.Context(), chi.URLParam(r, "roomID"), opts)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, newRoomView(room))
}

func (s *Server) freeUnitsHandler(w http.ResponseWriter, r *http.Request) {
	p, err := s.periodFromQuery(r)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	var sharing inventory.SharingType

	if v := r.URL.Query().Get("sharing_type"); v != "" {
		sharing, err = inventory.ParseSharingType(v)
		if err != nil {
			s.fail(w, r, badRequest("%v", err))

			return
		}
	}

	roomID := chi.URLParam(r, "roomID")

	if _, err := s.catalog.GetRoom(r.Context(), roomID); err != nil {
		s.fail(w, r, err)

		return
	}

	units, err := s.index.FreeUnits(r.Context(), roomID, sharing, p)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, units)
}

// periodFromQuery reads the start and end query parameters as calendar days.
func (s *Server) periodFromQuery(r *http.Request) (period.Period, error) {
	q := r.URL.Query()

	return s.requestPeriod(q.Get("start"), q.Get("end"))
}
