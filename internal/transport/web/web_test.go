package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/studystay/internal/availability"
	"github.com/avstrong/studystay/internal/booking"
	"github.com/avstrong/studystay/internal/calendar"
	"github.com/avstrong/studystay/internal/idgen/simple"
	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/lock"
	"github.com/avstrong/studystay/internal/logger"
	"github.com/avstrong/studystay/internal/period"
	"github.com/avstrong/studystay/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	l := logger.Discard()
	db := memory.New(memory.Config{L: l})
	locks := lock.New()
	normalizer := period.NewNormalizer(period.DefaultSession())
	index := availability.New(db, 0)
	now := time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)

	srv, err := New(context.Background(), Conf{
		L:                l,
		Host:             "localhost",
		Port:             "0",
		LivenessEndpoint: "/liveness",
	}, Services{
		Catalog: inventory.New(l, db, simple.New("id-"), locks, time.Second),
		Bookings: booking.New(l, db, simple.New("bk-"), index, normalizer, locks,
			booking.WithClock(func() time.Time { return now })),
		Index:      index,
		Projector:  calendar.New(db, normalizer),
		Normalizer: normalizer,
	})
	require.NoError(t, err)

	return srv
}

func do(t *testing.T, s *Server, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())

	return v
}

type idResponse struct {
	ID string `json:"id"`
}

func setupHostel(t *testing.T, s *Server) (string, []string) {
	t.Helper()

	rec := do(t, s, http.MethodPost, "/api/rooms", inventory.RoomInput{
		Name: "Block E",
		Kind: inventory.Hostel,
		SharingOptions: []inventory.SharingOption{
			{Type: inventory.TwoSharing, Capacity: 2, Count: 2, Price: 5000},
		},
		WorkingDays: []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		OpenTime:    "09:00",
		CloseTime:   "21:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	room := decode[map[string]any](t, rec)
	assert.Equal(t, "Closed on Saturday, Sunday", room["closed_days_display"])
	assert.Equal(t, "9:00 AM – 9:00 PM", room["timing_display"])
	assert.Equal(t, "Fixed timings", room["hours_display"])

	roomID, ok := room["id"].(string)
	require.True(t, ok)

	var beds []string

	for _, serial := range []string{"E-1", "E-2"} {
		rec := do(t, s, http.MethodPost, "/api/rooms/"+roomID+"/units", inventory.UnitInput{
			Kind: inventory.Bed, Serial: serial, SharingType: inventory.TwoSharing,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		beds = append(beds, decode[idResponse](t, rec).ID)
	}

	return roomID, beds
}

func TestServer_Liveness(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/liveness", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_Catalog(t *testing.T) {
	s := newTestServer(t)
	roomID, _ := setupHostel(t, s)

	rec := do(t, s, http.MethodPost, "/api/rooms/"+roomID+"/units", inventory.UnitInput{
		Kind: inventory.Bed, Serial: "E-3", SharingType: inventory.TwoSharing,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/rooms/"+roomID+"/units", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]inventory.Unit](t, rec), 2)

	rec = do(t, s, http.MethodGet, "/api/rooms/"+roomID+"/sharing-options", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[[]inventory.SharingOption](t, rec)[0].Count)

	rec = do(t, s, http.MethodPut, "/api/rooms/"+roomID+"/sharing-options", []inventory.SharingOption{
		{Type: inventory.TwoSharing, Capacity: 2, Count: 1},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/rooms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = do(t, s, http.MethodGet, "/api/rooms/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/rooms", inventory.RoomInput{Kind: "castle"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[errorResponse](t, rec)
	assert.Contains(t, resp.Fields, "name")
	assert.Contains(t, resp.Fields, "kind")

	rec = do(t, s, http.MethodPost, "/api/rooms", map[string]any{"nickname": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/bookings", reserveRequest{UnitID: "u", OccupantID: "o", Start: "10/01/2025"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/bookings", reserveRequest{UnitID: "u", OccupantID: "o", Start: "2025-01-10", End: "2025-01-05"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/bookings", reserveRequest{UnitID: "u", OccupantID: "o"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "provide start or end")
}

func TestServer_BookingFlow(t *testing.T) {
	s := newTestServer(t)
	roomID, beds := setupHostel(t, s)

	rec := do(t, s, http.MethodPost, "/api/bookings", reserveRequest{
		RoomID: roomID, SharingType: "2-sharing", OccupantID: "o1", Start: "2025-01-05", End: "2025-01-07",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[map[string]any](t, rec)
	bookingID, ok := created["id"].(string)
	require.True(t, ok)
	assert.Equal(t, beds[0], created["unit_id"])
	assert.Equal(t, "reserved", created["status"])
	assert.Equal(t, "5 Jan 2025 9:00 AM to 7 Jan 2025 6:00 PM", created["display"])

	rec = do(t, s, http.MethodGet, "/api/units/"+beds[0]+"/availability?start=2025-01-06&end=2025-01-06", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[availabilityResponse](t, rec).Available)

	rec = do(t, s, http.MethodGet, "/api/units/"+beds[0]+"/next-available?after=2025-01-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	next := decode[nextAvailableResponse](t, rec)
	require.NotNil(t, next.Date)
	assert.Equal(t, "2025-01-08", *next.Date)

	rec = do(t, s, http.MethodPost, "/api/bookings", reserveRequest{
		UnitID: beds[0], OccupantID: "o2", Start: "2025-01-07",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/rooms/"+roomID+"/free-units?start=2025-01-06&end=2025-01-06", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]inventory.Unit](t, rec), 1)

	rec = do(t, s, http.MethodPost, "/api/bookings/"+bookingID+"/check-out", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "never checked in")

	rec = do(t, s, http.MethodPost, "/api/bookings/"+bookingID+"/check-in", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "period has not started")

	rec = do(t, s, http.MethodGet, "/api/calendar?cabin="+beds[0]+"&from=2025-01-01&to=2025-01-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := decode[[]calendar.Entry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "o1 · 5 Jan 2025 9:00 AM to 7 Jan 2025 6:00 PM", entries[0].Label)

	rec = do(t, s, http.MethodDelete, "/api/units/"+beds[0], nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/bookings/"+bookingID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/bookings/"+bookingID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/units/"+beds[0]+"/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]booking.Event](t, rec), 2)
}

func TestServer_WalkInAndUnavailable(t *testing.T) {
	s := newTestServer(t)
	_, beds := setupHostel(t, s)

	rec := do(t, s, http.MethodPost, "/api/bookings", reserveRequest{
		UnitID: beds[1], OccupantID: "walk-in", Start: "2025-01-01", End: "2025-01-01",
	}, "Idempotency-Key", "req-7")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	first := decode[map[string]any](t, rec)
	assert.Equal(t, "reserved", first["status"])

	rec = do(t, s, http.MethodPost, "/api/bookings", reserveRequest{
		UnitID: beds[1], OccupantID: "walk-in", Start: "2025-01-01", End: "2025-01-01",
	}, "Idempotency-Key", "req-7")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, first["id"], decode[map[string]any](t, rec)["id"])

	rec = do(t, s, http.MethodPost, "/api/units/"+beds[1]+"/unavailable", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/units/"+beds[1]+"/unavailable?force=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unavailable", decode[map[string]any](t, rec)["state"].(map[string]any)["status"])

	rec = do(t, s, http.MethodPost, "/api/units/"+beds[1]+"/available", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	unit := decode[inventory.Unit](t, rec)
	assert.True(t, unit.State.OccupiedBy(first["id"].(string)), "same-day reservation keeps the unit")

	rec = do(t, s, http.MethodPost, "/api/bookings/"+first["id"].(string)+"/check-in", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "checked_in", decode[map[string]any](t, rec)["status"])

	rec = do(t, s, http.MethodDelete, "/api/bookings/"+first["id"].(string), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/units/"+beds[1]+"/bookings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]booking.Booking](t, rec), 1)
}

func TestServer_CancelSameDayReservation(t *testing.T) {
	s := newTestServer(t)
	_, beds := setupHostel(t, s)

	rec := do(t, s, http.MethodPost, "/api/bookings", reserveRequest{
		UnitID: beds[0], OccupantID: "walk-in", Start: "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	id := decode[map[string]any](t, rec)["id"].(string)

	rec = do(t, s, http.MethodDelete, "/api/bookings/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/units/"+beds[0], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, inventory.StateAvailable, decode[inventory.Unit](t, rec).State.Kind())
}

func TestServer_RecoverMiddleware(t *testing.T) {
	s := newTestServer(t)

	h := s.recoverMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}
