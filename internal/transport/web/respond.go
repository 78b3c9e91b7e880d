package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/avstrong/studystay/internal/booking"
	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/period"
	"github.com/avstrong/studystay/internal/validation"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func badRequest(format string, v ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, v...))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.LogErrorf("Could not encode response: %v", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid request body: %v", err)
	}

	return nil
}

// statusOf maps domain errors onto HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, period.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, inventory.ErrNotFound), errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrConflict),
		errors.Is(err, booking.ErrAlreadyOccupied),
		errors.Is(err, booking.ErrHasActiveBooking),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, inventory.ErrUnitInUse),
		errors.Is(err, inventory.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrCapacityExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err in the shape clients expect. Validation errors carry their
// per-field messages.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if inputErr := validation.IsInputError(err); inputErr != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: inputErr.Fields()})

		return
	}

	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.l.LogErrorf("Could not serve %s %s: %v", r.Method, r.URL.Path, err.Error())
		writeError(w, status, http.StatusText(status))

		return
	}

	writeError(w, status, err.Error())
}
