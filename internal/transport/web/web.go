package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avstrong/studystay/internal/availability"
	"github.com/avstrong/studystay/internal/booking"
	"github.com/avstrong/studystay/internal/calendar"
	"github.com/avstrong/studystay/internal/inventory"
	"github.com/avstrong/studystay/internal/logger"
	"github.com/avstrong/studystay/internal/period"
)

var ErrPanic = errors.New("panic")

type Server struct {
	srv        *http.Server
	router     chi.Router
	l          *logger.Logger
	conf       Conf
	catalog    *inventory.Catalog
	bookings   *booking.Manager
	index      *availability.Index
	projector  *calendar.Projector
	normalizer *period.Normalizer
}

type Conf struct {
	L                 *logger.Logger
	ServerLogger      *log.Logger
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	LivenessEndpoint  string
}

// Services are the domain components the handlers call into.
type Services struct {
	Catalog    *inventory.Catalog
	Bookings   *booking.Manager
	Index      *availability.Index
	Projector  *calendar.Projector
	Normalizer *period.Normalizer
}

func New(ctx context.Context, conf Conf, services Services) (*Server, error) {
	router := chi.NewRouter()

	//nolint:exhaustruct
	srv := &http.Server{
		Addr:              net.JoinHostPort(conf.Host, conf.Port),
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		ErrorLog:          conf.ServerLogger,
		Handler:           router,
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	server := &Server{
		srv:        srv,
		router:     router,
		l:          conf.L,
		conf:       conf,
		catalog:    services.Catalog,
		bookings:   services.Bookings,
		index:      services.Index,
		projector:  services.Projector,
		normalizer: services.Normalizer,
	}

	server.addRoutes(router)

	return server, nil
}

func (s *Server) Srv() *http.Server {
	return s.srv
}

// Handler is the routed handler with all middlewares applied.
func (s *Server) Handler() http.Handler {
	return s.router
}
