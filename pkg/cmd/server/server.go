package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kritgpt/matstat/config"
	"github.com/kritgpt/matstat/pkg/api"
	"github.com/kritgpt/matstat/pkg/broadcast"
	"github.com/kritgpt/matstat/pkg/relay/influx"
	"github.com/kritgpt/matstat/pkg/relay/natsio"
	"github.com/kritgpt/matstat/pkg/storage"
	"github.com/kritgpt/matstat/pkg/storage/memory"
	"github.com/kritgpt/matstat/pkg/storage/sqlstore"
	"github.com/kritgpt/matstat/pkg/training"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const DriverMemory = "memory"

type server struct {
	c      *config.Config
	quitCh chan bool
	doneCh chan bool

	store   storage.Interface
	hub     *broadcast.Hub
	e       *echo.Echo
	closers []func()
}

func init() {
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)

	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)
}

func newServer(c *config.Config) (*server, error) {
	s := &server{
		c:      c,
		quitCh: make(chan bool),
		doneCh: make(chan bool),
	}

	store, err := openStore(c)
	if err != nil {
		return nil, err
	}
	s.store = store

	s.hub = broadcast.NewHub()
	if err := s.addRelays(); err != nil {
		s.close()
		return nil, err
	}

	mgr := training.NewManager(store, s.hub)
	if err := mgr.Recover(); err != nil {
		s.close()
		return nil, err
	}
	s.hub.SetSessionLookup(mgr)
	gw := training.NewGateway(mgr, store, s.hub)

	s.e = NewRouter(c, api.NewHandler(store, mgr, gw, s.hub))

	return s, nil
}

func openStore(c *config.Config) (storage.Interface, error) {
	if c.DatabaseDriver == DriverMemory {
		log.Warn("Using in-memory storage, data is lost on shutdown")
		return memory.NewStore(), nil
	}

	db, err := sqlstore.Open(c.DatabaseDriver, c.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if c.AutoMigrate {
		n, err := sqlstore.Migrate(db)
		if err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to apply migrations")
		}
		log.WithField("driver", c.DatabaseDriver).Infof("Applied %d migrations", n)
	}

	return sqlstore.NewStore(db), nil
}

func (s *server) addRelays() error {
	if s.c.NATSEnabled() {
		r, err := natsio.New(&natsio.Config{
			URL:           s.c.NATSServerURL,
			SubjectPrefix: s.c.NATSSubjectPrefix,
		})
		if err != nil {
			return err
		}
		s.hub.AddRelay(r)
		s.closers = append(s.closers, r.Close)
		log.WithField("url", s.c.NATSServerURL).Info("Relaying events to NATS")
	}

	if s.c.InfluxEnabled() {
		r := influx.New(&influx.Config{
			URL:    s.c.InfluxURL,
			Token:  s.c.InfluxToken,
			Org:    s.c.InfluxOrg,
			Bucket: s.c.InfluxBucket,
		})
		s.hub.AddRelay(r)
		s.closers = append(s.closers, r.Close)
		log.WithField("url", s.c.InfluxURL).Info("Mirroring readings to InfluxDB")
	}

	return nil
}

// NewRouter creates the echo web server with all middlewares and routes.
func NewRouter(c *config.Config, h *api.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(logger())
	e.Use(echo.WrapMiddleware(cors.New(cors.Options{
		AllowedOrigins: c.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler))

	h.RegisterRoutes(e)

	return e
}

func (s *server) Serve() {
	s.hub.Start()

	go func() {
		log.WithFields(log.Fields{
			"host": s.c.BindHost,
			"port": s.c.BindPort,
		}).Info("Starting server")

		if err := s.e.Start(fmt.Sprintf("%s:%d", s.c.BindHost, s.c.BindPort)); err != nil {
			log.Info("Shutting down the server")
		}
	}()

	// Wait until receiving the quit signal
	<-s.quitCh
	log.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), s.c.ShutdownTimeout)
	defer cancel()

	// Shutdown the echo web server
	if err := s.e.Shutdown(ctx); err != nil {
		log.Error(err)
	}

	// Hijacked websocket connections are not closed by echo
	s.hub.Close()
	s.close()

	// We've done!
	s.doneCh <- true
}

func (s *server) close() {
	for _, fn := range s.closers {
		fn()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Errorf("Failed to close storage: %v", err)
		}
	}
}

func (s *server) Shutdown() {
	// Send the quit signal to the server.Serve() routine
	s.quitCh <- true

	select {
	case <-s.doneCh:
		log.Info("Shutdown server successful")
	case <-time.After(s.c.ShutdownTimeout + time.Second):
		log.Error("Shutdown server failed")
	}
}

// Logger returns a middleware that logs HTTP requests.
func logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			var err error
			if err = next(c); err != nil {
				c.Error(err)
			}
			stop := time.Now()

			reqSize, perr := strconv.ParseInt(req.Header.Get(echo.HeaderContentLength), 10, 0)
			if perr != nil {
				reqSize = 0
			}
			errMsg := ""
			if err != nil {
				errMsg = err.Error()
			}

			log.WithFields(log.Fields{
				"remote_ip":     c.RealIP(),
				"host":          req.Host,
				"method":        req.Method,
				"uri":           req.RequestURI,
				"protocol":      req.Proto,
				"user_agent":    req.UserAgent(),
				"status":        res.Status,
				"status_text":   http.StatusText(res.Status),
				"error":         errMsg,
				"bytes_in":      reqSize,
				"bytes_out":     res.Size,
				"latency":       stop.Sub(start).Nanoseconds(),
				"latency_human": stop.Sub(start).String(),
			}).Infof("%s %s %s %d %s", req.Method, req.RequestURI, req.Proto,
				res.Status, strconv.FormatInt(res.Size, 10))

			return err
		}
	}
}

func RunServe(c *config.Config) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		s, err := newServer(c)
		if err != nil {
			log.Error("failed to create new server instance: ", err)
			os.Exit(1)
		}

		go s.Serve()

		// Wait for interrupt signal to gracefully shutdown the server
		quitCh := make(chan os.Signal, 1)
		signal.Notify(quitCh, os.Interrupt, syscall.SIGTERM)
		<-quitCh

		// Shutdown the server
		s.Shutdown()
	}
}
