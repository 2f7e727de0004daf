// Package server wires a capnweb.Session to HTTP, adapted from the
// teacher's server.go: one Echo instance exposes both a WebSocket
// endpoint (one long-lived session per connection) and an HTTP POST
// batch endpoint (one short-lived session per request) on the same
// path, plus a separate chi-based admin mux for introspection that
// intentionally does not share the RPC path space.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/capnweb-go/capnweb"
	"github.com/capnweb-go/capnweb/codec"
	"github.com/capnweb-go/capnweb/internal/rpclog"
	"github.com/capnweb-go/capnweb/table"
	"github.com/capnweb-go/capnweb/transport/httpbatch"
	"github.com/capnweb-go/capnweb/transport/wstransport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // permissive by default; callers behind a gateway can restrict at that layer
	},
}

// MainFactory builds the main capability exposed to a new connection.
// Called once per WebSocket connection and once per HTTP batch request,
// so implementations that hold per-connection state (an AbortSignal, a
// per-user session) should allocate it here rather than sharing a single
// instance across callers.
type MainFactory func() interface{}

// Mount registers an RPC endpoint at path on e: GET for WebSocket
// upgrades, POST for HTTP batch requests, matching the teacher's
// SetupRpcEndpoint. cdc selects the wire codec (use codec.NewTagged()
// unless the deployment specifically needs structured-clone or binary
// framing).
func Mount(e *echo.Echo, path string, cdc codec.Codec, mainFn MainFactory) {
	log := rpclog.ForSession("server").Component("http")

	e.GET(path, func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			log.Warnf("websocket upgrade failed: %v", err)
			return err
		}
		defer conn.Close()

		tr := wstransport.New(conn)
		sess := capnweb.NewSession(c.Request().Context(), tr, cdc, mainFn())
		sess.Wait()
		if err := sess.Err(); err != nil {
			log.Infof("session %s ended: %v", sess.ID(), err)
		}
		return nil
	})

	e.POST(path, func(c echo.Context) error {
		c.Response().Header().Set("Content-Type", "text/plain; charset=utf-8")
		defer c.Request().Body.Close()

		tr, err := httpbatch.New(c.Request().Body)
		if err != nil {
			log.Warnf("batch request read failed: %v", err)
			return echo.NewHTTPError(http.StatusBadRequest, "malformed batch body")
		}

		sess := capnweb.NewSession(c.Request().Context(), tr, cdc, mainFn())
		sess.Wait()
		return c.String(http.StatusOK, tr.Responses())
	})
}

// New creates and configures an Echo instance with the same baseline
// middleware the teacher's SetupEchoServer used.
func New() *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.HideBanner = true
	return e
}

// AdminStats is a snapshot of one process's export/import table sizes,
// served by the admin mux for operators without exposing it on the RPC
// path itself.
type AdminStats struct {
	Exports int `json:"exports"`
	Imports int `json:"imports"`
}

// NewAdminMux builds a small chi router exposing read-only table
// introspection, run on a separate listener (config.Listen.AdminAddr) so
// it never shares a port or path namespace with the RPC/static traffic
// served through Echo.
func NewAdminMux(exports *table.Exports, imports *table.Imports) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		stats := AdminStats{Exports: exports.Len(), Imports: len(imports.Snapshot())}
		writeJSON(w, stats)
	})
	return r
}

// writeJSON encodes v to w, discarding any encode failure — by the time
// Write has started, the status code is already committed, so there is
// nothing more useful to do with the error.
func writeJSON(w http.ResponseWriter, v interface{}) {
	_ = json.NewEncoder(w).Encode(v)
}

// Serve runs e on addr until ctx is cancelled, then shuts it down
// gracefully.
func Serve(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return e.Shutdown(context.Background())
	}
}
