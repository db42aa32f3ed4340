// Package httpserver builds the process's HTTP listener.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the server fronting signal ingest and the operator APIs. Header
// reads get a hard deadline so a stalled client cannot pin a connection;
// response writes stay unbounded because fulfillment bundles can be large.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
