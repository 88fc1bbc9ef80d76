package server

import (
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/jdziat/simple-durable-airdrops/pkg/core"
	"github.com/jdziat/simple-durable-airdrops/pkg/executor"
)

// Handler creates an http.Handler serving the airdrop API:
//
//	POST /v1/airdrops/execute        relay a prepared job
//	GET  /v1/airdrops                history, newest first
//	GET  /v1/airdrops/{id}           one record with its batches
//	GET  /v1/airdrops/{id}/events    progress stream (requires WithWatcher)
//	POST /v1/recipients/validate     validate a JSON or CSV recipient list
//	GET  /v1/fees/estimate           fee estimate for a recipient count
//	GET  /v1/stats                   record and batch counts
//
// Usage:
//
//	mux.Handle("/", server.Handler(relay, storage))
func Handler(relay *executor.Relay, storage core.Storage, opts ...Option) http.Handler {
	cfg := &config{}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	svc := newService(relay, storage, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/airdrops/execute", svc.execute)
	mux.HandleFunc("GET /v1/airdrops", svc.listRecords)
	mux.HandleFunc("GET /v1/airdrops/{id}", svc.getRecord)
	mux.HandleFunc("GET /v1/airdrops/{id}/events", svc.events)
	mux.HandleFunc("POST /v1/recipients/validate", svc.validateRecipients)
	mux.HandleFunc("GET /v1/fees/estimate", svc.estimateFees)
	mux.HandleFunc("GET /v1/stats", svc.stats)

	// H2C serves HTTP/2 over cleartext for long-running relay requests and
	// event streams behind TLS-terminating proxies.
	h2cHandler := h2c.NewHandler(mux, &http2.Server{})

	if cfg.middleware != nil {
		return cfg.middleware(h2cHandler)
	}
	return h2cHandler
}
