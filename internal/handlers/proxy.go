package handlers

import (
	"net/http"

	"github.com/benvon/apigate/internal/gateway"
	"github.com/gorilla/mux"
)

// ProxyHandler binds the proxy pipeline to the gateway's path pattern
// {prefix}/{service}/{rest}.
type ProxyHandler struct {
	pipeline *gateway.Pipeline
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(pipeline *gateway.Pipeline) *ProxyHandler {
	return &ProxyHandler{pipeline: pipeline}
}

// RegisterRoutes registers the proxy routes under the given prefix.
func (h *ProxyHandler) RegisterRoutes(r *mux.Router, prefix string) {
	sub := r.PathPrefix(prefix).Subrouter()
	sub.HandleFunc("/{service}/{rest:.*}", h.Proxy)
	sub.HandleFunc("/{service}", h.Proxy)
}

// Proxy runs the pipeline for one inbound request.
func (h *ProxyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.pipeline.Serve(w, r, vars["service"], vars["rest"])
}
