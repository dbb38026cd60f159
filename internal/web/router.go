// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package web exposes the authentication decision engine over HTTP.
package web

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the decision API routes with logging and recovery
// middleware.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(recoveryMiddleware(h.logger))
	api.Use(loggingMiddleware(h.logger))

	api.HandleFunc("/prelogin", h.PreLogin).Methods(http.MethodPost)
	api.HandleFunc("/postlogin", h.PostLogin).Methods(http.MethodPost)
	api.HandleFunc("/route", h.Route).Methods(http.MethodPost)

	return r
}
