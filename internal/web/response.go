// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatewarden/gatewarden/internal/user"
	"github.com/gatewarden/gatewarden/pkg/errutil"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data) //nolint:errcheck // client may disconnect mid-write
	}
}

// writeError maps an internal error onto an HTTP status and JSON body.
// Store sentinels map to semantic statuses; anything else is a 500 with its
// error code surfaced for operators.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "user not found"})
	case errors.Is(err, user.ErrDuplicate):
		writeJSON(w, http.StatusConflict, errorBody{Error: "duplicate record"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error: "internal error",
			Code:  errutil.CodeOf(err),
		})
	}
}
