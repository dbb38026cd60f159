// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/clock"
	"github.com/gatewarden/gatewarden/internal/observability"
	"github.com/gatewarden/gatewarden/internal/user"
	"github.com/gatewarden/gatewarden/pkg/errutil"
)

// Handler serves the decision API consumed by proxy plugins.
type Handler struct {
	users     user.Repository
	prelogin  *auth.PreLoginEngine
	postlogin *auth.Authenticator
	selector  *auth.Selector
	clock     clock.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewHandler creates a Handler. metrics may be nil to disable recording.
func NewHandler(
	users user.Repository,
	prelogin *auth.PreLoginEngine,
	postlogin *auth.Authenticator,
	selector *auth.Selector,
	clk clock.Clock,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		users:     users,
		prelogin:  prelogin,
		postlogin: postlogin,
		selector:  selector,
		clock:     clk,
		metrics:   metrics,
		logger:    logger,
	}
}

type preLoginRequest struct {
	Username string `json:"username"`
}

type preLoginResponse struct {
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// PreLogin handles POST /v1/prelogin.
func (h *Handler) PreLogin(w http.ResponseWriter, r *http.Request) {
	var req preLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if req.Username == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "username is required"})
		return
	}

	result, err := h.prelogin.Evaluate(r.Context(), req.Username)
	if err != nil {
		errutil.LogError(h.logger, "pre-login evaluation failed", err)
		writeError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.PreLoginOutcomes.WithLabelValues(result.State.String(), string(result.Reason)).Inc()
		switch result.Reason {
		case auth.DenyThrottled:
			h.metrics.PremiumLookupFaults.WithLabelValues("throttled").Inc()
		case auth.DenyLookupFailed:
			h.metrics.PremiumLookupFaults.WithLabelValues("other").Inc()
		}
	}

	writeJSON(w, http.StatusOK, preLoginResponse{
		State:  result.State.String(),
		Reason: string(result.Reason),
		Detail: result.Detail,
	})
}

type postLoginRequest struct {
	Username string `json:"username"`
	IP       string `json:"ip"`
}

type postLoginResponse struct {
	UserID     string `json:"user_id"`
	Reason     string `json:"reason"`
	Registered bool   `json:"registered"`
}

// PostLogin handles POST /v1/postlogin.
func (h *Handler) PostLogin(w http.ResponseWriter, r *http.Request) {
	var req postLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if req.Username == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "username is required"})
		return
	}

	u, err := h.users.GetByName(r.Context(), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	u.CurrentUsername = req.Username

	reason, err := h.postlogin.Evaluate(r.Context(), u, req.IP, h.clock.Now())
	if err != nil {
		errutil.LogError(h.logger, "post-login evaluation failed", err)
		writeError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.AuthReasons.WithLabelValues(reasonLabel(reason)).Inc()
	}

	writeJSON(w, http.StatusOK, postLoginResponse{
		UserID:     u.ID.String(),
		Reason:     reasonLabel(reason),
		Registered: u.Registered(),
	})
}

func reasonLabel(reason auth.Reason) string {
	if reason == auth.ReasonNone {
		return "none"
	}
	return string(reason)
}

type routeRequest struct {
	Username string `json:"username"`
	IP       string `json:"ip"`
	Bridged  bool   `json:"bridged"`
}

type routeResponse struct {
	Destination string `json:"destination"`
}

// Route handles POST /v1/route.
func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if req.Username == "" && !req.Bridged {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "username is required"})
		return
	}

	// Bridged identities may have no local record yet; route them on the
	// bridged flag alone.
	var u *user.User
	if req.Username != "" {
		found, err := h.users.GetByName(r.Context(), req.Username)
		if err != nil && !errors.Is(err, user.ErrNotFound) {
			writeError(w, err)
			return
		}
		u = found
		// The presented name feeds the same trust predicate post-login uses;
		// without it a drifted casing would still count as premium-trusted.
		if u != nil {
			u.CurrentUsername = req.Username
		}
	}

	dest := h.selector.Choose(u, req.Bridged, req.IP, h.clock.Now())

	if h.metrics != nil {
		h.metrics.RouteDecisions.WithLabelValues(dest.String()).Inc()
	}

	if u != nil && u.LastServer != dest.String() {
		u.LastServer = dest.String()
		if err := h.users.Update(r.Context(), u); err != nil {
			// Routing already succeeded; a failed bookkeeping write must not
			// turn into a routing failure.
			errutil.LogError(h.logger, "failed to persist last server", err)
		}
	}

	writeJSON(w, http.StatusOK, routeResponse{Destination: dest.String()})
}
