// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/user"
)

func TestSelector_Choose(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	lastAuth := base.Add(-time.Minute)
	selector := auth.NewSelector(10 * time.Minute)

	premiumUser := &user.User{
		ID:              uuid.New(),
		Premium:         user.LinkedTo(uuid.New()),
		Nickname:        "Alice",
		CurrentUsername: "Alice",
	}
	sessionUser := &user.User{
		ID:                  uuid.New(),
		Nickname:            "Bob",
		LastAuthenticatedAt: &lastAuth,
		LastIP:              "10.0.0.1",
	}
	offlineUser := &user.User{ID: uuid.New(), Nickname: "Carol"}

	tests := []struct {
		name    string
		u       *user.User
		bridged bool
		ip      string
		want    auth.Destination
	}{
		{name: "bridged without record", u: nil, bridged: true, want: auth.DestinationLobby},
		{name: "bridged overrides untrusted record", u: offlineUser, bridged: true, want: auth.DestinationLobby},
		{name: "premium trusted", u: premiumUser, want: auth.DestinationLobby},
		{name: "valid session", u: sessionUser, ip: "10.0.0.1", want: auth.DestinationLobby},
		{name: "session from wrong ip", u: sessionUser, ip: "10.0.0.9", want: auth.DestinationLimbo},
		{name: "offline untrusted", u: offlineUser, want: auth.DestinationLimbo},
		{name: "unknown user", u: nil, want: auth.DestinationLimbo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selector.Choose(tt.u, tt.bridged, tt.ip, base))
		})
	}
}

func TestSelector_DisabledTimeoutStillRoutesPremium(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	selector := auth.NewSelector(0)

	premiumUser := &user.User{
		ID:              uuid.New(),
		Premium:         user.LinkedTo(uuid.New()),
		Nickname:        "Alice",
		CurrentUsername: "Alice",
	}
	assert.Equal(t, auth.DestinationLobby, selector.Choose(premiumUser, false, "10.0.0.1", base))

	lastAuth := base.Add(-time.Minute)
	sessionOnly := &user.User{
		ID:                  uuid.New(),
		Nickname:            "Bob",
		LastAuthenticatedAt: &lastAuth,
		LastIP:              "10.0.0.1",
	}
	assert.Equal(t, auth.DestinationLimbo, selector.Choose(sessionOnly, false, "10.0.0.1", base),
		"a disabled timeout turns off the session bypass")
}

func TestDestinationString(t *testing.T) {
	assert.Equal(t, "lobby", auth.DestinationLobby.String())
	assert.Equal(t, "limbo", auth.DestinationLimbo.String())
}
