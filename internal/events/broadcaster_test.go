// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestBroadcaster_PublishToSubscriber(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe(TypeAuthenticated)

	userID := uuid.New()
	b.Publish(New(TypeAuthenticated, userID, "Alice", "premium", testTime))

	select {
	case got := <-ch:
		assert.Equal(t, TypeAuthenticated, got.Type)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, "premium", got.Reason)
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}
}

func TestBroadcaster_TypeFiltering(t *testing.T) {
	b := NewBroadcaster()
	revoked := b.Subscribe(TypePremiumLinkRevoked)

	b.Publish(New(TypeAuthenticated, uuid.New(), "Alice", "premium", testTime))

	select {
	case e := <-revoked:
		t.Fatalf("subscriber received event of wrong type: %v", e.Type)
	default:
	}
}

func TestBroadcaster_MultipleSubscribers(t *testing.T) {
	b := NewBroadcaster()
	first := b.Subscribe(TypeNameMismatchDenied)
	second := b.Subscribe(TypeNameMismatchDenied)

	b.Publish(New(TypeNameMismatchDenied, uuid.New(), "Bob", "", testTime))

	for _, ch := range []chan Event{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, "Bob", got.Username)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe(TypeAuthenticated)
	b.Unsubscribe(TypeAuthenticated, ch)

	_, open := <-ch
	assert.False(t, open, "unsubscribed channel must be closed")

	// Publishing after unsubscribe must not panic.
	b.Publish(New(TypeAuthenticated, uuid.New(), "Alice", "session", testTime))
}

func TestBroadcaster_FullBufferDropsWithoutBlocking(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe(TypeAuthenticated)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(ch)+10; i++ {
			b.Publish(New(TypeAuthenticated, uuid.New(), "Alice", "premium", testTime))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}

	assert.Len(t, ch, cap(ch))
}

func TestNew_StampsUniqueIDs(t *testing.T) {
	a := New(TypeAuthenticated, uuid.New(), "Alice", "premium", testTime)
	c := New(TypeAuthenticated, uuid.New(), "Alice", "premium", testTime)

	require.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, testTime, a.At)
}
