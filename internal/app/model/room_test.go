package model

import (
	"testing"
	"time"
)

func TestRoomAliveAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		room Room
		want bool
	}{
		{"time policy, before deadline", Room{ExpiresAt: &future}, true},
		{"time policy, after deadline", Room{ExpiresAt: &past}, false},
		{"time policy wins over views", Room{ExpiresAt: &past, MaxViews: 10, CurrentViews: 0}, false},
		{"view policy, views remaining", Room{MaxViews: 5, CurrentViews: 4}, true},
		{"view policy, at limit", Room{MaxViews: 5, CurrentViews: 5}, false},
		{"view policy, over limit", Room{MaxViews: 5, CurrentViews: 6}, false},
		{"no policy configured", Room{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.room.AliveAt(now); got != tt.want {
				t.Fatalf("AliveAt = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoomAliveAtExactDeadline(t *testing.T) {
	now := time.Now()
	room := Room{ExpiresAt: &now}
	if room.AliveAt(now) {
		t.Fatal("room at its exact deadline should be dead")
	}
}

func TestExpirationFor(t *testing.T) {
	now := time.Now()
	defaultTTL := 24 * time.Hour

	t.Run("views", func(t *testing.T) {
		expiresAt, maxViews := ExpirationFor(ExpirationViews, 5, now, defaultTTL)
		if expiresAt != nil {
			t.Fatalf("view policy should not set expiresAt, got %v", expiresAt)
		}
		if maxViews != 5 {
			t.Fatalf("maxViews = %d, want 5", maxViews)
		}
	})

	t.Run("minutes", func(t *testing.T) {
		expiresAt, maxViews := ExpirationFor(ExpirationMinutes, 30, now, defaultTTL)
		if maxViews != 0 {
			t.Fatalf("time policy should not set maxViews, got %d", maxViews)
		}
		if expiresAt == nil || !expiresAt.Equal(now.Add(30*time.Minute)) {
			t.Fatalf("expiresAt = %v, want now+30m", expiresAt)
		}
	})

	t.Run("hours", func(t *testing.T) {
		expiresAt, _ := ExpirationFor(ExpirationHours, 2, now, defaultTTL)
		if expiresAt == nil || !expiresAt.Equal(now.Add(2*time.Hour)) {
			t.Fatalf("expiresAt = %v, want now+2h", expiresAt)
		}
	})

	t.Run("fallback on unknown type", func(t *testing.T) {
		expiresAt, maxViews := ExpirationFor("days", 3, now, defaultTTL)
		if maxViews != 0 || expiresAt == nil || !expiresAt.Equal(now.Add(defaultTTL)) {
			t.Fatalf("unknown type should fall back to default TTL, got %v / %d", expiresAt, maxViews)
		}
	})

	t.Run("fallback on non-positive value", func(t *testing.T) {
		expiresAt, maxViews := ExpirationFor(ExpirationViews, 0, now, defaultTTL)
		if maxViews != 0 || expiresAt == nil || !expiresAt.Equal(now.Add(defaultTTL)) {
			t.Fatalf("non-positive value should fall back to default TTL, got %v / %d", expiresAt, maxViews)
		}
	})
}
