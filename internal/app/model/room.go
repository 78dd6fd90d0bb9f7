package model

import "time"

// Expiration policy names accepted by the create API.
const (
	ExpirationHours   = "hours"
	ExpirationMinutes = "minutes"
	ExpirationViews   = "views"
)

// DefaultLanguage is the display hint stamped on new rooms.
const DefaultLanguage = "plaintext"

// Room is the shared-document entity stored in Postgres. Exactly one
// expiration dimension is active per row: a non-nil ExpiresAt (time
// policy) or MaxViews > 0 (view policy). Rows are never resurrected;
// liveness is computed, not stored.
type Room struct {
	ID           string     `json:"id" gorm:"primaryKey;size:64"`
	Content      string     `json:"content" gorm:"type:text;not null;default:''"`
	Language     string     `json:"language" gorm:"size:50;not null;default:plaintext"`
	SecretHash   string     `json:"-" gorm:"size:255"`
	MaxViews     int        `json:"max_views" gorm:"not null;default:0"`
	CurrentViews int        `json:"current_views" gorm:"not null;default:0"`
	ExpiresAt    *time.Time `json:"expires_at" gorm:"index"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// Protected reports whether reads require a credential.
func (r *Room) Protected() bool {
	return r.SecretHash != ""
}

// AliveAt decides liveness at the given instant against the
// pre-increment view count. Pure; shared by the read path and the
// reaper.
func (r *Room) AliveAt(now time.Time) bool {
	if r.ExpiresAt != nil {
		return now.Before(*r.ExpiresAt)
	}
	if r.MaxViews > 0 {
		return r.CurrentViews < r.MaxViews
	}
	// Neither dimension configured: such rows cannot be produced by
	// this code (creation always stamps a policy) but rows migrated
	// from elsewhere are treated as non-expiring.
	return true
}

// ExpirationFor maps an expiration policy choice to concrete room
// fields. Unknown types and non-positive values fall back to the
// default TTL.
func ExpirationFor(policyType string, value int, now time.Time, defaultTTL time.Duration) (expiresAt *time.Time, maxViews int) {
	if value > 0 {
		switch policyType {
		case ExpirationViews:
			return nil, value
		case ExpirationMinutes:
			t := now.Add(time.Duration(value) * time.Minute)
			return &t, 0
		case ExpirationHours:
			t := now.Add(time.Duration(value) * time.Hour)
			return &t, 0
		}
	}
	t := now.Add(defaultTTL)
	return &t, 0
}
