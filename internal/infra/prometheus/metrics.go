package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Terminal outcomes of a room open, used as the label of RoomOpens.
const (
	OutcomeServed   = "served"
	OutcomeLocked   = "locked"
	OutcomeExpired  = "expired"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	// RoomOpens counts read attempts by terminal outcome.
	RoomOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sourcevoid_room_opens_total",
		Help: "Room open attempts by outcome.",
	}, []string{"outcome"})

	// RoomCreates counts explicit room creations.
	RoomCreates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sourcevoid_room_creates_total",
		Help: "Rooms created through the create API.",
	})

	// RoomSaves counts content saves that reached storage.
	RoomSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sourcevoid_room_saves_total",
		Help: "Successful room content saves.",
	})
)
