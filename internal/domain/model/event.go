// Package model contains domain models passed between layers.
package model

import "time"

// Default event window relative to the origin time.
const (
	DefaultWindowLead = 5 * time.Minute
	DefaultWindowTail = 1800 * time.Second
)

// Coordinates is a geographic position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Event is a geolocated, time-windowed search anchor. It is immutable once
// registered and lives for a single search session.
type Event struct {
	ID            int64       `json:"id"`        // session-unique identifier
	PublicID      string      `json:"publicId"`  // identifier assigned by the event catalog
	Origin        Coordinates `json:"origin"`    // epicenter
	DepthKm       float64     `json:"depthKm"`   // hypocenter depth
	OriginTime    time.Time   `json:"originTime"`
	StartTime     time.Time   `json:"startTime"`
	EndTime       time.Time   `json:"endTime"`
	Magnitude     *float64    `json:"magnitude,omitempty"`
	MagnitudeType string      `json:"magnitudeType,omitempty"`
	Type          string      `json:"type,omitempty"` // e.g. "earthquake"
	Region        string      `json:"region,omitempty"`
}

// WithWindow returns a copy of e whose time window spans
// [OriginTime-lead, OriginTime+tail].
func (e Event) WithWindow(lead, tail time.Duration) Event {
	if e.OriginTime.IsZero() {
		return e
	}
	e.StartTime = e.OriginTime.Add(-lead)
	e.EndTime = e.OriginTime.Add(tail)
	return e
}

// HasWindow reports whether both ends of the time window are set.
func (e Event) HasWindow() bool {
	return !e.StartTime.IsZero() && !e.EndTime.IsZero()
}

// Overlaps reports whether [start, end] intersects the event window.
// A zero start or end is treated as unbounded on that side.
func (e Event) Overlaps(start, end time.Time) bool {
	if !start.IsZero() && start.After(e.EndTime) {
		return false
	}
	if !end.IsZero() && end.Before(e.StartTime) {
		return false
	}
	return true
}
