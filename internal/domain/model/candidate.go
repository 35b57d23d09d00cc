package model

import "time"

// DefaultStationIcon is the display hint attached to station candidates.
const DefaultStationIcon = "/static/jukbox/img/station.jpg"

// Candidate is a station-channel match for one event. It is built by a
// producer and never mutated after it is handed to a nearest-station set.
type Candidate struct {
	EventID     int64       `json:"eventId"`
	SeedID      SeedID      `json:"seedId"`
	Position    Coordinates `json:"position"`
	ElevationM  float64     `json:"elevationM"`
	LocalDepthM float64     `json:"localDepthM"`
	DistanceKm  float64     `json:"distanceKm"` // to the search origin
	StartTime   time.Time   `json:"startTime"`  // event window used for the match
	EndTime     time.Time   `json:"endTime"`
	Icon        string      `json:"icon,omitempty"`
}
