package model

import "time"

// SearchStatus tracks an asynchronous search through its lifecycle.
type SearchStatus string

const (
	StatusPending SearchStatus = "pending"
	StatusRunning SearchStatus = "running"
	StatusDone    SearchStatus = "done"
	StatusFailed  SearchStatus = "failed"
)

// Outcome names how station discovery ended.
type Outcome string

const (
	OutcomeFound     Outcome = "found"     // catalog returned stations
	OutcomeNoEvents  Outcome = "no_events" // nothing to search for; catalog not called
	OutcomeExhausted Outcome = "exhausted" // no data up to the maximum attempt count
	OutcomeFailed    Outcome = "failed"    // catalog failure other than no data
)

// SearchRequest describes one user search: find events around Origin, then
// the nearest stations for each of them.
type SearchRequest struct {
	Origin        Coordinates `json:"origin"`
	Radius        float64     `json:"radius"`        // event search radius, degrees
	StationRadius float64     `json:"stationRadius"` // initial station radius, degrees; Radius when zero
	Start         time.Time   `json:"start"`
	End           time.Time   `json:"end"`
	MinMagnitude  float64     `json:"minMagnitude"`
	Limit         int         `json:"limit"` // maximum events; service default when zero
}

// EffectiveStationRadius returns the radius used for the first station query.
func (r SearchRequest) EffectiveStationRadius() float64 {
	if r.StationRadius > 0 {
		return r.StationRadius
	}
	return r.Radius
}

// SearchReport is the materialised result of one search session.
type SearchReport struct {
	ID               string                `json:"id"`
	Status           SearchStatus          `json:"status"`
	Request          SearchRequest         `json:"request"`
	Events           []Event               `json:"events"`
	Stations         map[int64][]Candidate `json:"stations"`
	Outcome          Outcome               `json:"outcome,omitempty"`
	Attempts         int                   `json:"attempts"`
	Radius           float64               `json:"radius"` // station radius of the last attempt
	Degraded         bool                  `json:"degraded"`
	TimedOutNetworks []string              `json:"timedOutNetworks,omitempty"`
	Error            string                `json:"error,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

// StationCount returns the number of candidates across all events.
func (r *SearchReport) StationCount() int {
	n := 0
	for _, c := range r.Stations {
		n += len(c)
	}
	return n
}
