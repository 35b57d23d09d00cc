// Package types contains the request and response shapes of the HTTP API
// and their translation from domain models.
package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/seisnear/internal/domain/model"
)

// Response status values and display defaults.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	DateLayout       = "2006-01-02"
	EventTimeLayout  = "2006-01-02 15:04:05"
	DefaultEventIcon = "/static/jukbox/img/center.png"
	DefaultEventType = "event"
)

// Request decoding errors.
var (
	ErrMissingField = errors.New("missing field")
	ErrInvalidDate  = errors.New("invalid date")
)

// SearchRequest is the body of a search submission. Dates are YYYY-MM-DD;
// the end date covers its whole day.
type SearchRequest struct {
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
	Radius        float64  `json:"radius"`
	StationRadius float64  `json:"stationRadius,omitempty"`
	StartDate     string   `json:"startDate,omitempty"`
	EndDate       string   `json:"endDate,omitempty"`
	Magnitude     float64  `json:"magnitude,omitempty"`
	Limit         int      `json:"limit,omitempty"`
}

// ToModel converts the request into a domain search request.
func (r SearchRequest) ToModel() (model.SearchRequest, error) {
	if r.Lat == nil || r.Lng == nil {
		return model.SearchRequest{}, fmt.Errorf("%w: lat and lng are required", ErrMissingField)
	}
	start, err := parseDate("startDate", r.StartDate)
	if err != nil {
		return model.SearchRequest{}, err
	}
	end, err := parseDate("endDate", r.EndDate)
	if err != nil {
		return model.SearchRequest{}, err
	}
	if !end.IsZero() {
		end = end.Add(24*time.Hour - time.Second)
	}
	return model.SearchRequest{
		Origin:        model.Coordinates{Latitude: *r.Lat, Longitude: NormalizeLongitude(*r.Lng)},
		Radius:        r.Radius,
		StationRadius: r.StationRadius,
		Start:         start,
		End:           end,
		MinMagnitude:  r.Magnitude,
		Limit:         r.Limit,
	}, nil
}

func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q, want YYYY-MM-DD", ErrInvalidDate, field, s)
	}
	return t, nil
}

// NormalizeLongitude wraps lng into [-180, 180), as map widgets report
// longitudes past the antimeridian.
func NormalizeLongitude(lng float64) float64 {
	return math.Mod(math.Mod(lng+180, 360)+360, 360) - 180
}

// LatLng is a map position.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event is one earthquake as shown on the map.
type Event struct {
	EventID   int64      `json:"eventId"`
	PublicID  string     `json:"publicId,omitempty"`
	LatLng    LatLng     `json:"latLng"`
	StartTime string     `json:"startTime"`
	EndTime   string     `json:"endTime"`
	Depth     float64    `json:"depth"`
	Mag       *float64   `json:"mag"`
	MagType   string     `json:"magType,omitempty"`
	Type      string     `json:"type"`
	Region    string     `json:"region,omitempty"`
	Icon      string     `json:"icon"`
	Color     *model.RGB `json:"color,omitempty"`
}

// Station is one nearest-station candidate of an event.
type Station struct {
	SeedID    string  `json:"seedId"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Distance  float64 `json:"distance"` // km to the search origin
	Elev      float64 `json:"elev"`
	Depth     float64 `json:"depth"`
	StartTime string  `json:"starttime"`
	EndTime   string  `json:"endtime"`
	Icon      string  `json:"icon"`
}

// SearchResponse is the body returned for a search.
type SearchResponse struct {
	Status           string              `json:"status"`
	Message          string              `json:"message"`
	ID               string              `json:"id"`
	State            model.SearchStatus  `json:"state"`
	Events           map[int64]Event     `json:"events"`
	Stations         map[int64][]Station `json:"stations"`
	Outcome          model.Outcome       `json:"outcome,omitempty"`
	Attempts         int                 `json:"attempts"`
	Radius           float64             `json:"radius"`
	Degraded         bool                `json:"degraded"`
	TimedOutNetworks []string            `json:"timedOutNetworks,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// Accepted is returned for an asynchronous submission.
type Accepted struct {
	Status   string `json:"status"`
	ID       string `json:"id"`
	Location string `json:"location"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewError builds an ErrorResponse.
func NewError(msg string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Message: msg}
}

// FromReport translates a stored search report into a response.
func FromReport(r *model.SearchReport) SearchResponse {
	resp := SearchResponse{
		Status:           StatusSuccess,
		Message:          messageFor(r),
		ID:               r.ID,
		State:            r.Status,
		Events:           make(map[int64]Event, len(r.Events)),
		Stations:         make(map[int64][]Station, len(r.Events)),
		Outcome:          r.Outcome,
		Attempts:         r.Attempts,
		Radius:           r.Radius,
		Degraded:         r.Degraded,
		TimedOutNetworks: r.TimedOutNetworks,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.Status == model.StatusFailed {
		resp.Status = StatusError
	}

	for i := range r.Events {
		e := FromEvent(&r.Events[i])
		resp.Events[e.EventID] = e
		stations := make([]Station, 0, len(r.Stations[e.EventID]))
		for _, c := range r.Stations[e.EventID] {
			stations = append(stations, FromCandidate(c))
		}
		resp.Stations[e.EventID] = stations
	}
	return resp
}

// FromEvent translates an event. Events without a magnitude get no colour.
func FromEvent(e *model.Event) Event {
	out := Event{
		EventID:   e.ID,
		PublicID:  e.PublicID,
		LatLng:    LatLng{Lat: e.Origin.Latitude, Lng: e.Origin.Longitude},
		StartTime: formatEventTime(e.StartTime),
		EndTime:   formatEventTime(e.EndTime),
		Depth:     e.DepthKm,
		Mag:       e.Magnitude,
		MagType:   e.MagnitudeType,
		Type:      e.Type,
		Region:    e.Region,
		Icon:      DefaultEventIcon,
	}
	if out.Type == "" {
		out.Type = DefaultEventType
	}
	if e.Magnitude != nil {
		c := model.MagnitudeColor(*e.Magnitude)
		out.Color = &c
	}
	return out
}

// FromCandidate translates a station candidate.
func FromCandidate(c model.Candidate) Station { //nolint:gocritic // candidates are values
	return Station{
		SeedID:    c.SeedID.String(),
		Lat:       c.Position.Latitude,
		Lon:       c.Position.Longitude,
		Distance:  c.DistanceKm,
		Elev:      c.ElevationM,
		Depth:     c.LocalDepthM,
		StartTime: formatISO(c.StartTime),
		EndTime:   formatISO(c.EndTime),
		Icon:      c.Icon,
	}
}

func formatEventTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(EventTimeLayout)
}

func formatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05")
}

func messageFor(r *model.SearchReport) string {
	switch r.Status {
	case model.StatusPending:
		return "Search is queued."
	case model.StatusRunning:
		return "Search is running."
	case model.StatusFailed:
		if r.Error != "" {
			return r.Error
		}
		return "Search failed."
	}
	switch r.Outcome {
	case model.OutcomeNoEvents:
		return "No earthquakes found in this area."
	case model.OutcomeExhausted:
		return fmt.Sprintf("Found %d events but no stations within %g degrees.", len(r.Events), r.Radius)
	}
	msg := fmt.Sprintf("Search completed for magnitude %g: %d events, %d stations.",
		r.Request.MinMagnitude, len(r.Events), r.StationCount())
	if r.Degraded {
		msg += " Some networks did not answer in time."
	}
	return msg
}
