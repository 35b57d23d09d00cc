// Package catalog defines the contract of the external event and station
// catalog and the inventory it returns.
package catalog

import (
	"context"
	"time"

	"github.com/okian/seisnear/internal/domain/model"
)

// Wildcard matches any network, station or location in a bulk row.
const Wildcard = "*"

// EventQuery selects events around an origin.
type EventQuery struct {
	Origin       model.Coordinates
	MaxRadius    float64 // degrees
	Start        time.Time
	End          time.Time
	MinMagnitude float64
	Limit        int
	OrderBy      string // e.g. "magnitude" or "time"
}

// BulkRow is one line of a bulk station request.
type BulkRow struct {
	Network  string
	Station  string
	Location string
	Channels []string
	Start    time.Time
	End      time.Time
}

// StationQuery is a bulk station request filtered by distance from Origin.
type StationQuery struct {
	Rows              []BulkRow
	Origin            model.Coordinates
	MaxRadius         float64 // degrees
	IncludeRestricted bool
	MatchTimeseries   bool
}

// Client is the external catalog. Implementations return ErrNoData when
// nothing matches and wrap any other failure in ErrTransport.
type Client interface {
	QueryEvents(ctx context.Context, q EventQuery) ([]model.Event, error)
	QueryStationsBulk(ctx context.Context, q StationQuery) (*Inventory, error)
}

// CoordinateResolver resolves the position of a channel at a point in time.
type CoordinateResolver interface {
	ResolveCoordinates(seed model.SeedID, at time.Time) (ChannelCoordinates, error)
}
