package catalog

import (
	"time"

	"github.com/okian/seisnear/internal/domain/model"
)

// Inventory is the Network -> Station -> Channel tree returned by a station query.
type Inventory struct {
	Networks []Network
}

// Network groups the stations operated under one network code.
type Network struct {
	Code        string
	Description string
	Stations    []Station
}

// Station is a site with one or more channel epochs.
type Station struct {
	Code       string
	Position   model.Coordinates
	ElevationM float64
	Site       string
	Channels   []Channel
}

// Channel is one epoch of a sensor channel.
type Channel struct {
	Location    string
	Code        string
	Position    model.Coordinates
	ElevationM  float64
	LocalDepthM float64
	Azimuth     float64
	Dip         float64
	SampleRate  float64
	Sensor      string
	Start       time.Time
	End         time.Time // zero while the epoch is open
}

// ChannelCoordinates is the resolved position of a channel.
type ChannelCoordinates struct {
	Latitude    float64
	Longitude   float64
	ElevationM  float64
	LocalDepthM float64
}

// Coordinates returns the horizontal position.
func (c ChannelCoordinates) Coordinates() model.Coordinates {
	return model.Coordinates{Latitude: c.Latitude, Longitude: c.Longitude}
}

// Covers reports whether the epoch is active at t. Both ends are inclusive.
func (c Channel) Covers(t time.Time) bool {
	if !c.Start.IsZero() && t.Before(c.Start) {
		return false
	}
	if !c.End.IsZero() && t.After(c.End) {
		return false
	}
	return true
}

// SeedID builds the identifier of the channel within net and sta.
func (c Channel) SeedID(net, sta string) model.SeedID {
	return model.SeedID{Network: net, Station: sta, Location: c.Location, Channel: c.Code}
}

// Len returns the number of channel epochs.
func (inv *Inventory) Len() int {
	if inv == nil {
		return 0
	}
	n := 0
	for _, net := range inv.Networks {
		for _, sta := range net.Stations {
			n += len(sta.Channels)
		}
	}
	return n
}

// ResolveCoordinates returns the position of seed from the epoch covering at.
// When one epoch ends exactly at at and another starts there, the later one
// wins. It returns ErrNotFound when no epoch covers at.
func (inv *Inventory) ResolveCoordinates(seed model.SeedID, at time.Time) (ChannelCoordinates, error) {
	if inv == nil {
		return ChannelCoordinates{}, ErrNotFound
	}
	var ending *Channel
	for _, net := range inv.Networks {
		if net.Code != seed.Network {
			continue
		}
		for _, sta := range net.Stations {
			if sta.Code != seed.Station {
				continue
			}
			for i := range sta.Channels {
				ch := &sta.Channels[i]
				if ch.Code != seed.Channel || ch.Location != seed.Location || !ch.Covers(at) {
					continue
				}
				if ch.End.Equal(at) {
					if ending == nil {
						ending = ch
					}
					continue
				}
				return ch.coordinates(), nil
			}
		}
	}
	if ending != nil {
		return ending.coordinates(), nil
	}
	return ChannelCoordinates{}, ErrNotFound
}

func (c *Channel) coordinates() ChannelCoordinates {
	return ChannelCoordinates{
		Latitude:    c.Position.Latitude,
		Longitude:   c.Position.Longitude,
		ElevationM:  c.ElevationM,
		LocalDepthM: c.LocalDepthM,
	}
}
