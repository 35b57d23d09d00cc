package model

// SeedID is the network/station/location/channel composite key of a channel.
type SeedID struct {
	Network  string `json:"network"`
	Station  string `json:"station"`
	Location string `json:"location"`
	Channel  string `json:"channel"`
}

// String renders NET.STA.LOC.CHA. An empty location stays empty, as in "IU.ANMO..BHZ".
func (s SeedID) String() string {
	return s.Network + "." + s.Station + "." + s.Location + "." + s.Channel
}
