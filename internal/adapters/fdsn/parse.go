package fdsn

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/okian/seisnear/internal/domain/catalog"
	"github.com/okian/seisnear/internal/domain/model"
)

// Column counts of the FDSN text formats.
const (
	eventColumns        = 13 // EventType is optional
	channelColumns      = 17
	maxScanTokenSize    = 1 << 20
	fdsnTimeLayout      = "2006-01-02T15:04:05"
	emptyLocationMarker = "--"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	fdsnTimeLayout,
	"2006-01-02",
}

// parseTime reads an FDSN timestamp as UTC. An empty string is the zero time.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad time %q", ErrMalformedRow, s)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrMalformedRow, s)
	}
	return v, nil
}

func splitRow(line string) []string {
	fields := strings.Split(line, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)
	return sc
}

// ParseEvents reads the fdsnws-event text format. Rows without a usable
// origin time or position are skipped and counted.
func ParseEvents(r io.Reader) ([]model.Event, int, error) {
	var (
		events  []model.Event
		skipped int
	)
	sc := newScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := parseEventRow(splitRow(line))
		if err != nil {
			skipped++
			continue
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, err
	}
	return events, skipped, nil
}

func parseEventRow(f []string) (model.Event, error) {
	if len(f) < eventColumns {
		return model.Event{}, fmt.Errorf("%w: %d columns", ErrMalformedRow, len(f))
	}
	origin, err := parseTime(f[1])
	if err != nil {
		return model.Event{}, err
	}
	if origin.IsZero() || f[2] == "" || f[3] == "" {
		return model.Event{}, fmt.Errorf("%w: no origin", ErrMalformedRow)
	}
	lat, err := parseFloat(f[2])
	if err != nil {
		return model.Event{}, err
	}
	lon, err := parseFloat(f[3])
	if err != nil {
		return model.Event{}, err
	}
	depth, err := parseFloat(f[4])
	if err != nil {
		return model.Event{}, err
	}

	e := model.Event{
		PublicID:      f[0],
		Origin:        model.Coordinates{Latitude: lat, Longitude: lon},
		DepthKm:       depth,
		OriginTime:    origin,
		MagnitudeType: f[9],
		Region:        f[12],
	}
	if f[10] != "" {
		mag, err := parseFloat(f[10])
		if err != nil {
			return model.Event{}, err
		}
		e.Magnitude = &mag
	}
	if len(f) > eventColumns {
		e.Type = f[13]
	}
	return e, nil
}

// ParseChannels reads the fdsnws-station level=channel text format into an
// inventory. Network and station order follow their first appearance.
func ParseChannels(r io.Reader) (*catalog.Inventory, int, error) {
	inv := &catalog.Inventory{}
	netIdx := make(map[string]int)
	staIdx := make(map[string]map[string]int)
	skipped := 0

	sc := newScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := splitRow(line)
		ch, err := parseChannelRow(f)
		if err != nil {
			skipped++
			continue
		}

		netCode, staCode := f[0], f[1]
		ni, ok := netIdx[netCode]
		if !ok {
			ni = len(inv.Networks)
			netIdx[netCode] = ni
			staIdx[netCode] = make(map[string]int)
			inv.Networks = append(inv.Networks, catalog.Network{Code: netCode})
		}
		net := &inv.Networks[ni]
		si, ok := staIdx[netCode][staCode]
		if !ok {
			si = len(net.Stations)
			staIdx[netCode][staCode] = si
			net.Stations = append(net.Stations, catalog.Station{
				Code:       staCode,
				Position:   ch.Position,
				ElevationM: ch.ElevationM,
			})
		}
		net.Stations[si].Channels = append(net.Stations[si].Channels, ch)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, err
	}
	return inv, skipped, nil
}

func parseChannelRow(f []string) (catalog.Channel, error) {
	if len(f) < channelColumns || f[0] == "" || f[1] == "" || f[3] == "" {
		return catalog.Channel{}, fmt.Errorf("%w: %d columns", ErrMalformedRow, len(f))
	}
	var nums [6]float64
	for i, col := range []int{4, 5, 6, 7, 8, 9} {
		v, err := parseFloat(f[col])
		if err != nil {
			return catalog.Channel{}, err
		}
		nums[i] = v
	}
	rate, err := parseFloat(f[14])
	if err != nil {
		return catalog.Channel{}, err
	}
	start, err := parseTime(f[15])
	if err != nil {
		return catalog.Channel{}, err
	}
	end, err := parseTime(f[16])
	if err != nil {
		return catalog.Channel{}, err
	}

	loc := f[2]
	if loc == emptyLocationMarker {
		loc = ""
	}
	return catalog.Channel{
		Location:    loc,
		Code:        f[3],
		Position:    model.Coordinates{Latitude: nums[0], Longitude: nums[1]},
		ElevationM:  nums[2],
		LocalDepthM: nums[3],
		Azimuth:     nums[4],
		Dip:         nums[5],
		Sensor:      f[10],
		SampleRate:  rate,
		Start:       start,
		End:         end,
	}, nil
}

// BulkBody renders a POST body for fdsnws-station.
func BulkBody(q catalog.StationQuery) string {
	var b strings.Builder
	b.WriteString("level=channel\n")
	b.WriteString("format=text\n")
	fmt.Fprintf(&b, "latitude=%s\n", strconv.FormatFloat(q.Origin.Latitude, 'f', -1, 64))
	fmt.Fprintf(&b, "longitude=%s\n", strconv.FormatFloat(q.Origin.Longitude, 'f', -1, 64))
	fmt.Fprintf(&b, "maxradius=%s\n", strconv.FormatFloat(q.MaxRadius, 'f', -1, 64))
	fmt.Fprintf(&b, "includerestricted=%t\n", q.IncludeRestricted)
	fmt.Fprintf(&b, "matchtimeseries=%t\n", q.MatchTimeseries)
	b.WriteString("nodata=204\n")
	for _, row := range q.Rows {
		fmt.Fprintf(&b, "%s %s %s %s %s %s\n",
			orWildcard(row.Network),
			orWildcard(row.Station),
			bulkLocation(row.Location),
			orWildcard(strings.Join(row.Channels, ",")),
			formatTime(row.Start),
			formatTime(row.End),
		)
	}
	return b.String()
}

func orWildcard(s string) string {
	if s == "" {
		return catalog.Wildcard
	}
	return s
}

func bulkLocation(loc string) string {
	switch loc {
	case catalog.Wildcard:
		return loc
	case "":
		return emptyLocationMarker
	default:
		return loc
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return catalog.Wildcard
	}
	return t.UTC().Format(fdsnTimeLayout)
}
