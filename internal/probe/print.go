package probe

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/okian/seisnear/internal/domain/types"
)

// PrintReport writes a search response as one table per event, events in
// start-time order and stations in distance order.
func PrintReport(w io.Writer, resp *types.SearchResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "search %s: %s\n", resp.ID, resp.Message)
	fmt.Fprintf(tw, "outcome=%s attempts=%d radius=%s°", resp.Outcome, resp.Attempts, humanize.Ftoa(resp.Radius))
	if resp.Degraded {
		fmt.Fprintf(tw, " degraded (timed out: %s)", strings.Join(resp.TimedOutNetworks, ","))
	}
	fmt.Fprintln(tw)

	ids := make([]int64, 0, len(resp.Events))
	for id := range resp.Events {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := resp.Events[ids[i]], resp.Events[ids[j]]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		ev := resp.Events[id]
		fmt.Fprintf(tw, "\nevent %d\t%s\t%s\t%s\n", id, ev.StartTime, magnitude(ev), ev.Region)
		stations := resp.Stations[id]
		if len(stations) == 0 {
			fmt.Fprintln(tw, "  no stations")
			continue
		}
		fmt.Fprintln(tw, "  #\tchannel\tdistance\tlat\tlon")
		for i, s := range stations {
			fmt.Fprintf(tw, "  %s\t%s\t%s km\t%.4f\t%.4f\n",
				humanize.Ordinal(i+1), s.SeedID, humanize.CommafWithDigits(s.Distance, 1), s.Lat, s.Lon)
		}
	}
	return tw.Flush()
}

func magnitude(ev types.Event) string {
	if ev.Mag == nil {
		return "M?"
	}
	mag := fmt.Sprintf("M%.1f", *ev.Mag)
	if ev.MagType != "" {
		mag += " " + ev.MagType
	}
	return mag
}
