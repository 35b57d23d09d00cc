package probe_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/internal/domain/types"
	"github.com/okian/seisnear/internal/probe"
	"github.com/okian/seisnear/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func doneResponse() types.SearchResponse {
	mag := 7.4
	return types.SearchResponse{
		Status:   types.StatusSuccess,
		Message:  "Found stations.",
		ID:       "abc",
		State:    model.StatusDone,
		Outcome:  model.OutcomeFound,
		Attempts: 1,
		Radius:   2,
		Events: map[int64]types.Event{
			7: {EventID: 7, StartTime: "2024-04-02 23:56:11", Mag: &mag, MagType: "mww", Region: "Taiwan"},
		},
		Stations: map[int64][]types.Station{
			7: {
				{SeedID: "TW.NACB..BHZ", Lat: 24.1738, Lon: 121.5947, Distance: 20.4},
				{SeedID: "IU.TATO.00.BHZ", Lat: 24.9735, Lon: 121.4971, Distance: 108.2},
			},
		},
	}
}

// fakeService answers like the seisnear API. Async reports turn done after
// pendingPolls polls.
func fakeService(healthy bool, pendingPolls int32) (*httptest.Server, *int32) {
	var polls int32
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			write(w, http.StatusServiceUnavailable, types.NewError("down"))
			return
		}
		write(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		var req types.SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Lat == nil {
			write(w, http.StatusBadRequest, types.NewError("lat and lng are required"))
			return
		}
		write(w, http.StatusOK, doneResponse())
	})
	mux.HandleFunc("/searches", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/searches/abc")
		write(w, http.StatusAccepted, types.Accepted{Status: "accepted", ID: "abc", Location: "/searches/abc"})
	})
	mux.HandleFunc("/searches/abc", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&polls, 1) <= pendingPolls {
			write(w, http.StatusOK, types.SearchResponse{ID: "abc", State: model.StatusPending, Message: "Search is queued."})
			return
		}
		write(w, http.StatusOK, doneResponse())
	})
	return httptest.NewServer(mux), &polls
}

func config(url string) *probe.Config {
	lat, lng := 24.0, 121.5
	return &probe.Config{
		BaseURL:      url,
		PollInterval: 5 * time.Millisecond,
		Timeout:      time.Second,
		Request:      types.SearchRequest{Lat: &lat, Lng: &lng, Radius: 2},
	}
}

func TestRun(t *testing.T) {
	Convey("Given a healthy service", t, func() {
		srv, polls := fakeService(true, 2)
		defer srv.Close()
		ctx := context.Background()
		var out bytes.Buffer

		Convey("When probing synchronously", func() {
			stats, err := probe.Run(ctx, config(srv.URL), &out)

			Convey("Then the stations should be printed in order", func() {
				So(err, ShouldBeNil)
				So(stats.ID, ShouldEqual, "abc")
				So(stats.Events, ShouldEqual, 1)
				So(stats.Stations, ShouldEqual, 2)
				So(stats.Polls, ShouldEqual, 0)
				text := out.String()
				So(text, ShouldContainSubstring, "M7.4 mww")
				So(text, ShouldContainSubstring, "1st")
				So(strings.Index(text, "TW.NACB..BHZ"), ShouldBeLessThan, strings.Index(text, "IU.TATO.00.BHZ"))
			})
		})

		Convey("When probing asynchronously", func() {
			cfg := config(srv.URL)
			cfg.Async = true
			stats, err := probe.Run(ctx, cfg, &out)

			Convey("Then it should poll until the report is done", func() {
				So(err, ShouldBeNil)
				So(stats.Polls, ShouldEqual, 3)
				So(atomic.LoadInt32(polls), ShouldEqual, 3)
				So(out.String(), ShouldContainSubstring, "outcome=found")
			})
		})

		Convey("When the request is rejected", func() {
			cfg := config(srv.URL)
			cfg.Request.Lat = nil
			_, err := probe.Run(ctx, cfg, &out)

			Convey("Then the server message should be surfaced", func() {
				So(errors.Is(err, probe.ErrRequestFailed), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "lat and lng are required")
			})
		})
	})

	Convey("Given an unhealthy service", t, func() {
		srv, _ := fakeService(false, 0)
		defer srv.Close()

		Convey("Then the probe should stop at the health check", func() {
			_, err := probe.Run(context.Background(), config(srv.URL), &bytes.Buffer{})
			So(errors.Is(err, probe.ErrUnhealthy), ShouldBeTrue)
		})
	})
}

func TestPrintReport(t *testing.T) {
	Convey("Given a degraded response with an event without stations", t, func() {
		resp := doneResponse()
		resp.Degraded = true
		resp.TimedOutNetworks = []string{"IU"}
		resp.Events[8] = types.Event{EventID: 8, StartTime: "2024-04-03 01:00:00"}
		var out bytes.Buffer

		So(probe.PrintReport(&out, &resp), ShouldBeNil)

		Convey("Then both conditions should be visible", func() {
			text := out.String()
			So(text, ShouldContainSubstring, "degraded (timed out: IU)")
			So(text, ShouldContainSubstring, "no stations")
			So(text, ShouldContainSubstring, "M?")
			So(strings.Index(text, "event 7"), ShouldBeLessThan, strings.Index(text, "event 8"))
		})
	})
}

func TestShowHelp(t *testing.T) {
	var out bytes.Buffer
	probe.ShowHelp(&out)
	if !strings.Contains(out.String(), probe.DefaultBaseURL) {
		t.Fatalf("help should mention the default url, got %q", out.String())
	}
}
