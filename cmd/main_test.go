package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/seisnear/internal/adapters/fdsn"
	"github.com/okian/seisnear/internal/config"
	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/internal/domain/types"
	"github.com/okian/seisnear/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const (
	eventBody = `#EventID|Time|Latitude|Longitude|Depth/km|Author|Catalog|Contributor|ContributorID|MagType|Magnitude|MagAuthor|EventLocationName|EventType
us7000abcd|2024-04-02T23:58:11.000|23.819|121.562|34.8|us|us|us|us7000abcd|mww|7.4|us|15 km S of Hualien City, Taiwan|earthquake
`
	channelBody = `#Network|Station|Location|Channel|Latitude|Longitude|Elevation|Depth|Azimuth|Dip|SensorDescription|Scale|ScaleFreq|ScaleUnits|SampleRate|StartTime|EndTime
TW|NACB|--|BHZ|24.1738|121.5947|68.0|0.0|0.0|-90.0|STS-2|1.0E9|1.0|M/S|20.0|2010-01-01T00:00:00|
TW|NACB|--|LHZ|24.1738|121.5947|68.0|0.0|0.0|-90.0|STS-2|1.0E9|1.0|M/S|1.0|2010-01-01T00:00:00|
IU|TATO|00|BHZ|24.9735|121.4971|53.0|0.0|0.0|-90.0|STS-1|2.0E9|0.02|M/S|20.0|2000-01-01T00:00:00|
`
)

// fakeFDSN serves one event and three channels.
func fakeFDSN() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/event/query", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(eventBody))
	})
	mux.HandleFunc("/station/query", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(channelBody))
	})
	return httptest.NewServer(mux)
}

func TestNewService(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)

		convey.Convey("When building the service", func() {
			svc, err := newService(ctx, cfg, fdsn.New(), logger.Get())

			convey.Convey("Then it should be ready to start", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc, convey.ShouldNotBeNil)
				convey.So(svc.GetStats()["workerCount"], convey.ShouldEqual, cfg.WorkerCount)
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			cfg.TopK = 0
			_, err := newService(ctx, cfg, fdsn.New(), logger.Get())

			convey.Convey("Then building should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a store path is configured", func() {
			dir, err := os.MkdirTemp("", "seisnear-main-*")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = os.RemoveAll(dir) }()
			cfg.StorePath = dir

			svc, err := newService(ctx, cfg, fdsn.New(), logger.Get())

			convey.Convey("Then the service should use it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				svc.Stop()
			})
		})
	})
}

func TestEndToEndSearch(t *testing.T) {
	convey.Convey("Given a service wired to FDSN test servers", t, func() {
		ctx := context.Background()
		upstream := fakeFDSN()
		defer upstream.Close()

		cfg := config.New(ctx)
		client := fdsn.New(
			fdsn.WithEventServiceURL(upstream.URL+"/event/"),
			fdsn.WithStationServiceURL(upstream.URL+"/station/"),
			fdsn.WithRateLimit(0, 0),
		)
		svc, err := newService(ctx, cfg, client, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newHTTPServer(cfg, svc).Handler)
		defer srv.Close()

		convey.Convey("When posting a synchronous search", func() {
			body := `{"lat":24.0,"lng":121.5,"radius":2,"startDate":"2024-04-01","endDate":"2024-04-03","magnitude":6}`
			resp, err := http.Post(srv.URL+"/search", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			var out types.SearchResponse
			convey.So(json.NewDecoder(resp.Body).Decode(&out), convey.ShouldBeNil)

			convey.Convey("Then the nearest approved channels should be returned in distance order", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(out.Outcome, convey.ShouldEqual, model.OutcomeFound)
				convey.So(out.Events, convey.ShouldHaveLength, 1)
				for id, ev := range out.Events {
					convey.So(ev.Type, convey.ShouldEqual, "earthquake")
					stations := out.Stations[id]
					convey.So(stations, convey.ShouldHaveLength, 2)
					convey.So(stations[0].SeedID, convey.ShouldEqual, "TW.NACB..BHZ")
					convey.So(stations[1].SeedID, convey.ShouldEqual, "IU.TATO.00.BHZ")
					convey.So(stations[0].Distance, convey.ShouldBeLessThan, stations[1].Distance)
				}
			})
		})

		convey.Convey("When fetching the API description", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			convey.Convey("Then it should be served", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When submitting an asynchronous search", func() {
			body := `{"lat":24.0,"lng":121.5,"radius":2}`
			resp, err := http.Post(srv.URL+"/searches", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			var accepted types.Accepted
			convey.So(json.NewDecoder(resp.Body).Decode(&accepted), convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)

			convey.Convey("Then polling should eventually return the finished report", func() {
				var out types.SearchResponse
				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) {
					r, err := http.Get(srv.URL + accepted.Location)
					convey.So(err, convey.ShouldBeNil)
					_ = json.NewDecoder(r.Body).Decode(&out)
					_ = r.Body.Close()
					if out.State == model.StatusDone {
						break
					}
					time.Sleep(20 * time.Millisecond)
				}
				convey.So(out.State, convey.ShouldEqual, model.StatusDone)
				convey.So(out.Outcome, convey.ShouldEqual, model.OutcomeFound)
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("Then updating system metrics should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("And the updater loops should stop with their context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			svc, err := newService(ctx, config.New(ctx), fdsn.New(), logger.Get())
			convey.So(err, convey.ShouldBeNil)

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("updaters did not stop")
			}
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}
