package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/seisnear/internal/adapters/http/api"
	service "github.com/okian/seisnear/internal/app"
	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/internal/domain/types"
	"github.com/okian/seisnear/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDependencies records calls and answers from fixed fields.
type mockDependencies struct {
	mu        sync.Mutex
	report    model.SearchReport
	submitID  string
	submitErr error
	stored    map[string]*model.SearchReport
	searched  []model.SearchRequest
	submitted []model.SearchRequest
}

func (m *mockDependencies) Search(_ context.Context, req model.SearchRequest) model.SearchReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searched = append(m.searched, req)
	r := m.report
	r.Request = req
	return r
}

func (m *mockDependencies) Submit(_ context.Context, req model.SearchRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return "", m.submitErr
	}
	m.submitted = append(m.submitted, req)
	return m.submitID, nil
}

func (m *mockDependencies) Report(_ context.Context, id string) (*model.SearchReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.stored[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", service.ErrReportNotFound, id)
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func foundReport() model.SearchReport {
	mag := 6.1
	origin := time.Date(2024, 4, 2, 23, 58, 0, 0, time.UTC)
	ev := model.Event{ID: 1, Origin: model.Coordinates{Latitude: 23.8, Longitude: 121.6}, OriginTime: origin, Magnitude: &mag}.
		WithWindow(model.DefaultWindowLead, model.DefaultWindowTail)
	return model.SearchReport{
		ID:     "session-1",
		Status: model.StatusDone,
		Events: []model.Event{ev},
		Stations: map[int64][]model.Candidate{1: {{
			EventID:    1,
			SeedID:     model.SeedID{Network: "TW", Station: "NACB", Channel: "BHZ"},
			Position:   model.Coordinates{Latitude: 24.17, Longitude: 121.59},
			DistanceKm: 41.2,
			StartTime:  ev.StartTime,
			EndTime:    ev.EndTime,
			Icon:       model.DefaultStationIcon,
		}}},
		Outcome:  model.OutcomeFound,
		Attempts: 1,
		Radius:   1,
	}
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}).Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

const validBody = `{"lat":24.0,"lng":121.5,"radius":5,"startDate":"2024-04-01","endDate":"2024-04-03","magnitude":6,"selectedClient":"USGS"}`

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Then the health endpoint should answer", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)
		})

		Convey("And the metrics endpoint should expose the registry", func() {
			do(mux, http.MethodGet, "/healthz", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("And the stats endpoint should answer", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"stats":{"started":true}`)
			So(w.Body.String(), ShouldContainSubstring, `"generatedAt"`)
		})

		Convey("And unknown paths should not be found", func() {
			w := do(mux, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And wrong methods should not be found", func() {
			So(do(mux, http.MethodGet, "/search", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/stats", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodDelete, "/searches/x", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSearchHandler_Search(t *testing.T) {
	Convey("Given a service that finds one station", t, func() {
		deps := &mockDependencies{report: foundReport()}
		mux := newMux(deps)

		Convey("When posting a valid search", func() {
			w := do(mux, http.MethodPost, "/search", validBody)

			Convey("Then the map response should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp types.SearchResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Status, ShouldEqual, types.StatusSuccess)
				So(resp.Outcome, ShouldEqual, model.OutcomeFound)
				So(resp.Events[1].LatLng.Lat, ShouldEqual, 23.8)
				So(resp.Stations[1], ShouldHaveLength, 1)
				So(resp.Stations[1][0].SeedID, ShouldEqual, "TW.NACB..BHZ")
			})

			Convey("And the request should be converted", func() {
				So(deps.searched, ShouldHaveLength, 1)
				So(deps.searched[0].Radius, ShouldEqual, 5.0)
				So(deps.searched[0].MinMagnitude, ShouldEqual, 6.0)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/search", "{")

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"status":"error"`)
				So(deps.searched, ShouldBeEmpty)
			})
		})

		Convey("When the radius is missing", func() {
			w := do(mux, http.MethodPost, "/search", `{"lat":1,"lng":2}`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "radius")
			})
		})

		Convey("When the date format is wrong", func() {
			w := do(mux, http.MethodPost, "/search", `{"lat":1,"lng":2,"radius":3,"startDate":"yesterday"}`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "YYYY-MM-DD")
			})
		})
	})

	Convey("Given a service whose catalog fails", t, func() {
		deps := &mockDependencies{report: model.SearchReport{ID: "s", Status: model.StatusFailed, Outcome: model.OutcomeFailed, Error: "catalog down"}}
		mux := newMux(deps)

		Convey("When posting a search", func() {
			w := do(mux, http.MethodPost, "/search", validBody)

			Convey("Then the failure should be reported as a bad gateway", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(w.Body.String(), ShouldContainSubstring, "catalog down")
			})
		})
	})
}

func TestSearchHandler_Submit(t *testing.T) {
	Convey("Given a service accepting submissions", t, func() {
		deps := &mockDependencies{submitID: "abc-123"}
		mux := newMux(deps)

		Convey("When submitting a search", func() {
			w := do(mux, http.MethodPost, "/searches", validBody)

			Convey("Then it should be accepted with a location", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Header().Get("Location"), ShouldEqual, "/searches/abc-123")
				var resp types.Accepted
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.ID, ShouldEqual, "abc-123")
			})
		})
	})

	Convey("Given a service under backpressure", t, func() {
		mux := newMux(&mockDependencies{submitErr: service.ErrBackpressure})

		Convey("Then submissions should be throttled", func() {
			w := do(mux, http.MethodPost, "/searches", validBody)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
		})
	})

	Convey("Given a stopped service", t, func() {
		mux := newMux(&mockDependencies{submitErr: service.ErrNotStarted})

		Convey("Then submissions should be unavailable", func() {
			w := do(mux, http.MethodPost, "/searches", validBody)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})

	Convey("Given a service failing for another reason", t, func() {
		mux := newMux(&mockDependencies{submitErr: errors.New("disk full")})

		Convey("Then submissions should fail", func() {
			w := do(mux, http.MethodPost, "/searches", validBody)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestSearchHandler_GetSearch(t *testing.T) {
	Convey("Given a stored report", t, func() {
		r := foundReport()
		mux := newMux(&mockDependencies{stored: map[string]*model.SearchReport{r.ID: &r}})

		Convey("When fetching it", func() {
			w := do(mux, http.MethodGet, "/searches/"+r.ID, "")

			Convey("Then it should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp types.SearchResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.ID, ShouldEqual, r.ID)
				So(resp.State, ShouldEqual, model.StatusDone)
			})
		})

		Convey("When fetching an unknown id", func() {
			w := do(mux, http.MethodGet, "/searches/nope", "")

			Convey("Then it should not be found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the id is missing or nested", func() {
			So(do(mux, http.MethodGet, "/searches/", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/searches/a/b", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestKindError(t *testing.T) {
	cause := errors.New("boom")
	err := api.WrapKind("api.test", api.ErrBadRequest, cause)
	if !errors.Is(err, api.ErrBadRequest) || !errors.Is(err, cause) {
		t.Fatalf("expected %v to match both kind and cause", err)
	}
	if got := api.NewKind("api.test", api.ErrNotFound).Error(); got != "api.test: not found" {
		t.Fatalf("unexpected message %q", got)
	}
}
