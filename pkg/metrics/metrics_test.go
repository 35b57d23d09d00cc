package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors are registered on that registry", func() {
				So(manager, ShouldNotBeNil)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom naming", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithPrometheusRegistry(registry),
			)
			manager.radiusEscalated.Inc()

			Convey("Then names carry the namespace and subsystem", func() {
				So(testutil.CollectAndCount(registry, "test_unit_radius_escalations_total"), ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording candidates", func() {
			before := testutil.ToFloat64(globalManager.candidatesInserted)
			rejectedBefore := testutil.ToFloat64(globalManager.candidatesRejected)
			RecordCandidate(true)
			RecordCandidate(true)
			RecordCandidate(false)

			Convey("Then retained and rejected are counted separately", func() {
				So(testutil.ToFloat64(globalManager.candidatesInserted)-before, ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.candidatesRejected)-rejectedBefore, ShouldEqual, 1)
			})
		})

		Convey("When recording searches", func() {
			before := testutil.ToFloat64(globalManager.searches.WithLabelValues("exhausted"))
			RecordSearch("exhausted", 12, 8)

			Convey("Then the outcome counter moves", func() {
				So(testutil.ToFloat64(globalManager.searches.WithLabelValues("exhausted"))-before, ShouldEqual, 1)
			})
		})

		Convey("When recording the remaining collectors", func() {
			So(func() {
				RecordRadiusEscalation()
				RecordEventsFound(3)
				RecordEventSkipped()
				RecordEventDuplicate()
				RecordProducerStarted()
				RecordProducerTimedOut()
				RecordProducerDuration(4)
				RecordResolveFailure()
				RecordCatalogRequest("stations", "ok", 120)
				UpdateQueueSize(3)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("full")
				UpdateWorkerCount(4)
				RecordJobLatency(10)
				RecordJobError()
				RecordStoreOperation("save", "ok")
				UpdateStoreRecords(2)
				RecordHTTPRequest("search", "POST", "200")
				RecordHTTPRequestDuration("search", "POST", "200", 5)
				RecordHTTPError("search", "POST", "rate_limit", "medium")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)

			Convey("Then the custom registry gathers without error", func() {
				_, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
			})
		})
	})
}
