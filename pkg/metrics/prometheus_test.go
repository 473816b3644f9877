package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given a manager on a fresh registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(reg),
			WithNamespace("testns"),
			WithSubsystem("testsub"),
		)

		Convey("Then all metric families register under the namespace", func() {
			So(m, ShouldNotBeNil)
			families, err := reg.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "testns_testsub_"), ShouldBeTrue)
			}
		})

		Convey("Then counters start at zero", func() {
			So(testutil.ToFloat64(m.leadsScored), ShouldEqual, 0)
			So(testutil.ToFloat64(m.batchesCreated), ShouldEqual, 0)
		})
	})
}

func TestManagerOptions(t *testing.T) {
	Convey("Given manager options", t, func() {
		Convey("Empty namespace and subsystem keep the defaults", func() {
			m := NewManager(
				WithPrometheusRegistry(prometheus.NewRegistry()),
				WithNamespace(""),
				WithSubsystem(""),
			)

			So(m.namespace, ShouldEqual, "leadscore")
			So(m.subsystem, ShouldEqual, "scoring")
		})

		Convey("Custom histogram buckets are applied", func() {
			buckets := []float64{1, 5, 10}
			m := NewManager(
				WithPrometheusRegistry(prometheus.NewRegistry()),
				WithHistogramBuckets(buckets),
			)

			So(m.histogramBuckets, ShouldResemble, buckets)
		})

		Convey("A nil registry is ignored", func() {
			m := NewManager(
				WithPrometheusRegistry(prometheus.NewRegistry()),
				WithPrometheusRegistry(nil),
			)

			So(m.registry, ShouldNotBeNil)
		})
	})
}

func TestGlobalCounters(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("Business counters increment", func() {
			before := testutil.ToFloat64(globalManager.leadsScored)
			RecordLeadScored()
			So(testutil.ToFloat64(globalManager.leadsScored), ShouldEqual, before+1)
		})

		Convey("Duplicate suppression counters increment", func() {
			before := testutil.ToFloat64(globalManager.leadsDuplicate)
			RecordLeadDuplicate()
			So(testutil.ToFloat64(globalManager.leadsDuplicate), ShouldEqual, before+1)
		})

		Convey("Batch lifecycle counters increment", func() {
			createdBefore := testutil.ToFloat64(globalManager.batchesCreated)
			expiredBefore := testutil.ToFloat64(globalManager.batchesExpired)

			RecordBatchCreated()
			RecordBatchExpired()

			So(testutil.ToFloat64(globalManager.batchesCreated), ShouldEqual, createdBefore+1)
			So(testutil.ToFloat64(globalManager.batchesExpired), ShouldEqual, expiredBefore+1)
		})

		Convey("Error counters increment", func() {
			scoringBefore := testutil.ToFloat64(globalManager.scoringErrors)
			rankingBefore := testutil.ToFloat64(globalManager.rankingErrors)
			workerBefore := testutil.ToFloat64(globalManager.workerErrorRate)

			RecordScoringError()
			RecordRankingError()
			RecordWorkerError()

			So(testutil.ToFloat64(globalManager.scoringErrors), ShouldEqual, scoringBefore+1)
			So(testutil.ToFloat64(globalManager.rankingErrors), ShouldEqual, rankingBefore+1)
			So(testutil.ToFloat64(globalManager.workerErrorRate), ShouldEqual, workerBefore+1)
		})

		Convey("Queue counters increment", func() {
			enqBefore := testutil.ToFloat64(globalManager.queueEnqueueRate)
			deqBefore := testutil.ToFloat64(globalManager.queueDequeueRate)
			errBefore := testutil.ToFloat64(globalManager.queueEnqueueErrors)

			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()

			So(testutil.ToFloat64(globalManager.queueEnqueueRate), ShouldEqual, enqBefore+1)
			So(testutil.ToFloat64(globalManager.queueDequeueRate), ShouldEqual, deqBefore+1)
			So(testutil.ToFloat64(globalManager.queueEnqueueErrors), ShouldEqual, errBefore+1)
		})
	})
}

func TestGlobalGauges(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("Queue gauges track the latest value", func() {
			UpdateQueueSize(42)
			UpdateQueueCapacity(100)
			UpdateQueueUtilization(0.42)

			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 42)
			So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
			So(testutil.ToFloat64(globalManager.queueUtilization), ShouldAlmostEqual, 0.42, 1e-9)
		})

		Convey("Worker gauges track the latest value", func() {
			UpdateWorkerCount(8)
			So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 8)
		})

		Convey("The active worker gauge moves by deltas", func() {
			UpdateWorkerActiveCount(0)
			AddWorkerActive(1)
			AddWorkerActive(1)
			AddWorkerActive(-1)

			So(testutil.ToFloat64(globalManager.workerActiveCount), ShouldEqual, 1)
		})

		Convey("Pipeline gauges track the latest value", func() {
			UpdateActiveBatches(3)
			UpdateLeadsTracked(150)

			So(testutil.ToFloat64(globalManager.activeBatches), ShouldEqual, 3)
			So(testutil.ToFloat64(globalManager.leadsTracked), ShouldEqual, 150)
		})
	})
}

func TestLabelledMetrics(t *testing.T) {
	Convey("Given the labelled HTTP and error metrics", t, func() {
		Convey("HTTP requests count per endpoint, method and status", func() {
			c := globalManager.httpRequests.WithLabelValues("upload", "POST", "201")
			before := testutil.ToFloat64(c)

			RecordHTTPRequest("upload", "POST", "201")

			So(testutil.ToFloat64(c), ShouldEqual, before+1)
		})

		Convey("Errors count per component and type", func() {
			c := globalManager.errorRateByComponent.WithLabelValues("queue", "full")
			before := testutil.ToFloat64(c)

			RecordErrorByComponent("queue", "full")

			So(testutil.ToFloat64(c), ShouldEqual, before+1)
		})

		Convey("Errors count per endpoint", func() {
			c := globalManager.errorRateByEndpoint.WithLabelValues("scores", "GET", "client_error")
			before := testutil.ToFloat64(c)

			RecordErrorByEndpoint("scores", "GET", "client_error")

			So(testutil.ToFloat64(c), ShouldEqual, before+1)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the package registry", t, func() {
		reg := GetRegistry()

		Convey("Then it gathers the service metric families", func() {
			So(reg, ShouldNotBeNil)
			families, err := reg.Gather()
			So(err, ShouldBeNil)

			found := false
			for _, f := range families {
				if f.GetName() == "leadscore_scoring_leads_scored_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}
