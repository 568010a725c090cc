package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// gathered returns the summed value of a family (counter, gauge or histogram
// sample count) restricted to samples carrying all the given label pairs.
func gathered(reg prometheus.Gatherer, name string, labels map[string]string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !hasLabels(m, labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	for k, v := range want {
		found := false
		for _, lp := range m.GetLabel() {
			if lp.GetName() == k && lp.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(reg),
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithDurationBuckets([]float64{1, 2}),
			WithConstLabels(map[string]string{"dataset": "opl"}),
		)

		Convey("Then its metrics are registered under the custom namespace", func() {
			m.stageRowsIn.WithLabelValues("raw").Set(3)
			So(gathered(reg, "test_unit_stage_rows_in", map[string]string{"stage": "raw", "dataset": "opl"}), ShouldEqual, 3)
		})
	})
}

func TestRecorders(t *testing.T) {
	Convey("Given the global recorders", t, func() {
		Convey("When stage metrics are recorded", func() {
			before := gathered(customRegistry, "powerlift_pipeline_rows_dropped_total", map[string]string{"stage": "raw", "reason": "invalid_place"})
			RecordRowsDropped("raw", "invalid_place", 7)
			RecordRowsDropped("raw", "invalid_place", 0)
			SetStageRows("raw", 10, 3)
			ObserveStageDuration("raw", 1.5)

			Convey("Then the values are visible in the registry", func() {
				after := gathered(customRegistry, "powerlift_pipeline_rows_dropped_total", map[string]string{"stage": "raw", "reason": "invalid_place"})
				So(after-before, ShouldEqual, 7)
				So(gathered(customRegistry, "powerlift_pipeline_stage_rows_out", map[string]string{"stage": "raw"}), ShouldEqual, 3)
				So(gathered(customRegistry, "powerlift_pipeline_stage_duration_seconds", map[string]string{"stage": "raw"}), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When elo and identity metrics are recorded", func() {
			before := gathered(customRegistry, "powerlift_pipeline_elo_segments_total", map[string]string{"outcome": "skipped"})
			RecordEloMeet()
			RecordEloSegments(4, 2)
			RecordIdentityCollisions(1)
			RecordInvariantViolation("row_count")
			UpdateIdentities(12)

			Convey("Then the counters move", func() {
				after := gathered(customRegistry, "powerlift_pipeline_elo_segments_total", map[string]string{"outcome": "skipped"})
				So(after-before, ShouldEqual, 2)
				So(gathered(customRegistry, "powerlift_pipeline_identities", nil), ShouldEqual, 12)
			})
		})

		Convey("When store metrics are recorded", func() {
			So(func() {
				RecordStoreWrite("base", 1024)
				RecordStoreOperation("put", nil)
				RecordStoreOperation("get", errors.New("boom"))
			}, ShouldNotPanic)
			So(gathered(customRegistry, "powerlift_pipeline_store_operations_total", map[string]string{"op": "get", "result": "error"}), ShouldBeGreaterThanOrEqualTo, 1)
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a textfile path", t, func() {
		path := filepath.Join(t.TempDir(), "pipeline.prom")
		RecordEloMeet()

		Convey("When the registry is written", func() {
			err := WriteTextfile(path)

			Convey("Then the file holds the exposition", func() {
				So(err, ShouldBeNil)
				b, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(strings.Contains(string(b), "powerlift_pipeline_elo_meets_total"), ShouldBeTrue)
			})
		})

		Convey("When the path is empty", func() {
			So(WriteTextfile(""), ShouldBeNil)
		})

		Convey("When the directory does not exist", func() {
			err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
			So(errors.Is(err, ErrWriteTextfile), ShouldBeTrue)
		})
	})
}
