package metrics

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/saworbit/dirdelta/pkg/diff"
)

const namespace = "dirdelta"

var (
	// Registry is a dedicated Prometheus registry for all dirdelta metrics.
	Registry = prometheus.NewRegistry()

	// RunDuration measures whole create/apply runs.
	RunDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_ms",
			Help:      "Duration of patch create and apply runs in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"op"}, // create | apply
	)

	// RunTotal counts runs by operation and outcome.
	RunTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_total",
			Help:      "Total number of patch runs",
		},
		[]string{"op", "outcome"},
	)

	// ClassifiedTotal counts classified paths per manifest kind.
	ClassifiedTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classified_paths_total",
			Help:      "Number of paths classified, by kind",
		},
		[]string{"kind"}, // created | deleted | updated | unchanged
	)

	// FingerprintDuration tracks per-file hashing latency.
	FingerprintDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fingerprint_duration_ms",
			Help:      "Duration of a single file fingerprint in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	// PayloadTotal counts archive payload entries by type.
	PayloadTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_entries_total",
			Help:      "Number of payload entries written to patch archives",
		},
		[]string{"type"}, // full | delta
	)

	// PayloadBytesTotal accumulates uncompressed payload bytes by type.
	PayloadBytesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_bytes_total",
			Help:      "Uncompressed payload bytes written to patch archives",
		},
		[]string{"type"},
	)

	// DeltaSavedBytesTotal accumulates bytes saved by deltas vs full files.
	DeltaSavedBytesTotal = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delta_saved_bytes_total",
			Help:      "Cumulative bytes saved by storing edit scripts instead of full files",
		},
	)

	// DeltaSavedRatio tracks the current savings ratio (0.0 - 1.0).
	DeltaSavedRatio = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "delta_saved_ratio",
			Help:      "Current delta savings ratio (saved_bytes / new_file_bytes)",
		},
	)

	// DeltaRatio tracks per-file edit script size relative to the new content.
	DeltaRatio = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delta_ratio",
			Help:      "Edit script size divided by new file size, per updated file",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2},
		},
	)

	// BuildInfo exposes static information about the binary.
	BuildInfo = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Static information about the dirdelta binary",
		},
		[]string{"os", "arch", "version", "diff_library"},
	)
)

var (
	totalNewBytes   atomic.Int64
	totalSavedBytes atomic.Int64
)

func init() {
	Registry.MustRegister(prometheus.NewGoCollector())
}

// SetBuildInfo publishes a single info metric for the running binary.
func SetBuildInfo(version, diffLibrary string) {
	if version == "" {
		version = "dev"
	}
	if diffLibrary == "" {
		diffLibrary = "unknown"
	}
	BuildInfo.WithLabelValues(runtime.GOOS, runtime.GOARCH, version, diffLibrary).Set(1)
}

// ObserveRun records timing and outcome for a create or apply run.
func ObserveRun(start time.Time, op, outcome string) {
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	RunDuration.WithLabelValues(op).Observe(elapsed)
	RunTotal.WithLabelValues(op, outcome).Inc()
}

// AddClassified increments the classified counter for one kind.
func AddClassified(kind string, count int) {
	if count <= 0 {
		return
	}
	ClassifiedTotal.WithLabelValues(kind).Add(float64(count))
}

// ObserveFingerprint tracks the latency of hashing one file.
func ObserveFingerprint(start time.Time) {
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	FingerprintDuration.Observe(elapsed)
}

// AddPayload records one archive payload entry.
func AddPayload(payloadType string, sizeBytes int64) {
	PayloadTotal.WithLabelValues(payloadType).Inc()
	if sizeBytes > 0 {
		PayloadBytesTotal.WithLabelValues(payloadType).Add(float64(sizeBytes))
	}
}

// ObserveDelta records the outcome of one edit script.
func ObserveDelta(stats diff.Stats) {
	if stats.NewSize > 0 {
		DeltaRatio.Observe(stats.CompressionRate)
	}
	ObserveDeltaSavings(stats.NewSize, stats.PatchSize)
}

// ObserveDeltaSavings updates savings counters for one edit script.
func ObserveDeltaSavings(newBytes, patchBytes int64) {
	if newBytes <= 0 || patchBytes < 0 {
		return
	}

	saved := newBytes - patchBytes
	total := totalNewBytes.Add(newBytes)

	if saved > 0 {
		totalSavedBytes.Add(saved)
		DeltaSavedBytesTotal.Add(float64(saved))
	}

	if total > 0 {
		DeltaSavedRatio.Set(float64(totalSavedBytes.Load()) / float64(total))
	}
}

// WriteTextfile dumps the registry in Prometheus text format, suitable for
// the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
