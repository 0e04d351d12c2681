package metrics

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// registry is private: the pipeline is a one-shot batch process with no
// scrape endpoint, so metrics are dumped to a textfile at the end of a run.
var registry = prometheus.NewRegistry()

// Pipeline metrics
var (
	AssetsProcessedTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_assets_processed_total",
			Help: "Total number of source assets processed, by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	AssetDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_asset_duration_seconds",
			Help:    "Per-asset processing duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"kind"},
	)

	EncoderInvocationsTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_encoder_invocations_total",
			Help: "Total external encoder invocations, by profile and outcome",
		},
		[]string{"profile", "status"},
	)

	ManifestEntriesWritten = promauto.With(registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_manifest_entries_written",
			Help: "Number of entries in the manifest written by the last run",
		},
	)
)

// WriteTextfile writes all registered metrics to path in the Prometheus text
// exposition format, suitable for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}
