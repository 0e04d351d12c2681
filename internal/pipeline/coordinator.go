package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"gallery-pipeline/internal/assets"
	"gallery-pipeline/internal/images"
	"gallery-pipeline/internal/logging"
	"gallery-pipeline/internal/manifest"
	"gallery-pipeline/internal/metrics"
	"gallery-pipeline/internal/video"

	"github.com/schollz/progressbar/v3"
)

// StaticTranscoder produces the four still-image variants for one source.
// relPath is the source's path relative to the source root; output paths
// mirror its subdirectory structure.
type StaticTranscoder interface {
	Process(srcPath, relPath string) (images.Variants, error)
}

// AnimatedTranscoder produces the webm renditions for one animated source.
type AnimatedTranscoder interface {
	Available() bool
	Process(ctx context.Context, srcPath, relPath string) (video.Result, error)
}

// Coordinator drives the batch: one asset at a time, dispatched to the
// transcoder matching its kind. Only the encodes inside a single asset run
// concurrently, which bounds subprocess and CPU fan-out on build machines.
type Coordinator struct {
	sourceDir    string
	static       StaticTranscoder
	animated     AnimatedTranscoder
	showProgress bool
}

// Options configures a Coordinator.
type Options struct {
	SourceDir    string
	Static       StaticTranscoder
	Animated     AnimatedTranscoder
	ShowProgress bool
}

// Result is the explicit accumulator for one run. Entries appear in
// processing order: statics first, then animated, discovery order within
// each kind.
type Result struct {
	Entries   []manifest.Entry
	Processed int
	Failed    int
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	return &Coordinator{
		sourceDir:    opts.SourceDir,
		static:       opts.Static,
		animated:     opts.Animated,
		showProgress: opts.ShowProgress,
	}
}

// Run processes every asset in the batch. A single asset's failure never
// aborts the run; failures are logged and the asset is simply absent from
// the result.
func (c *Coordinator) Run(ctx context.Context, batch []assets.SourceAsset) Result {
	if !c.animated.Available() {
		logging.Warn("External video encoder not found; animated assets will fail")
	}

	var bar *progressbar.ProgressBar
	if c.showProgress {
		bar = progressbar.Default(int64(len(batch)), "processing media")
	}

	var result Result
	for _, asset := range batch {
		entry, err := c.processAsset(ctx, asset)
		if err != nil {
			logging.Error("Failed to process %s: %v", asset.RelPath, err)
			result.Failed++
		} else {
			result.Entries = append(result.Entries, entry)
			result.Processed++
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	logging.Info("Batch complete: %d processed, %d failed", result.Processed, result.Failed)
	return result
}

// processAsset handles one asset. Panics from encode internals are recovered
// here so a malformed file cannot take down the batch.
func (c *Coordinator) processAsset(ctx context.Context, asset assets.SourceAsset) (entry manifest.Entry, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing: %v", r)
		}
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.AssetsProcessedTotal.WithLabelValues(string(asset.Kind), status).Inc()
		metrics.AssetDuration.WithLabelValues(string(asset.Kind)).Observe(time.Since(start).Seconds())
	}()

	srcPath := filepath.Join(c.sourceDir, filepath.FromSlash(asset.RelPath))
	original := filepath.ToSlash(srcPath)

	switch asset.Kind {
	case assets.KindStatic:
		variants, perr := c.static.Process(srcPath, asset.RelPath)
		if perr != nil {
			return manifest.Entry{}, perr
		}
		return manifest.NewImageEntry(original,
			manifest.VariantSet{WebP: variants.FullWebP, JPEG: variants.FullJPEG},
			manifest.VariantSet{WebP: variants.ThumbWebP, JPEG: variants.ThumbJPEG},
		), nil

	case assets.KindAnimated:
		rendition, perr := c.animated.Process(ctx, srcPath, asset.RelPath)
		if perr != nil {
			return manifest.Entry{}, perr
		}
		return manifest.NewVideoEntry(original, rendition.Optimized, rendition.Thumbnail), nil

	default:
		return manifest.Entry{}, fmt.Errorf("unknown asset kind %q", asset.Kind)
	}
}
