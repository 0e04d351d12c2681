package main

import (
	"context"
	"os"
	"time"

	"gallery-pipeline/internal/assets"
	"gallery-pipeline/internal/config"
	"gallery-pipeline/internal/images"
	"gallery-pipeline/internal/logging"
	"gallery-pipeline/internal/manifest"
	"gallery-pipeline/internal/metrics"
	"gallery-pipeline/internal/pipeline"
	"gallery-pipeline/internal/video"
)

func main() {
	start := time.Now()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	batch, err := assets.NewScanner(cfg.SourceDir).Scan()
	if err != nil {
		logging.Fatal("Failed to scan %s: %v", cfg.SourceDir, err)
	}
	if len(batch) == 0 {
		logging.Fatal("No media files found in %s, nothing to do", cfg.SourceDir)
	}
	logging.Info("Found %d media files in %s", len(batch), cfg.SourceDir)

	for _, dir := range []string{cfg.OptimizedDir, cfg.ThumbsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.Fatal("Failed to create output directory %s: %v", dir, err)
		}
	}

	images.InitVips()
	defer images.ShutdownVips()

	static := images.New(images.Options{
		OptimizedDir: cfg.OptimizedDir,
		ThumbsDir:    cfg.ThumbsDir,
		MaxWidth:     cfg.MaxWidth,
		ThumbSize:    cfg.ThumbSize,
		WebPQuality:      cfg.WebPQuality,
		WebPThumbQuality: cfg.WebPThumbQuality,
		JPEGQuality:      cfg.JPEGQuality,
		JPEGThumbQuality: cfg.JPEGThumbQuality,
	})
	animated := video.New(video.Options{
		Binary:       cfg.FFmpegBinary,
		OptimizedDir: cfg.OptimizedDir,
		ThumbsDir:    cfg.ThumbsDir,
		ThumbSize:    cfg.ThumbSize,
		Timeout:      cfg.EncodeTimeout,
	})

	coordinator := pipeline.New(pipeline.Options{
		SourceDir:    cfg.SourceDir,
		Static:       static,
		Animated:     animated,
		ShowProgress: !logging.IsDebugEnabled(),
	})

	result := coordinator.Run(context.Background(), batch)

	builder := manifest.NewBuilder()
	for _, entry := range result.Entries {
		builder.Add(entry)
	}
	if err := builder.Write(cfg.ManifestPath); err != nil {
		logging.Fatal("Failed to write manifest: %v", err)
	}
	metrics.ManifestEntriesWritten.Set(float64(builder.Len()))

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logging.Warn("Failed to write metrics file: %v", err)
		}
	}

	// Per-item failures are not fatal: the run succeeds when the batch
	// completes, and failed assets are observable in the logs only.
	logging.Info("Done in %s: %d assets in manifest, %d failed",
		time.Since(start).Round(time.Millisecond), result.Processed, result.Failed)
}
