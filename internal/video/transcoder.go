package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gallery-pipeline/internal/logging"
	"gallery-pipeline/internal/metrics"
)

// Profile is one external encoder configuration in the fallback chain.
type Profile struct {
	// Name labels the profile in logs and metrics.
	Name string
	// Args returns the full ffmpeg argument list for a full-length encode.
	Args func(srcPath, dstPath string) []string
}

// DefaultProfiles is the fallback chain for full renditions: VP9 with CRF
// rate control first, then VP8 with a bitrate target for compatibility.
var DefaultProfiles = []Profile{
	{
		Name: "vp9",
		Args: func(srcPath, dstPath string) []string {
			return []string{
				"-y", "-i", srcPath,
				"-c:v", "libvpx-vp9",
				"-b:v", "0", "-crf", "33",
				"-an",
				dstPath,
			}
		},
	},
	{
		Name: "vp8",
		Args: func(srcPath, dstPath string) []string {
			return []string{
				"-y", "-i", srcPath,
				"-c:v", "libvpx",
				"-b:v", "1M", "-crf", "12",
				"-an",
				dstPath,
			}
		},
	},
}

// Thumbnail rendition parameters: a short looped preview.
const (
	thumbDurationSeconds = 3
	thumbFrameRate       = 15
	thumbCRF             = 40
)

// ErrEncodeFailed reports that every profile in the chain failed and only the
// degraded copy fallback was produced.
var ErrEncodeFailed = errors.New("all encoder profiles failed")

// Transcoder converts animated images to webm renditions via an external
// encoder subprocess.
type Transcoder struct {
	binary       string
	optimizedDir string
	thumbsDir    string
	thumbSize    int
	timeout      time.Duration
	profiles     []Profile
}

// Options configures a Transcoder.
type Options struct {
	Binary       string
	OptimizedDir string
	ThumbsDir    string
	ThumbSize    int
	Timeout      time.Duration
	// Profiles overrides DefaultProfiles, mainly for tests.
	Profiles []Profile
}

// Result holds the committed rendition paths, relative to the project root
// with forward slashes.
type Result struct {
	Optimized string
	Thumbnail string
}

// New creates a Transcoder.
func New(opts Options) *Transcoder {
	profiles := opts.Profiles
	if profiles == nil {
		profiles = DefaultProfiles
	}
	return &Transcoder{
		binary:       opts.Binary,
		optimizedDir: opts.OptimizedDir,
		thumbsDir:    opts.ThumbsDir,
		thumbSize:    opts.ThumbSize,
		timeout:      opts.Timeout,
		profiles:     profiles,
	}
}

// Available reports whether the encoder binary can be found. Absence is not
// fatal for a run; animated assets will fail per-item.
func (t *Transcoder) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// Process produces the full-length rendition and the short square thumbnail
// rendition for the animated image at srcPath, where relPath is its path
// relative to the source root. Outputs keep the source's subdirectory
// structure under each output root so sources in different directories can
// never collide on a shared base name. They are staged and only renamed into
// place once both renditions exist, so a thumbnail failure leaves no orphaned
// full rendition behind.
//
// If every profile fails the original file is copied into the optimized
// location as a degraded fallback and ErrEncodeFailed is returned; the asset
// gets no manifest entry.
func (t *Transcoder) Process(ctx context.Context, srcPath, relPath string) (Result, error) {
	rel := filepath.FromSlash(relPath)
	webmFile := strings.TrimSuffix(rel, filepath.Ext(rel)) + ".webm"

	for _, dir := range []string{t.optimizedDir, t.thumbsDir} {
		if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, webmFile)), 0755); err != nil {
			return Result{}, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	fullStaged := stagingPath(t.optimizedDir, webmFile)
	if err := t.encodeFull(ctx, srcPath, fullStaged); err != nil {
		t.remove(fullStaged)
		if copyErr := copyFile(srcPath, filepath.Join(t.optimizedDir, rel)); copyErr != nil {
			logging.Warn("Degraded copy fallback failed for %s: %v", srcPath, copyErr)
		} else {
			logging.Warn("Copied original %s as degraded fallback", srcPath)
		}
		return Result{}, err
	}

	thumbStaged := stagingPath(t.thumbsDir, webmFile)
	if err := t.runEncoder(ctx, "thumbnail", t.thumbArgs(srcPath, thumbStaged)); err != nil {
		t.remove(fullStaged)
		t.remove(thumbStaged)
		return Result{}, fmt.Errorf("thumbnail rendition failed: %w", err)
	}

	fullFinal := filepath.Join(t.optimizedDir, webmFile)
	thumbFinal := filepath.Join(t.thumbsDir, webmFile)
	if err := os.Rename(fullStaged, fullFinal); err != nil {
		t.remove(fullStaged)
		t.remove(thumbStaged)
		return Result{}, fmt.Errorf("failed to commit full rendition: %w", err)
	}
	if err := os.Rename(thumbStaged, thumbFinal); err != nil {
		t.remove(fullFinal)
		t.remove(thumbStaged)
		return Result{}, fmt.Errorf("failed to commit thumbnail rendition: %w", err)
	}

	return Result{
		Optimized: filepath.ToSlash(fullFinal),
		Thumbnail: filepath.ToSlash(thumbFinal),
	}, nil
}

// encodeFull tries each profile in order until one produces dstPath.
func (t *Transcoder) encodeFull(ctx context.Context, srcPath, dstPath string) error {
	for _, profile := range t.profiles {
		err := t.runEncoder(ctx, profile.Name, profile.Args(srcPath, dstPath))
		if err == nil {
			return nil
		}
		logging.Warn("Encoder profile %s failed for %s: %v", profile.Name, srcPath, err)
	}
	return ErrEncodeFailed
}

// thumbArgs builds the argument list for the short, square-cropped, looped
// preview rendition.
func (t *Transcoder) thumbArgs(srcPath, dstPath string) []string {
	filter := fmt.Sprintf("crop='min(iw,ih)':'min(iw,ih)',scale=%d:%d", t.thumbSize, t.thumbSize)
	return []string{
		"-y", "-i", srcPath,
		"-t", fmt.Sprintf("%d", thumbDurationSeconds),
		"-vf", filter,
		"-r", fmt.Sprintf("%d", thumbFrameRate),
		"-c:v", "libvpx-vp9",
		"-b:v", "0", "-crf", fmt.Sprintf("%d", thumbCRF),
		"-an",
		dstPath,
	}
}

// runEncoder invokes the external encoder with a hard wall-clock budget.
// A timeout is treated exactly like a nonzero exit: the invocation is
// abandoned and the caller's fallback logic proceeds.
func (t *Transcoder) runEncoder(ctx context.Context, profile string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logging.Debug("Executing %s %s", t.binary, strings.Join(args, " "))
	err := cmd.Run()

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		metrics.EncoderInvocationsTotal.WithLabelValues(profile, "timeout").Inc()
		return fmt.Errorf("encoder timed out after %s", t.timeout)
	case err != nil:
		metrics.EncoderInvocationsTotal.WithLabelValues(profile, "error").Inc()
		return fmt.Errorf("encoder failed: %w - %s", err, lastLine(stderr.String()))
	default:
		metrics.EncoderInvocationsTotal.WithLabelValues(profile, "success").Inc()
		return nil
	}
}

// stagingPath returns the temporary name a rendition is written to before
// commit, in the same directory as its final location.
func stagingPath(dir, file string) string {
	return filepath.Join(dir, filepath.Dir(file), ".tmp-"+filepath.Base(file))
}

func (t *Transcoder) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to remove %s: %v", path, err)
	}
}

// lastLine returns the final non-empty line of encoder stderr, which is
// where ffmpeg puts the actual reason.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
