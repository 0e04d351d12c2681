package images

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gallery-pipeline/internal/logging"
	"gallery-pipeline/internal/workers"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	// Source decoders for the pure-Go JPEG pipeline. JPEG, PNG, GIF, TIFF
	// and BMP are registered by imaging itself.
	_ "golang.org/x/image/webp"
)

// Transcoder produces the four derived variants of a static image:
// two tiers (full, thumbnail) in two encodings (webp, jpeg).
type Transcoder struct {
	optimizedDir     string
	thumbsDir        string
	maxWidth         int
	thumbSize        int
	webpQuality      int
	webpThumbQuality int
	jpegQuality      int
	jpegThumbQuality int
}

// Options configures a Transcoder.
type Options struct {
	OptimizedDir string
	ThumbsDir    string
	MaxWidth     int
	ThumbSize    int
	// Full-tier and thumbnail-tier quality settings per encoding.
	WebPQuality      int
	WebPThumbQuality int
	JPEGQuality      int
	JPEGThumbQuality int
}

// Variants holds the committed output paths for one asset, relative to the
// project root with forward slashes.
type Variants struct {
	FullWebP  string
	FullJPEG  string
	ThumbWebP string
	ThumbJPEG string
}

// New creates a Transcoder. InitVips must have been called before Process.
func New(opts Options) *Transcoder {
	return &Transcoder{
		optimizedDir:     opts.OptimizedDir,
		thumbsDir:        opts.ThumbsDir,
		maxWidth:         opts.MaxWidth,
		thumbSize:        opts.ThumbSize,
		webpQuality:      opts.WebPQuality,
		webpThumbQuality: opts.WebPThumbQuality,
		jpegQuality:      opts.JPEGQuality,
		jpegThumbQuality: opts.JPEGThumbQuality,
	}
}

// variantJob is one (tier, encoding) encode writing to a staged path.
type variantJob struct {
	name   string
	dir    string
	file   string
	encode func(srcPath, dstPath string) error
}

// variantFile maps a source path relative to the source root onto its output
// name under an output root, keeping the subdirectory structure so sources
// in different directories can never collide on a shared base name.
func variantFile(relPath, ext string) string {
	rel := filepath.FromSlash(relPath)
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + ext
}

// Process generates all four variants for the image at srcPath, where
// relPath is its path relative to the source root. The encodes run
// concurrently with each other, bounded by the worker count. Outputs are
// staged under temporary names and renamed into place only after every
// encode has succeeded, so a failure never leaves partial variants behind.
func (t *Transcoder) Process(srcPath, relPath string) (Variants, error) {
	webpFile := variantFile(relPath, ".webp")
	jpegFile := variantFile(relPath, ".jpg")

	jobs := []variantJob{
		{"full/webp", t.optimizedDir, webpFile, t.encodeFullWebP},
		{"full/jpg", t.optimizedDir, jpegFile, t.encodeFullJPEG},
		{"thumb/webp", t.thumbsDir, webpFile, t.encodeThumbWebP},
		{"thumb/jpg", t.thumbsDir, jpegFile, t.encodeThumbJPEG},
	}

	for _, job := range jobs {
		if err := os.MkdirAll(filepath.Dir(filepath.Join(job.dir, job.file)), 0755); err != nil {
			return Variants{}, fmt.Errorf("failed to create output directory for %s: %w", job.name, err)
		}
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	sem := make(chan struct{}, workers.Count(len(jobs)))

	for _, job := range jobs {
		wg.Add(1)
		go func(job variantJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := job.encode(srcPath, stagingPath(job.dir, job.file)); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", job.name, err))
				mu.Unlock()
			}
		}(job)
	}
	wg.Wait()

	if len(errs) > 0 {
		t.removeStaged(jobs)
		return Variants{}, errs[0]
	}

	for _, job := range jobs {
		if err := os.Rename(stagingPath(job.dir, job.file), filepath.Join(job.dir, job.file)); err != nil {
			t.removeStaged(jobs)
			return Variants{}, fmt.Errorf("failed to commit %s: %w", job.name, err)
		}
	}

	logging.Debug("Produced 4 variants for %s", srcPath)

	return Variants{
		FullWebP:  filepath.ToSlash(filepath.Join(t.optimizedDir, webpFile)),
		FullJPEG:  filepath.ToSlash(filepath.Join(t.optimizedDir, jpegFile)),
		ThumbWebP: filepath.ToSlash(filepath.Join(t.thumbsDir, webpFile)),
		ThumbJPEG: filepath.ToSlash(filepath.Join(t.thumbsDir, jpegFile)),
	}, nil
}

func (t *Transcoder) removeStaged(jobs []variantJob) {
	for _, job := range jobs {
		if err := os.Remove(stagingPath(job.dir, job.file)); err != nil && !os.IsNotExist(err) {
			logging.Warn("Failed to remove staged variant: %v", err)
		}
	}
}

// stagingPath returns the temporary name a variant is written to before
// commit. Staging files live next to their final location so the commit
// rename never crosses filesystems.
func stagingPath(dir, file string) string {
	return filepath.Join(dir, filepath.Dir(file), ".tmp-"+filepath.Base(file))
}

// encodeFullWebP produces the full-tier webp variant using libvips.
func (t *Transcoder) encodeFullWebP(srcPath, dstPath string) error {
	ref, err := vips.LoadImageFromFile(srcPath, nil)
	if err != nil {
		return fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if ref.Width() > t.maxWidth {
		scale := float64(t.maxWidth) / float64(ref.Width())
		if err := ref.Resize(scale, vips.KernelLanczos3); err != nil {
			return fmt.Errorf("vips resize failed: %w", err)
		}
	}

	return exportWebP(ref, dstPath, t.webpQuality)
}

// encodeThumbWebP produces the thumbnail-tier webp variant: a center-cropped
// square using vips smart thumbnailing.
func (t *Transcoder) encodeThumbWebP(srcPath, dstPath string) error {
	ref, err := vips.LoadImageFromFile(srcPath, nil)
	if err != nil {
		return fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if err := ref.Thumbnail(t.thumbSize, t.thumbSize, vips.InterestingCentre); err != nil {
		return fmt.Errorf("vips thumbnail failed: %w", err)
	}

	return exportWebP(ref, dstPath, t.webpThumbQuality)
}

func exportWebP(ref *vips.ImageRef, dstPath string, quality int) error {
	params := vips.NewWebpExportParams()
	params.Quality = quality
	data, _, err := ref.ExportWebp(params)
	if err != nil {
		return fmt.Errorf("vips webp export failed: %w", err)
	}
	if err := os.WriteFile(dstPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write webp: %w", err)
	}
	return nil
}

// encodeFullJPEG produces the full-tier jpeg variant with the pure-Go
// imaging pipeline.
func (t *Transcoder) encodeFullJPEG(srcPath, dstPath string) error {
	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	return writeJPEG(fitWidth(img, t.maxWidth), dstPath, t.jpegQuality)
}

// encodeThumbJPEG produces the thumbnail-tier jpeg variant.
func (t *Transcoder) encodeThumbJPEG(srcPath, dstPath string) error {
	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	thumb := imaging.Fill(img, t.thumbSize, t.thumbSize, imaging.Center, imaging.Lanczos)
	return writeJPEG(thumb, dstPath, t.jpegThumbQuality)
}

// fitWidth downsizes img so its width does not exceed maxWidth, preserving
// aspect ratio. Images at or below the cap are returned unchanged: sources
// are never upscaled.
func fitWidth(img image.Image, maxWidth int) image.Image {
	if img.Bounds().Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
}

func writeJPEG(img image.Image, dstPath string, quality int) error {
	f, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		f.Close()
		return fmt.Errorf("jpeg encode failed: %w", err)
	}
	return f.Close()
}
