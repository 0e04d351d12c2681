package assets

import (
	"io/fs"
	"path/filepath"
	"strings"

	"gallery-pipeline/internal/logging"
)

// Scanner discovers and classifies source media files.
type Scanner struct {
	sourceDir string
}

// NewScanner creates a new Scanner for the given source root.
func NewScanner(sourceDir string) *Scanner {
	return &Scanner{
		sourceDir: sourceDir,
	}
}

// Scan walks the source root and returns every file whose extension matches
// the allow-list, static assets first, then animated assets. Discovery order
// is preserved within each kind so manifest order stays deterministic.
//
// An empty result is not an error; the caller decides whether an empty batch
// is fatal.
func (s *Scanner) Scan() ([]SourceAsset, error) {
	var statics, animated []SourceAsset

	err := filepath.WalkDir(s.sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		kind := Classify(ext)
		if kind == KindOther {
			logging.Debug("Skipping unsupported file: %s", path)
			return nil
		}

		relPath, err := filepath.Rel(s.sourceDir, path)
		if err != nil {
			return err
		}

		asset := SourceAsset{
			RelPath: filepath.ToSlash(relPath),
			Kind:    kind,
		}

		if kind == KindStatic {
			statics = append(statics, asset)
		} else {
			animated = append(animated, asset)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Debug("Scanner found %d static and %d animated assets in %s",
		len(statics), len(animated), s.sourceDir)

	// Statics first: front-load the cheap transcodes before the expensive
	// ffmpeg invocations.
	return append(statics, animated...), nil
}
