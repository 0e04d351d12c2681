package assets

import "strings"

// Kind classifies a source file by what the pipeline does with it.
type Kind string

const (
	// KindStatic represents a still raster image.
	KindStatic Kind = "static"
	// KindAnimated represents an animated image.
	KindAnimated Kind = "animated"
	// KindOther represents an unsupported file type.
	KindOther Kind = "other"
)

// SourceAsset is one discovered input file. Immutable after discovery.
type SourceAsset struct {
	// RelPath is the path relative to the source root, forward slashes.
	RelPath string
	// Kind is the extension-based classification.
	Kind Kind
}

// StaticExtensions maps file extensions to whether they are supported
// still-image formats.
var StaticExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// AnimatedExtensions maps file extensions to whether they are supported
// animated-image formats.
var AnimatedExtensions = map[string]bool{
	".gif": true,
}

// Classify returns the Kind for a given file extension. The extension
// comparison is case-insensitive; content is never inspected.
// Returns KindOther if the extension is not recognized.
func Classify(ext string) Kind {
	ext = strings.ToLower(ext)
	if StaticExtensions[ext] {
		return KindStatic
	}
	if AnimatedExtensions[ext] {
		return KindAnimated
	}
	return KindOther
}
