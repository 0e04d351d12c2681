package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gallery-pipeline/internal/logging"
)

// Format identifies which variant fields an entry carries.
type Format string

const (
	// FormatImage marks an entry with webp and jpg variants.
	FormatImage Format = "image"
	// FormatWebM marks an entry with webm variants.
	FormatWebM Format = "webm"
)

// VariantSet holds the derived files for one tier of one asset. Paths are
// relative to the project root with forward slashes, so consumers can build
// public URLs by plain concatenation. Only the fields matching the entry's
// Format are populated.
type VariantSet struct {
	WebP string `json:"webp,omitempty"`
	JPEG string `json:"jpg,omitempty"`
	WebM string `json:"webm,omitempty"`
}

// Entry is one record in the manifest. An Entry is created only after every
// file it references has been written to disk, and is never mutated.
type Entry struct {
	Original  string     `json:"original"`
	Optimized VariantSet `json:"optimized"`
	Thumbnail VariantSet `json:"thumbnail"`
	Format    Format     `json:"format"`
}

// NewImageEntry builds an entry for a static image with both encodings at
// both tiers.
func NewImageEntry(original string, optimized, thumbnail VariantSet) Entry {
	return Entry{
		Original:  original,
		Optimized: optimized,
		Thumbnail: thumbnail,
		Format:    FormatImage,
	}
}

// NewVideoEntry builds an entry for an animated asset rendered to webm.
func NewVideoEntry(original, optimized, thumbnail string) Entry {
	return Entry{
		Original:  original,
		Optimized: VariantSet{WebM: optimized},
		Thumbnail: VariantSet{WebM: thumbnail},
		Format:    FormatWebM,
	}
}

// Builder accumulates entries in processing order and serializes them once.
type Builder struct {
	entries []Entry
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends an entry. Order of calls is the order of the written manifest.
func (b *Builder) Add(entry Entry) {
	b.entries = append(b.entries, entry)
}

// Len returns the number of accumulated entries.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Entries returns the accumulated entries in insertion order.
func (b *Builder) Entries() []Entry {
	return b.entries
}

// Write serializes the accumulated entries as a single ordered JSON array,
// fully replacing any previous manifest at path.
func (b *Builder) Write(path string) error {
	entries := b.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	logging.Info("Wrote manifest with %d entries to %s", len(b.entries), path)
	return nil
}

// yearPrefix matches a YYYY prefix separated by -, _ or . in a filename.
var yearPrefix = regexp.MustCompile(`^(\d{4})[-_.]`)

// YearFromFilename extracts the YYYY prefix from the base name of a manifest
// entry's original path. This is the grouping contract the presentation layer
// relies on; files without a year prefix return "" and fall into the "all"
// grouping only.
func YearFromFilename(original string) string {
	base := filepath.Base(filepath.ToSlash(original))
	if m := yearPrefix.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	return ""
}
