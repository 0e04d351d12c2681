package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeEncoder writes a shell script standing in for ffmpeg. The script exits
// nonzero when any argument equals failOn; otherwise it writes a byte to the
// last argument (the output path).
func fakeEncoder(t *testing.T, failOn string) string {
	t.Helper()
	script := `#!/bin/sh
for a in "$@"; do
  if [ "$a" = "` + failOn + `" ]; then
    exit 1
  fi
done
for last in "$@"; do :; done
echo data > "$last"
`
	if failOn == "" {
		script = `#!/bin/sh
for last in "$@"; do :; done
echo data > "$last"
`
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake encoder: %v", err)
	}
	return path
}

func slowEncoder(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slow-ffmpeg")
	script := "#!/bin/sh\nsleep 10\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write slow encoder: %v", err)
	}
	return path
}

func testTranscoder(t *testing.T, binary string, profiles []Profile) (*Transcoder, string, string) {
	t.Helper()
	root := t.TempDir()
	optimized := filepath.Join(root, "images-optimized")
	thumbs := filepath.Join(root, "images-thumbs")
	for _, dir := range []string{optimized, thumbs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
	}
	tr := New(Options{
		Binary:       binary,
		OptimizedDir: optimized,
		ThumbsDir:    thumbs,
		ThumbSize:    400,
		Timeout:      5 * time.Second,
		Profiles:     profiles,
	})
	return tr, optimized, thumbs
}

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "party.gif")
	if err := os.WriteFile(path, []byte("GIF89a"), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}
	return path
}

func TestProcessSuccess(t *testing.T) {
	tr, optimized, thumbs := testTranscoder(t, fakeEncoder(t, ""), nil)
	src := writeSource(t, t.TempDir())

	result, err := tr.Process(context.Background(), src, "party.gif")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if filepath.Base(result.Optimized) != "party.webm" {
		t.Errorf("Unexpected optimized path: %s", result.Optimized)
	}
	if filepath.Base(result.Thumbnail) != "party.webm" {
		t.Errorf("Unexpected thumbnail path: %s", result.Thumbnail)
	}
	if strings.Contains(result.Optimized, "\\") {
		t.Errorf("Expected forward slashes, got %s", result.Optimized)
	}

	for _, path := range []string{
		filepath.Join(optimized, "party.webm"),
		filepath.Join(thumbs, "party.webm"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected rendition at %s: %v", path, err)
		}
	}
}

func TestProcessMirrorsSourceSubdirectories(t *testing.T) {
	tr, optimized, thumbs := testTranscoder(t, fakeEncoder(t, ""), nil)
	srcRoot := t.TempDir()
	for _, sub := range []string{"2023", "2024"} {
		if err := os.MkdirAll(filepath.Join(srcRoot, sub), 0755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
		writeSource(t, filepath.Join(srcRoot, sub))
	}

	// Same base name in two directories must yield two distinct renditions.
	for _, sub := range []string{"2023", "2024"} {
		src := filepath.Join(srcRoot, sub, "party.gif")
		result, err := tr.Process(context.Background(), src, sub+"/party.gif")
		if err != nil {
			t.Fatalf("Process failed for %s: %v", src, err)
		}
		if !strings.HasSuffix(result.Optimized, sub+"/party.webm") {
			t.Errorf("Expected subdirectory preserved, got %s", result.Optimized)
		}
	}

	for _, dir := range []string{optimized, thumbs} {
		for _, sub := range []string{"2023", "2024"} {
			if _, err := os.Stat(filepath.Join(dir, sub, "party.webm")); err != nil {
				t.Errorf("Expected rendition under %s/%s: %v", dir, sub, err)
			}
		}
	}
}

func TestProcessFallsBackToSecondProfile(t *testing.T) {
	profiles := []Profile{
		{
			Name: "primary",
			Args: func(src, dst string) []string {
				return []string{"--fail", "-i", src, dst}
			},
		},
		{
			Name: "secondary",
			Args: func(src, dst string) []string {
				return []string{"-i", src, dst}
			},
		},
	}
	tr, optimized, _ := testTranscoder(t, fakeEncoder(t, "--fail"), profiles)
	src := writeSource(t, t.TempDir())

	result, err := tr.Process(context.Background(), src, "party.gif")
	if err != nil {
		t.Fatalf("Expected fallback profile to succeed, got: %v", err)
	}
	if _, err := os.Stat(filepath.Join(optimized, "party.webm")); err != nil {
		t.Errorf("Expected committed full rendition: %v", err)
	}
	if result.Optimized == "" || result.Thumbnail == "" {
		t.Errorf("Expected populated result, got %+v", result)
	}
}

func TestProcessAllProfilesFailCopiesOriginal(t *testing.T) {
	profiles := []Profile{
		{Name: "a", Args: func(src, dst string) []string { return []string{"--fail", dst} }},
		{Name: "b", Args: func(src, dst string) []string { return []string{"--fail", dst} }},
	}
	tr, optimized, thumbs := testTranscoder(t, fakeEncoder(t, "--fail"), profiles)
	src := writeSource(t, t.TempDir())

	_, err := tr.Process(context.Background(), src, "party.gif")
	if !errors.Is(err, ErrEncodeFailed) {
		t.Fatalf("Expected ErrEncodeFailed, got: %v", err)
	}

	// Degraded delivery: the original is copied into the output location,
	// but no webm renditions exist and nothing is staged.
	if _, err := os.Stat(filepath.Join(optimized, "party.gif")); err != nil {
		t.Errorf("Expected degraded copy of original: %v", err)
	}
	assertNoWebmOrStaging(t, optimized)
	assertNoWebmOrStaging(t, thumbs)
}

func TestProcessTimeoutIsAbandoned(t *testing.T) {
	tr, optimized, _ := testTranscoder(t, slowEncoder(t), nil)
	tr.timeout = 100 * time.Millisecond
	src := writeSource(t, t.TempDir())

	start := time.Now()
	_, err := tr.Process(context.Background(), src, "party.gif")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrEncodeFailed) {
		t.Fatalf("Expected ErrEncodeFailed after timeouts, got: %v", err)
	}
	// Two profiles at 100ms each, plus the copy fallback; far below the
	// encoder's 10s sleep.
	if elapsed > 5*time.Second {
		t.Errorf("Timeout not enforced, took %s", elapsed)
	}
	if _, err := os.Stat(filepath.Join(optimized, "party.gif")); err != nil {
		t.Errorf("Expected degraded copy after timeout: %v", err)
	}
}

func TestProcessThumbnailFailureRemovesStagedFull(t *testing.T) {
	// Full renditions succeed, but the thumbnail invocation (the only one
	// carrying -vf) fails.
	tr, optimized, thumbs := testTranscoder(t, fakeEncoder(t, "-vf"), nil)
	src := writeSource(t, t.TempDir())

	_, err := tr.Process(context.Background(), src, "party.gif")
	if err == nil {
		t.Fatal("Expected thumbnail failure to fail the asset")
	}

	assertNoWebmOrStaging(t, optimized)
	assertNoWebmOrStaging(t, thumbs)
}

func assertNoWebmOrStaging(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir failed: %v", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".webm") || strings.HasPrefix(name, ".tmp-") {
			t.Errorf("Unexpected leftover %s in %s", name, dir)
		}
	}
}

func TestAvailable(t *testing.T) {
	tr := New(Options{Binary: "definitely-not-a-real-encoder-binary"})
	if tr.Available() {
		t.Error("Expected missing binary to be unavailable")
	}

	tr = New(Options{Binary: "sh"})
	if !tr.Available() {
		t.Error("Expected sh to be available")
	}
}
