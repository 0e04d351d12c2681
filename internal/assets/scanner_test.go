package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		ext  string
		want Kind
	}{
		{".jpg", KindStatic},
		{".jpeg", KindStatic},
		{".png", KindStatic},
		{".webp", KindStatic},
		{".bmp", KindStatic},
		{".tiff", KindStatic},
		{".gif", KindAnimated},
		{".PNG", KindStatic},
		{".Gif", KindAnimated},
		{".JpEg", KindStatic},
		{".mp4", KindOther},
		{".txt", KindOther},
		{"", KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := Classify(tt.ext); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestScanClassificationIsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "photo.PNG"))
	writeFile(t, filepath.Join(dir, "clip.GIF"))

	found, err := NewScanner(dir).Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(found) != 2 {
		t.Fatalf("Expected 2 assets, got %d", len(found))
	}
	if found[0].RelPath != "photo.PNG" || found[0].Kind != KindStatic {
		t.Errorf("Expected photo.PNG classified static, got %+v", found[0])
	}
	if found[1].RelPath != "clip.GIF" || found[1].Kind != KindAnimated {
		t.Errorf("Expected clip.GIF classified animated, got %+v", found[1])
	}
}

func TestScanOrdersStaticsBeforeAnimated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.gif"))
	writeFile(t, filepath.Join(dir, "b.jpg"))
	writeFile(t, filepath.Join(dir, "c.gif"))
	writeFile(t, filepath.Join(dir, "d.png"))

	found, err := NewScanner(dir).Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []string{"b.jpg", "d.png", "a.gif", "c.gif"}
	if len(found) != len(want) {
		t.Fatalf("Expected %d assets, got %d", len(want), len(found))
	}
	for i, rel := range want {
		if found[i].RelPath != rel {
			t.Errorf("Position %d: expected %s, got %s", i, rel, found[i].RelPath)
		}
	}
}

func TestScanSkipsUnsupportedAndHidden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.jpg"))
	writeFile(t, filepath.Join(dir, "notes.txt"))
	writeFile(t, filepath.Join(dir, ".hidden.jpg"))
	writeFile(t, filepath.Join(dir, ".cache", "stale.png"))

	found, err := NewScanner(dir).Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(found) != 1 || found[0].RelPath != "keep.jpg" {
		t.Errorf("Expected only keep.jpg, got %+v", found)
	}
}

func TestScanSubdirectoriesUseForwardSlashes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2023", "trip", "beach.jpg"))

	found, err := NewScanner(dir).Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(found) != 1 {
		t.Fatalf("Expected 1 asset, got %d", len(found))
	}
	if found[0].RelPath != "2023/trip/beach.jpg" {
		t.Errorf("Expected forward-slash relative path, got %s", found[0].RelPath)
	}
}

func TestScanEmptyDirIsNotAnError(t *testing.T) {
	found, err := NewScanner(t.TempDir()).Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Expected empty result, got %d assets", len(found))
	}
}
