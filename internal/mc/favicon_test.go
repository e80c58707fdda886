package mc

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestPNG(t *testing.T, path string, size int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 0, B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadFaviconEmptyPath(t *testing.T) {
	got, err := LoadFavicon("")
	if err != nil {
		t.Fatalf("LoadFavicon(\"\"): %v", err)
	}
	if got != "" {
		t.Errorf("LoadFavicon(\"\") = %q, want empty", got)
	}
}

func TestLoadFaviconResizesToStandardSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "favicon.png")
	writeTestPNG(t, path, 128)

	got, err := LoadFavicon(path)
	if err != nil {
		t.Fatalf("LoadFavicon: %v", err)
	}

	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(got, prefix) {
		t.Fatalf("LoadFavicon result missing data URI prefix: %q", got[:min(len(got), 40)])
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got, prefix))
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode resized png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != faviconSize || b.Dy() != faviconSize {
		t.Errorf("resized favicon is %dx%d, want %dx%d", b.Dx(), b.Dy(), faviconSize, faviconSize)
	}
}

func TestLoadFaviconMissingFile(t *testing.T) {
	_, err := LoadFavicon(filepath.Join(t.TempDir(), "missing.png"))
	if err == nil {
		t.Error("expected an error for a missing favicon file")
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
