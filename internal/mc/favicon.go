package mc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/nfnt/resize"
)

const faviconSize = 64

// LoadFavicon reads a PNG at path, downscales it to 64x64 with
// github.com/nfnt/resize if it isn't already that size, and returns the
// "data:image/png;base64,..." string the status response's favicon
// field expects. An empty path yields ("", nil): no favicon configured.
func LoadFavicon(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("mc: open favicon: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("mc: decode favicon: %w", err)
	}

	b := img.Bounds()
	if b.Dx() != faviconSize || b.Dy() != faviconSize {
		img = resize.Resize(faviconSize, faviconSize, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("mc: encode favicon: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
