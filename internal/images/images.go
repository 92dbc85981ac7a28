// Package images decodes camera frames posted by the client and prepares
// them for the vision oracle.
package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"strings"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/lehigh-university-libraries/tourlens/internal/providers"
)

// ErrInvalidImage is returned for payloads that are not a decodable image
var ErrInvalidImage = errors.New("invalid image")

// MaxPixels bounds the pixel count a frame header may claim. A full decode
// allocates width*height pixels no matter how small the payload is.
const MaxPixels = 40_000_000

// Frame is a decoded client frame
type Frame struct {
	providers.Image
	Width  int
	Height int
}

// Decode accepts a data URL ("data:image/jpeg;base64,...") or a bare base64
// string and returns the image bytes with a sniffed MIME type.
func Decode(payload string) (Frame, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Frame{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return Frame{}, fmt.Errorf("%w: malformed data URL", ErrInvalidImage)
		}
		if !strings.HasSuffix(payload[:comma], ";base64") {
			return Frame{}, fmt.Errorf("%w: data URL is not base64 encoded", ErrInvalidImage)
		}
		payload = payload[comma+1:]
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return FromBytes(data)
}

// FromBytes validates raw image bytes
func FromBytes(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return Frame{}, fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, mimeType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if err := checkBounds(cfg.Width, cfg.Height); err != nil {
		return Frame{}, err
	}

	return Frame{
		Image: providers.Image{
			Data:     data,
			MIMEType: mimeType,
			Detail:   providers.DetailHigh,
		},
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// Downscale re-encodes the frame as JPEG with its longest side at most maxDim.
// Frames already within bounds are returned unchanged.
func Downscale(f Frame, maxDim, quality int) (Frame, error) {
	if maxDim <= 0 || (f.Width <= maxDim && f.Height <= maxDim) {
		return f, nil
	}
	if err := checkBounds(f.Width, f.Height); err != nil {
		return Frame{}, err
	}

	src, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := float64(maxDim) / float64(max(w, h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)

	if quality <= 0 || quality > 100 {
		quality = 80
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return Frame{}, fmt.Errorf("failed to encode downscaled frame: %w", err)
	}

	return Frame{
		Image: providers.Image{
			Data:     buf.Bytes(),
			MIMEType: "image/jpeg",
			Detail:   f.Detail,
		},
		Width:  nw,
		Height: nh,
	}, nil
}

func checkBounds(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: empty dimensions %dx%d", ErrInvalidImage, w, h)
	}
	if int64(w)*int64(h) > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, w, h, MaxPixels)
	}
	return nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)

	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
