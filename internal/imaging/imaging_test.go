package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h, color.RGBA{200, 40, 40, 255}), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encoding test JPEG: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h, color.RGBA{40, 40, 200, 255})); err != nil {
		t.Fatalf("encoding test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestProcessOutputsJPEG(t *testing.T) {
	for name, data := range map[string][]byte{
		"jpeg": encodeJPEG(t, 64, 48),
		"png":  encodePNG(t, 64, 48),
	} {
		t.Run(name, func(t *testing.T) {
			photo, err := Options{}.Process(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if photo.MIME != "image/jpeg" {
				t.Errorf("MIME = %q, want image/jpeg", photo.MIME)
			}
			if photo.Width != 64 || photo.Height != 48 {
				t.Errorf("size = %dx%d, want 64x48", photo.Width, photo.Height)
			}
			if _, err := jpeg.Decode(bytes.NewReader(photo.Data)); err != nil {
				t.Errorf("output is not a JPEG: %v", err)
			}
		})
	}
}

func TestProcessFitsMaxDimension(t *testing.T) {
	opts := Options{MaxDimension: 200}
	photo, err := opts.Process(bytes.NewReader(encodeJPEG(t, 800, 400)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if photo.Width != 200 || photo.Height != 100 {
		t.Errorf("size = %dx%d, want 200x100", photo.Width, photo.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(photo.Data))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if b := img.Bounds(); b.Dx() > 200 || b.Dy() > 200 {
		t.Errorf("decoded size %dx%d exceeds 200", b.Dx(), b.Dy())
	}
}

func TestProcessPortrait(t *testing.T) {
	photo, err := Options{MaxDimension: 100}.Process(bytes.NewReader(encodePNG(t, 50, 300)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if photo.Height != 100 || photo.Width != 16 {
		t.Errorf("size = %dx%d, want 16x100", photo.Width, photo.Height)
	}
}

func TestProcessDoesNotUpscale(t *testing.T) {
	photo, err := Options{}.Process(bytes.NewReader(encodeJPEG(t, 20, 10)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if photo.Width != 20 || photo.Height != 10 {
		t.Errorf("size = %dx%d, want 20x10", photo.Width, photo.Height)
	}
}

func TestProcessRejectsUnsupported(t *testing.T) {
	_, err := Options{}.Process(strings.NewReader("GIF89a not really an image"))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}

	_, err = Options{}.Process(strings.NewReader("plain text"))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for text, got %v", err)
	}
}

func TestProcessRejectsTooLarge(t *testing.T) {
	data := encodePNG(t, 64, 64)
	_, err := Options{MaxBytes: int64(len(data) - 1)}.Process(bytes.NewReader(data))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	if _, err := (Options{MaxBytes: int64(len(data))}).Process(bytes.NewReader(data)); err != nil {
		t.Fatalf("data at the limit should be accepted: %v", err)
	}
}

func TestWithDefaults(t *testing.T) {
	o := Options{Quality: 150}.withDefaults()
	if o.MaxDimension != DefaultMaxDimension || o.Quality != DefaultJPEGQuality || o.MaxBytes != DefaultMaxBytes {
		t.Errorf("unexpected defaults: %+v", o)
	}
}
