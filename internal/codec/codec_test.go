package codec

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
)

// createTestImage creates a small plate-like test image
func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / width), uint8(y * 255 / height), 90, 255})
		}
	}
	return img
}

func TestEncode_RoundTrip(t *testing.T) {
	img := Normalize(createTestImage(32, 24))

	encoded, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.ContainsAny(encoded, "\r\n") {
		t.Error("Expected base64 without line wrapping")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("Encoded string is not valid base64: %v", err)
	}

	direct, err := EncodeBytes(img)
	if err != nil {
		t.Fatalf("EncodeBytes failed: %v", err)
	}
	if !bytes.Equal(raw, direct) {
		t.Error("Expected decoded base64 to be byte-identical to the PNG container")
	}

	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Container is not a valid PNG: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Fatalf("Expected bounds %v, got %v", img.Bounds(), decoded.Bounds())
	}
	for _, p := range []image.Point{{0, 0}, {31, 23}, {16, 12}} {
		want := img.NRGBAAt(p.X, p.Y)
		r, g, b, a := decoded.At(p.X, p.Y).RGBA()
		got := color.NRGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
		if got != want {
			t.Errorf("Pixel %v: expected %v, got %v", p, want, got)
		}
	}
}

func TestEncode_Deterministic(t *testing.T) {
	img := Normalize(createTestImage(16, 16))

	first, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	second, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if first != second {
		t.Error("Expected identical encodings for identical pixels")
	}
}

func TestEncode_InvalidImage(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"nil image", nil},
		{"zero-sized image", image.NewNRGBA(image.Rect(0, 0, 0, 0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.img)
			if err == nil {
				t.Fatal("Expected encoding error")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeEncoding) {
				t.Errorf("Expected encoding error, got %v", err)
			}
		})
	}
}

func TestNormalize_DropsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{200, 100, 50, 128})
	src.SetNRGBA(1, 0, color.NRGBA{10, 20, 30, 0})

	out := Normalize(src)

	if got := out.NRGBAAt(0, 0); got != (color.NRGBA{200, 100, 50, 255}) {
		t.Errorf("Expected colour kept with opaque alpha, got %v", got)
	}
	if got := out.NRGBAAt(1, 0); got.A != 255 {
		t.Errorf("Expected opaque alpha for transparent pixel, got %v", got)
	}
	if !out.Opaque() {
		t.Error("Expected normalized image to be opaque")
	}
}

func TestNormalize_OffsetBounds(t *testing.T) {
	src := createTestImage(10, 10).SubImage(image.Rect(5, 5, 10, 10))

	out := Normalize(src)

	if out.Bounds() != image.Rect(0, 0, 5, 5) {
		t.Errorf("Expected bounds to start at origin, got %v", out.Bounds())
	}
}

func TestDecode_JPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createTestImage(20, 20), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to build JPEG fixture: %v", err)
	}

	img, format, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("Expected jpeg, got %s", format)
	}

	out := Normalize(img)
	if !out.Opaque() || out.Bounds().Dx() != 20 {
		t.Errorf("Unexpected normalized image: bounds=%v opaque=%v", out.Bounds(), out.Opaque())
	}
}

func TestDecode_Rejects(t *testing.T) {
	var gifBuf bytes.Buffer
	palette := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	if err := gif.Encode(&gifBuf, palette, nil); err != nil {
		t.Fatalf("Failed to build GIF fixture: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"garbage bytes", []byte("definitely not an image")},
		{"truncated png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}},
		{"gif container", gifBuf.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(bytes.NewReader(tt.data))
			if !apperrors.IsType(err, apperrors.ErrorTypeEncoding) {
				t.Errorf("Expected encoding error, got %v", err)
			}
		})
	}
}

func TestDataURI(t *testing.T) {
	if got := DataURI("QUJD"); got != "data:image/png;base64,QUJD" {
		t.Errorf("Unexpected data URI: %s", got)
	}
}

func TestCheckSize(t *testing.T) {
	if err := CheckSize("abcd", 4); err != nil {
		t.Errorf("Expected payload at the limit to pass, got %v", err)
	}
	if err := CheckSize("abcd", 0); err != nil {
		t.Errorf("Expected disabled limit to pass, got %v", err)
	}

	err := CheckSize("abcde", 4)
	if !apperrors.IsType(err, apperrors.ErrorTypeSizeExceeded) {
		t.Errorf("Expected size_exceeded error, got %v", err)
	}
}
