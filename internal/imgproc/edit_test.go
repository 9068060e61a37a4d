package imgproc

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Fronut/Picture-management-website/internal/domain"
)

// makeTestImage создаёт NRGBA-буфер, где каждый пиксель кодирует
// свои координаты: R=x*10, G=y*10
func makeTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 100, A: 255})
		}
	}
	return img
}

func TestEditRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     EditRequest
		wantErr bool
	}{
		{"no operations", EditRequest{}, true},
		{"zero tone only", EditRequest{Tone: &ToneOp{}}, true},
		{"valid crop", EditRequest{Crop: &CropOp{X: 0, Y: 0, Width: 10, Height: 10}}, false},
		{"negative offset", EditRequest{Crop: &CropOp{X: -1, Y: 0, Width: 10, Height: 10}}, true},
		{"zero width", EditRequest{Crop: &CropOp{Width: 0, Height: 10}}, true},
		{"valid tone", EditRequest{Tone: &ToneOp{Brightness: 0.5}}, false},
		{"brightness out of range", EditRequest{Tone: &ToneOp{Brightness: 1.5}}, true},
		{"contrast below floor", EditRequest{Tone: &ToneOp{Contrast: -0.95}}, true},
		{"warmth out of range", EditRequest{Tone: &ToneOp{Warmth: -2}}, true},
		{"crop and tone", EditRequest{Crop: &CropOp{Width: 5, Height: 5}, Tone: &ToneOp{Warmth: 1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var validationErr *domain.ValidationError
				if !errors.As(err, &validationErr) {
					t.Errorf("Validate() returned %T, want *domain.ValidationError", err)
				}
			}
		})
	}
}

func TestApplyCrop(t *testing.T) {
	src := makeTestImage(10, 8)

	out, err := ApplyCrop(src, CropOp{X: 2, Y: 3, Width: 4, Height: 3})
	if err != nil {
		t.Fatalf("ApplyCrop() error: %v", err)
	}

	b := out.Bounds()
	if b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("crop result = %dx%d, want 4x3", b.Dx(), b.Dy())
	}

	// левый верхний пиксель результата — пиксель (2,3) источника
	got := out.NRGBAAt(b.Min.X, b.Min.Y)
	if got.R != 20 || got.G != 30 {
		t.Errorf("top-left pixel = R%d G%d, want R20 G30", got.R, got.G)
	}

	// результат не делит память с источником
	out.Pix[0] = 77
	if src.NRGBAAt(2, 3).R == 77 {
		t.Error("crop result shares pixel buffer with source")
	}
}

func TestApplyCropOutOfBounds(t *testing.T) {
	src := makeTestImage(10, 8)

	tests := []struct {
		name string
		crop CropOp
	}{
		{"width overflow", CropOp{X: 8, Y: 0, Width: 4, Height: 4}},
		{"height overflow", CropOp{X: 0, Y: 6, Width: 4, Height: 4}},
		{"fully outside", CropOp{X: 20, Y: 20, Width: 2, Height: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyCrop(src, tt.crop)
			var boundsErr *domain.OutOfBoundsError
			if !errors.As(err, &boundsErr) {
				t.Fatalf("ApplyCrop() error = %v, want *domain.OutOfBoundsError", err)
			}
			if boundsErr.SrcWidth != 10 || boundsErr.SrcHeight != 8 {
				t.Errorf("error reports source %dx%d, want 10x8", boundsErr.SrcWidth, boundsErr.SrcHeight)
			}
		})
	}
}

func TestApplyCropExactFit(t *testing.T) {
	src := makeTestImage(10, 8)

	out, err := ApplyCrop(src, CropOp{X: 0, Y: 0, Width: 10, Height: 8})
	if err != nil {
		t.Fatalf("ApplyCrop() full-frame error: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 10 || b.Dy() != 8 {
		t.Errorf("full-frame crop = %dx%d, want 10x8", b.Dx(), b.Dy())
	}
}

func TestApplyToneNoAdjustments(t *testing.T) {
	src := makeTestImage(4, 4)

	out := ApplyTone(src, ToneOp{})

	if !bytes.Equal(out.Pix, src.Pix) {
		t.Error("zero tone op must not change pixels")
	}
	out.Pix[0] = 123
	if src.Pix[0] == 123 {
		t.Error("ApplyTone must return a decoupled copy")
	}
}

func TestApplyToneBrightness(t *testing.T) {
	src := makeTestImage(4, 4)

	out := ApplyTone(src, ToneOp{Brightness: 0.5})

	// brightness 0.5 добавляет 127.5 к каждому каналу с насыщением
	orig := src.NRGBAAt(1, 1)
	got := out.NRGBAAt(1, 1)
	want := clampChannel(float64(orig.R) + 127.5)
	if got.R != want {
		t.Errorf("R = %d, want %d", got.R, want)
	}
	if got.A != orig.A {
		t.Errorf("alpha changed: %d -> %d", orig.A, got.A)
	}
}

func TestApplyToneContrastFloor(t *testing.T) {
	src := makeTestImage(4, 4)

	// contrast -0.9 даёт нижнюю границу масштаба 0.1
	out := ApplyTone(src, ToneOp{Contrast: -0.9})

	orig := src.NRGBAAt(3, 3)
	got := out.NRGBAAt(3, 3)
	want := clampChannel(float64(orig.R) * 0.1)
	if got.R != want {
		t.Errorf("R = %d, want %d", got.R, want)
	}
}

func TestApplyToneWarmth(t *testing.T) {
	src := makeTestImage(4, 4)

	out := ApplyTone(src, ToneOp{Warmth: 1})

	orig := src.NRGBAAt(2, 2)
	got := out.NRGBAAt(2, 2)
	if want := clampChannel(float64(orig.R) + 25); got.R != want {
		t.Errorf("R = %d, want %d", got.R, want)
	}
	if want := clampChannel(float64(orig.B) - 25); got.B != want {
		t.Errorf("B = %d, want %d", got.B, want)
	}
	if got.G != orig.G {
		t.Errorf("G changed: %d -> %d", orig.G, got.G)
	}
}

func TestClampChannel(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-10, 0},
		{0, 0},
		{127.4, 127},
		{127.5, 128},
		{255, 255},
		{300, 255},
	}
	for _, tt := range tests {
		if got := clampChannel(tt.in); got != tt.want {
			t.Errorf("clampChannel(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDecodeEditable(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, makeTestImage(6, 4)); err != nil {
		t.Fatalf("png.Encode() error: %v", err)
	}

	img, err := DecodeEditable(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeEditable() error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 4 {
		t.Errorf("decoded size = %dx%d, want 6x4", b.Dx(), b.Dy())
	}
}

func TestDecodeEditableRejectsGarbage(t *testing.T) {
	if _, err := DecodeEditable([]byte("definitely not an image")); err == nil {
		t.Error("DecodeEditable() accepted invalid bytes")
	}
}

func TestEncodeForImage(t *testing.T) {
	img := makeTestImage(6, 4)

	tests := []struct {
		name           string
		storedFilename string
		mimeType       string
		wantFormat     string
	}{
		{"png by extension", "a1b2.png", "image/png", "png"},
		{"jpeg by extension", "a1b2.jpg", "image/jpeg", "jpg"},
		{"mime fallback", "a1b2", "image/png", "png"},
		{"unknown falls back to jpeg", "a1b2.webp", "image/webp", "jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, format, err := EncodeForImage(img, tt.storedFilename, tt.mimeType)
			if err != nil {
				t.Fatalf("EncodeForImage() error: %v", err)
			}
			if format != tt.wantFormat {
				t.Errorf("format = %s, want %s", format, tt.wantFormat)
			}
			decoded, decodedFormat, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("result does not decode: %v", err)
			}
			wantDecoded := map[string]string{"jpg": "jpeg", "png": "png"}[tt.wantFormat]
			if decodedFormat != wantDecoded {
				t.Errorf("decoded format = %s, want %s", decodedFormat, wantDecoded)
			}
			if b := decoded.Bounds(); b.Dx() != 6 || b.Dy() != 4 {
				t.Errorf("decoded size = %dx%d, want 6x4", b.Dx(), b.Dy())
			}
		})
	}
}
