package imgproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"path/filepath"
	"strings"

	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/disintegration/imaging"

	_ "image/gif"

	_ "golang.org/x/image/webp"
)

// CropOp описывает операцию кадрирования в пикселях исходника
type CropOp struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ToneOp описывает тоновую коррекцию. Нулевые значения всех трёх
// параметров означают отсутствие операции
type ToneOp struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Warmth     float64 `json:"warmth"`
}

// HasAdjustments возвращает true, если хотя бы один параметр ненулевой
func (t *ToneOp) HasAdjustments() bool {
	return t != nil && (t.Brightness != 0 || t.Contrast != 0 || t.Warmth != 0)
}

// EditRequest описывает один проход редактирования
type EditRequest struct {
	Crop *CropOp `json:"crop,omitempty"`
	Tone *ToneOp `json:"tone,omitempty"`
}

// Validate проверяет, что запрос содержит хотя бы одну операцию
// и все параметры в допустимых диапазонах
func (r *EditRequest) Validate() error {
	if r == nil || (r.Crop == nil && !r.Tone.HasAdjustments()) {
		return domain.NewValidationError("edit", "запрос не содержит ни одной операции")
	}
	if c := r.Crop; c != nil {
		if c.X < 0 || c.Y < 0 {
			return domain.NewValidationError("crop", "смещение не может быть отрицательным")
		}
		if c.Width <= 0 || c.Height <= 0 {
			return domain.NewValidationError("crop", "размеры области должны быть положительными")
		}
	}
	if t := r.Tone; t != nil {
		if t.Brightness < -1 || t.Brightness > 1 {
			return domain.NewValidationError("tone.brightness", "значение вне диапазона [-1,1]")
		}
		if t.Contrast < -0.9 || t.Contrast > 1 {
			return domain.NewValidationError("tone.contrast", "значение вне диапазона [-0.9,1]")
		}
		if t.Warmth < -1 || t.Warmth > 1 {
			return domain.NewValidationError("tone.warmth", "значение вне диапазона [-1,1]")
		}
	}
	return nil
}

// DecodeEditable декодирует изображение в буфер NRGBA: альфа-канал
// присутствует всегда, даже если источник его не имел, чтобы
// попиксельная арифметика была безопасной
func DecodeEditable(r []byte) (*image.NRGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("не удалось декодировать изображение: %w", err)
	}
	return imaging.Clone(src), nil
}

// ApplyCrop вырезает область строго внутри границ источника.
// Возвращаемый буфер не делит память с исходным
func ApplyCrop(src *image.NRGBA, c CropOp) (*image.NRGBA, error) {
	b := src.Bounds()
	if c.X+c.Width > b.Dx() || c.Y+c.Height > b.Dy() {
		return nil, &domain.OutOfBoundsError{
			SrcWidth: b.Dx(), SrcHeight: b.Dy(),
			X: c.X, Y: c.Y, Width: c.Width, Height: c.Height,
		}
	}
	rect := image.Rect(c.X, c.Y, c.X+c.Width, c.Y+c.Height)
	return imaging.Crop(src, rect), nil
}

// ApplyTone применяет тоновую коррекцию поверх копии буфера.
// Сначала аффинное преобразование каналов яркости/контраста:
// out = in*scale + offset, scale = max(0.1, 1+contrast),
// offset = brightness*255, с ограничением в [0,255]. Затем сдвиг
// теплоты: красный канал +warmth*25, синий -warmth*25.
// Альфа-канал не изменяется
func ApplyTone(src *image.NRGBA, t ToneOp) *image.NRGBA {
	out := imaging.Clone(src)
	if !t.HasAdjustments() {
		return out
	}

	if t.Brightness != 0 || t.Contrast != 0 {
		scale := math.Max(0.1, 1+t.Contrast)
		offset := t.Brightness * 255
		for i := 0; i < len(out.Pix); i += 4 {
			out.Pix[i] = clampChannel(float64(out.Pix[i])*scale + offset)
			out.Pix[i+1] = clampChannel(float64(out.Pix[i+1])*scale + offset)
			out.Pix[i+2] = clampChannel(float64(out.Pix[i+2])*scale + offset)
		}
	}

	if t.Warmth != 0 {
		redDelta := t.Warmth * 25
		blueDelta := -t.Warmth * 25
		for i := 0; i < len(out.Pix); i += 4 {
			out.Pix[i] = clampChannel(float64(out.Pix[i]) + redDelta)
			out.Pix[i+2] = clampChannel(float64(out.Pix[i+2]) + blueDelta)
		}
	}
	return out
}

func clampChannel(v float64) uint8 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}

// jpegQuality — качество перекодирования оригиналов и миниатюр
const jpegQuality = 85

// EncodeForImage кодирует буфер в формат, выведенный из расширения
// хранимого имени файла, с откатом на MIME-тип и далее на JPEG.
// Перед записью в JPEG альфа-канал сводится на непрозрачный RGB-фон:
// у JPEG нет альфы, и кодировщик неплоских буферов падает
func EncodeForImage(img image.Image, storedFilename, mimeType string) ([]byte, string, error) {
	format := resolveOutputFormat(storedFilename, mimeType)

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("ошибка кодирования PNG: %w", err)
		}
	default:
		format = "jpg"
		flat := flattenAlpha(img)
		if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", fmt.Errorf("ошибка кодирования JPEG: %w", err)
		}
	}
	return buf.Bytes(), format, nil
}

func resolveOutputFormat(storedFilename, mimeType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(storedFilename), "."))
	switch ext {
	case "png":
		return "png"
	case "jpg", "jpeg":
		return "jpg"
	}
	if strings.Contains(strings.ToLower(mimeType), "png") {
		return "png"
	}
	return "jpg"
}

// flattenAlpha сводит возможную альфу на непрозрачный чёрный фон
func flattenAlpha(img image.Image) *image.NRGBA {
	b := img.Bounds()
	flat := imaging.New(b.Dx(), b.Dy(), color.NRGBA{A: 255})
	return imaging.Overlay(flat, img, image.Point{}, 1.0)
}
