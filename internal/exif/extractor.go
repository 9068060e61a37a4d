package exif

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
)

// Extractor извлекает EXIF-метаданные из байт изображения.
// Чёрный ящик с точки зрения ядра: для неподдерживаемых и
// повреждённых файлов возвращает nil вместо ошибки.
// EXIF несут в основном jpeg и tiff; png и gif обычно нет
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor создаёт извлекатель метаданных
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract возвращает структурированные метаданные снимка или nil,
// если в файле не нашлось ни одного заполненного поля
func (e *Extractor) Extract(data []byte) *domain.ExifData {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil || x == nil {
		return nil
	}

	meta := &domain.ExifData{ID: uuid.New()}

	if make, ok := tagToString(exif.Make, x); ok {
		meta.CameraMake = make
	}
	if model, ok := tagToString(exif.Model, x); ok {
		meta.CameraModel = model
	}

	// best effort: DateTimeOriginal -> DateTimeDigitized -> DateTime
	if taken, err := x.DateTime(); err == nil {
		meta.TakenTime = &taken
	}

	if num, den, ok := tagToRat(exif.ExposureTime, x); ok {
		meta.ExposureTime = fmt.Sprintf("%d/%d", num, den)
	}
	if num, den, ok := tagToRat(exif.FNumber, x); ok && den != 0 {
		meta.FNumber = strconv.FormatFloat(float64(num)/float64(den), 'g', 3, 64)
	}
	if iso, ok := tagToInt(exif.ISOSpeedRatings, x); ok {
		meta.ISOSpeed = &iso
	}
	if num, den, ok := tagToRat(exif.FocalLength, x); ok && den != 0 {
		meta.FocalLength = strconv.FormatFloat(float64(num)/float64(den), 'g', 4, 64)
	}

	// GPS-координаты присутствуют в меньшинстве снимков
	if lat, lon, err := x.LatLong(); err == nil {
		meta.Latitude = &lat
		meta.Longitude = &lon
	}

	if meta.Empty() {
		return nil
	}
	return meta
}

func tagToString(field exif.FieldName, x *exif.Exif) (string, bool) {
	if t, err := x.Get(field); err == nil && t != nil {
		if s, err := t.StringVal(); err == nil && s != "" {
			return s, true
		}
	}
	return "", false
}

func tagToInt(field exif.FieldName, x *exif.Exif) (int, bool) {
	if t, err := x.Get(field); err == nil && t != nil {
		if i, err := t.Int(0); err == nil {
			return i, true
		}
	}
	return 0, false
}

func tagToRat(field exif.FieldName, x *exif.Exif) (int64, int64, bool) {
	if t, err := x.Get(field); err == nil && t != nil {
		if num, den, err := t.Rat2(0); err == nil && den != 0 {
			return num, den, true
		}
	}
	return 0, 0, false
}
