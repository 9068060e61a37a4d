package imgproc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Fronut/Picture-management-website/internal/core/ports"
	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Preset описывает целевой размер миниатюры
type Preset struct {
	Label  domain.ThumbnailSize
	Width  int
	Height int
}

// DefaultPresets возвращает стандартный набор пресетов
func DefaultPresets() []Preset {
	return []Preset{
		{Label: domain.ThumbnailSmall, Width: 256, Height: 256},
		{Label: domain.ThumbnailMedium, Width: 512, Height: 512},
		{Label: domain.ThumbnailLarge, Width: 1024, Height: 1024},
	}
}

// ThumbnailEngine генерирует миниатюры по набору пресетов и
// складывает их в файловое хранилище
type ThumbnailEngine struct {
	files   ports.FileStorage
	presets []Preset
	logger  *slog.Logger
}

// NewThumbnailEngine создаёт движок миниатюр
func NewThumbnailEngine(files ports.FileStorage, presets []Preset, logger *slog.Logger) *ThumbnailEngine {
	if len(presets) == 0 {
		presets = DefaultPresets()
	}
	return &ThumbnailEngine{files: files, presets: presets, logger: logger}
}

// Generate создаёт миниатюры исходного изображения по всем пресетам.
// Вписывает изображение в рамку пресета с сохранением пропорций;
// увеличение не выполняется — источник меньше рамки перекодируется
// в собственном размере. Выход всегда JPEG по ключу
// {ownerID}/{preset}/{baseName}_{preset}.jpg.
// Сбой одного пресета не фатален: он логируется, и пресет просто
// отсутствует в результате
func (e *ThumbnailEngine) Generate(ctx context.Context, ownerID uuid.UUID, storedFilename string, src image.Image) []domain.Thumbnail {
	baseName := strings.TrimSuffix(storedFilename, filepath.Ext(storedFilename))
	thumbnails := make([]domain.Thumbnail, 0, len(e.presets))

	for _, preset := range e.presets {
		label := strings.ToLower(string(preset.Label))
		resized := imaging.Fit(src, preset.Width, preset.Height, imaging.Lanczos)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, flattenAlpha(resized), &jpeg.Options{Quality: jpegQuality}); err != nil {
			e.logger.Warn("thumbnail encoding failed",
				"owner_id", ownerID, "preset", label, "error", err)
			continue
		}

		key := fmt.Sprintf("%s/%s/%s_%s.jpg", ownerID, label, baseName, label)
		if _, err := e.files.UploadFile(ctx, key, bytes.NewReader(buf.Bytes()), "image/jpeg"); err != nil {
			e.logger.Warn("thumbnail upload failed",
				"owner_id", ownerID, "preset", label, "key", key, "error", err)
			continue
		}

		bounds := resized.Bounds()
		thumbnails = append(thumbnails, domain.Thumbnail{
			ID:          uuid.New(),
			SizeType:    preset.Label,
			Width:       bounds.Dx(),
			Height:      bounds.Dy(),
			StorageKey:  key,
			FileSize:    int64(buf.Len()),
			CreatedTime: time.Now(),
		})
	}
	return thumbnails
}
