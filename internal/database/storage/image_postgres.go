package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/Fronut/Picture-management-website/internal/search"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ImagePostgresStorage реализует ports.ImageStorage поверх GORM
type ImagePostgresStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewImagePostgresStorage(db *gorm.DB, logger *slog.Logger) *ImagePostgresStorage {
	return &ImagePostgresStorage{db: db, logger: logger}
}

// SaveImage сохраняет изображение вместе с метаданными и миниатюрами
// в одной транзакции
func (s *ImagePostgresStorage) SaveImage(ctx context.Context, image *domain.Image) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveImageTx(tx, image)
	})
}

// SaveImages сохраняет пачку изображений целиком: частичных фиксаций
// при ошибке не остаётся
func (s *ImagePostgresStorage) SaveImages(ctx context.Context, images []*domain.Image) error {
	start := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, image := range images {
			if err := saveImageTx(tx, image); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to save image batch", "count", len(images), "error", err)
		return fmt.Errorf("ошибка при сохранении пачки изображений: %w", err)
	}

	s.logger.Info("image batch saved",
		"count", len(images),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func saveImageTx(tx *gorm.DB, image *domain.Image) error {
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}

	if err := tx.Omit(clause.Associations).Create(image).Error; err != nil {
		return fmt.Errorf("ошибка при сохранении изображения: %w", err)
	}

	if image.ExifData != nil {
		image.ExifData.ImageID = image.ID
		if image.ExifData.ID == uuid.Nil {
			image.ExifData.ID = uuid.New()
		}
		if err := tx.Create(image.ExifData).Error; err != nil {
			return fmt.Errorf("ошибка при сохранении метаданных: %w", err)
		}
	}

	for i := range image.Thumbnails {
		image.Thumbnails[i].ImageID = image.ID
		if image.Thumbnails[i].ID == uuid.Nil {
			image.Thumbnails[i].ID = uuid.New()
		}
	}
	if len(image.Thumbnails) > 0 {
		if err := tx.Create(&image.Thumbnails).Error; err != nil {
			return fmt.Errorf("ошибка при сохранении миниатюр: %w", err)
		}
	}
	return nil
}

// GetImageByID получает изображение со всеми дочерними записями;
// возвращает nil без ошибки, если записи нет
func (s *ImagePostgresStorage) GetImageByID(ctx context.Context, id uuid.UUID) (*domain.Image, error) {
	var image domain.Image
	result := s.db.WithContext(ctx).
		Preload("ExifData").
		Preload("Thumbnails").
		Preload("ImageTags").
		Preload("ImageTags.Tag").
		First(&image, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при получении изображения по ID: %w", result.Error)
	}
	return &image, nil
}

// ExistsByOwnerAndHash проверяет наличие у владельца изображения
// с данным отпечатком содержимого
func (s *ImagePostgresStorage) ExistsByOwnerAndHash(ctx context.Context, ownerID uuid.UUID, contentHash string) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&domain.Image{}).
		Where("user_id = ? AND content_hash = ?", ownerID, contentHash).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("ошибка при проверке дубликата: %w", result.Error)
	}
	return count > 0, nil
}

// UpdateAfterEdit атомарно применяет результат редактирования:
// обновлённые атрибуты записи, замена всех миниатюр
func (s *ImagePostgresStorage) UpdateAfterEdit(ctx context.Context, image *domain.Image, newThumbnails []domain.Thumbnail) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"width":        image.Width,
			"height":       image.Height,
			"file_size":    image.FileSize,
			"mime_type":    image.MimeType,
			"content_hash": image.ContentHash,
			"updated_at":   time.Now(),
		}
		if err := tx.Model(&domain.Image{}).Where("id = ?", image.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("ошибка при обновлении записи изображения: %w", err)
		}

		if err := tx.Where("image_id = ?", image.ID).Delete(&domain.Thumbnail{}).Error; err != nil {
			return fmt.Errorf("ошибка при удалении старых миниатюр: %w", err)
		}

		for i := range newThumbnails {
			newThumbnails[i].ImageID = image.ID
			if newThumbnails[i].ID == uuid.Nil {
				newThumbnails[i].ID = uuid.New()
			}
		}
		if len(newThumbnails) > 0 {
			if err := tx.Create(&newThumbnails).Error; err != nil {
				return fmt.Errorf("ошибка при сохранении новых миниатюр: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to persist edit result", "image_id", image.ID, "error", err)
		return err
	}

	image.Thumbnails = newThumbnails
	return nil
}

// DeleteImage выполняет двухфазное каскадное удаление: сначала дочерние
// записи, затем родительская, всё внутри одной транзакции. Счётчики
// использования затронутых тегов уменьшаются; сами теги не удаляются
func (s *ImagePostgresStorage) DeleteImage(ctx context.Context, image *domain.Image) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var associations []domain.ImageTag
		if err := tx.Where("image_id = ?", image.ID).Find(&associations).Error; err != nil {
			return fmt.Errorf("ошибка при выборке связей тегов: %w", err)
		}

		for _, assoc := range associations {
			if err := decrementTagUsageTx(tx, assoc.TagID); err != nil {
				return err
			}
		}

		if err := tx.Where("image_id = ?", image.ID).Delete(&domain.ImageTag{}).Error; err != nil {
			return fmt.Errorf("ошибка при удалении связей тегов: %w", err)
		}
		if err := tx.Where("image_id = ?", image.ID).Delete(&domain.Thumbnail{}).Error; err != nil {
			return fmt.Errorf("ошибка при удалении миниатюр: %w", err)
		}
		if err := tx.Where("image_id = ?", image.ID).Delete(&domain.ExifData{}).Error; err != nil {
			return fmt.Errorf("ошибка при удалении метаданных: %w", err)
		}
		if err := tx.Delete(&domain.Image{}, "id = ?", image.ID).Error; err != nil {
			return fmt.Errorf("ошибка при удалении изображения: %w", err)
		}
		return nil
	})
}

// SearchImages выполняет динамический запрос по фрагментам предиката.
// Результат DISTINCT по идентичности изображения, когда JOIN по тегам
// может породить дубликаты строк
func (s *ImagePostgresStorage) SearchImages(ctx context.Context, query *search.Query, page, perPage int) (*search.PageResult, error) {
	start := time.Now()

	applyFragments := func(db *gorm.DB) *gorm.DB {
		for _, fragment := range query.Fragments {
			if fragment.Join != "" {
				db = db.Joins(fragment.Join)
			}
			db = db.Where(fragment.Cond, fragment.Args...)
		}
		return db
	}

	var total int64
	countQuery := applyFragments(s.db.WithContext(ctx).Model(&domain.Image{}))
	if query.Distinct {
		countQuery = countQuery.Distinct("images.id")
	}
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("ошибка при подсчёте результатов поиска: %w", err)
	}

	direction := "ASC"
	if query.Desc {
		direction = "DESC"
	}

	pageQuery := applyFragments(s.db.WithContext(ctx).Model(&domain.Image{}))
	if query.Distinct {
		pageQuery = pageQuery.Distinct("images.*")
	}

	var images []domain.Image
	result := pageQuery.
		Preload("ExifData").
		Preload("Thumbnails").
		Preload("ImageTags").
		Preload("ImageTags.Tag").
		Order(fmt.Sprintf("images.%s %s", query.OrderBy, direction)).
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&images)
	if result.Error != nil {
		return nil, fmt.Errorf("ошибка при поиске изображений: %w", result.Error)
	}

	s.logger.Info("image search completed",
		"found", len(images),
		"total", total,
		"page", page,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &search.PageResult{Items: images, Page: page, PerPage: perPage, Total: total}, nil
}

// ListRecentByOwner получает последние изображения владельца
func (s *ImagePostgresStorage) ListRecentByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Image, error) {
	var images []domain.Image
	result := s.db.WithContext(ctx).
		Preload("Thumbnails").
		Where("user_id = ?", ownerID).
		Order("upload_time DESC").
		Limit(limit).
		Find(&images)
	if result.Error != nil {
		return nil, fmt.Errorf("ошибка при получении последних изображений: %w", result.Error)
	}
	return images, nil
}
