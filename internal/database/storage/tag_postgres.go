package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TagPostgresStorage реализует ports.TagStorage поверх GORM
type TagPostgresStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewTagPostgresStorage(db *gorm.DB, logger *slog.Logger) *TagPostgresStorage {
	return &TagPostgresStorage{db: db, logger: logger}
}

// FindTagByName ищет тег по имени без учёта регистра;
// возвращает nil без ошибки, если тега нет
func (s *TagPostgresStorage) FindTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	var tag domain.Tag
	result := s.db.WithContext(ctx).Where("LOWER(tag_name) = LOWER(?)", name).First(&tag)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при поиске тега по имени: %w", result.Error)
	}
	return &tag, nil
}

// CreateTag создаёт новый глобальный тег
func (s *TagPostgresStorage) CreateTag(ctx context.Context, tag *domain.Tag) error {
	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}
	if tag.CreatedTime.IsZero() {
		tag.CreatedTime = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(tag).Error; err != nil {
		return fmt.Errorf("ошибка при создании тега: %w", err)
	}
	return nil
}

// ListAssociations возвращает связи изображения с тегами
func (s *TagPostgresStorage) ListAssociations(ctx context.Context, imageID uuid.UUID) ([]domain.ImageTag, error) {
	var associations []domain.ImageTag
	result := s.db.WithContext(ctx).
		Preload("Tag").
		Where("image_id = ?", imageID).
		Order("created_time ASC").
		Find(&associations)
	if result.Error != nil {
		return nil, fmt.Errorf("ошибка при получении тегов изображения: %w", result.Error)
	}
	return associations, nil
}

// AssociationExists проверяет наличие связи (image, tag)
func (s *TagPostgresStorage) AssociationExists(ctx context.Context, imageID, tagID uuid.UUID) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&domain.ImageTag{}).
		Where("image_id = ? AND tag_id = ?", imageID, tagID).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("ошибка при проверке связи тега: %w", result.Error)
	}
	return count > 0, nil
}

// CreateAssociation создаёт связь и увеличивает счётчик использования
// тега ровно один раз в одной транзакции
func (s *TagPostgresStorage) CreateAssociation(ctx context.Context, assoc *domain.ImageTag) error {
	if assoc.ID == uuid.Nil {
		assoc.ID = uuid.New()
	}
	if assoc.CreatedTime.IsZero() {
		assoc.CreatedTime = time.Now()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tag").Create(assoc).Error; err != nil {
			return fmt.Errorf("ошибка при создании связи тега: %w", err)
		}
		if err := tx.Model(&domain.Tag{}).Where("id = ?", assoc.TagID).
			UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
			return fmt.Errorf("ошибка при увеличении счётчика тега: %w", err)
		}
		return nil
	})
}

// DeleteAssociation удаляет связь и уменьшает счётчик использования
// тега с нижней границей ноль. Сам тег никогда не удаляется
func (s *TagPostgresStorage) DeleteAssociation(ctx context.Context, imageID, tagID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assoc domain.ImageTag
		result := tx.Where("image_id = ? AND tag_id = ?", imageID, tagID).First(&assoc)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Resource: "тег изображения"}
			}
			return fmt.Errorf("ошибка при поиске связи тега: %w", result.Error)
		}

		if err := tx.Delete(&assoc).Error; err != nil {
			return fmt.Errorf("ошибка при удалении связи тега: %w", err)
		}
		return decrementTagUsageTx(tx, tagID)
	})
}

// ListPopularTags возвращает теги по убыванию usage_count,
// при равенстве — по убыванию времени создания
func (s *TagPostgresStorage) ListPopularTags(ctx context.Context, limit int) ([]domain.Tag, error) {
	var tags []domain.Tag
	result := s.db.WithContext(ctx).
		Order("usage_count DESC, created_time DESC").
		Limit(limit).
		Find(&tags)
	if result.Error != nil {
		return nil, fmt.Errorf("ошибка при получении популярных тегов: %w", result.Error)
	}
	return tags, nil
}

func decrementTagUsageTx(tx *gorm.DB, tagID uuid.UUID) error {
	if err := tx.Model(&domain.Tag{}).Where("id = ?", tagID).
		UpdateColumn("usage_count", gorm.Expr("GREATEST(usage_count - 1, 0)")).Error; err != nil {
		return fmt.Errorf("ошибка при уменьшении счётчика тега: %w", err)
	}
	return nil
}
