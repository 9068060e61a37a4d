package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Fronut/Picture-management-website/internal/core/ports"
	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/Fronut/Picture-management-website/internal/tagging"
)

const (
	defaultPopularLimit = 10
	maxPopularLimit     = 100
)

// tagUseCase implements TagUseCase
type tagUseCase struct {
	imageStorage ports.ImageStorage
	tagStorage   ports.TagStorage
	searchCache  ports.SearchCache
	logger       *slog.Logger
}

// NewTagUseCase создает новый экземпляр TagUseCase
func NewTagUseCase(
	imageStorage ports.ImageStorage,
	tagStorage ports.TagStorage,
	searchCache ports.SearchCache,
	logger *slog.Logger,
) TagUseCase {
	return &tagUseCase{
		imageStorage: imageStorage,
		tagStorage:   tagStorage,
		searchCache:  searchCache,
		logger:       logger,
	}
}

// GetTagsForImage возвращает связи тегов изображения в порядке создания
func (uc *tagUseCase) GetTagsForImage(ctx context.Context, requester *uuid.UUID, imageID uuid.UUID) ([]domain.ImageTag, error) {
	if _, err := uc.visibleImage(ctx, requester, imageID); err != nil {
		return nil, err
	}
	assocs, err := uc.tagStorage.ListAssociations(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении тегов изображения: %w", err)
	}
	return assocs, nil
}

// AssignCustomTags привязывает к изображению пользовательские теги.
// Уверенность для них всегда 1.0, дубликаты имён и уже привязанные
// теги молча пропускаются
func (uc *tagUseCase) AssignCustomTags(ctx context.Context, requester uuid.UUID, imageID uuid.UUID, names []string) ([]domain.ImageTag, error) {
	if len(names) == 0 {
		return nil, domain.NewValidationError("tags", "список тегов пуст")
	}

	if err := uc.ownedImage(ctx, requester, imageID); err != nil {
		return nil, err
	}

	candidates := make([]tagging.Candidate, 0, len(names))
	for _, name := range names {
		candidates = append(candidates, tagging.Candidate{
			Name:       name,
			Type:       domain.TagCustom,
			Confidence: tagging.ConfidenceStrong,
		})
	}

	assocs, err := attachCandidates(ctx, uc.tagStorage, imageID, candidates)
	if err != nil {
		return nil, err
	}

	uc.searchCache.EvictAll(ctx)
	uc.logger.Info("custom tags assigned", "image_id", imageID, "count", len(assocs))
	return assocs, nil
}

// AssignAITags привязывает теги, предложенные внешней моделью, вместе
// с их уверенностью. Значения вне [0,1] приводятся к допустимым
func (uc *tagUseCase) AssignAITags(ctx context.Context, requester uuid.UUID, imageID uuid.UUID, suggestions map[string]float64) ([]domain.ImageTag, error) {
	if len(suggestions) == 0 {
		return nil, domain.NewValidationError("tags", "список предложений пуст")
	}

	if err := uc.ownedImage(ctx, requester, imageID); err != nil {
		return nil, err
	}

	// фиксированный порядок обхода, чтобы слияние дубликатов
	// было детерминированным
	names := make([]string, 0, len(suggestions))
	for name := range suggestions {
		names = append(names, name)
	}
	sort.Strings(names)

	candidates := make([]tagging.Candidate, 0, len(names))
	for _, name := range names {
		candidates = append(candidates, tagging.Candidate{
			Name:       name,
			Type:       domain.TagAI,
			Confidence: tagging.ClampConfidence(suggestions[name]),
		})
	}

	assocs, err := attachCandidates(ctx, uc.tagStorage, imageID, candidates)
	if err != nil {
		return nil, err
	}

	uc.searchCache.EvictAll(ctx)
	uc.logger.Info("ai tags assigned", "image_id", imageID, "count", len(assocs))
	return assocs, nil
}

// RemoveTag снимает тег с изображения и уменьшает счётчик
// использования тега
func (uc *tagUseCase) RemoveTag(ctx context.Context, requester uuid.UUID, imageID uuid.UUID, tagID uuid.UUID) error {
	if err := uc.ownedImage(ctx, requester, imageID); err != nil {
		return err
	}
	if err := uc.tagStorage.DeleteAssociation(ctx, imageID, tagID); err != nil {
		return err
	}
	uc.searchCache.EvictAll(ctx)
	uc.logger.Info("tag removed", "image_id", imageID, "tag_id", tagID)
	return nil
}

// GetPopularTags возвращает теги по убыванию использования.
// limit <= 0 трактуется как 10, значения выше 100 урезаются
func (uc *tagUseCase) GetPopularTags(ctx context.Context, limit int) ([]domain.Tag, error) {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	if limit > maxPopularLimit {
		limit = maxPopularLimit
	}
	tags, err := uc.tagStorage.ListPopularTags(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении популярных тегов: %w", err)
	}
	return tags, nil
}

// visibleImage возвращает изображение с проверкой видимости для чтения
func (uc *tagUseCase) visibleImage(ctx context.Context, requester *uuid.UUID, imageID uuid.UUID) (*domain.Image, error) {
	image, err := uc.imageStorage.GetImageByID(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении изображения: %w", err)
	}
	if image == nil {
		return nil, &domain.NotFoundError{Resource: "изображение"}
	}
	if image.PrivacyLevel == domain.PrivacyPrivate && (requester == nil || *requester != image.UserID) {
		return nil, &domain.NotFoundError{Resource: "изображение"}
	}
	return image, nil
}

// ownedImage проверяет, что изображение существует и принадлежит
// инициатору мутации
func (uc *tagUseCase) ownedImage(ctx context.Context, requester uuid.UUID, imageID uuid.UUID) error {
	image, err := uc.imageStorage.GetImageByID(ctx, imageID)
	if err != nil {
		return fmt.Errorf("usecase: ошибка при получении изображения: %w", err)
	}
	if image == nil {
		return &domain.NotFoundError{Resource: "изображение"}
	}
	if image.UserID != requester {
		return &domain.PermissionError{Action: "изменение тегов чужого изображения"}
	}
	return nil
}

// attachCandidates приводит кандидатов к каноническому виду, находит
// или создаёт глобальные теги и создаёт отсутствующие связи.
// Уже существующие связи (image, tag) пропускаются. Возвращает
// созданные связи в порядке кандидатов
func attachCandidates(ctx context.Context, tags ports.TagStorage, imageID uuid.UUID, raw []tagging.Candidate) ([]domain.ImageTag, error) {
	candidates := tagging.MergeCandidates(raw)
	assocs := make([]domain.ImageTag, 0, len(candidates))

	for _, candidate := range candidates {
		tag, err := tags.FindTagByName(ctx, candidate.Name)
		if err != nil {
			return nil, fmt.Errorf("usecase: ошибка при поиске тега %q: %w", candidate.Name, err)
		}
		if tag == nil {
			tag = &domain.Tag{
				ID:          uuid.New(),
				TagName:     candidate.Name,
				TagType:     candidate.Type,
				CreatedTime: time.Now(),
			}
			if err := tags.CreateTag(ctx, tag); err != nil {
				return nil, fmt.Errorf("usecase: ошибка при создании тега %q: %w", candidate.Name, err)
			}
		}

		exists, err := tags.AssociationExists(ctx, imageID, tag.ID)
		if err != nil {
			return nil, fmt.Errorf("usecase: ошибка при проверке связи тега %q: %w", candidate.Name, err)
		}
		if exists {
			continue
		}

		assoc := domain.ImageTag{
			ID:          uuid.New(),
			ImageID:     imageID,
			TagID:       tag.ID,
			Confidence:  candidate.Confidence,
			CreatedTime: time.Now(),
			Tag:         tag,
		}
		if err := tags.CreateAssociation(ctx, &assoc); err != nil {
			return nil, fmt.Errorf("usecase: ошибка при создании связи тега %q: %w", candidate.Name, err)
		}
		assocs = append(assocs, assoc)
	}
	return assocs, nil
}
