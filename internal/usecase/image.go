package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/Fronut/Picture-management-website/internal/imgproc"
	"github.com/Fronut/Picture-management-website/internal/search"
)

// UploadFile описывает один загружаемый файл внутри пакета загрузки.
// Content уже полностью прочитан хендлером: содержимое нужно и для
// хеширования, и для декодирования, поэтому поток не подходит
type UploadFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// UploadOptions задаёт общие параметры для всего пакета загрузки
type UploadOptions struct {
	Description  string
	PrivacyLevel domain.PrivacyLevel
}

// Content представляет бинарное содержимое изображения или миниатюры
// для отдачи клиенту
type Content struct {
	Data     []byte
	MimeType string
	Filename string
}

// ImageUseCase определяет интерфейс бизнес-логики работы с изображениями:
// загрузка пакетом, поиск, редактирование, удаление и выдача содержимого
type ImageUseCase interface {
	// UploadImages принимает пакет файлов и сохраняет их атомарно.
	// Если хотя бы один файл дублирует уже сохранённое изображение
	// владельца или другой файл пакета, весь пакет отклоняется
	// с ошибкой domain.DuplicateContentError
	UploadImages(ctx context.Context, ownerID uuid.UUID, files []UploadFile, opts UploadOptions) ([]domain.Image, error)

	// GetImage возвращает изображение по ID с учётом приватности:
	// чужое PRIVATE изображение недоступно
	GetImage(ctx context.Context, requester *uuid.UUID, imageID uuid.UUID) (*domain.Image, error)

	// GetImageContent возвращает оригинальное содержимое изображения
	GetImageContent(ctx context.Context, requester *uuid.UUID, imageID uuid.UUID) (*Content, error)

	// GetThumbnailContent возвращает содержимое миниатюры заданного размера
	GetThumbnailContent(ctx context.Context, requester *uuid.UUID, imageID uuid.UUID, size domain.ThumbnailSize) (*Content, error)

	// SearchImages выполняет поиск по критериям с учётом видимости,
	// результаты страниц кешируются
	SearchImages(ctx context.Context, requester *uuid.UUID, criteria search.Criteria) (*search.PageResult, error)

	// GetHighlights возвращает последние изображения владельца (до 12)
	GetHighlights(ctx context.Context, ownerID uuid.UUID) ([]domain.Image, error)

	// EditImage применяет кадрирование и тоновую коррекцию к изображению.
	// Производное изображение замещает оригинал, миниатюры пересоздаются
	EditImage(ctx context.Context, requester uuid.UUID, imageID uuid.UUID, req imgproc.EditRequest) (*domain.Image, error)

	// DeleteImage удаляет изображение вместе с миниатюрами, EXIF
	// и привязками тегов
	DeleteImage(ctx context.Context, requester uuid.UUID, imageID uuid.UUID) error

	// WarmupSearchCache заранее прогревает кеш первой страницей
	// поиска владельца после изменения его изображений
	WarmupSearchCache(ctx context.Context, ownerID uuid.UUID) error
}

// TagUseCase определяет интерфейс бизнес-логики работы с тегами
type TagUseCase interface {
	// GetTagsForImage возвращает привязки тегов изображения
	// в порядке создания
	GetTagsForImage(ctx context.Context, requester *uuid.UUID, imageID uuid.UUID) ([]domain.ImageTag, error)

	// AssignCustomTags привязывает пользовательские теги с уверенностью 1.0
	AssignCustomTags(ctx context.Context, requester uuid.UUID, imageID uuid.UUID, names []string) ([]domain.ImageTag, error)

	// AssignAITags привязывает предложенные моделью теги с их уверенностью
	AssignAITags(ctx context.Context, requester uuid.UUID, imageID uuid.UUID, suggestions map[string]float64) ([]domain.ImageTag, error)

	// RemoveTag снимает тег с изображения
	RemoveTag(ctx context.Context, requester uuid.UUID, imageID uuid.UUID, tagID uuid.UUID) error

	// GetPopularTags возвращает самые используемые теги.
	// limit <= 0 трактуется как 10, максимум 100
	GetPopularTags(ctx context.Context, limit int) ([]domain.Tag, error)
}
