package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Fronut/Picture-management-website/internal/core/ports"
	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/Fronut/Picture-management-website/internal/imgproc"
	"github.com/Fronut/Picture-management-website/internal/messaging/payloads"
	"github.com/Fronut/Picture-management-website/internal/search"
	"github.com/Fronut/Picture-management-website/internal/tagging"
)

// highlightsLimit — размер ленты последних изображений владельца
const highlightsLimit = 12

// imageUseCase implements ImageUseCase
type imageUseCase struct {
	imageStorage ports.ImageStorage
	tagStorage   ports.TagStorage
	userStorage  ports.UserStorage
	fileStorage  ports.FileStorage
	metadata     ports.MetadataExtractor
	thumbnails   *imgproc.ThumbnailEngine
	searchCache  ports.SearchCache
	publisher    ports.ImageEventPublisher
	logger       *slog.Logger
}

// NewImageUseCase создает новый экземпляр ImageUseCase
func NewImageUseCase(
	imageStorage ports.ImageStorage,
	tagStorage ports.TagStorage,
	userStorage ports.UserStorage,
	fileStorage ports.FileStorage,
	metadata ports.MetadataExtractor,
	thumbnails *imgproc.ThumbnailEngine,
	searchCache ports.SearchCache,
	publisher ports.ImageEventPublisher,
	logger *slog.Logger,
) ImageUseCase {
	return &imageUseCase{
		imageStorage: imageStorage,
		tagStorage:   tagStorage,
		userStorage:  userStorage,
		fileStorage:  fileStorage,
		metadata:     metadata,
		thumbnails:   thumbnails,
		searchCache:  searchCache,
		publisher:    publisher,
		logger:       logger,
	}
}

// UploadImages сохраняет пакет файлов по принципу "всё или ничего".
// Перед записью проверяются дубликаты: и против уже сохранённых
// изображений владельца, и между файлами самого пакета. При любом
// совпадении пакет отклоняется целиком с перечислением всех
// затронутых имён файлов
func (uc *imageUseCase) UploadImages(ctx context.Context, ownerID uuid.UUID, files []UploadFile, opts UploadOptions) ([]domain.Image, error) {
	if len(files) == 0 {
		return nil, domain.NewValidationError("files", "пакет загрузки пуст")
	}
	privacy := opts.PrivacyLevel
	if privacy == "" {
		privacy = domain.PrivacyPublic
	}
	if !privacy.Valid() {
		return nil, domain.NewValidationError("privacy_level", "недопустимый уровень приватности")
	}

	// 1. Проверяем, что владелец существует
	owner, err := uc.userStorage.GetUserByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении пользователя: %w", err)
	}
	if owner == nil {
		return nil, &domain.NotFoundError{Resource: "пользователь"}
	}

	// 2. Хешируем содержимое каждого файла и собираем конфликты
	hashes := make([]string, len(files))
	byHash := make(map[string][]string)
	for i, f := range files {
		if len(f.Content) == 0 {
			return nil, domain.NewValidationError("files", fmt.Sprintf("файл %s пуст", f.Filename))
		}
		hashes[i] = imgproc.HashBytes(f.Content)
		byHash[hashes[i]] = append(byHash[hashes[i]], f.Filename)
	}

	var offending []string
	seen := make(map[string]bool)
	addOffender := func(name string) {
		if !seen[name] {
			seen[name] = true
			offending = append(offending, name)
		}
	}
	checked := make(map[string]bool)
	for i, f := range files {
		h := hashes[i]
		// дубликаты внутри пакета: в конфликт попадают все имена группы
		if len(byHash[h]) > 1 {
			for _, name := range byHash[h] {
				addOffender(name)
			}
			continue
		}
		if checked[h] {
			continue
		}
		checked[h] = true
		exists, err := uc.imageStorage.ExistsByOwnerAndHash(ctx, ownerID, h)
		if err != nil {
			return nil, fmt.Errorf("usecase: ошибка при проверке дубликата: %w", err)
		}
		if exists {
			addOffender(f.Filename)
		}
	}
	if len(offending) > 0 {
		uc.logger.Info("upload batch rejected: duplicate content",
			"owner_id", ownerID, "files", offending)
		return nil, &domain.DuplicateContentError{Filenames: offending}
	}

	// 3. Декодируем, извлекаем метаданные и загружаем файлы в хранилище
	images := make([]*domain.Image, 0, len(files))
	var uploadedKeys []string
	cleanup := func() {
		for _, key := range uploadedKeys {
			if err := uc.fileStorage.DeleteFile(ctx, key); err != nil {
				uc.logger.Warn("failed to clean up uploaded object", "key", key, "error", err)
			}
		}
	}

	now := time.Now()
	for i, f := range files {
		decoded, err := imgproc.DecodeEditable(f.Content)
		if err != nil {
			cleanup()
			return nil, domain.NewValidationError("files", fmt.Sprintf("файл %s не является поддерживаемым изображением", f.Filename))
		}
		bounds := decoded.Bounds()

		ext := strings.ToLower(filepath.Ext(f.Filename))
		storedFilename := uuid.New().String() + ext
		storageKey := fmt.Sprintf("%s/original/%s", ownerID, storedFilename)

		if _, err := uc.fileStorage.UploadFile(ctx, storageKey, bytes.NewReader(f.Content), f.ContentType); err != nil {
			cleanup()
			return nil, fmt.Errorf("usecase: ошибка при загрузке файла %s: %w", f.Filename, err)
		}
		uploadedKeys = append(uploadedKeys, storageKey)

		image := &domain.Image{
			ID:               uuid.New(),
			UserID:           ownerID,
			OriginalFilename: f.Filename,
			StoredFilename:   storedFilename,
			StorageKey:       storageKey,
			FileSize:         int64(len(f.Content)),
			MimeType:         f.ContentType,
			Width:            bounds.Dx(),
			Height:           bounds.Dy(),
			Description:      opts.Description,
			PrivacyLevel:     privacy,
			ContentHash:      hashes[i],
			UploadTime:       now,
		}
		image.ExifData = uc.metadata.Extract(f.Content)
		image.Thumbnails = uc.thumbnails.Generate(ctx, ownerID, storedFilename, decoded)
		images = append(images, image)
	}

	// 4. Фиксируем весь пакет одной транзакцией
	if err := uc.imageStorage.SaveImages(ctx, images); err != nil {
		cleanup()
		return nil, fmt.Errorf("usecase: ошибка при сохранении пакета: %w", err)
	}

	// 5. Выводим и привязываем автоматические теги; сбой здесь уже
	// не откатывает загрузку
	for _, image := range images {
		candidates := tagging.DeriveAutoTags(image, image.ExifData)
		assocs, err := attachCandidates(ctx, uc.tagStorage, image.ID, candidates)
		if err != nil {
			uc.logger.Warn("failed to attach auto tags", "image_id", image.ID, "error", err)
			continue
		}
		image.ImageTags = assocs
	}

	// 6. Публикуем события и сбрасываем кэш поиска
	for _, image := range images {
		uc.publishEvent(ctx, payloads.ImageUploaded, image.ID, ownerID)
	}
	uc.searchCache.EvictAll(ctx)

	uc.logger.Info("upload batch stored", "owner_id", ownerID, "count", len(images))

	result := make([]domain.Image, len(images))
	for i, image := range images {
		result[i] = *image
	}
	return result, nil
}

// GetImage возвращает изображение с учётом приватности. Чужое PRIVATE
// изображение неотличимо от отсутствующего
func (uc *imageUseCase) GetImage(ctx context.Context, requester *uuid.UUID, imageID uuid.UUID) (*domain.Image, error) {
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

// GetImageContent возвращает оригинальные байты изображения
func (uc *imageUseCase) GetImageContent(ctx context.Context, requester *uuid.UUID, imageID uuid.UUID) (*Content, error) {
	image, err := uc.GetImage(ctx, requester, imageID)
	if err != nil {
		return nil, err
	}
	data, err := uc.readObject(ctx, image.StorageKey)
	if err != nil {
		return nil, err
	}
	return &Content{Data: data, MimeType: image.MimeType, Filename: image.OriginalFilename}, nil
}

// GetThumbnailContent возвращает байты миниатюры заданного размера
func (uc *imageUseCase) GetThumbnailContent(ctx context.Context, requester *uuid.UUID, imageID uuid.UUID, size domain.ThumbnailSize) (*Content, error) {
	image, err := uc.GetImage(ctx, requester, imageID)
	if err != nil {
		return nil, err
	}
	for _, thumb := range image.Thumbnails {
		if thumb.SizeType == size {
			data, err := uc.readObject(ctx, thumb.StorageKey)
			if err != nil {
				return nil, err
			}
			return &Content{Data: data, MimeType: "image/jpeg", Filename: filepath.Base(thumb.StorageKey)}, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "миниатюра"}
}

// SearchImages выполняет поиск со сквозным чтением через кэш:
// промах ведёт в бд, результат страницы кладётся в кэш с TTL
func (uc *imageUseCase) SearchImages(ctx context.Context, requester *uuid.UUID, criteria search.Criteria) (*search.PageResult, error) {
	criteria.Normalize()
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	if page, ok := uc.searchCache.GetSearchPage(ctx, requester, criteria); ok {
		uc.logger.Debug("search cache hit", "page", criteria.Page)
		return page, nil
	}

	query, err := search.Build(criteria, requester)
	if err != nil {
		return nil, err
	}

	page, err := uc.imageStorage.SearchImages(ctx, query, criteria.Page, criteria.PerPage)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при поиске изображений: %w", err)
	}

	uc.searchCache.SetSearchPage(ctx, requester, criteria, page)
	return page, nil
}

// GetHighlights возвращает последние изображения владельца (до 12)
func (uc *imageUseCase) GetHighlights(ctx context.Context, ownerID uuid.UUID) ([]domain.Image, error) {
	images, err := uc.imageStorage.ListRecentByOwner(ctx, ownerID, highlightsLimit)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении последних изображений: %w", err)
	}
	return images, nil
}

// EditImage применяет кадрирование и тоновую коррекцию. Порядок
// фиксирован: сначала кадрирование, затем тон. Производное изображение
// пишется поверх оригинала, запись в бд и миниатюры обновляются
// только после успешной записи байтов
func (uc *imageUseCase) EditImage(ctx context.Context, requester uuid.UUID, imageID uuid.UUID, req imgproc.EditRequest) (*domain.Image, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	image, err := uc.imageStorage.GetImageByID(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении изображения: %w", err)
	}
	if image == nil {
		return nil, &domain.NotFoundError{Resource: "изображение"}
	}
	if image.UserID != requester {
		return nil, &domain.PermissionError{Action: "редактирование чужого изображения"}
	}

	// 1. Читаем и декодируем текущие байты
	data, err := uc.readObject(ctx, image.StorageKey)
	if err != nil {
		return nil, err
	}
	canvas, err := imgproc.DecodeEditable(data)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при декодировании изображения: %w", err)
	}

	// 2. Применяем операции
	if req.Crop != nil {
		canvas, err = imgproc.ApplyCrop(canvas, *req.Crop)
		if err != nil {
			return nil, err
		}
	}
	if req.Tone.HasAdjustments() {
		canvas = imgproc.ApplyTone(canvas, *req.Tone)
	}

	// 3. Кодируем результат и пишем его поверх оригинала
	encoded, format, err := imgproc.EncodeForImage(canvas, image.StoredFilename, image.MimeType)
	if err != nil {
		return nil, fmt.Errorf("usecase: %w", err)
	}
	mimeType := "image/jpeg"
	if format == "png" {
		mimeType = "image/png"
	}
	if _, err := uc.fileStorage.UploadFile(ctx, image.StorageKey, bytes.NewReader(encoded), mimeType); err != nil {
		return nil, fmt.Errorf("usecase: ошибка при записи отредактированного изображения: %w", err)
	}

	// 4. Обновляем атрибуты записи и пересоздаём миниатюры
	bounds := canvas.Bounds()
	image.Width = bounds.Dx()
	image.Height = bounds.Dy()
	image.FileSize = int64(len(encoded))
	image.MimeType = mimeType
	image.ContentHash = imgproc.HashBytes(encoded)

	// старые объекты миниатюр удаляются до перегенерации, иначе пресет,
	// упавший при перегенерации, оставил бы в хранилище объект без записи
	for _, thumb := range image.Thumbnails {
		if err := uc.fileStorage.DeleteFile(ctx, thumb.StorageKey); err != nil {
			uc.logger.Warn("failed to delete stored object", "key", thumb.StorageKey, "error", err)
		}
	}

	newThumbnails := uc.thumbnails.Generate(ctx, image.UserID, image.StoredFilename, canvas)
	if err := uc.imageStorage.UpdateAfterEdit(ctx, image, newThumbnails); err != nil {
		return nil, fmt.Errorf("usecase: ошибка при сохранении результата редактирования: %w", err)
	}

	uc.publishEvent(ctx, payloads.ImageEdited, image.ID, image.UserID)
	uc.searchCache.EvictAll(ctx)

	uc.logger.Info("image edited",
		"image_id", image.ID, "width", image.Width, "height", image.Height)
	return image, nil
}

// DeleteImage удаляет запись с каскадом и бинарные объекты.
// Удаление объектов из файлового хранилища выполняется после фиксации
// транзакции и не откатывает её при сбое
func (uc *imageUseCase) DeleteImage(ctx context.Context, requester uuid.UUID, imageID uuid.UUID) error {
	image, err := uc.imageStorage.GetImageByID(ctx, imageID)
	if err != nil {
		return fmt.Errorf("usecase: ошибка при получении изображения: %w", err)
	}
	if image == nil {
		return &domain.NotFoundError{Resource: "изображение"}
	}
	if image.UserID != requester {
		return &domain.PermissionError{Action: "удаление чужого изображения"}
	}

	if err := uc.imageStorage.DeleteImage(ctx, image); err != nil {
		return fmt.Errorf("usecase: ошибка при удалении изображения: %w", err)
	}

	keys := []string{image.StorageKey}
	for _, thumb := range image.Thumbnails {
		keys = append(keys, thumb.StorageKey)
	}
	for _, key := range keys {
		if err := uc.fileStorage.DeleteFile(ctx, key); err != nil {
			uc.logger.Warn("failed to delete stored object", "key", key, "error", err)
		}
	}

	uc.publishEvent(ctx, payloads.ImageDeleted, image.ID, image.UserID)
	uc.searchCache.EvictAll(ctx)

	uc.logger.Info("image deleted", "image_id", image.ID, "owner_id", image.UserID)
	return nil
}

// WarmupSearchCache заранее вычисляет и кэширует первую страницу
// поиска собственных изображений владельца
func (uc *imageUseCase) WarmupSearchCache(ctx context.Context, ownerID uuid.UUID) error {
	criteria := search.Criteria{OnlyOwn: true}
	criteria.Normalize()

	query, err := search.Build(criteria, &ownerID)
	if err != nil {
		return err
	}
	page, err := uc.imageStorage.SearchImages(ctx, query, criteria.Page, criteria.PerPage)
	if err != nil {
		return fmt.Errorf("usecase: ошибка при прогреве кэша: %w", err)
	}

	uc.searchCache.SetSearchPage(ctx, &ownerID, criteria, page)
	uc.logger.Debug("search cache warmed", "owner_id", ownerID, "total", page.Total)
	return nil
}

func (uc *imageUseCase) readObject(ctx context.Context, key string) ([]byte, error) {
	reader, err := uc.fileStorage.GetFile(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при чтении объекта %s: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при чтении объекта %s: %w", key, err)
	}
	return data, nil
}

func (uc *imageUseCase) publishEvent(ctx context.Context, eventType string, imageID, ownerID uuid.UUID) {
	payload := payloads.ImageEventPayload{
		EventType: eventType,
		ImageID:   imageID,
		OwnerID:   ownerID,
	}
	if err := uc.publisher.PublishImageEvent(ctx, payload); err != nil {
		uc.logger.Warn("failed to publish image event",
			"event_type", eventType, "image_id", imageID, "error", err)
	}
}
