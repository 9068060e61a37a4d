package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Fronut/Picture-management-website/internal/core/ports"
	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/Fronut/Picture-management-website/internal/imgproc"
	"github.com/Fronut/Picture-management-website/internal/search"
	"github.com/Fronut/Picture-management-website/internal/usecase"
)

// userIDHeader — заголовок идентификации инициатора запроса.
// Для чтений он необязателен (анонимный доступ к публичным
// изображениям), для мутаций обязателен
const userIDHeader = "X-User-ID"

// ImageHandler — обработчик HTTP-запросов для работы с изображениями и тегами.
type ImageHandler struct {
	imageUseCase  usecase.ImageUseCase
	tagUseCase    usecase.TagUseCase
	userStorage   ports.UserStorage
	maxUploadSize int64
	logger        *slog.Logger
}

// NewImageHandler создаёт новый экземпляр ImageHandler.
func NewImageHandler(
	imageUC usecase.ImageUseCase,
	tagUC usecase.TagUseCase,
	userStorage ports.UserStorage,
	maxUploadSize int64,
	logger *slog.Logger,
) *ImageHandler {
	return &ImageHandler{
		imageUseCase:  imageUC,
		tagUseCase:    tagUC,
		userStorage:   userStorage,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// respondWithJSON — отправляет JSON-ответ клиенту.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error("failed to marshal JSON response", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

// respondWithError — отправляет JSON-ответ с ошибкой.
func respondWithError(w http.ResponseWriter, code int, message string, logger *slog.Logger) {
	respondWithJSON(w, code, map[string]string{"error": message}, logger)
}

// respondWithDomainError — транслирует доменную ошибку в HTTP-статус.
func respondWithDomainError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var (
		validationErr *domain.ValidationError
		duplicateErr  *domain.DuplicateContentError
		notFoundErr   *domain.NotFoundError
		permissionErr *domain.PermissionError
		boundsErr     *domain.OutOfBoundsError
	)

	switch {
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, validationErr.Error(), logger)
	case errors.As(err, &boundsErr):
		respondWithError(w, http.StatusBadRequest, boundsErr.Error(), logger)
	case errors.As(err, &duplicateErr):
		respondWithJSON(w, http.StatusConflict, map[string]interface{}{
			"error":      duplicateErr.Error(),
			"duplicates": duplicateErr.Filenames,
		}, logger)
	case errors.As(err, &notFoundErr):
		respondWithError(w, http.StatusNotFound, notFoundErr.Error(), logger)
	case errors.As(err, &permissionErr):
		respondWithError(w, http.StatusForbidden, permissionErr.Error(), logger)
	default:
		logger.Error("unhandled error", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Внутренняя ошибка сервера", logger)
	}
}

// requesterID возвращает идентификатор инициатора из заголовка;
// nil, если заголовок не задан
func requesterID(r *http.Request) (*uuid.UUID, error) {
	raw := r.Header.Get(userIDHeader)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// requireRequesterID — как requesterID, но заголовок обязателен
func (h *ImageHandler) requireRequesterID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := requesterID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Некорректный заголовок X-User-ID", h.logger)
		return uuid.Nil, false
	}
	if id == nil {
		respondWithError(w, http.StatusUnauthorized, "Не указан заголовок X-User-ID", h.logger)
		return uuid.Nil, false
	}
	return *id, true
}

func (h *ImageHandler) optionalRequesterID(w http.ResponseWriter, r *http.Request) (*uuid.UUID, bool) {
	id, err := requesterID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Некорректный заголовок X-User-ID", h.logger)
		return nil, false
	}
	return id, true
}

func (h *ImageHandler) pathImageID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "imageID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Некорректный идентификатор изображения", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

// RegisterUser — находит или создаёт пользователя по имени.
func (h *ImageHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Username) == "" {
		respondWithError(w, http.StatusBadRequest, "Не указано имя пользователя", h.logger)
		return
	}

	user, err := h.userStorage.GetOrCreateUser(r.Context(), strings.TrimSpace(body.Username))
	if err != nil {
		h.logger.Error("failed to get or create user", "username", body.Username, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Ошибка при создании пользователя", h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, user, h.logger)
}

// UploadImages — принимает multipart-пакет файлов (поле "files")
// и сохраняет его атомарно.
func (h *ImageHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireRequesterID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		respondWithError(w, http.StatusBadRequest, "Не удалось разобрать multipart-запрос", h.logger)
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		respondWithError(w, http.StatusBadRequest, "Пакет загрузки пуст: не передано ни одного файла в поле 'files'", h.logger)
		return
	}

	files := make([]usecase.UploadFile, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		if header.Size > h.maxUploadSize {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Файл "+header.Filename+" превышает допустимый размер", h.logger)
			return
		}
		file, err := header.Open()
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Не удалось прочитать файл "+header.Filename, h.logger)
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Не удалось прочитать файл "+header.Filename, h.logger)
			return
		}
		files = append(files, usecase.UploadFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     content,
		})
	}

	opts := usecase.UploadOptions{
		Description:  r.FormValue("description"),
		PrivacyLevel: domain.PrivacyLevel(strings.ToUpper(r.FormValue("privacy_level"))),
	}

	h.logger.Info("processing upload batch", "owner_id", ownerID, "count", len(files))

	images, err := h.imageUseCase.UploadImages(r.Context(), ownerID, files, opts)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusCreated, images, h.logger)
}

// GetImage — возвращает метаданные изображения.
func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	imageID, ok := h.pathImageID(w, r)
	if !ok {
		return
	}
	requester, ok := h.optionalRequesterID(w, r)
	if !ok {
		return
	}

	image, err := h.imageUseCase.GetImage(r.Context(), requester, imageID)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, image, h.logger)
}

// GetImageContent — отдаёт оригинальные байты изображения.
func (h *ImageHandler) GetImageContent(w http.ResponseWriter, r *http.Request) {
	imageID, ok := h.pathImageID(w, r)
	if !ok {
		return
	}
	requester, ok := h.optionalRequesterID(w, r)
	if !ok {
		return
	}

	content, err := h.imageUseCase.GetImageContent(r.Context(), requester, imageID)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	h.writeContent(w, content)
}

// GetThumbnailContent — отдаёт миниатюру заданного размера.
func (h *ImageHandler) GetThumbnailContent(w http.ResponseWriter, r *http.Request) {
	imageID, ok := h.pathImageID(w, r)
	if !ok {
		return
	}
	requester, ok := h.optionalRequesterID(w, r)
	if !ok {
		return
	}

	size := domain.ThumbnailSize(strings.ToUpper(chi.URLParam(r, "size")))
	if size != domain.ThumbnailSmall && size != domain.ThumbnailMedium && size != domain.ThumbnailLarge {
		respondWithError(w, http.StatusBadRequest, "Недопустимый размер миниатюры", h.logger)
		return
	}

	content, err := h.imageUseCase.GetThumbnailContent(r.Context(), requester, imageID, size)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	h.writeContent(w, content)
}

func (h *ImageHandler) writeContent(w http.ResponseWriter, content *usecase.Content) {
	w.Header().Set("Content-Type", content.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	if _, err := w.Write(content.Data); err != nil {
		h.logger.Error("failed to write content response", "error", err)
	}
}

// SearchImages — выполняет поиск по критериям из query-параметров.
func (h *ImageHandler) SearchImages(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.optionalRequesterID(w, r)
	if !ok {
		return
	}

	criteria, err := parseSearchCriteria(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	page, err := h.imageUseCase.SearchImages(r.Context(), requester, criteria)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, page, h.logger)
}

// parseSearchCriteria собирает критерии поиска из query-параметров
func parseSearchCriteria(r *http.Request) (search.Criteria, error) {
	q := r.URL.Query()
	criteria := search.Criteria{
		Keyword:     q.Get("keyword"),
		CameraMake:  q.Get("camera_make"),
		CameraModel: q.Get("camera_model"),
		SortBy:      q.Get("sort_by"),
		SortDir:     q.Get("sort_dir"),
	}

	if raw := q.Get("privacy_level"); raw != "" {
		level := domain.PrivacyLevel(strings.ToUpper(raw))
		criteria.PrivacyLevel = &level
	}
	if raw := q.Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				criteria.Tags = append(criteria.Tags, tag)
			}
		}
	}
	criteria.OnlyOwn = q.Get("only_own") == "true"

	for name, dst := range map[string]**time.Time{
		"uploaded_from": &criteria.UploadedFrom,
		"uploaded_to":   &criteria.UploadedTo,
	} {
		if raw := q.Get(name); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return criteria, domain.NewValidationError(name, "ожидается время в формате RFC3339")
			}
			*dst = &t
		}
	}

	for name, dst := range map[string]**int{
		"min_width":  &criteria.MinWidth,
		"max_width":  &criteria.MaxWidth,
		"min_height": &criteria.MinHeight,
		"max_height": &criteria.MaxHeight,
	} {
		if raw := q.Get(name); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return criteria, domain.NewValidationError(name, "ожидается целое число")
			}
			*dst = &v
		}
	}

	criteria.Page, _ = strconv.Atoi(q.Get("page"))
	criteria.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	return criteria, nil
}

// GetHighlights — возвращает последние изображения владельца.
func (h *ImageHandler) GetHighlights(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.requireRequesterID(w, r)
	if !ok {
		return
	}

	images, err := h.imageUseCase.GetHighlights(r.Context(), ownerID)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, images, h.logger)
}

// EditImage — применяет кадрирование и тоновую коррекцию.
func (h *ImageHandler) EditImage(w http.ResponseWriter, r *http.Request) {
	imageID, ok := h.pathImageID(w, r)
	if !ok {
		return
	}
	requester, ok := h.requireRequesterID(w, r)
	if !ok {
		return
	}

	var req imgproc.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Некорректное тело запроса", h.logger)
		return
	}

	image, err := h.imageUseCase.EditImage(r.Context(), requester, imageID, req)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, image, h.logger)
}

// DeleteImage — удаляет изображение со всеми производными.
func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	imageID, ok := h.pathImageID(w, r)
	if !ok {
		return
	}
	requester, ok := h.requireRequesterID(w, r)
	if !ok {
		return
	}

	if err := h.imageUseCase.DeleteImage(r.Context(), requester, imageID); err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetImageTags — возвращает теги изображения.
func (h *ImageHandler) GetImageTags(w http.ResponseWriter, r *http.Request) {
	imageID, ok := h.pathImageID(w, r)
	if !ok {
		return
	}
	requester, ok := h.optionalRequesterID(w, r)
	if !ok {
		return
	}

	tags, err := h.tagUseCase.GetTagsForImage(r.Context(), requester, imageID)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, tags, h.logger)
}

// AssignCustomTags — привязывает пользовательские теги.
func (h *ImageHandler) AssignCustomTags(w http.ResponseWriter, r *http.Request) {
	imageID, ok := h.pathImageID(w, r)
	if !ok {
		return
	}
	requester, ok := h.requireRequesterID(w, r)
	if !ok {
		return
	}

	var body struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Некорректное тело запроса", h.logger)
		return
	}

	tags, err := h.tagUseCase.AssignCustomTags(r.Context(), requester, imageID, body.Tags)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusCreated, tags, h.logger)
}

// AssignAITags — привязывает теги, предложенные моделью.
func (h *ImageHandler) AssignAITags(w http.ResponseWriter, r *http.Request) {
	imageID, ok := h.pathImageID(w, r)
	if !ok {
		return
	}
	requester, ok := h.requireRequesterID(w, r)
	if !ok {
		return
	}

	var body struct {
		Suggestions map[string]float64 `json:"suggestions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Некорректное тело запроса", h.logger)
		return
	}

	tags, err := h.tagUseCase.AssignAITags(r.Context(), requester, imageID, body.Suggestions)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusCreated, tags, h.logger)
}

// RemoveTag — снимает тег с изображения.
func (h *ImageHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	imageID, ok := h.pathImageID(w, r)
	if !ok {
		return
	}
	requester, ok := h.requireRequesterID(w, r)
	if !ok {
		return
	}

	tagID, err := uuid.Parse(chi.URLParam(r, "tagID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Некорректный идентификатор тега", h.logger)
		return
	}

	if err := h.tagUseCase.RemoveTag(r.Context(), requester, imageID, tagID); err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPopularTags — возвращает самые используемые теги.
func (h *ImageHandler) GetPopularTags(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	tags, err := h.tagUseCase.GetPopularTags(r.Context(), limit)
	if err != nil {
		respondWithDomainError(w, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, tags, h.logger)
}
