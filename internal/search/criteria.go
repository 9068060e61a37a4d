package search

import (
	"time"

	"github.com/Fronut/Picture-management-website/internal/domain"
)

// Criteria описывает запрос поиска изображений.
// Сериализация в JSON детерминирована и используется для ключа кэша,
// поэтому порядок и имена полей менять нельзя без инвалидации кэша
type Criteria struct {
	Keyword      string               `json:"keyword,omitempty"`
	PrivacyLevel *domain.PrivacyLevel `json:"privacy_level,omitempty"`
	Tags         []string             `json:"tags,omitempty"`
	UploadedFrom *time.Time           `json:"uploaded_from,omitempty"`
	UploadedTo   *time.Time           `json:"uploaded_to,omitempty"`
	CameraMake   string               `json:"camera_make,omitempty"`
	CameraModel  string               `json:"camera_model,omitempty"`
	MinWidth     *int                 `json:"min_width,omitempty"`
	MaxWidth     *int                 `json:"max_width,omitempty"`
	MinHeight    *int                 `json:"min_height,omitempty"`
	MaxHeight    *int                 `json:"max_height,omitempty"`
	OnlyOwn      bool                 `json:"only_own,omitempty"`
	Page         int                  `json:"page"`
	PerPage      int                  `json:"per_page"`
	SortBy       string               `json:"sort_by,omitempty"`
	SortDir      string               `json:"sort_dir,omitempty"`
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Normalize приводит пагинацию к допустимым значениям
func (c *Criteria) Normalize() {
	if c.Page <= 0 {
		c.Page = 1
	}
	if c.PerPage <= 0 {
		c.PerPage = defaultPerPage
	}
	if c.PerPage > maxPerPage {
		c.PerPage = maxPerPage
	}
}

// Validate проверяет диапазоны размеров до обращения к бд
func (c *Criteria) Validate() error {
	if c.MinWidth != nil && c.MaxWidth != nil && *c.MinWidth > *c.MaxWidth {
		return domain.NewValidationError("width", "минимальная ширина больше максимальной")
	}
	if c.MinHeight != nil && c.MaxHeight != nil && *c.MinHeight > *c.MaxHeight {
		return domain.NewValidationError("height", "минимальная высота больше максимальной")
	}
	if c.PrivacyLevel != nil && !c.PrivacyLevel.Valid() {
		return domain.NewValidationError("privacy_level", "недопустимый уровень приватности")
	}
	return nil
}

// PageResult представляет страницу результатов поиска
type PageResult struct {
	Items   []domain.Image `json:"items"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Total   int64          `json:"total"`
}
