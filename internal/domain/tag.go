package domain

import (
	"time"

	"github.com/google/uuid"
)

// TagType определяет происхождение тега
type TagType string

const (
	TagCustom TagType = "CUSTOM"
	TagAI     TagType = "AI"
	TagAuto   TagType = "AUTO"
)

// Tag представляет глобальную сущность тега,
// соответствует таблице tags в бд.
// Имя тега уникально без учёта регистра; счётчик использования
// растёт при создании связи и уменьшается при её удалении (не ниже нуля)
type Tag struct {
	ID          uuid.UUID `json:"id"`
	TagName     string    `json:"tag_name"`
	TagType     TagType   `json:"tag_type"`
	UsageCount  int       `json:"usage_count"`
	CreatedTime time.Time `json:"created_time"`
}

func (Tag) TableName() string {
	return "tags"
}

// ImageTag представляет связь изображения с тегом,
// соответствует таблице image_tags в бд.
// На пару (image_id, tag_id) приходится максимум одна связь
type ImageTag struct {
	ID          uuid.UUID `json:"id"`
	ImageID     uuid.UUID `json:"image_id"`
	TagID       uuid.UUID `json:"tag_id"`
	Confidence  float64   `json:"confidence"`
	CreatedTime time.Time `json:"created_time"`

	Tag *Tag `json:"tag,omitempty" gorm:"foreignKey:TagID"`
}

func (ImageTag) TableName() string {
	return "image_tags"
}
