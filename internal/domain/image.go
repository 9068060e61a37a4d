package domain

import (
	"time"

	"github.com/google/uuid"
)

// PrivacyLevel определяет уровень приватности изображения
type PrivacyLevel string

const (
	PrivacyPublic  PrivacyLevel = "PUBLIC"
	PrivacyPrivate PrivacyLevel = "PRIVATE"
)

// Valid проверяет, что уровень приватности один из допустимых
func (p PrivacyLevel) Valid() bool {
	return p == PrivacyPublic || p == PrivacyPrivate
}

// Image представляет модель изображения в системе,
// соответствует таблице images в бд.
// Отпечаток содержимого (ContentHash) уникален в пределах одного владельца:
// два разных пользователя могут загрузить одинаковые байты.
type Image struct {
	ID               uuid.UUID    `json:"id"`
	UserID           uuid.UUID    `json:"user_id"`
	OriginalFilename string       `json:"original_filename"`
	StoredFilename   string       `json:"stored_filename"`
	StorageKey       string       `json:"storage_key"`
	FileSize         int64        `json:"file_size"`
	MimeType         string       `json:"mime_type"`
	Width            int          `json:"width"`
	Height           int          `json:"height"`
	Description      string       `json:"description"`
	PrivacyLevel     PrivacyLevel `json:"privacy_level"`
	ContentHash      string       `json:"content_hash"`
	UploadTime       time.Time    `json:"upload_time"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	ExifData   *ExifData   `json:"exif_data,omitempty" gorm:"foreignKey:ImageID"`
	Thumbnails []Thumbnail `json:"thumbnails,omitempty" gorm:"foreignKey:ImageID"`
	ImageTags  []ImageTag  `json:"image_tags,omitempty" gorm:"foreignKey:ImageID"`
}

func (Image) TableName() string {
	return "images"
}

// ExifData представляет извлечённые при загрузке метаданные снимка,
// соответствует таблице exif_data в бд (одна запись на изображение)
type ExifData struct {
	ID           uuid.UUID  `json:"id"`
	ImageID      uuid.UUID  `json:"image_id"`
	CameraMake   string     `json:"camera_make,omitempty"`
	CameraModel  string     `json:"camera_model,omitempty"`
	TakenTime    *time.Time `json:"taken_time,omitempty"`
	ExposureTime string     `json:"exposure_time,omitempty"`
	FNumber      string     `json:"f_number,omitempty"`
	ISOSpeed     *int       `json:"iso_speed,omitempty"`
	FocalLength  string     `json:"focal_length,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	LocationName string     `json:"location_name,omitempty"`
}

func (ExifData) TableName() string {
	return "exif_data"
}

// Empty возвращает true, если ни одно поле метаданных не заполнено
func (e *ExifData) Empty() bool {
	if e == nil {
		return true
	}
	return e.CameraMake == "" && e.CameraModel == "" && e.TakenTime == nil &&
		e.ExposureTime == "" && e.FNumber == "" && e.ISOSpeed == nil &&
		e.FocalLength == "" && e.Latitude == nil && e.Longitude == nil &&
		e.LocationName == ""
}

// ThumbnailSize определяет класс размера миниатюры
type ThumbnailSize string

const (
	ThumbnailSmall  ThumbnailSize = "SMALL"
	ThumbnailMedium ThumbnailSize = "MEDIUM"
	ThumbnailLarge  ThumbnailSize = "LARGE"
)

// Thumbnail представляет миниатюру изображения,
// соответствует таблице thumbnails в бд.
// На пару (image_id, size_type) приходится максимум одна запись
type Thumbnail struct {
	ID          uuid.UUID     `json:"id"`
	ImageID     uuid.UUID     `json:"image_id"`
	SizeType    ThumbnailSize `json:"size_type"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	StorageKey  string        `json:"storage_key"`
	FileSize    int64         `json:"file_size"`
	CreatedTime time.Time     `json:"created_time"`
}

func (Thumbnail) TableName() string {
	return "thumbnails"
}
