package payloads

import "github.com/google/uuid"

// Типы событий мутаций изображений
const (
	ImageUploaded = "image.uploaded"
	ImageEdited   = "image.edited"
	ImageDeleted  = "image.deleted"
)

// ImageEventPayload — сообщение о мутации изображения для очереди.
// Воркер прогрева кэша использует OwnerID, чтобы заново вычислить
// первую страницу поиска владельца
type ImageEventPayload struct {
	EventType string    `json:"event_type"`
	ImageID   uuid.UUID `json:"image_id"`
	OwnerID   uuid.UUID `json:"owner_id"`
}
