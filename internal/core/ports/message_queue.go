package ports

import (
	"context"

	"github.com/Fronut/Picture-management-website/internal/messaging/payloads"
)

// ImageEventPublisher определяет методы для публикации событий о мутациях
// изображений (загрузка, редактирование, удаление).
// Этот интерфейс используется use-case-слоем после фиксации мутации
type ImageEventPublisher interface {
	PublishImageEvent(ctx context.Context, payload payloads.ImageEventPayload) error
}

// ImageEventConsumer определяет методы для потребления событий о мутациях.
// Используется воркером прогрева кэша для получения задач из очереди
type ImageEventConsumer interface {
	// StartConsumingImageEvents начинает прослушивание очереди событий.
	// Принимает функцию-обработчик, которая вызывается для каждого
	// полученного сообщения
	StartConsumingImageEvents(ctx context.Context, handler func(context.Context, payloads.ImageEventPayload) error) error
}
