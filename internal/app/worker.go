package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Fronut/Picture-management-website/internal/core/ports"
	"github.com/Fronut/Picture-management-website/internal/messaging/payloads"
	"github.com/Fronut/Picture-management-website/internal/usecase"
)

// runWorker запускает потребителя событий мутаций изображений.
// На каждое событие воркер заново прогревает кэш поиска владельца:
// мутация инвалидировала все закэшированные страницы, и первая
// страница собственных изображений вычисляется заранее
func runWorker(
	ctx context.Context,
	imageUseCase usecase.ImageUseCase,
	consumer ports.ImageEventConsumer,
	logger *slog.Logger,
) error {
	logger.Info("worker started, waiting for image events")

	messageHandler := func(ctx context.Context, payload payloads.ImageEventPayload) error {
		logger.Info("processing image event",
			"event_type", payload.EventType,
			"image_id", payload.ImageID,
			"owner_id", payload.OwnerID,
		)

		if err := imageUseCase.WarmupSearchCache(ctx, payload.OwnerID); err != nil {
			logger.Error("cache warmup failed", "owner_id", payload.OwnerID, "error", err)
			return err
		}
		return nil
	}

	err := consumer.StartConsumingImageEvents(ctx, messageHandler)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("ошибка при потреблении событий: %w", err)
	}

	logger.Info("worker stopped")
	return nil
}
