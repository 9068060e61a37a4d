package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/Fronut/Picture-management-website/internal/config"
	"github.com/Fronut/Picture-management-website/internal/core/ports"
	"github.com/Fronut/Picture-management-website/internal/database/client"
	"github.com/Fronut/Picture-management-website/internal/usecase"
)

// App связывает зависимости приложения и управляет его жизненным циклом
type App struct {
	Config        *config.Config
	logger        *slog.Logger
	dbClient      *client.Client
	imageUseCase  usecase.ImageUseCase
	tagUseCase    usecase.TagUseCase
	userStorage   ports.UserStorage
	eventConsumer ports.ImageEventConsumer
}

func NewApp(
	cfg *config.Config,
	logger *slog.Logger,
	dbClient *client.Client,
	imageUseCase usecase.ImageUseCase,
	tagUseCase usecase.TagUseCase,
	userStorage ports.UserStorage,
	eventConsumer ports.ImageEventConsumer,
) *App {
	return &App{
		Config:        cfg,
		logger:        logger,
		dbClient:      dbClient,
		imageUseCase:  imageUseCase,
		tagUseCase:    tagUseCase,
		userStorage:   userStorage,
		eventConsumer: eventConsumer,
	}
}

// LoggerIns возвращает основной логгер приложения
func (a *App) LoggerIns() *slog.Logger {
	return a.logger
}

// Run запускает приложение в выбранном режиме: HTTP-сервер или
// воркер прогрева кэша поиска
func (a *App) Run(ctx context.Context, mode string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("application starting", "mode", mode)

	var err error
	switch mode {
	case "server":
		err = runServer(ctx, a.Config, a.imageUseCase, a.tagUseCase, a.userStorage, a.logger)
	case "worker":
		err = runWorker(ctx, a.imageUseCase, a.eventConsumer, a.logger)
	default:
		err = fmt.Errorf("неизвестный режим: %s (используйте 'server' или 'worker')", mode)
	}
	if err != nil {
		return err
	}

	if closeErr := a.Shutdown(); closeErr != nil {
		a.logger.Error("shutdown error", "error", closeErr)
	}

	a.logger.Info("application stopped")
	return nil
}

// Shutdown закрывает все ресурсы приложения
func (a *App) Shutdown() error {
	if a.dbClient != nil {
		if err := a.dbClient.Close(); err != nil {
			return fmt.Errorf("ошибка закрытия БД: %w", err)
		}
	}
	if closer, ok := a.eventConsumer.(interface{ Close() }); ok {
		closer.Close()
	}
	return nil
}
