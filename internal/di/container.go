package di

import (
	"github.com/redis/go-redis/v9"

	"github.com/Fronut/Picture-management-website/internal/adapter/storage/minio"
	"github.com/Fronut/Picture-management-website/internal/app"
	"github.com/Fronut/Picture-management-website/internal/cache"
	"github.com/Fronut/Picture-management-website/internal/config"
	"github.com/Fronut/Picture-management-website/internal/database/client"
	"github.com/Fronut/Picture-management-website/internal/database/storage"
	"github.com/Fronut/Picture-management-website/internal/exif"
	"github.com/Fronut/Picture-management-website/internal/imgproc"
	"github.com/Fronut/Picture-management-website/internal/logger"
	"github.com/Fronut/Picture-management-website/internal/rabbitmq"
	"github.com/Fronut/Picture-management-website/internal/usecase"
)

// BuildApp инициализирует все зависимости и возвращает готовый объект App.
func BuildApp() (*app.App, error) {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	slogCfg := logger.SlogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}
	slogger := logger.NewSlog(slogCfg)

	slogger.Info("logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat)

	// 2. Инициализация PostgreSQL клиента (миграции применяются здесь)
	dbClient, err := client.NewClient(cfg, slogger)
	if err != nil {
		return nil, err
	}

	// 3. Инициализация хранилищ
	imageStorage := storage.NewImagePostgresStorage(dbClient.Gorm, slogger)
	tagStorage := storage.NewTagPostgresStorage(dbClient.Gorm, slogger)
	userStorage := storage.NewUserPostgresStorage(dbClient.Gorm, slogger)

	// 4. Инициализация файлового хранилища (S3 / MinIO адаптер)
	fileStorage, err := minio.NewMinioClient(cfg, slogger)
	if err != nil {
		return nil, err
	}

	// 5. Инициализация Redis-кэша результатов поиска
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	searchCache := cache.NewRedisSearchCache(redisClient, cfg.Redis.SearchTTL, slogger)

	// 6. Инициализация RabbitMQ клиента (publisher и consumer)
	rabbitMQClient, err := rabbitmq.NewClient(cfg.RabbitMQ.RabbitMQURL, cfg.RabbitMQ.RabbitMQQueueName, slogger)
	if err != nil {
		return nil, err
	}

	// 7. Инициализация обработки изображений
	metadataExtractor := exif.NewExtractor(slogger)
	thumbnailEngine := imgproc.NewThumbnailEngine(fileStorage, imgproc.DefaultPresets(), slogger)

	// 8. Инициализация бизнес-логики (usecases)
	imageUseCase := usecase.NewImageUseCase(
		imageStorage,
		tagStorage,
		userStorage,
		fileStorage,
		metadataExtractor,
		thumbnailEngine,
		searchCache,
		rabbitMQClient,
		slogger,
	)
	tagUseCase := usecase.NewTagUseCase(imageStorage, tagStorage, searchCache, slogger)

	// 9. Сборка итогового приложения
	application := app.NewApp(
		cfg,
		slogger,
		dbClient,
		imageUseCase,
		tagUseCase,
		userStorage,
		rabbitMQClient,
	)

	slogger.Info("all dependencies initialized")
	return application, nil
}
