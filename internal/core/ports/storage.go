package ports

import (
	"context"
	"io"

	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/Fronut/Picture-management-website/internal/search"
	"github.com/google/uuid"
)

// ImageStorage определяет методы для взаимодействия с хранилищем изображений
type ImageStorage interface {
	// SaveImage сохраняет изображение вместе с метаданными и миниатюрами
	// в одной транзакции
	SaveImage(ctx context.Context, image *domain.Image) error

	// SaveImages сохраняет пачку изображений; вся пачка фиксируется целиком
	SaveImages(ctx context.Context, images []*domain.Image) error

	// GetImageByID возвращает изображение с метаданными, миниатюрами
	// и связями тегов; nil без ошибки, если записи нет
	GetImageByID(ctx context.Context, id uuid.UUID) (*domain.Image, error)

	// ExistsByOwnerAndHash проверяет, есть ли у владельца изображение
	// с таким отпечатком содержимого
	ExistsByOwnerAndHash(ctx context.Context, ownerID uuid.UUID, contentHash string) (bool, error)

	// UpdateAfterEdit атомарно обновляет запись после редактирования:
	// новые размеры, байтовый размер и отпечаток, старые миниатюры
	// удаляются, новые вставляются
	UpdateAfterEdit(ctx context.Context, image *domain.Image, newThumbnails []domain.Thumbnail) error

	// DeleteImage выполняет двухфазное каскадное удаление внутри одной
	// транзакции: сперва дочерние записи (миниатюры, связи тегов со
	// снижением счётчиков использования), затем само изображение
	DeleteImage(ctx context.Context, image *domain.Image) error

	// SearchImages выполняет динамический запрос по скомпилированным
	// фрагментам предиката и возвращает страницу результатов
	SearchImages(ctx context.Context, query *search.Query, page, perPage int) (*search.PageResult, error)

	// ListRecentByOwner возвращает последние изображения владельца
	// по убыванию времени загрузки
	ListRecentByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Image, error)
}

// TagStorage определяет методы для взаимодействия с хранилищем тегов
type TagStorage interface {
	// FindTagByName ищет тег по имени без учёта регистра;
	// nil без ошибки, если тега нет
	FindTagByName(ctx context.Context, name string) (*domain.Tag, error)

	// CreateTag создаёт новый глобальный тег
	CreateTag(ctx context.Context, tag *domain.Tag) error

	// ListAssociations возвращает связи изображения с тегами (вместе с тегами)
	ListAssociations(ctx context.Context, imageID uuid.UUID) ([]domain.ImageTag, error)

	// AssociationExists проверяет наличие связи (image, tag)
	AssociationExists(ctx context.Context, imageID, tagID uuid.UUID) (bool, error)

	// CreateAssociation создаёт связь и увеличивает счётчик
	// использования тега в одной транзакции
	CreateAssociation(ctx context.Context, assoc *domain.ImageTag) error

	// DeleteAssociation удаляет связь и уменьшает счётчик использования
	// тега (не ниже нуля); отсутствие связи — NotFoundError
	DeleteAssociation(ctx context.Context, imageID, tagID uuid.UUID) error

	// ListPopularTags возвращает теги по убыванию usage_count,
	// при равенстве — по убыванию времени создания
	ListPopularTags(ctx context.Context, limit int) ([]domain.Tag, error)
}

// UserStorage определяет методы для взаимодействия с хранилищем пользователей
type UserStorage interface {
	// GetUserByID возвращает пользователя; nil без ошибки, если его нет
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetOrCreateUser находит пользователя по имени или создаёт нового
	GetOrCreateUser(ctx context.Context, username string) (*domain.User, error)
}

// FileStorage определяет интерфейс файлового хранилища бинарных данных
// (S3/MinIO). Ключ — уникальное имя объекта в бакете
type FileStorage interface {
	// UploadFile загружает содержимое и возвращает публичный URL объекта
	UploadFile(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)

	// GetFile возвращает поток содержимого объекта
	GetFile(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteFile удаляет объект; отсутствие объекта не считается ошибкой
	DeleteFile(ctx context.Context, key string) error
}

// MetadataExtractor — внешний парсер метаданных снимка. Никогда не
// возвращает ошибку: для неподдерживаемых и повреждённых файлов
// возвращает nil
type MetadataExtractor interface {
	Extract(data []byte) *domain.ExifData
}

// SearchCache кэширует страницы результатов поиска. Реализация обязана
// поддерживать конкурентные чтения и атомарную инвалидацию всего
// пространства ключей
type SearchCache interface {
	// GetSearchPage возвращает закэшированную страницу; false при промахе
	GetSearchPage(ctx context.Context, requester *uuid.UUID, criteria search.Criteria) (*search.PageResult, bool)

	// SetSearchPage сохраняет страницу с ограниченным TTL
	SetSearchPage(ctx context.Context, requester *uuid.UUID, criteria search.Criteria, page *search.PageResult)

	// EvictAll инвалидирует все закэшированные результаты поиска.
	// Вызывается каждой мутирующей операцией
	EvictAll(ctx context.Context)
}
