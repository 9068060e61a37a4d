package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserPostgresStorage реализует ports.UserStorage поверх GORM
type UserPostgresStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewUserPostgresStorage(db *gorm.DB, logger *slog.Logger) *UserPostgresStorage {
	return &UserPostgresStorage{db: db, logger: logger}
}

// GetUserByID возвращает пользователя; nil без ошибки, если его нет
func (s *UserPostgresStorage) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	result := s.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при получении пользователя: %w", result.Error)
	}
	return &user, nil
}

// GetOrCreateUser находит пользователя по имени или создаёт нового
func (s *UserPostgresStorage) GetOrCreateUser(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	result := s.db.WithContext(ctx).Where("username = ?", username).First(&user)
	if result.Error == nil {
		return &user, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("ошибка при поиске пользователя: %w", result.Error)
	}

	user = domain.User{ID: uuid.New(), Username: username}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("ошибка при создании пользователя: %w", err)
	}
	s.logger.Info("user created", "user_id", user.ID, "username", username)
	return &user, nil
}
