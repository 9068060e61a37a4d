// internal/domain/user.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User представляет владельца изображений в системе.
// Соответствует таблице 'users' в базе данных.
// Аутентификация — забота внешнего слоя, ядру нужна только идентичность
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
