package domain

import (
	"fmt"
	"strings"
)

// ValidationError описывает некорректный запрос с детализацией по полю.
// Всегда восстановимая ошибка, повтор без исправления бесполезен
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError создаёт ошибку валидации для конкретного поля
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// DuplicateContentError возвращается при отклонении всей пачки загрузки:
// перечисляет имена файлов, чей отпечаток содержимого уже встречался
// в пачке или среди сохранённых изображений владельца
type DuplicateContentError struct {
	Filenames []string
}

func (e *DuplicateContentError) Error() string {
	return fmt.Sprintf("файлы уже были загружены ранее: %s", strings.Join(e.Filenames, ", "))
}

// NotFoundError возвращается, когда изображение, тег или связь не найдены
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s не найден", e.Resource)
}

// PermissionError возвращается при попытке не-владельца изменить или
// прочитать чужой приватный ресурс. Текст намеренно не раскрывает,
// существует ли ресурс
type PermissionError struct {
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("недостаточно прав для операции: %s", e.Action)
}

// OutOfBoundsError возвращается, когда область кадрирования выходит
// за границы исходного изображения
type OutOfBoundsError struct {
	SrcWidth, SrcHeight int
	X, Y, Width, Height int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("область кадрирования %dx%d+%d+%d выходит за границы изображения %dx%d",
		e.Width, e.Height, e.X, e.Y, e.SrcWidth, e.SrcHeight)
}
