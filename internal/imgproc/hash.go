package imgproc

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// HashContent вычисляет отпечаток содержимого: SHA-256 в нижнем регистре
// поверх всех байт потока. Результат не зависит от имени файла,
// метаданных и размера буфера чтения
func HashContent(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("ошибка чтения содержимого для хеширования: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes — вариант HashContent для уже прочитанных байт
func HashBytes(data []byte) string {
	// io.Copy по bytes.Reader не возвращает ошибок чтения
	sum, _ := HashContent(bytes.NewReader(data))
	return sum
}
