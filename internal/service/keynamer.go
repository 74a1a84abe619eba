// keynamer.go — детерминированная генерация ключей объектов.
// Ключ: {project}/{type}/{YYYYMMDD_HHMMSS}_{8-hex-суффикс}_{имя}.
// Временная метка + случайный суффикс делают коллизии в пределах секунды
// пренебрежимо вероятными; уникальное ограничение реестра — страховка.
package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// keyTimestampLayout — формат временной метки в имени файла.
const keyTimestampLayout = "20060102_150405"

// KeyNamer — генератор ключей объектов.
// Источники времени и суффикса инжектируются для тестируемости.
type KeyNamer struct {
	now    func() time.Time
	suffix func() string
}

// NewKeyNamer создаёт генератор ключей с системными часами
// и криптографически случайным суффиксом (первые 8 hex-символов UUIDv4,
// ~32 бита энтропии).
func NewKeyNamer() *KeyNamer {
	return &KeyNamer{
		now:    time.Now,
		suffix: func() string { return uuid.New().String()[:8] },
	}
}

// MakeKey формирует ключ объекта и хранимое имя файла.
// customName, если задано, замещает оригинальное имя в хранимом имени.
func (n *KeyNamer) MakeKey(projectName, fileType, originalName, customName string) (objectKey, storedName string) {
	name := originalName
	if customName != "" {
		name = customName
	}

	timestamp := n.now().Format(keyTimestampLayout)
	storedName = fmt.Sprintf("%s_%s_%s", timestamp, n.suffix(), name)
	objectKey = fmt.Sprintf("%s/%s/%s", projectName, fileType, storedName)
	return objectKey, storedName
}
