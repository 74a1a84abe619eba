// Пакет service — бизнес-логика File Service.
// errors.go — типы ошибок сервисного слоя и их отображение в HTTP-статусы.
package service

import (
	"errors"
	"fmt"
)

// ErrNotFound — запись не найдена или не принадлежит запрашивающему.
// Намеренно не различает эти случаи, чтобы не раскрывать существование
// чужих файлов (404, не 403).
var ErrNotFound = errors.New("файл не найден")

// ValidationError — файл не прошёл проверку политики загрузки (всегда 400).
// Обнаруживается до любых сетевых вызовов.
type ValidationError struct {
	// Reason — человекочитаемая причина отказа
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// StorageError — ошибка объектного хранилища (всегда 500).
type StorageError struct {
	// Op — операция хранилища (put, delete)
	Op string
	// Key — ключ объекта
	Key string
	// Err — исходная ошибка
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ошибка хранилища (%s %s): %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// LedgerError — ошибка реестра метаданных (всегда 500).
type LedgerError struct {
	// Op — операция реестра (create, soft_delete, list)
	Op string
	// Err — исходная ошибка
	Err error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ошибка реестра (%s): %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}
