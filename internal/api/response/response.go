// Пакет response — конструкторы единого формата ответов File Service.
// Все HTTP-ответы используют конверт {"code": int, "message": string, "data": object|null}.
// Ошибки всегда имеют data = null; никакие stack traces наружу не уходят.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope — единый конверт ответа API.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// write сериализует конверт с указанным HTTP-статусом.
func write(w http.ResponseWriter, statusCode int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(env)
}

// Success — 200 успешный ответ с данными.
func Success(w http.ResponseWriter, data any, message string) {
	write(w, http.StatusOK, Envelope{Code: http.StatusOK, Message: message, Data: data})
}

// Created — 201 ресурс создан.
func Created(w http.ResponseWriter, data any, message string) {
	write(w, http.StatusCreated, Envelope{Code: http.StatusCreated, Message: message, Data: data})
}

// Error — ответ с ошибкой: произвольный код в конверте и HTTP-статус.
func Error(w http.ResponseWriter, statusCode int, message string) {
	write(w, statusCode, Envelope{Code: statusCode, Message: message, Data: nil})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}
