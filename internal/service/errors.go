package service

import (
	"errors"
	"fmt"
	"net/http"

	"studiosync/internal/studioapi"
)

const CodeNotFound = "NOT_FOUND"
const CodeValidation = "VALIDATION_ERROR"
const CodeDuplicateBooking = "DUPLICATE_BOOKING"
const CodeDeletionDisabled = "DELETION_DISABLED"
const CodeNotConfirmed = "NOT_CONFIRMED"
const CodeUpstream = "UPSTREAM_ERROR"

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource, id string) *BusinessError {
	return NewBusinessError(CodeNotFound,
		fmt.Sprintf("%s %s не найден(а)", resource, id),
		ToDetail("resource", resource),
		ToDetail("id", id))
}

func NewValidationError(field, reason string) *BusinessError {
	return NewBusinessError(CodeValidation,
		fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		ToDetail("field", field),
		ToDetail("reason", reason))
}

func NewDuplicateBooking(key string) *BusinessError {
	return NewBusinessError(CodeDuplicateBooking,
		"бронирование с этим ключом уже отправлено",
		ToDetail("idempotency_key", key))
}

// fromUpstream переводит ошибку внешнего API в бизнес-ошибку: 404 - не найдено,
// 400 - ошибка валидации, остальное - UPSTREAM_ERROR.
func fromUpstream(operation string, err error, resource, id string) error {
	if errors.Is(err, studioapi.ErrNotFound) {
		return NewNotFound(resource, id)
	}

	var apiErr *studioapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return NewValidationError(resource, apiErr.Message)
	}

	busErr := NewBusinessError(CodeUpstream, operation+": внешний API недоступен", ToDetail("operation", operation))
	busErr.Err = err
	return busErr
}
