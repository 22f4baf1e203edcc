package channels

import (
	"fmt"
	"time"

	"github.com/aatumaykin/microbot/internal/logger"
)

// SendError - детализация ошибки доставки, полученной от API транспорта
type SendError struct {
	Code          int    // Код ошибки (400, 429, 403 и т.д.)
	Description   string // Описание ошибки от API
	RetryAfterSec int    // Задержка в секундах (для rate limiting)
	Chat          string
	Err           error
}

// Error возвращает текстовое описание ошибки
func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s failed: %d %s", e.Chat, e.Code, e.Description)
}

// Unwrap returns the transport error.
func (e *SendError) Unwrap() error {
	return e.Err
}

// IsRetryable проверяет, можно ли повторить отправку
func (e *SendError) IsRetryable() bool {
	// Rate limiting (429) и временные ошибки можно повторить
	return e.Code == 429 || (e.Code >= 500 && e.Code < 600)
}

// RetryAfter возвращает задержку перед повторной отправкой
func (e *SendError) RetryAfter() time.Duration {
	if e.RetryAfterSec > 0 {
		return time.Duration(e.RetryAfterSec) * time.Second
	}
	if e.Code >= 500 && e.Code < 600 {
		return 5 * time.Second
	}
	return 0
}

// LogFields возвращает поля для структурированного логирования
func (e *SendError) LogFields() []logger.Field {
	return []logger.Field{
		{Key: "error_code", Value: e.Code},
		{Key: "error_description", Value: e.Description},
		{Key: "retry_after", Value: e.RetryAfterSec},
		{Key: "chat_id", Value: e.Chat},
	}
}
