package channels

import (
	"context"

	"github.com/aatumaykin/microbot/internal/logger"
)

// LogSender writes deliveries to the log. It stands in for a transport when
// Telegram is disabled.
type LogSender struct {
	logger *logger.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(log *logger.Logger) *LogSender {
	if log == nil {
		log = logger.Nop()
	}
	return &LogSender{logger: log}
}

// SendMessage implements Sender.
func (s *LogSender) SendMessage(ctx context.Context, chat, text string) error {
	s.logger.InfoCtx(ctx, "outbound message",
		logger.Field{Key: "chat_id", Value: chat},
		logger.Field{Key: "text", Value: text})
	return nil
}

// SendFile implements Sender.
func (s *LogSender) SendFile(ctx context.Context, chat, path, caption string) error {
	s.logger.InfoCtx(ctx, "outbound file",
		logger.Field{Key: "chat_id", Value: chat},
		logger.Field{Key: "path", Value: path},
		logger.Field{Key: "caption", Value: caption})
	return nil
}
