package notification

import (
	"context"

	"go.uber.org/zap"
)

// Sender delivers a single message
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// LogSender writes messages to the application log instead of sending them
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("Notification",
		zap.String("kind", string(msg.Kind)),
		zap.String("merchant_id", msg.MerchantID.String()),
		zap.String("to", msg.To),
		zap.String("body", msg.Body),
	)
	return nil
}

// Close is a no-op
func (s *LogSender) Close() error { return nil }
