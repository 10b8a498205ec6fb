package notification

import (
	"fmt"

	"github.com/qualee/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewSender builds the transport selected by cfg.Transport
func NewSender(cfg config.NotificationConfig, logger *zap.Logger) (Sender, error) {
	switch cfg.Transport {
	case "", config.TransportLog:
		return NewLogSender(logger), nil
	case config.TransportGateway:
		return NewGatewaySender(cfg.Gateway, nil), nil
	case config.TransportKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("kafka transport requires at least one broker")
		}
		return NewKafkaSender(NewKafkaWriter(cfg.Kafka)), nil
	default:
		return nil, fmt.Errorf("unknown notification transport %q", cfg.Transport)
	}
}
