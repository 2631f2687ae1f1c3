package eventbus

import (
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/inventory-tracker/internal/config"
)

// FromConfig returns the Rabbit publisher when a broker URL is configured and
// the Noop publisher otherwise.
func FromConfig(cfg config.Config) (Publisher, error) {
	if cfg.RabbitMQURL == "" {
		log.Info().Msg("No RabbitMQ URL configured, event publishing disabled")
		return Noop{}, nil
	}
	return NewRabbit(cfg.RabbitMQURL, cfg.EventExchange)
}
