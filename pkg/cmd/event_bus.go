package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/dukex/relay/pkg/channels/gochannel"
	"github.com/dukex/relay/pkg/channels/kafka"
	"github.com/dukex/relay/pkg/eventbus"
)

// NewEventBus creates an event bus instance based on the provider. The
// gochannel provider is in-process only; every engine component must then
// run in the same binary.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "relay")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
