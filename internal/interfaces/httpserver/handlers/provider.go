package handlers

import (
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	"mediavault/internal/domain/delivery"
	"mediavault/internal/domain/events"
	domain "mediavault/internal/domain/media"
)

// Provider wires HTTP handlers.
type Provider struct {
	Media    *MediaHandler
	Delivery *DeliveryHandler
	Events   *EventsHandler
}

func NewProvider(cfg *config.Config, mediaService *domain.Service, deliveryService *delivery.Service, broadcaster events.Broadcaster, log zerolog.Logger) *Provider {
	return &Provider{
		Media:    NewMediaHandler(cfg, mediaService, log),
		Delivery: NewDeliveryHandler(deliveryService, log),
		Events:   NewEventsHandler(broadcaster, log),
	}
}
