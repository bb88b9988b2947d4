package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mediavault/internal/domain/delivery"
	"mediavault/internal/infrastructure/auth"
	"mediavault/internal/utils/platformerrors"
)

// DeliveryHandler streams payload bytes with byte-range support.
type DeliveryHandler struct {
	service *delivery.Service
	log     zerolog.Logger
}

func NewDeliveryHandler(service *delivery.Service, log zerolog.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		service: service,
		log:     log.With().Str("component", "delivery-handler").Logger(),
	}
}

// Fetch serves the payload for a media id. Full responses and range responses
// are both handled by the delivery service; this handler only translates
// failures into HTTP errors.
func (h *DeliveryHandler) Fetch(c *gin.Context) {
	caller, ok := auth.IdentityFrom(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "missing identity")
		return
	}

	err := h.service.Serve(c.Request.Context(), c.Writer, c.Param("id"), caller, c.GetHeader("Range"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
}
