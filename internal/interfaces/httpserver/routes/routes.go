package routes

import (
	"github.com/gin-gonic/gin"

	"mediavault/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates authenticated route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches the media API routes. The events stream lives at the top
// level rather than under /media so it cannot collide with the /media/:id
// wildcard.
func (r *Routes) Register(router gin.IRouter) {
	media := router.Group("/media")
	media.POST("", r.handlers.Media.Upload)
	media.GET("", r.handlers.Media.List)
	media.GET("/:id", r.handlers.Delivery.Fetch)
	media.PUT("/:id", r.handlers.Media.Update)
	media.DELETE("/:id", r.handlers.Media.Delete)

	router.GET("/events", r.handlers.Events.Stream)
}
