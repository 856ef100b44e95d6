package routes

import (
	"net/http"
	"time"

	"slotline/handlers"
	"slotline/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes sets up the drawer endpoints. Everything past
// browsing requires authentication; availability browsing itself is
// tied to the authenticated session too, so the whole group is gated.
func RegisterBookingRoutes(r *gin.Engine, bh *handlers.BookingHandler) {
	bookingGroup := r.Group("/api/booking")
	{
		bookingGroup.Use(middleware.JWTAuthMiddleware())
		bookingGroup.POST("/session", bh.OpenSession)
		bookingGroup.GET("/session/:sessionID", bh.GetSession)
		bookingGroup.DELETE("/session/:sessionID", bh.CloseSession)
		bookingGroup.GET("/session/:sessionID/days", bh.GetDays)
		bookingGroup.GET("/session/:sessionID/slots", bh.GetSlots)
		bookingGroup.PUT("/session/:sessionID/selection", bh.ApplySelection)
		bookingGroup.POST("/session/:sessionID/hold", bh.PlaceHold)
		bookingGroup.GET("/session/:sessionID/hold", bh.HoldStatus)
		bookingGroup.POST("/waitlist", bh.JoinWaitlist)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm Slotline"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, bh *handlers.BookingHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Viewer-Lat", "X-Viewer-Lng"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, bh)
}
