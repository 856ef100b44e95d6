package middleware

import (
	"strconv"

	"slotline/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const viewerLocationKey = "viewerLocation"

// ViewerLocationMiddleware reads the client-reported coordinates from
// the X-Viewer-Lat / X-Viewer-Lng headers and stashes them for handlers
// to use as an availability bias. Absent or malformed coordinates just
// mean no bias; never an error.
func ViewerLocationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		latStr := c.GetHeader("X-Viewer-Lat")
		lngStr := c.GetHeader("X-Viewer-Lng")
		if latStr == "" || lngStr == "" {
			c.Next()
			return
		}

		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			zap.L().Debug("Ignoring malformed viewer location",
				zap.String("lat", latStr), zap.String("lng", lngStr))
			c.Next()
			return
		}

		c.Set(viewerLocationKey, &models.GeoPoint{Lat: lat, Lng: lng})
		c.Next()
	}
}

// ViewerLocation returns the viewer bias set by the middleware, or nil.
func ViewerLocation(c *gin.Context) *models.GeoPoint {
	if v, ok := c.Get(viewerLocationKey); ok {
		if p, ok := v.(*models.GeoPoint); ok {
			return p
		}
	}
	return nil
}
