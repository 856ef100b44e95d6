package handlers

import (
	"errors"
	"net/http"

	"slotline/repository/scheduling"
	"slotline/services/selection"
	"slotline/services/session"

	"github.com/gin-gonic/gin"
)

// respondError maps service and backend failures onto HTTP statuses.
// Auth failures carry a redirect hint so the client can send the user
// to sign-in and return to the same drawer afterwards.
func respondError(c *gin.Context, err error) {
	switch {
	case scheduling.IsAuthRequired(err):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":    "authentication required",
			"redirect": "signin",
		})
	case scheduling.IsNotFound(err), errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case scheduling.IsHoldInvalid(err):
		c.JSON(http.StatusConflict, gin.H{"error": "slot no longer available"})
	case errors.Is(err, selection.ErrModeLocked):
		c.JSON(http.StatusBadRequest, gin.H{"error": "appointment mode cannot be changed for this professional"})
	case errors.Is(err, session.ErrNoSlotSelected):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no slot selected"})
	case errors.Is(err, session.ErrNoDaySelected):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no day selected"})
	default:
		var apiErr *scheduling.APIError
		if errors.As(err, &apiErr) && apiErr.Kind == scheduling.KindValidation {
			c.JSON(http.StatusBadRequest, gin.H{"error": apiErr.Message})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "scheduling backend unavailable"})
	}
}
