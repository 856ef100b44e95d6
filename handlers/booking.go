package handlers

import (
	"net/http"

	"slotline/middleware"
	"slotline/models"
	"slotline/services/session"
	"slotline/services/waitlist"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler serves the booking drawer endpoints: session
// lifecycle, availability browsing, selection events and holds.
type BookingHandler struct {
	Sessions session.Service
	Waitlist waitlist.Service
	Logger   *zap.Logger
}

func NewBookingHandler(sessions session.Service, wl waitlist.Service, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Sessions: sessions, Waitlist: wl, Logger: logger}
}

// OpenSession starts a drawer session for one availability view.
func (h *BookingHandler) OpenSession(c *gin.Context) {
	var key models.SelectionKey
	if err := c.ShouldBindJSON(&key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if key.ProfessionalID == "" || key.ServiceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "professionalId and serviceId are required"})
		return
	}
	if key.ViewerBias == nil {
		key.ViewerBias = middleware.ViewerLocation(c)
	}

	userID := c.GetString("userID")
	sess, err := h.Sessions.Open(c.Request.Context(), userID, key)
	if err != nil {
		h.Logger.Error("failed to open booking session", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// GetSession restores a session, re-reading any persisted hold from the
// scheduling backend before answering.
func (h *BookingHandler) GetSession(c *gin.Context) {
	sess, err := h.Sessions.Get(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// CloseSession tears down the session and cancels any live hold.
func (h *BookingHandler) CloseSession(c *gin.Context) {
	if err := h.Sessions.Close(c.Request.Context(), c.Param("sessionID")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// GetDays returns the bookable horizon and the reconciled session.
func (h *BookingHandler) GetDays(c *gin.Context) {
	summary, sess, err := h.Sessions.DaySummaries(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "session": sess})
}

// GetSlots returns the selected day's open slots and the reconciled
// session. An optional ?date= picks that day first, going through the
// same selection path as an explicit day pick.
func (h *BookingHandler) GetSlots(c *gin.Context) {
	if date := c.Query("date"); date != "" {
		if _, err := h.Sessions.ApplySelection(c.Request.Context(), c.Param("sessionID"), session.SelectionEvent{Day: date}); err != nil {
			respondError(c, err)
			return
		}
	}
	slots, sess, err := h.Sessions.DaySlots(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots, "session": sess})
}

// ApplySelection applies one discrete selection event (mode, day,
// bucket or slot pick).
func (h *BookingHandler) ApplySelection(c *gin.Context) {
	var event session.SelectionEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	sess, err := h.Sessions.ApplySelection(c.Request.Context(), c.Param("sessionID"), event)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// PlaceHold reserves the selected slot, superseding any prior hold.
func (h *BookingHandler) PlaceHold(c *gin.Context) {
	var input struct {
		OfferingID string `json:"offeringId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if input.OfferingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offeringId is required"})
		return
	}

	hold, err := h.Sessions.PlaceHold(c.Request.Context(), c.Param("sessionID"), input.OfferingID)
	if err != nil {
		h.Logger.Warn("failed to place hold",
			zap.String("sessionId", c.Param("sessionID")), zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hold": hold})
}

// HoldStatus samples the hold countdown.
func (h *BookingHandler) HoldStatus(c *gin.Context) {
	view, err := h.Sessions.HoldStatus(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// JoinWaitlist registers interest in a currently unavailable slot.
func (h *BookingHandler) JoinWaitlist(c *gin.Context) {
	var req models.WaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	entry, err := h.Waitlist.Join(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}
