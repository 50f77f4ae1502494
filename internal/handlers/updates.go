package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messageapp/internal/updates"
)

// UpdatesHandler answers the lightweight "anything new?" poll.
type UpdatesHandler struct {
	tracker updates.Tracker
}

func NewUpdatesHandler(tracker updates.Tracker) *UpdatesHandler {
	return &UpdatesHandler{tracker: tracker}
}

// Check handles GET /updates/check. Reading the flag clears it.
func (h *UpdatesHandler) Check(c *gin.Context) {
	hasNew, err := h.tracker.Consume(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		respondError(c, err, "Server failed to check for new items")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasNewItems": hasNew})
}
