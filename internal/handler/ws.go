package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/foodville/marketplace-api/internal/middleware"
)

// FeedServer upgrades a request into a per-user websocket feed.
type FeedServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error
}

type FeedHandler struct {
	feed FeedServer
}

func NewFeedHandler(feed FeedServer) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// Orders streams order events for the authenticated user.
func (h *FeedHandler) Orders(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	if !p.Authenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	// The upgrader has already written a response when this fails.
	if err := h.feed.ServeWS(c.Writer, c.Request, p.UserID); err != nil {
		_ = c.Error(err)
	}
}
