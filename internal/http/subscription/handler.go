// Package subscription exposes the subscribe/unsubscribe endpoints.
package subscription

import (
	"errors"
	"net/http"

	"chiyabari/internal/http/middleware"
	"chiyabari/internal/http/response"
	subservice "chiyabari/internal/services/subscription"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	subscriptions *subservice.Service
}

func NewHandler(subscriptions *subservice.Service) *Handler {
	return &Handler{subscriptions: subscriptions}
}

// Toggle subscribes or unsubscribes the caller from a channel.
func (h *Handler) Toggle(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		return
	}

	channelID := c.Param("channelId")
	if channelID == "" {
		response.Fail(c, http.StatusBadRequest, response.KindValidation, "channel id is required")
		return
	}

	subscribed, err := h.subscriptions.Toggle(c.Request.Context(), user.ID, channelID)
	if err != nil {
		switch {
		case errors.Is(err, subservice.ErrSelfSubscription):
			response.Fail(c, http.StatusBadRequest, response.KindValidation, "cannot subscribe to your own channel")
		case errors.Is(err, subservice.ErrChannelNotFound):
			response.Fail(c, http.StatusNotFound, response.KindNotFound, "channel not found")
		default:
			response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to toggle subscription")
		}
		return
	}

	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	response.OK(c, http.StatusOK, gin.H{"isSubscribed": subscribed}, message)
}

// SubscribedChannels lists the channels the caller follows.
func (h *Handler) SubscribedChannels(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		return
	}

	channels, err := h.subscriptions.SubscribedChannels(c.Request.Context(), user.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to fetch subscriptions")
		return
	}
	response.OK(c, http.StatusOK, channels, "subscribed channels fetched successfully")
}

// Subscribers lists a channel's followers.
func (h *Handler) Subscribers(c *gin.Context) {
	channelID := c.Param("channelId")
	if channelID == "" {
		response.Fail(c, http.StatusBadRequest, response.KindValidation, "channel id is required")
		return
	}

	subscribers, err := h.subscriptions.Subscribers(c.Request.Context(), channelID)
	if err != nil {
		if errors.Is(err, subservice.ErrChannelNotFound) {
			response.Fail(c, http.StatusNotFound, response.KindNotFound, "channel not found")
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to fetch subscribers")
		return
	}
	response.OK(c, http.StatusOK, subscribers, "subscribers fetched successfully")
}
