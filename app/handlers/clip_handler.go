// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/cranberriez/DiscordClipSaver-sub001/app/dto"
	"github.com/cranberriez/DiscordClipSaver-sub001/app/middleware"
	businessflow "github.com/cranberriez/DiscordClipSaver-sub001/business_flow"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ClipHandlerInterface defines the contract for clip handlers
type ClipHandlerInterface interface {
	ListClips(c fiber.Ctx) error
}

// ClipHandler handles clip-related HTTP requests
type ClipHandler struct {
	clipFlow  businessflow.ClipFlow
	validator *validator.Validate
}

// NewClipHandler creates a new clip handler
func NewClipHandler(clipFlow businessflow.ClipFlow) *ClipHandler {
	return &ClipHandler{
		clipFlow:  clipFlow,
		validator: validator.New(),
	}
}

func (h *ClipHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ClipHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListClips returns one page of a channel's archived clips
// @Summary List Clips
// @Description List archived clips of a channel, newest first, paginated via page and page_size query params
// @Tags Clips
// @Produce json
// @Param guild_id path string true "Guild ID"
// @Param channel_id path string true "Channel ID"
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} dto.APIResponse{data=dto.ListClipsResponse} "Clips retrieved"
// @Failure 401 {object} dto.APIResponse "User does not own the guild"
// @Router /api/v1/guilds/{guild_id}/channels/{channel_id}/clips [get]
func (h *ClipHandler) ListClips(c fiber.Ctx) error {
	guildID := c.Params("guild_id")
	channelID := c.Params("channel_id")
	if guildID == "" || channelID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Guild ID and channel ID are required", "MISSING_PATH_PARAMS", nil)
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	req := &dto.ListClipsRequest{
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
	}

	if page := c.Query("page"); page != "" {
		v, err := strconv.Atoi(page)
		if err != nil || v < 1 {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page", "INVALID_PAGE", nil)
		}
		req.Page = v
	}
	if pageSize := c.Query("page_size"); pageSize != "" {
		v, err := strconv.Atoi(pageSize)
		if err != nil || v < 1 || v > 100 {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page size", "INVALID_PAGE_SIZE", nil)
		}
		req.PageSize = v
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.clipFlow.ListClips(h.createRequestContext(c, "/api/v1/guilds/:guild_id/channels/:channel_id/clips"), req, metadata)
	if err != nil {
		if businessflow.IsUnauthorized(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "User does not own this guild", "UNAUTHORIZED", nil)
		}

		log.Println("Clip listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Clip listing failed", "CLIP_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Clips retrieved successfully", result)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *ClipHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, 30*time.Second)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
