// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/cranberriez/DiscordClipSaver-sub001/app/dto"
	"github.com/cranberriez/DiscordClipSaver-sub001/app/middleware"
	businessflow "github.com/cranberriez/DiscordClipSaver-sub001/business_flow"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ChannelHandlerInterface defines the contract for channel handlers
type ChannelHandlerInterface interface {
	ListChannels(c fiber.Ctx) error
	SyncChannels(c fiber.Ctx) error
	SetChannelScanEnabled(c fiber.Ctx) error
}

// ChannelHandler handles channel-related HTTP requests
type ChannelHandler struct {
	channelFlow businessflow.ChannelFlow
	validator   *validator.Validate
}

// NewChannelHandler creates a new channel handler
func NewChannelHandler(channelFlow businessflow.ChannelFlow) *ChannelHandler {
	return &ChannelHandler{
		channelFlow: channelFlow,
		validator:   validator.New(),
	}
}

func (h *ChannelHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ChannelHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListChannels returns the guild's channels with their scan statuses
// @Summary List Channels
// @Description List a guild's text channels joined with their scan records
// @Tags Channels
// @Produce json
// @Param guild_id path string true "Guild ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListChannelsResponse} "Channels retrieved"
// @Failure 401 {object} dto.APIResponse "User does not own the guild"
// @Router /api/v1/guilds/{guild_id}/channels [get]
func (h *ChannelHandler) ListChannels(c fiber.Ctx) error {
	guildID := c.Params("guild_id")
	if guildID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Guild ID is required", "MISSING_GUILD_ID", nil)
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	req := &dto.ListChannelsRequest{GuildID: guildID, UserID: userID}

	result, err := h.channelFlow.ListChannels(h.createRequestContext(c, "/api/v1/guilds/:guild_id/channels"), req, metadata)
	if err != nil {
		if businessflow.IsUnauthorized(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "User does not own this guild", "UNAUTHORIZED", nil)
		}

		log.Println("Channel listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Channel listing failed", "CHANNEL_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Channels retrieved successfully", result)
}

// SyncChannels refreshes the guild's channel list from the Discord API
// @Summary Sync Channels
// @Description Refresh the stored channel list from Discord; channels removed upstream are soft-deleted
// @Tags Channels
// @Produce json
// @Param guild_id path string true "Guild ID"
// @Success 200 {object} dto.APIResponse{data=dto.SyncChannelsResponse} "Channels synced"
// @Failure 401 {object} dto.APIResponse "User does not own the guild"
// @Failure 502 {object} dto.APIResponse "Discord API unavailable"
// @Router /api/v1/guilds/{guild_id}/channels/sync [post]
func (h *ChannelHandler) SyncChannels(c fiber.Ctx) error {
	guildID := c.Params("guild_id")
	if guildID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Guild ID is required", "MISSING_GUILD_ID", nil)
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	req := &dto.SyncChannelsRequest{GuildID: guildID, UserID: userID}

	result, err := h.channelFlow.SyncChannels(h.createRequestContextWithTimeout(c, "/api/v1/guilds/:guild_id/channels/sync", 60*time.Second), req, metadata)
	if err != nil {
		if businessflow.IsUnauthorized(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "User does not own this guild", "UNAUTHORIZED", nil)
		}
		if businessflow.IsDiscordUnavailable(err) {
			return h.ErrorResponse(c, fiber.StatusBadGateway, "Failed to fetch channels from Discord", "DISCORD_UNAVAILABLE", nil)
		}

		log.Println("Channel sync failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Channel sync failed", "CHANNEL_SYNC_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Channels synced successfully", result)
}

// SetChannelScanEnabled toggles message scanning for one channel
// @Summary Set Channel Scan Enabled
// @Description Enable or disable message scanning for a channel; disabling does not cancel a scan already in flight
// @Tags Channels
// @Accept json
// @Produce json
// @Param guild_id path string true "Guild ID"
// @Param channel_id path string true "Channel ID"
// @Param request body dto.SetChannelScanEnabledRequest true "Scan enablement flag"
// @Success 200 {object} dto.APIResponse{data=dto.SetChannelScanEnabledResponse} "Setting updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "User does not own the guild"
// @Failure 404 {object} dto.APIResponse "Channel not found"
// @Router /api/v1/guilds/{guild_id}/channels/{channel_id}/scan-enabled [put]
func (h *ChannelHandler) SetChannelScanEnabled(c fiber.Ctx) error {
	guildID := c.Params("guild_id")
	channelID := c.Params("channel_id")
	if guildID == "" || channelID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Guild ID and channel ID are required", "MISSING_PATH_PARAMS", nil)
	}

	var req dto.SetChannelScanEnabledRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	req.GuildID = guildID
	req.ChannelID = channelID
	req.UserID = userID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.channelFlow.SetChannelScanEnabled(h.createRequestContext(c, "/api/v1/guilds/:guild_id/channels/:channel_id/scan-enabled"), &req, metadata)
	if err != nil {
		if businessflow.IsUnauthorized(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "User does not own this guild", "UNAUTHORIZED", nil)
		}
		if businessflow.IsChannelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Channel not found", "CHANNEL_NOT_FOUND", nil)
		}

		log.Println("Channel scan setting update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Channel update failed", "CHANNEL_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Channel scan setting updated", result)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *ChannelHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *ChannelHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
