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

// ScanHandlerInterface defines the contract for scan dispatch handlers
type ScanHandlerInterface interface {
	StartChannelScan(c fiber.Ctx) error
	StartMultipleChannelScans(c fiber.Ctx) error
}

// ScanHandler handles scan dispatch HTTP requests
type ScanHandler struct {
	scanFlow  businessflow.ScanFlow
	validator *validator.Validate
}

// NewScanHandler creates a new scan handler
func NewScanHandler(scanFlow businessflow.ScanFlow) *ScanHandler {
	return &ScanHandler{
		scanFlow:  scanFlow,
		validator: validator.New(),
	}
}

func (h *ScanHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ScanHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// StartChannelScan dispatches a scan job for a single channel
// @Summary Start Channel Scan
// @Description Dispatch a message scan job for one channel of a guild
// @Tags Scans
// @Accept json
// @Produce json
// @Param guild_id path string true "Guild ID"
// @Param channel_id path string true "Channel ID"
// @Param request body dto.ScanRequestOptions false "Scan options"
// @Success 202 {object} dto.APIResponse{data=dto.StartChannelScanResponse} "Scan dispatched"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid rescan mode"
// @Failure 401 {object} dto.APIResponse "User does not own the guild"
// @Failure 404 {object} dto.APIResponse "Channel not found"
// @Failure 409 {object} dto.APIResponse "Scan already queued or running"
// @Failure 502 {object} dto.APIResponse "Job queue unavailable"
// @Router /api/v1/guilds/{guild_id}/channels/{channel_id}/scan [post]
func (h *ScanHandler) StartChannelScan(c fiber.Ctx) error {
	guildID := c.Params("guild_id")
	channelID := c.Params("channel_id")
	if guildID == "" || channelID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Guild ID and channel ID are required", "MISSING_PATH_PARAMS", nil)
	}

	var options dto.ScanRequestOptions
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&options); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}

	if err := h.validator.Struct(&options); err != nil {
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

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	req := &dto.StartChannelScanRequest{
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
		Options:   options,
	}

	result, err := h.scanFlow.StartChannelScan(h.createRequestContext(c, "/api/v1/guilds/:guild_id/channels/:channel_id/scan"), req, metadata)
	if err != nil {
		if businessflow.IsInvalidRescanMode(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rescan mode", "INVALID_RESCAN_MODE", nil)
		}
		if businessflow.IsUnauthorized(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "User does not own this guild", "UNAUTHORIZED", nil)
		}
		if businessflow.IsChannelNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Channel not found", "CHANNEL_NOT_FOUND", nil)
		}
		if businessflow.IsScanningDisabled(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Message scanning is disabled for this channel", "SCANNING_DISABLED", nil)
		}
		if businessflow.IsScanAlreadyRunning(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "A scan is already queued or running for this channel", "SCAN_ALREADY_RUNNING", nil)
		}
		if businessflow.IsQueueDispatchFailed(err) {
			return h.ErrorResponse(c, fiber.StatusBadGateway, "Scan could not be enqueued", "QUEUE_DISPATCH_FAILED", nil)
		}

		log.Println("Scan dispatch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Scan dispatch failed", "SCAN_DISPATCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Scan dispatched successfully", fiber.Map{
		"message":    result.Message,
		"job_id":     result.JobID,
		"message_id": result.MessageID,
		"direction":  result.Direction,
	})
}

// StartMultipleChannelScans dispatches scan jobs for several channels at once
// @Summary Start Multiple Channel Scans
// @Description Dispatch message scan jobs for multiple channels of a guild; each channel succeeds or fails independently
// @Tags Scans
// @Accept json
// @Produce json
// @Param guild_id path string true "Guild ID"
// @Param request body dto.StartMultipleChannelScansRequest true "Channel IDs and scan options"
// @Success 202 {object} dto.APIResponse{data=dto.StartMultipleChannelScansResponse} "Per-channel outcomes"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "User does not own the guild"
// @Router /api/v1/guilds/{guild_id}/scan [post]
func (h *ScanHandler) StartMultipleChannelScans(c fiber.Ctx) error {
	guildID := c.Params("guild_id")
	if guildID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Guild ID is required", "MISSING_GUILD_ID", nil)
	}

	var req dto.StartMultipleChannelScansRequest
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
	req.UserID = userID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.scanFlow.StartMultipleChannelScans(h.createRequestContextWithTimeout(c, "/api/v1/guilds/:guild_id/scan", 60*time.Second), &req, metadata)
	if err != nil {
		if businessflow.IsUnauthorized(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "User does not own this guild", "UNAUTHORIZED", nil)
		}
		if businessflow.IsNoChannelsRequested(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one channel id is required", "NO_CHANNELS_REQUESTED", nil)
		}
		if businessflow.IsInvalidRescanMode(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rescan mode", "INVALID_RESCAN_MODE", nil)
		}

		log.Println("Bulk scan dispatch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Bulk scan dispatch failed", "SCAN_DISPATCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Bulk scan dispatched", result)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *ScanHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *ScanHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
