package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/dmarkin/timed-notifier/internal/api/dto"
	"github.com/dmarkin/timed-notifier/internal/api/respond"
	"github.com/dmarkin/timed-notifier/internal/model"
	repo "github.com/dmarkin/timed-notifier/internal/repository/notification"
	"github.com/dmarkin/timed-notifier/internal/schedule"
	service "github.com/dmarkin/timed-notifier/internal/service/notification"
	"github.com/dmarkin/timed-notifier/internal/validate"
)

//go:generate mockgen -source=handler.go -destination=../../../mocks/api/handlers/notification/mock.go -package=mocks

const (
	defaultTimezone = "UTC"
	defaultPriority = 5
	defaultLimit    = 50
	maxLimit        = 500
)

type notificationService interface {
	Schedule(ctx context.Context, req service.ScheduleRequest) (model.Notification, error)
	Get(ctx context.Context, id uuid.UUID) (model.Notification, error)
	ForceDelivery(ctx context.Context, id uuid.UUID) (model.Notification, error)
	Cancel(ctx context.Context, id uuid.UUID) (model.Notification, error)
	List(ctx context.Context, filter repo.ListFilter) ([]model.Notification, error)
	Window() schedule.Window
}

type Handler struct {
	service   notificationService
	validator *validator.Validate
}

func NewHandler(s notificationService, v *validator.Validate) *Handler {
	return &Handler{service: s, validator: v}
}

// CreatePush schedules a push notification.
func (h *Handler) CreatePush(c *ginext.Context) {
	h.create(c, model.ChannelPush)
}

// CreateEmail schedules an email notification.
func (h *Handler) CreateEmail(c *ginext.Context) {
	h.create(c, model.ChannelEmail)
}

func (h *Handler) create(c *ginext.Context, channel model.Channel) {
	var req dto.CreateRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	if req.Timezone == "" {
		req.Timezone = defaultTimezone
	}
	if req.Priority == 0 {
		req.Priority = defaultPriority
	}

	n, err := h.service.Schedule(c.Request.Context(), service.ScheduleRequest{
		RecipientID:   req.RecipientID,
		Content:       req.Content,
		Timezone:      req.Timezone,
		ScheduledTime: req.ScheduledTime,
		Priority:      req.Priority,
		Channel:       channel,
	})
	if err != nil {
		var verr *validate.ValidationError
		if errors.As(err, &verr) {
			zlog.Logger.Warn().Err(err).Str("recipient", req.RecipientID).Msg("schedule request rejected")
			respond.Fail(c.Writer, http.StatusBadRequest, verr)
			return
		}

		zlog.Logger.Error().Err(err).Str("recipient", req.RecipientID).Msg("failed to schedule notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, dto.NewStatusResponse(n, h.service.Window()))
}

// GetStatus returns the client-facing view of a notification.
func (h *Handler) GetStatus(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	n, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.failLookup(c, id, err, "failed to get notification")
		return
	}

	respond.OK(c.Writer, dto.NewStatusResponse(n, h.service.Window()))
}

// List returns notifications matching the query filters.
func (h *Handler) List(c *ginext.Context) {
	filter, err := listFilterFromQuery(c)
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("bad list query")
		respond.Fail(c.Writer, http.StatusBadRequest, err)
		return
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, repo.ErrNoNotificationsFound) {
			respond.OK(c.Writer, []dto.StatusResponse{})
			return
		}

		zlog.Logger.Error().Err(err).Msg("failed to list notifications")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	window := h.service.Window()
	views := make([]dto.StatusResponse, 0, len(items))
	for _, n := range items {
		views = append(views, dto.NewStatusResponse(n, window))
	}

	respond.OK(c.Writer, views)
}

// Force delivers a scheduled notification immediately, bypassing the
// appropriate-hours policy.
func (h *Handler) Force(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	n, err := h.service.ForceDelivery(c.Request.Context(), id)
	if err != nil {
		h.failLookup(c, id, err, "failed to force notification")
		return
	}

	respond.OK(c.Writer, dto.NewStatusResponse(n, h.service.Window()))
}

// Cancel cancels a scheduled notification.
func (h *Handler) Cancel(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	n, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		h.failLookup(c, id, err, "failed to cancel notification")
		return
	}

	respond.OK(c.Writer, dto.NewStatusResponse(n, h.service.Window()))
}

func (h *Handler) parseID(c *ginext.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil || id == uuid.Nil {
		zlog.Logger.Warn().Str("id", idStr).Msg("invalid notification id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) failLookup(c *ginext.Context, id uuid.UUID, err error, msg string) {
	switch {
	case errors.Is(err, repo.ErrNotificationNotFound):
		zlog.Logger.Warn().Str("id", id.String()).Msg("notification not found")
		respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found"))
	case errors.Is(err, model.ErrInvalidState):
		zlog.Logger.Warn().Str("id", id.String()).Err(err).Msg("operation not allowed in current state")
		respond.Fail(c.Writer, http.StatusBadRequest, err)
	default:
		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg(msg)
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
	}
}

// listFilterFromQuery maps query parameters onto a repository filter.
// The status parameter uses the public state names.
func listFilterFromQuery(c *ginext.Context) (repo.ListFilter, error) {
	filter := repo.ListFilter{
		Timezone:    c.Query("timezone"),
		RecipientID: c.Query("recipient_id"),
		Limit:       defaultLimit,
	}

	if state := c.Query("status"); state != "" {
		statuses, err := internalStatuses(state)
		if err != nil {
			return repo.ListFilter{}, err
		}
		filter.Statuses = statuses
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLimit {
			return repo.ListFilter{}, fmt.Errorf("limit must be between 1 and %d", maxLimit)
		}
		filter.Limit = limit
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return repo.ListFilter{}, fmt.Errorf("offset must be non-negative")
		}
		filter.Offset = offset
	}

	return filter, nil
}

func internalStatuses(state string) ([]model.Status, error) {
	switch state {
	case dto.StatePending:
		return []model.Status{model.StatusScheduled, model.StatusProcessing}, nil
	case dto.StateSent:
		return []model.Status{model.StatusDelivered}, nil
	case dto.StateFailed:
		return []model.Status{model.StatusFailed}, nil
	case dto.StateCancelled:
		return []model.Status{model.StatusCancelled}, nil
	default:
		return nil, fmt.Errorf("unknown status %q", state)
	}
}
