package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/dmarkin/timed-notifier/internal/api/respond"
	"github.com/dmarkin/timed-notifier/internal/metrics"
	"github.com/dmarkin/timed-notifier/internal/model"
)

//go:generate mockgen -source=handler.go -destination=../../../mocks/api/handlers/metrics/mock.go -package=mocks

type metricsService interface {
	Metrics(serverID string, channel model.Channel, period time.Duration) (metrics.Report, error)
}

type Handler struct {
	service metricsService
}

func NewHandler(s metricsService) *Handler {
	return &Handler{service: s}
}

// Get returns aggregated delivery counts. Optional query parameters:
// server_id, channel, and period in seconds (0 or absent means all time).
func (h *Handler) Get(c *ginext.Context) {
	serverID := c.Query("server_id")

	channel := model.Channel(c.Query("channel"))
	if channel != "" && !channel.Valid() {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("unknown channel %q", channel))
		return
	}

	var period time.Duration
	if raw := c.Query("period"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("period must be a non-negative number of seconds"))
			return
		}
		period = time.Duration(seconds) * time.Second
	}

	report, err := h.service.Metrics(serverID, channel, period)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to build metrics report")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, report)
}
