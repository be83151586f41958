package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mocks "github.com/dmarkin/timed-notifier/internal/mocks/delivery"
	"github.com/dmarkin/timed-notifier/internal/model"
	"github.com/dmarkin/timed-notifier/internal/repository/notification"
)

const (
	testServerID    = "worker@test"
	testMaxAttempts = 3
	testRetryDelay  = 5 * time.Second
)

func setupExecutor(t *testing.T) (*Executor, *mocks.MocknotificationRepository, *mocks.MockDeliverer, *mocks.MockmetricsSink) {
	ctrl := gomock.NewController(t)

	repoMock := mocks.NewMocknotificationRepository(ctrl)
	delivererMock := mocks.NewMockDeliverer(ctrl)
	metricsMock := mocks.NewMockmetricsSink(ctrl)

	deliverers := Deliverers{Push: delivererMock, Email: delivererMock}
	e := NewExecutor(repoMock, deliverers, metricsMock, testServerID, testMaxAttempts, testRetryDelay)

	return e, repoMock, delivererMock, metricsMock
}

func scheduledNotification() model.Notification {
	return model.Notification{
		ID:          uuid.New(),
		RecipientID: "user-7",
		Content:     "hi",
		Channel:     model.ChannelPush,
		Timezone:    "UTC",
		Status:      model.StatusScheduled,
	}
}

func TestExecutor_Execute_Success(t *testing.T) {
	e, repoMock, delivererMock, metricsMock := setupExecutor(t)

	n := scheduledNotification()

	repoMock.EXPECT().GetByID(gomock.Any(), n.ID).Return(n, nil)

	processing := n
	processing.Status = model.StatusProcessing
	repoMock.EXPECT().Update(gomock.Any(), processing).Return(nil)

	delivererMock.EXPECT().Deliver(gomock.Any(), processing).Return(nil)

	delivered := processing
	delivered.Status = model.StatusDelivered
	repoMock.EXPECT().Update(gomock.Any(), delivered).Return(nil)

	metricsMock.EXPECT().Record(testServerID, model.ChannelPush, "delivered")

	res, err := e.Execute(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, res.Outcome)
	assert.False(t, res.Retry.Retry)
}

func TestExecutor_Execute_CancelledSkips(t *testing.T) {
	e, repoMock, _, _ := setupExecutor(t)

	n := scheduledNotification()
	n.Status = model.StatusCancelled

	repoMock.EXPECT().GetByID(gomock.Any(), n.ID).Return(n, nil)

	res, err := e.Execute(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome, "cancelled notification must be skipped, not failed")
}

func TestExecutor_Execute_SettledDuplicateSkips(t *testing.T) {
	e, repoMock, _, _ := setupExecutor(t)

	n := scheduledNotification()
	n.Status = model.StatusDelivered

	repoMock.EXPECT().GetByID(gomock.Any(), n.ID).Return(n, nil)

	res, err := e.Execute(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome, "stale duplicate task must not flip a settled status")
}

func TestExecutor_Execute_NotFound(t *testing.T) {
	e, repoMock, _, _ := setupExecutor(t)

	id := uuid.New()
	repoMock.EXPECT().GetByID(gomock.Any(), id).Return(model.Notification{}, notification.ErrNotificationNotFound)

	res, err := e.Execute(context.Background(), id)
	assert.Error(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.False(t, res.Retry.Retry, "a vanished entity is not retryable")
}

func TestExecutor_Execute_FailureSchedulesRetry(t *testing.T) {
	e, repoMock, delivererMock, metricsMock := setupExecutor(t)

	n := scheduledNotification()

	repoMock.EXPECT().GetByID(gomock.Any(), n.ID).Return(n, nil)

	processing := n
	processing.Status = model.StatusProcessing
	repoMock.EXPECT().Update(gomock.Any(), processing).Return(nil)

	delivererMock.EXPECT().Deliver(gomock.Any(), processing).Return(errors.New("smtp timeout"))

	rearmed := processing
	rearmed.AttemptCount = 1
	rearmed.Status = model.StatusScheduled
	repoMock.EXPECT().Update(gomock.Any(), rearmed).Return(nil)

	metricsMock.EXPECT().Record(testServerID, model.ChannelPush, "failed")

	res, err := e.Execute(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRetryScheduled, res.Outcome)
	assert.True(t, res.Retry.Retry)
	assert.Equal(t, testRetryDelay, res.Retry.Delay)
}

func TestExecutor_Execute_MaxAttemptsTerminal(t *testing.T) {
	e, repoMock, delivererMock, metricsMock := setupExecutor(t)

	n := scheduledNotification()
	n.AttemptCount = testMaxAttempts - 1

	repoMock.EXPECT().GetByID(gomock.Any(), n.ID).Return(n, nil)

	processing := n
	processing.Status = model.StatusProcessing
	repoMock.EXPECT().Update(gomock.Any(), processing).Return(nil)

	delivererMock.EXPECT().Deliver(gomock.Any(), processing).Return(errors.New("gateway 502"))

	failed := processing
	failed.AttemptCount = testMaxAttempts
	failed.Status = model.StatusFailed
	repoMock.EXPECT().Update(gomock.Any(), failed).Return(nil)

	metricsMock.EXPECT().Record(testServerID, model.ChannelPush, "failed")

	res, err := e.Execute(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.False(t, res.Retry.Retry)
}

func TestExecutor_Execute_ForcedProcessingProceeds(t *testing.T) {
	e, repoMock, delivererMock, metricsMock := setupExecutor(t)

	// Forced delivery marks the row processing before enqueueing.
	n := scheduledNotification()
	n.Status = model.StatusProcessing

	repoMock.EXPECT().GetByID(gomock.Any(), n.ID).Return(n, nil)
	delivererMock.EXPECT().Deliver(gomock.Any(), n).Return(nil)

	delivered := n
	delivered.Status = model.StatusDelivered
	repoMock.EXPECT().Update(gomock.Any(), delivered).Return(nil)

	metricsMock.EXPECT().Record(testServerID, model.ChannelPush, "delivered")

	res, err := e.Execute(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, res.Outcome)
}

func TestExecutor_Execute_UnknownChannelFailsTerminally(t *testing.T) {
	e, repoMock, _, metricsMock := setupExecutor(t)

	n := scheduledNotification()
	n.Channel = model.Channel("sms")

	repoMock.EXPECT().GetByID(gomock.Any(), n.ID).Return(n, nil)

	processing := n
	processing.Status = model.StatusProcessing
	repoMock.EXPECT().Update(gomock.Any(), processing).Return(nil)

	failed := processing
	failed.Status = model.StatusFailed
	repoMock.EXPECT().Update(gomock.Any(), failed).Return(nil)

	metricsMock.EXPECT().Record(testServerID, model.Channel("sms"), "failed")

	res, err := e.Execute(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome, "undeliverable channel must count as a recorded terminal failure")
	assert.False(t, res.Retry.Retry)
}

func TestDeliverers_ForChannel(t *testing.T) {
	ctrl := gomock.NewController(t)
	push := mocks.NewMockDeliverer(ctrl)
	email := mocks.NewMockDeliverer(ctrl)

	d := Deliverers{Push: push, Email: email}

	got, err := d.ForChannel(model.ChannelPush)
	require.NoError(t, err)
	assert.Same(t, push, got)

	got, err = d.ForChannel(model.ChannelEmail)
	require.NoError(t, err)
	assert.Same(t, email, got)

	_, err = d.ForChannel(model.Channel("sms"))
	assert.Error(t, err)
}
