package notification

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkin/timed-notifier/internal/api/dto"
	mocks "github.com/dmarkin/timed-notifier/internal/mocks/api/handlers/notification"
	"github.com/dmarkin/timed-notifier/internal/model"
	repo "github.com/dmarkin/timed-notifier/internal/repository/notification"
	"github.com/dmarkin/timed-notifier/internal/schedule"
	service "github.com/dmarkin/timed-notifier/internal/service/notification"
	"github.com/dmarkin/timed-notifier/internal/validate"
)

var testWindow = schedule.Window{StartHour: 8, EndHour: 22}

func setupHandler(t *testing.T) (*Handler, *mocks.MocknotificationService) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMocknotificationService(ctrl)
	return NewHandler(mockService, validator.New()), mockService
}

func testContext(w *httptest.ResponseRecorder, req *http.Request) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c
}

func scheduledNotification(id uuid.UUID) model.Notification {
	return model.Notification{
		ID:            id,
		RecipientID:   "user-1",
		Content:       "hello",
		Channel:       model.ChannelPush,
		Timezone:      "UTC",
		CreatedAt:     time.Now(),
		ScheduledTime: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		Status:        model.StatusScheduled,
		Priority:      5,
	}
}

func TestHandler_CreatePush_Success(t *testing.T) {
	handler, mockService := setupHandler(t)

	body, _ := json.Marshal(dto.CreateRequest{
		RecipientID:   "user-1",
		Content:       "hello",
		Timezone:      "Europe/Moscow",
		ScheduledTime: "2026-09-01T12:00:00+03:00",
		Priority:      7,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/push", bytes.NewReader(body))
	w := httptest.NewRecorder()
	c := testContext(w, req)

	id := uuid.New()
	mockService.EXPECT().
		Schedule(gomock.Any(), service.ScheduleRequest{
			RecipientID:   "user-1",
			Content:       "hello",
			Timezone:      "Europe/Moscow",
			ScheduledTime: "2026-09-01T12:00:00+03:00",
			Priority:      7,
			Channel:       model.ChannelPush,
		}).
		Return(scheduledNotification(id), nil)
	mockService.EXPECT().Window().Return(testWindow)

	handler.CreatePush(c)

	assert.Equal(t, http.StatusCreated, w.Result().StatusCode)

	var resp struct {
		Data dto.StatusResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, id, resp.Data.ID)
	assert.Equal(t, dto.StatePending, resp.Data.Status)
}

func TestHandler_CreateEmail_DefaultsApplied(t *testing.T) {
	handler, mockService := setupHandler(t)

	body, _ := json.Marshal(dto.CreateRequest{
		RecipientID: "user-2",
		Content:     "hi",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/email", bytes.NewReader(body))
	w := httptest.NewRecorder()
	c := testContext(w, req)

	mockService.EXPECT().
		Schedule(gomock.Any(), service.ScheduleRequest{
			RecipientID: "user-2",
			Content:     "hi",
			Timezone:    defaultTimezone,
			Priority:    defaultPriority,
			Channel:     model.ChannelEmail,
		}).
		Return(scheduledNotification(uuid.New()), nil)
	mockService.EXPECT().Window().Return(testWindow)

	handler.CreateEmail(c)

	assert.Equal(t, http.StatusCreated, w.Result().StatusCode)
}

func TestHandler_Create_ValidationError(t *testing.T) {
	handler, mockService := setupHandler(t)

	body, _ := json.Marshal(dto.CreateRequest{RecipientID: "user-1", Content: "hello", Priority: 99})
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/push", bytes.NewReader(body))
	w := httptest.NewRecorder()
	c := testContext(w, req)

	mockService.EXPECT().
		Schedule(gomock.Any(), gomock.Any()).
		Return(model.Notification{}, &validate.ValidationError{Violations: []string{"priority must be between 1 and 10"}})

	handler.CreatePush(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Create_BadBody(t *testing.T) {
	handler, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/notifications/push", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	c := testContext(w, req)

	handler.CreatePush(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Create_MissingRequiredFields(t *testing.T) {
	handler, _ := setupHandler(t)

	body, _ := json.Marshal(dto.CreateRequest{Content: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/push", bytes.NewReader(body))
	w := httptest.NewRecorder()
	c := testContext(w, req)

	handler.CreatePush(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_GetStatus_Success(t *testing.T) {
	handler, mockService := setupHandler(t)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/"+id.String(), nil)
	w := httptest.NewRecorder()
	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	n := scheduledNotification(id)
	n.Status = model.StatusDelivered
	mockService.EXPECT().Get(gomock.Any(), id).Return(n, nil)
	mockService.EXPECT().Window().Return(testWindow)

	handler.GetStatus(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)

	var resp struct {
		Data dto.StatusResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, dto.StateSent, resp.Data.Status)
	assert.Empty(t, resp.Data.EstimatedDeliveryTime)
}

func TestHandler_GetStatus_NotFound(t *testing.T) {
	handler, mockService := setupHandler(t)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/"+id.String(), nil)
	w := httptest.NewRecorder()
	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	mockService.EXPECT().Get(gomock.Any(), id).Return(model.Notification{}, repo.ErrNotificationNotFound)

	handler.GetStatus(c)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestHandler_GetStatus_InvalidID(t *testing.T) {
	handler, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/not-a-uuid", nil)
	w := httptest.NewRecorder()
	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	handler.GetStatus(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_List_MapsPublicStatus(t *testing.T) {
	handler, mockService := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/?status=Pending&recipient_id=user-1&limit=10", nil)
	w := httptest.NewRecorder()
	c := testContext(w, req)

	mockService.EXPECT().
		List(gomock.Any(), repo.ListFilter{
			Statuses:    []model.Status{model.StatusScheduled, model.StatusProcessing},
			RecipientID: "user-1",
			Limit:       10,
		}).
		Return([]model.Notification{scheduledNotification(uuid.New())}, nil)
	mockService.EXPECT().Window().Return(testWindow)

	handler.List(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestHandler_List_EmptyIsOK(t *testing.T) {
	handler, mockService := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/", nil)
	w := httptest.NewRecorder()
	c := testContext(w, req)

	mockService.EXPECT().
		List(gomock.Any(), gomock.Any()).
		Return(nil, repo.ErrNoNotificationsFound)

	handler.List(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), "[]")
}

func TestHandler_List_UnknownStatus(t *testing.T) {
	handler, _ := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/?status=pending", nil)
	w := httptest.NewRecorder()
	c := testContext(w, req)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Force_Success(t *testing.T) {
	handler, mockService := setupHandler(t)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/notifications/"+id.String()+"/force", nil)
	w := httptest.NewRecorder()
	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	n := scheduledNotification(id)
	n.Status = model.StatusProcessing
	mockService.EXPECT().ForceDelivery(gomock.Any(), id).Return(n, nil)
	mockService.EXPECT().Window().Return(testWindow)

	handler.Force(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestHandler_Cancel_Success(t *testing.T) {
	handler, mockService := setupHandler(t)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/notifications/"+id.String()+"/cancel", nil)
	w := httptest.NewRecorder()
	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	n := scheduledNotification(id)
	n.Status = model.StatusCancelled
	mockService.EXPECT().Cancel(gomock.Any(), id).Return(n, nil)
	mockService.EXPECT().Window().Return(testWindow)

	handler.Cancel(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)

	var resp struct {
		Data dto.StatusResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, dto.StateCancelled, resp.Data.Status)
}

func TestHandler_Cancel_InvalidState(t *testing.T) {
	handler, mockService := setupHandler(t)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/notifications/"+id.String()+"/cancel", nil)
	w := httptest.NewRecorder()
	c := testContext(w, req)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	mockService.EXPECT().Cancel(gomock.Any(), id).Return(model.Notification{}, model.ErrInvalidState)

	handler.Cancel(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}
