package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/delivery"
	"notification-service/internal/models"
	"notification-service/internal/service"
)

type fakeNotificationAPI struct {
	sendResult      *models.Notification
	sendErr         error
	broadcastResult delivery.Result
	broadcastErr    error
	listResult      []models.Notification
	markReadErr     error
	deleteErr       error
	lastSend        service.SendRequest
	lastList        struct {
		authUserID string
		unreadOnly bool
		limit      int
		offset     int
	}
}

func (f *fakeNotificationAPI) Send(ctx context.Context, req service.SendRequest) (*models.Notification, error) {
	f.lastSend = req
	return f.sendResult, f.sendErr
}

func (f *fakeNotificationAPI) Broadcast(ctx context.Context, req service.BroadcastRequest) (delivery.Result, error) {
	return f.broadcastResult, f.broadcastErr
}

func (f *fakeNotificationAPI) List(ctx context.Context, authUserID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	f.lastList.authUserID = authUserID
	f.lastList.unreadOnly = unreadOnly
	f.lastList.limit = limit
	f.lastList.offset = offset
	return f.listResult, nil
}

func (f *fakeNotificationAPI) MarkRead(ctx context.Context, id int64, authUserID string) error {
	return f.markReadErr
}

func (f *fakeNotificationAPI) Delete(ctx context.Context, id int64, authUserID string) error {
	return f.deleteErr
}

type fakeTemplateAPI struct {
	createResult *models.NotificationTemplate
	createErr    error
	getResult    *models.NotificationTemplate
	getErr       error
	listResult   []models.NotificationTemplate
	updateResult *models.NotificationTemplate
	updateErr    error
	deleteErr    error
}

func (f *fakeTemplateAPI) Create(ctx context.Context, req service.CreateTemplateRequest) (*models.NotificationTemplate, error) {
	return f.createResult, f.createErr
}

func (f *fakeTemplateAPI) Get(ctx context.Context, id int64) (*models.NotificationTemplate, error) {
	return f.getResult, f.getErr
}

func (f *fakeTemplateAPI) List(ctx context.Context, typ string) ([]models.NotificationTemplate, error) {
	return f.listResult, nil
}

func (f *fakeTemplateAPI) Update(ctx context.Context, id int64, patch models.TemplatePatch) (*models.NotificationTemplate, error) {
	return f.updateResult, f.updateErr
}

func (f *fakeTemplateAPI) Delete(ctx context.Context, id int64) error {
	return f.deleteErr
}

type fakeDeviceTokenAPI struct {
	registerResult *models.DeviceToken
	registerErr    error
	updateResult   *models.DeviceToken
	updateErr      error
	deleteErr      error
}

func (f *fakeDeviceTokenAPI) Register(ctx context.Context, req service.RegisterTokenRequest) (*models.DeviceToken, error) {
	return f.registerResult, f.registerErr
}

func (f *fakeDeviceTokenAPI) Update(ctx context.Context, token, authUserID string, patch models.DeviceTokenPatch) (*models.DeviceToken, error) {
	return f.updateResult, f.updateErr
}

func (f *fakeDeviceTokenAPI) Delete(ctx context.Context, token, authUserID string) error {
	return f.deleteErr
}

type testServer struct {
	*Server
	notifications *fakeNotificationAPI
	templates     *fakeTemplateAPI
	tokens        *fakeDeviceTokenAPI
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	notifications := &fakeNotificationAPI{}
	templates := &fakeTemplateAPI{}
	tokens := &fakeDeviceTokenAPI{}
	srv := New(notifications, templates, tokens, nil, logger.NewTestLogger(t))
	return &testServer{Server: srv, notifications: notifications, templates: templates, tokens: tokens}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestRegisterToken_Created(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens.registerResult = &models.DeviceToken{ID: 1, AuthUserID: "user-1", Token: "tok", IsActive: true}

	rec := doJSON(t, ts.Router(), http.MethodPost, "/v1/device-tokens", map[string]interface{}{
		"auth_user_id": "user-1",
		"device_type":  "android",
		"token":        "tok",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "Device token registered", env.Message)
}

func TestRegisterToken_SchemaRejectsBadDeviceType(t *testing.T) {
	ts := newTestServer(t)

	rec := doJSON(t, ts.Router(), http.MethodPost, "/v1/device-tokens", map[string]interface{}{
		"auth_user_id": "user-1",
		"device_type":  "desktop",
		"token":        "tok",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
}

func TestRegisterToken_OwnershipConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens.registerErr = apperrors.NewTokenOwnershipConflictError()

	rec := doJSON(t, ts.Router(), http.MethodPost, "/v1/device-tokens", map[string]interface{}{
		"auth_user_id": "user-1",
		"device_type":  "ios",
		"token":        "tok",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Device token is registered to another user", env.Message)
}

func TestUpdateToken(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens.updateResult = &models.DeviceToken{ID: 1, IsActive: false}

	rec := doJSON(t, ts.Router(), http.MethodPut, "/v1/device-tokens", map[string]interface{}{
		"auth_user_id": "user-1",
		"token":        "tok",
		"is_active":    false,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteToken_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens.deleteErr = apperrors.NewDeviceTokenNotFoundError()

	rec := doJSON(t, ts.Router(), http.MethodDelete, "/v1/device-tokens", map[string]interface{}{
		"auth_user_id": "user-1",
		"token":        "tok",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendNotification_Created(t *testing.T) {
	ts := newTestServer(t)
	ts.notifications.sendResult = &models.Notification{
		ID:             42,
		AuthUserID:     "user-1",
		Type:           models.TypeEmail,
		DeliveryStatus: models.StatusDelivered,
	}

	rec := doJSON(t, ts.Router(), http.MethodPost, "/v1/notifications", map[string]interface{}{
		"auth_user_id": "user-1",
		"type":         "email",
		"template_id":  7,
		"email":        "dana@example.com",
		"data":         map[string]string{"name": "Dana"},
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "dana@example.com", ts.notifications.lastSend.Email)
	assert.Equal(t, int64(7), ts.notifications.lastSend.TemplateID)
}

func TestSendNotification_MissingEmailIs400(t *testing.T) {
	ts := newTestServer(t)
	ts.notifications.sendErr = apperrors.NewValidationError("Email is required for email notifications")

	rec := doJSON(t, ts.Router(), http.MethodPost, "/v1/notifications", map[string]interface{}{
		"auth_user_id": "user-1",
		"type":         "email",
		"template_id":  7,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Email is required for email notifications", env.Message)
}

func TestSendNotification_TemplateNotFoundIs404(t *testing.T) {
	ts := newTestServer(t)
	ts.notifications.sendErr = apperrors.NewTemplateNotFoundError(99)

	rec := doJSON(t, ts.Router(), http.MethodPost, "/v1/notifications", map[string]interface{}{
		"auth_user_id": "user-1",
		"type":         "push",
		"template_id":  99,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Template not found", env.Message)
}

func TestSendNotification_ProviderFailureIs500(t *testing.T) {
	ts := newTestServer(t)
	ts.notifications.sendErr = apperrors.NewEmailSendFailedError(errors.New("554 relay access denied"))

	rec := doJSON(t, ts.Router(), http.MethodPost, "/v1/notifications", map[string]interface{}{
		"auth_user_id": "user-1",
		"type":         "email",
		"template_id":  7,
		"email":        "dana@example.com",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Email delivery failed", env.Message)
	// Transport details stay out of the response body.
	assert.NotContains(t, rec.Body.String(), "554")
}

func TestBroadcast(t *testing.T) {
	ts := newTestServer(t)
	ts.notifications.broadcastResult = delivery.Result{
		Success:      true,
		Status:       models.StatusPartial,
		SuccessCount: 8,
		FailureCount: 2,
	}

	rec := doJSON(t, ts.Router(), http.MethodPost, "/v1/notifications/broadcast", map[string]interface{}{
		"user_ids":    []string{"u1", "u2"},
		"template_id": 7,
		"priority":    "high",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "partial", data["status"])
	assert.Equal(t, float64(8), data["success_count"])
}

func TestListNotifications_QueryParams(t *testing.T) {
	ts := newTestServer(t)
	ts.notifications.listResult = []models.Notification{{ID: 1}}

	req := httptest.NewRequest(http.MethodGet, "/v1/notifications?auth_user_id=user-1&unread_only=true&limit=10&offset=5", nil)
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", ts.notifications.lastList.authUserID)
	assert.True(t, ts.notifications.lastList.unreadOnly)
	assert.Equal(t, 10, ts.notifications.lastList.limit)
	assert.Equal(t, 5, ts.notifications.lastList.offset)
}

func TestMarkRead(t *testing.T) {
	ts := newTestServer(t)

	rec := doJSON(t, ts.Router(), http.MethodPatch, "/v1/notifications/status", map[string]interface{}{
		"notification_id": 42,
		"auth_user_id":    "user-1",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTemplate_DuplicateNameIs409(t *testing.T) {
	ts := newTestServer(t)
	ts.templates.createErr = apperrors.NewDuplicateTemplateNameError("welcome")

	rec := doJSON(t, ts.Router(), http.MethodPost, "/v1/templates", map[string]interface{}{
		"name":    "welcome",
		"type":    "email",
		"subject": "s",
		"content": "c",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetTemplate_BadID(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/templates/abc", nil)
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTemplate(t *testing.T) {
	ts := newTestServer(t)
	ts.templates.updateResult = &models.NotificationTemplate{ID: 7, Subject: "Updated"}

	rec := doJSON(t, ts.Router(), http.MethodPut, "/v1/templates/7", map[string]interface{}{
		"subject": "Updated",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz_DegradedDependency(t *testing.T) {
	notifications := &fakeNotificationAPI{}
	srv := New(notifications, &fakeTemplateAPI{}, &fakeDeviceTokenAPI{}, map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return errors.New("connection refused") },
	}, logger.NewNoOpLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestInvalidJSONBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
