package delivery

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-service/internal/channel/email"
	"notification-service/internal/channel/push"
	apperrors "notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/models"
)

type fakeTemplates struct {
	tmpl *models.NotificationTemplate
	err  error
}

func (f *fakeTemplates) GetByID(ctx context.Context, id int64) (*models.NotificationTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tmpl, nil
}

type fakeTokens struct {
	mu      sync.Mutex
	byUser  map[string][]models.DeviceToken
	queried []string
}

func (f *fakeTokens) ActiveTokensForUser(ctx context.Context, authUserID string) ([]models.DeviceToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, authUserID)
	return f.byUser[authUserID], nil
}

type fakeEmail struct {
	result   email.Result
	lastTo   string
	lastFrom string
	lastSubj string
	lastBody string
}

func (f *fakeEmail) Send(ctx context.Context, to, from, subject, htmlBody string) email.Result {
	f.lastTo, f.lastFrom, f.lastSubj, f.lastBody = to, from, subject, htmlBody
	return f.result
}

type fakePush struct {
	result     push.Result
	aggregate  push.Aggregate
	lastTokens []models.DeviceToken
	lastMsg    push.Message
}

func (f *fakePush) SendToTokens(ctx context.Context, tokens []models.DeviceToken, msg push.Message) push.Result {
	f.lastTokens, f.lastMsg = tokens, msg
	return f.result
}

func (f *fakePush) SendMulticast(ctx context.Context, tokens []models.DeviceToken, msg push.Message) push.Aggregate {
	f.lastTokens, f.lastMsg = tokens, msg
	return f.aggregate
}

func welcomeTemplate() *models.NotificationTemplate {
	return &models.NotificationTemplate{
		ID:      7,
		Name:    "welcome",
		Type:    models.TypeEmail,
		Subject: "Welcome {{name}}",
		Content: "<p>Hello {{name}}, your code is {{code}}</p>",
	}
}

func strPtr(s string) *string { return &s }

func TestDeliver_EmailRendersAndSends(t *testing.T) {
	emailCh := &fakeEmail{result: email.Result{
		Success:   true,
		Status:    models.StatusDelivered,
		MessageID: "<abc@smtp.example.com>",
	}}
	o := NewOrchestrator(&fakeTemplates{tmpl: welcomeTemplate()}, &fakeTokens{}, emailCh, nil,
		"noreply@example.com", nil, logger.NewNoOpLogger())

	n := &models.Notification{
		AuthUserID: "user-1",
		Type:       models.TypeEmail,
		Email:      strPtr("dana@example.com"),
	}
	result, err := o.Deliver(context.Background(), n, 7, map[string]string{"name": "Dana"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.StatusDelivered, result.Status)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, "<abc@smtp.example.com>", result.MessageID)
	assert.Equal(t, "dana@example.com", emailCh.lastTo)
	assert.Equal(t, "noreply@example.com", emailCh.lastFrom)
	assert.Equal(t, "Welcome Dana", emailCh.lastSubj)
	// Unmatched tokens stay verbatim in the rendered body.
	assert.Equal(t, "<p>Hello Dana, your code is {{code}}</p>", emailCh.lastBody)
}

func TestDeliver_EmailFailureReported(t *testing.T) {
	emailCh := &fakeEmail{result: email.Result{
		Success: false,
		Status:  models.StatusFailed,
		Error:   "554 relay access denied",
	}}
	o := NewOrchestrator(&fakeTemplates{tmpl: welcomeTemplate()}, &fakeTokens{}, emailCh, nil,
		"noreply@example.com", nil, logger.NewNoOpLogger())

	n := &models.Notification{Type: models.TypeEmail, Email: strPtr("dana@example.com")}
	result, err := o.Deliver(context.Background(), n, 7, nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, "554 relay access denied", result.Error)
}

func TestDeliver_TemplateNotFound(t *testing.T) {
	o := NewOrchestrator(&fakeTemplates{err: apperrors.NewTemplateNotFoundError(99)}, &fakeTokens{},
		&fakeEmail{}, nil, "noreply@example.com", nil, logger.NewNoOpLogger())

	n := &models.Notification{Type: models.TypeEmail, Email: strPtr("dana@example.com")}
	_, err := o.Deliver(context.Background(), n, 99, nil)

	require.Error(t, err)
	stdErr := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeTemplateNotFound, stdErr.Code)
	assert.Equal(t, "Template not found", stdErr.Message)
}

func TestDeliver_UnknownTypeIsConfigurationError(t *testing.T) {
	o := NewOrchestrator(&fakeTemplates{tmpl: welcomeTemplate()}, &fakeTokens{},
		&fakeEmail{}, &fakePush{}, "noreply@example.com", nil, logger.NewNoOpLogger())

	n := &models.Notification{Type: "sms"}
	_, err := o.Deliver(context.Background(), n, 7, nil)

	require.Error(t, err)
	stdErr := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeInvalidNotificationType, stdErr.Code)
}

func TestDeliver_EmailChannelDisabled(t *testing.T) {
	o := NewOrchestrator(&fakeTemplates{tmpl: welcomeTemplate()}, &fakeTokens{},
		nil, &fakePush{}, "", nil, logger.NewNoOpLogger())

	n := &models.Notification{Type: models.TypeEmail, Email: strPtr("dana@example.com")}
	_, err := o.Deliver(context.Background(), n, 7, nil)

	require.Error(t, err)
	stdErr := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeChannelMisconfigured, stdErr.Code)
}

func TestDeliver_PushSendsToActiveTokens(t *testing.T) {
	tokens := &fakeTokens{byUser: map[string][]models.DeviceToken{
		"user-1": {{ID: 1, Token: "tok-a"}, {ID: 2, Token: "tok-b"}},
	}}
	pushCh := &fakePush{result: push.Result{
		Success:      true,
		Status:       models.StatusDelivered,
		SuccessCount: 2,
	}}
	tmpl := welcomeTemplate()
	tmpl.Type = models.TypePush
	o := NewOrchestrator(&fakeTemplates{tmpl: tmpl}, tokens, nil, pushCh,
		"", nil, logger.NewNoOpLogger())

	n := &models.Notification{AuthUserID: "user-1", Type: models.TypePush}
	result, err := o.Deliver(context.Background(), n, 7, map[string]string{"name": "Dana"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Len(t, pushCh.lastTokens, 2)
	assert.Equal(t, "Welcome Dana", pushCh.lastMsg.Title)
}

func TestDeliver_PushNoActiveTokens(t *testing.T) {
	pushCh := &fakePush{result: push.Result{
		Success: false,
		Status:  models.StatusFailed,
		Error:   "No active device tokens found",
	}}
	tmpl := welcomeTemplate()
	tmpl.Type = models.TypePush
	o := NewOrchestrator(&fakeTemplates{tmpl: tmpl}, &fakeTokens{}, nil, pushCh,
		"", nil, logger.NewNoOpLogger())

	n := &models.Notification{AuthUserID: "user-1", Type: models.TypePush}
	result, err := o.Deliver(context.Background(), n, 7, nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "No active device tokens found", result.Error)
}

func pushTemplate() *models.NotificationTemplate {
	tmpl := welcomeTemplate()
	tmpl.Type = models.TypePush
	return tmpl
}

func TestBroadcast_MergesTokensAcrossUsers(t *testing.T) {
	tokens := &fakeTokens{byUser: map[string][]models.DeviceToken{
		"user-1": {{ID: 1, Token: "tok-a"}},
		"user-2": {{ID: 2, Token: "tok-b"}, {ID: 3, Token: "tok-c"}},
		"user-3": nil,
	}}
	pushCh := &fakePush{aggregate: push.Aggregate{SuccessCount: 3}}
	o := NewOrchestrator(&fakeTemplates{tmpl: pushTemplate()}, tokens, nil, pushCh,
		"", nil, logger.NewNoOpLogger())

	result, err := o.Broadcast(context.Background(), []string{"user-1", "user-2", "user-3"}, 7,
		map[string]string{"name": "all"}, BroadcastOptions{
			NotificationType: "announcement",
			AdditionalData:   map[string]string{"deep_link": "/news"},
			Priority:         "normal",
		})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.StatusDelivered, result.Status)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Len(t, pushCh.lastTokens, 3)

	sort.Strings(tokens.queried)
	assert.Equal(t, []string{"user-1", "user-2", "user-3"}, tokens.queried)

	assert.Equal(t, "announcement", pushCh.lastMsg.Data["type"])
	assert.Equal(t, "/news", pushCh.lastMsg.Data["deep_link"])
	assert.Equal(t, "all", pushCh.lastMsg.Data["name"])
	assert.Equal(t, "normal", pushCh.lastMsg.Priority)
}

func TestBroadcast_NoTokensAnywhere(t *testing.T) {
	pushCh := &fakePush{}
	o := NewOrchestrator(&fakeTemplates{tmpl: pushTemplate()}, &fakeTokens{}, nil, pushCh,
		"", nil, logger.NewNoOpLogger())

	result, err := o.Broadcast(context.Background(), []string{"user-1"}, 7, nil, BroadcastOptions{})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Equal(t, "No active device tokens found", result.Error)
	assert.Nil(t, pushCh.lastTokens)
}

func TestBroadcast_RejectsNonPushTemplate(t *testing.T) {
	o := NewOrchestrator(&fakeTemplates{tmpl: welcomeTemplate()}, &fakeTokens{}, nil, &fakePush{},
		"", nil, logger.NewNoOpLogger())

	_, err := o.Broadcast(context.Background(), []string{"user-1"}, 7, nil, BroadcastOptions{})

	require.Error(t, err)
	stdErr := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, stdErr.Code)
}

func TestBroadcast_PartialOutcome(t *testing.T) {
	tokens := &fakeTokens{byUser: map[string][]models.DeviceToken{
		"user-1": {{ID: 1, Token: "tok-a"}, {ID: 2, Token: "tok-b"}},
	}}
	pushCh := &fakePush{aggregate: push.Aggregate{
		SuccessCount: 1,
		FailureCount: 1,
		Errors:       []string{"registration-token-not-registered"},
	}}
	o := NewOrchestrator(&fakeTemplates{tmpl: pushTemplate()}, tokens, nil, pushCh,
		"", nil, logger.NewNoOpLogger())

	result, err := o.Broadcast(context.Background(), []string{"user-1"}, 7, nil, BroadcastOptions{})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.StatusPartial, result.Status)
	assert.Equal(t, 1, result.FailureCount)
}
