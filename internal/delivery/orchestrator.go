// Package delivery routes rendered notifications to the configured
// channel and reports a structured outcome. The orchestrator never
// writes notification rows; persistence stays with the caller.
package delivery

import (
	"context"
	"sync"
	"time"

	"notification-service/internal/channel/email"
	"notification-service/internal/channel/push"
	apperrors "notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/common/metrics"
	"notification-service/internal/common/observability"
	"notification-service/internal/models"
	"notification-service/internal/template"
)

// TemplateSource resolves templates for rendering.
type TemplateSource interface {
	GetByID(ctx context.Context, id int64) (*models.NotificationTemplate, error)
}

// TokenSource lists a user's active device tokens.
type TokenSource interface {
	ActiveTokensForUser(ctx context.Context, authUserID string) ([]models.DeviceToken, error)
}

// EmailChannel sends one rendered email.
type EmailChannel interface {
	Send(ctx context.Context, to, from, subject, htmlBody string) email.Result
}

// PushChannel sends rendered push messages.
type PushChannel interface {
	SendToTokens(ctx context.Context, tokens []models.DeviceToken, msg push.Message) push.Result
	SendMulticast(ctx context.Context, tokens []models.DeviceToken, msg push.Message) push.Aggregate
}

// Result is the outcome of one delivery attempt. RenderedTitle and
// RenderedContent carry the substituted template text so the caller
// can backfill them onto the notification row.
type Result struct {
	Success         bool
	Status          models.DeliveryStatus
	SuccessCount    int
	FailureCount    int
	MessageID       string
	RenderedTitle   string
	RenderedContent string
	Error           string
	Errors          []string
}

// BroadcastOptions carry the payload extras attached to every push in
// a broadcast.
type BroadcastOptions struct {
	NotificationType string
	AdditionalData   map[string]string
	Priority         string
}

type Orchestrator struct {
	templates TemplateSource
	tokens    TokenSource
	emailCh   EmailChannel
	pushCh    PushChannel
	emailFrom string
	obs       *observability.Observability
	log       logger.Logger
}

// NewOrchestrator wires the channels. A nil channel means that
// transport is disabled; dispatching to it fails with a configuration
// error instead of panicking.
func NewOrchestrator(
	templates TemplateSource,
	tokens TokenSource,
	emailCh EmailChannel,
	pushCh PushChannel,
	emailFrom string,
	obs *observability.Observability,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		templates: templates,
		tokens:    tokens,
		emailCh:   emailCh,
		pushCh:    pushCh,
		emailFrom: emailFrom,
		obs:       obs,
		log:       log.WithFields(map[string]interface{}{"component": "delivery"}),
	}
}

// Deliver renders templateID with data and dispatches it over the
// notification's channel. Pre-dispatch failures (missing template,
// unknown type, disabled channel) return an error; once a provider is
// called the outcome is reported through Result.
func (o *Orchestrator) Deliver(ctx context.Context, n *models.Notification, templateID int64, data map[string]string) (Result, error) {
	tmpl, err := o.templates.GetByID(ctx, templateID)
	if err != nil {
		return Result{}, err
	}

	subject, content := template.RenderAll(tmpl.Subject, tmpl.Content, data)
	start := time.Now()

	var result Result
	switch n.Type {
	case models.TypeEmail:
		result, err = o.deliverEmail(ctx, n, subject, content)
	case models.TypePush:
		result, err = o.deliverPush(ctx, n, subject, content, data)
	default:
		return Result{}, apperrors.NewInvalidNotificationTypeError(string(n.Type))
	}
	if err != nil {
		return Result{}, err
	}

	result.RenderedTitle = subject
	result.RenderedContent = content
	o.record(ctx, string(n.Type), result.Status, time.Since(start))
	return result, nil
}

func (o *Orchestrator) deliverEmail(ctx context.Context, n *models.Notification, subject, content string) (Result, error) {
	if o.emailCh == nil {
		return Result{}, apperrors.NewChannelMisconfiguredError("email", "SMTP transport is disabled")
	}

	to := ""
	if n.Email != nil {
		to = *n.Email
	}

	sent := o.emailCh.Send(ctx, to, o.emailFrom, subject, content)
	result := Result{
		Success:   sent.Success,
		Status:    sent.Status,
		MessageID: sent.MessageID,
		Error:     sent.Error,
	}
	if sent.Success {
		result.SuccessCount = 1
	} else {
		result.FailureCount = 1
		result.Errors = []string{sent.Error}
	}
	return result, nil
}

func (o *Orchestrator) deliverPush(ctx context.Context, n *models.Notification, title, body string, data map[string]string) (Result, error) {
	if o.pushCh == nil {
		return Result{}, apperrors.NewChannelMisconfiguredError("push", "Firebase transport is disabled")
	}

	tokens, err := o.tokens.ActiveTokensForUser(ctx, n.AuthUserID)
	if err != nil {
		return Result{}, err
	}

	sent := o.pushCh.SendToTokens(ctx, tokens, push.Message{
		Title: title,
		Body:  body,
		Data:  data,
	})
	return Result{
		Success:      sent.Success,
		Status:       sent.Status,
		SuccessCount: sent.SuccessCount,
		FailureCount: sent.FailureCount,
		Error:        sent.Error,
		Errors:       sent.Errors,
	}, nil
}

// Broadcast renders templateID once and pushes it to every active
// token of the given users. Token reads run concurrently per user;
// the provider calls stay sequential. Broadcasts do not create
// notification rows.
func (o *Orchestrator) Broadcast(ctx context.Context, userIDs []string, templateID int64, data map[string]string, opts BroadcastOptions) (Result, error) {
	if o.pushCh == nil {
		return Result{}, apperrors.NewChannelMisconfiguredError("push", "Firebase transport is disabled")
	}

	tmpl, err := o.templates.GetByID(ctx, templateID)
	if err != nil {
		return Result{}, err
	}
	if tmpl.Type != models.TypePush {
		return Result{}, apperrors.NewValidationError("Broadcast requires a push template")
	}

	title, body := template.RenderAll(tmpl.Subject, tmpl.Content, data)
	tokens := o.collectTokens(ctx, userIDs)
	if len(tokens) == 0 {
		return Result{
			Status: models.StatusFailed,
			Error:  "No active device tokens found",
		}, nil
	}

	payload := make(map[string]string, len(data)+len(opts.AdditionalData)+1)
	for k, v := range data {
		payload[k] = v
	}
	for k, v := range opts.AdditionalData {
		payload[k] = v
	}
	if opts.NotificationType != "" {
		payload["type"] = opts.NotificationType
	}

	start := time.Now()
	agg := o.pushCh.SendMulticast(ctx, tokens, push.Message{
		Title:    title,
		Body:     body,
		Data:     payload,
		Priority: opts.Priority,
	})

	result := Result{
		Success:      agg.SuccessCount > 0,
		Status:       agg.Status(),
		SuccessCount: agg.SuccessCount,
		FailureCount: agg.FailureCount,
		Errors:       agg.Errors,
	}
	if !result.Success && len(agg.Errors) > 0 {
		result.Error = agg.Errors[0]
	}

	o.record(ctx, "push", result.Status, time.Since(start))
	o.log.Info("broadcast dispatched", map[string]interface{}{
		"users":        len(userIDs),
		"tokens":       len(tokens),
		"successCount": result.SuccessCount,
		"failureCount": result.FailureCount,
	})
	return result, nil
}

// collectTokens fans out one token read per user and merges the
// results. A failed read logs and contributes nothing; the broadcast
// still reaches everyone else.
func (o *Orchestrator) collectTokens(ctx context.Context, userIDs []string) []models.DeviceToken {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		merged []models.DeviceToken
	)

	for _, userID := range userIDs {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			tokens, err := o.tokens.ActiveTokensForUser(ctx, uid)
			if err != nil {
				o.log.Warn("token lookup failed during broadcast", map[string]interface{}{
					"authUserId": uid,
					"error":      err.Error(),
				})
				return
			}
			mu.Lock()
			merged = append(merged, tokens...)
			mu.Unlock()
		}(userID)
	}
	wg.Wait()

	return merged
}

func (o *Orchestrator) record(ctx context.Context, channel string, status models.DeliveryStatus, elapsed time.Duration) {
	metrics.NotificationsDelivered.WithLabelValues(channel, string(status)).Inc()
	if o.obs != nil {
		o.obs.RecordDelivery(ctx, channel, string(status))
		o.obs.RecordDeliveryDuration(ctx, elapsed, channel)
	}
}
