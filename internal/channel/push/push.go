// Package push is the Firebase Cloud Messaging delivery channel.
package push

import (
	"context"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"notification-service/internal/common/config"
	"notification-service/internal/common/logger"
	"notification-service/internal/common/metrics"
	"notification-service/internal/models"
)

const (
	// FCM rejects tokens outside this length range without trying them.
	maxTokenLength = 4096
	// Provider hard limit on tokens per multicast call.
	maxTokensPerCall = 500
)

// MessagingClient is the subset of the FCM client the channel uses;
// tests substitute a fake.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// TokenDeactivator marks tokens the provider rejected as inactive.
type TokenDeactivator interface {
	Deactivate(ctx context.Context, ids []int64)
}

// Message is one rendered push payload.
type Message struct {
	Title    string
	Body     string
	Data     map[string]string
	Priority string // "high" or "normal"
}

// Aggregate accumulates per-chunk outcomes across a multicast send.
type Aggregate struct {
	SuccessCount int
	FailureCount int
	Errors       []string
}

// Status maps the aggregate counters onto a delivery status:
// delivered when nothing failed, partial when both sides are non-zero,
// failed when nothing got through.
func (a Aggregate) Status() models.DeliveryStatus {
	switch {
	case a.SuccessCount > 0 && a.FailureCount == 0:
		return models.StatusDelivered
	case a.SuccessCount > 0:
		return models.StatusPartial
	default:
		return models.StatusFailed
	}
}

// Result is the structured outcome of one push dispatch.
type Result struct {
	Success      bool
	Status       models.DeliveryStatus
	SuccessCount int
	FailureCount int
	Error        string
	Errors       []string
}

type Channel struct {
	client MessagingClient
	tokens TokenDeactivator
	log    logger.Logger
}

func NewChannel(client MessagingClient, tokens TokenDeactivator, log logger.Logger) *Channel {
	return &Channel{
		client: client,
		tokens: tokens,
		log:    log.WithFields(map[string]interface{}{"channel": "push"}),
	}
}

// NewMessagingClient builds the real FCM client from configuration.
func NewMessagingClient(ctx context.Context, cfg config.FirebaseConfig) (MessagingClient, error) {
	opts := []option.ClientOption{}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, err
	}
	return app.Messaging(ctx)
}

// SendToTokens dispatches one rendered message to a user's device
// tokens. A single valid token takes the lighter single-send path;
// anything more goes through the multicast path so per-token failures
// are partitioned and bad tokens deactivated.
func (c *Channel) SendToTokens(ctx context.Context, tokens []models.DeviceToken, msg Message) Result {
	if len(tokens) == 0 {
		return Result{
			Success: false,
			Status:  models.StatusFailed,
			Error:   "No active device tokens found",
		}
	}

	valid := filterTokens(tokens)
	if len(valid) == 0 {
		return Result{
			Success: false,
			Status:  models.StatusFailed,
			Error:   "No valid device tokens found",
		}
	}

	if len(valid) == 1 {
		return c.sendOne(ctx, valid[0], msg)
	}

	agg := c.SendMulticast(ctx, valid, msg)
	return resultFromAggregate(agg)
}

func (c *Channel) sendOne(ctx context.Context, token models.DeviceToken, msg Message) Result {
	message := &messaging.Message{
		Token: strings.TrimSpace(token.Token),
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data:    msg.Data,
		Android: androidConfig(msg.Priority),
	}

	if _, err := c.client.Send(ctx, message); err != nil {
		c.log.Error("push send failed", map[string]interface{}{
			"tokenId": token.ID,
			"error":   err.Error(),
		})
		if messaging.IsUnregistered(err) {
			c.tokens.Deactivate(ctx, []int64{token.ID})
		}
		return Result{
			Success:      false,
			Status:       models.StatusFailed,
			FailureCount: 1,
			Error:        err.Error(),
			Errors:       []string{err.Error()},
		}
	}

	return Result{
		Success:      true,
		Status:       models.StatusDelivered,
		SuccessCount: 1,
	}
}

// SendMulticast sends one message to many tokens in chunks of at most
// 500. Chunks run sequentially; a chunk-level transport failure is
// recorded and the remaining chunks still go out. Tokens the provider
// fails are matched back to their DeviceToken rows by trimmed token
// string and deactivated best-effort.
func (c *Channel) SendMulticast(ctx context.Context, tokens []models.DeviceToken, msg Message) Aggregate {
	valid := filterTokens(tokens)

	// Trimmed token string -> row ids. Duplicate registrations of the
	// same token all get deactivated together.
	idsByToken := make(map[string][]int64, len(valid))
	ordered := make([]string, 0, len(valid))
	for _, dt := range valid {
		trimmed := strings.TrimSpace(dt.Token)
		if _, seen := idsByToken[trimmed]; !seen {
			ordered = append(ordered, trimmed)
		}
		idsByToken[trimmed] = append(idsByToken[trimmed], dt.ID)
	}

	agg := Aggregate{}

	for _, chunk := range chunkTokens(ordered, maxTokensPerCall) {
		message := &messaging.MulticastMessage{
			Tokens: chunk,
			Notification: &messaging.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data:    msg.Data,
			Android: androidConfig(msg.Priority),
		}

		response, err := c.client.SendEachForMulticast(ctx, message)
		if err != nil {
			// One bad chunk must not abort the rest of the broadcast.
			c.log.Error("push chunk send failed", map[string]interface{}{
				"chunkSize": len(chunk),
				"error":     err.Error(),
			})
			metrics.PushChunksSent.WithLabelValues("error").Inc()
			agg.FailureCount += len(chunk)
			agg.Errors = append(agg.Errors, err.Error())
			continue
		}

		metrics.PushChunksSent.WithLabelValues("ok").Inc()
		agg.SuccessCount += response.SuccessCount
		agg.FailureCount += response.FailureCount

		if response.FailureCount > 0 {
			failedIDs := []int64{}
			for i, resp := range response.Responses {
				if resp.Success {
					continue
				}
				failedIDs = append(failedIDs, idsByToken[chunk[i]]...)
				if resp.Error != nil {
					agg.Errors = append(agg.Errors, resp.Error.Error())
				}
			}
			c.tokens.Deactivate(ctx, failedIDs)
		}
	}

	return agg
}

func resultFromAggregate(agg Aggregate) Result {
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
	return result
}

// filterTokens trims tokens and drops those outside the 1..4096
// length bound.
func filterTokens(tokens []models.DeviceToken) []models.DeviceToken {
	valid := make([]models.DeviceToken, 0, len(tokens))
	for _, dt := range tokens {
		trimmed := strings.TrimSpace(dt.Token)
		if len(trimmed) > 0 && len(trimmed) <= maxTokenLength {
			valid = append(valid, dt)
		}
	}
	return valid
}

// chunkTokens partitions tokens into consecutive chunks of at most
// size elements.
func chunkTokens(tokens []string, size int) [][]string {
	chunks := [][]string{}
	for i := 0; i < len(tokens); i += size {
		end := i + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[i:end])
	}
	return chunks
}

func androidConfig(priority string) *messaging.AndroidConfig {
	if priority == "" {
		priority = "high"
	}
	return &messaging.AndroidConfig{Priority: priority}
}
