package types

import (
	"time"

	"github.com/google/uuid"
)

// Subscription registers a consumer's interest in processed data points.
//
// A subscription matches points of its Category whose structured value or
// metadata carries every Filters entry exactly. Delivery targets are
// independent: any combination of webhook, email, and broadcast topic may be
// set, and each is attempted in isolation.
type Subscription struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	Category       Category       `json:"category"`
	Filters        map[string]any `json:"filters,omitempty"`
	Active         bool           `json:"active"`
	WebhookURL     string         `json:"webhook_url,omitempty"`
	Email          string         `json:"email,omitempty"`
	BroadcastTopic string         `json:"broadcast_topic,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	LastNotified   *time.Time     `json:"last_notified,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewSubscription creates an active subscription for a category.
func NewSubscription(userID uuid.UUID, category Category) *Subscription {
	return &Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		Category:  category,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

// NotificationData is the point digest carried inside a notification event.
// It deliberately excludes the raw value and location.
type NotificationData struct {
	ID        uuid.UUID `json:"id"`
	Category  Category  `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary"`
}

// NotificationEvent is the ephemeral payload delivered to a matched
// subscriber. Events are not persisted; a failed delivery after retries is
// dropped.
type NotificationEvent struct {
	Type           string           `json:"type"`
	SubscriptionID uuid.UUID        `json:"subscription_id"`
	Data           NotificationData `json:"data"`
}

// NewDataEvent builds the standard "new_data" event for a point matched to a
// subscription.
func NewDataEvent(sub *Subscription, point *DataPoint) NotificationEvent {
	return NotificationEvent{
		Type:           "new_data",
		SubscriptionID: sub.ID,
		Data: NotificationData{
			ID:        point.ID,
			Category:  point.Category,
			Timestamp: point.Timestamp,
			Summary:   point.Summary(),
		},
	}
}
